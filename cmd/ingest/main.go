// ingest submits NDJSON article files to a running news-intel server.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	delay     time.Duration
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Submit articles to the news-intel pipeline",
	Long: `Reads newline-delimited JSON articles from a file (or stdin when no
file is given) and submits each one to the processing endpoint in order.

Each line must be a JSON object with article_id, title, body, source and
published_at fields.

Example usage:
  ingest articles.ndjson
  cat articles.ndjson | ingest --server http://localhost:9020`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runIngest,
}

func init() {
	rootCmd.Flags().StringVar(&serverURL, "server", "http://localhost:9020", "news-intel server URL")
	rootCmd.Flags().DurationVar(&delay, "delay", 200*time.Millisecond, "pause between submissions")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "per-article request timeout")
}

type processingResult struct {
	ArticleID   string `json:"article_id"`
	IsDuplicate bool   `json:"is_duplicate"`
	Error       string `json:"error"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	var input io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		input = f
	}

	client := &http.Client{Timeout: timeout}
	endpoint := strings.TrimRight(serverURL, "/") + "/v1/articles"

	var total, succeeded, duplicates, failed int

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		total++

		// Lines are passed through as-is; the server validates them.
		if !json.Valid([]byte(line)) {
			fmt.Fprintf(os.Stderr, "line %d: not valid JSON, skipping\n", total)
			failed++
			continue
		}

		resp, err := client.Post(endpoint, "application/json", bytes.NewReader([]byte(line)))
		if err != nil {
			fmt.Fprintf(os.Stderr, "line %d: request failed: %v\n", total, err)
			failed++
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "line %d: status %d: %s\n", total, resp.StatusCode, strings.TrimSpace(string(body)))
			failed++
			continue
		}

		var result processingResult
		if err := json.Unmarshal(body, &result); err == nil {
			if result.Error != "" {
				fmt.Fprintf(os.Stderr, "article %s: pipeline error: %s\n", result.ArticleID, result.Error)
				failed++
				continue
			}
			if result.IsDuplicate {
				duplicates++
			}
		}
		succeeded++

		if total%100 == 0 {
			fmt.Printf("Submitted %d articles...\n", total)
		}

		if delay > 0 {
			time.Sleep(delay)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	fmt.Printf("Ingest complete. Total: %d, Success: %d (duplicates: %d), Failed: %d\n",
		total, succeeded, duplicates, failed)
	if failed > 0 {
		return fmt.Errorf("%d articles failed", failed)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
