package augur

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"news-intel/internal/domain"
	"news-intel/internal/infra/httpclient"
)

// TagRequest is the request payload for the NER endpoint.
type TagRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

// TagResponseEntity is a single span in the NER response.
type TagResponseEntity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// TagResponse is the response from the NER endpoint.
type TagResponse struct {
	Entities []TagResponseEntity `json:"entities"`
	Model    string              `json:"model"`
}

// NERClient implements domain.EntityTagger via HTTP calls to the
// statistical tagger sidecar.
type NERClient struct {
	BaseURL string
	Model   string
	Client  *http.Client
	logger  *slog.Logger
}

func NewNERClient(baseURL, model string, timeout time.Duration, logger *slog.Logger) *NERClient {
	return &NERClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  httpclient.NewPooledClient(timeout),
		logger:  logger,
	}
}

func (c *NERClient) Tag(ctx context.Context, text string) ([]domain.TaggedSpan, error) {
	startTime := time.Now()

	c.logger.Info("tagging_started",
		slog.String("text", truncateString(text, 100)),
		slog.String("model", c.Model))

	reqBody := TagRequest{
		Text:  text,
		Model: c.Model,
	}
	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tag request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/ner", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create tag request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		c.logger.Warn("tagging_failed",
			slog.String("error", err.Error()),
			slog.Int64("elapsed_ms", time.Since(startTime).Milliseconds()))
		return nil, fmt.Errorf("failed to call ner endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn("tagging_failed",
			slog.Int("status_code", resp.StatusCode),
			slog.String("body", truncateString(string(body), 500)),
			slog.Int64("elapsed_ms", time.Since(startTime).Milliseconds()))
		return nil, fmt.Errorf("ner endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tagResp TagResponse
	if err := json.NewDecoder(resp.Body).Decode(&tagResp); err != nil {
		return nil, fmt.Errorf("failed to decode ner response: %w", err)
	}

	spans := make([]domain.TaggedSpan, 0, len(tagResp.Entities))
	for _, e := range tagResp.Entities {
		spans = append(spans, domain.TaggedSpan{
			Text: e.Text,
			Kind: strings.ToUpper(e.Label),
		})
	}

	c.logger.Info("tagging_completed",
		slog.Int("span_count", len(spans)),
		slog.String("model", tagResp.Model),
		slog.Int64("elapsed_ms", time.Since(startTime).Milliseconds()))

	return spans, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

var _ domain.EntityTagger = (*NERClient)(nil)
