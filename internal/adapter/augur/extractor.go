package augur

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"news-intel/internal/domain"
	"news-intel/internal/infra/httpclient"
)

const extractionKeepAlive = -1

func stringListSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":  "array",
		"items": map[string]interface{}{"type": "string"},
	}
}

// extractionFormat forces the model into a fixed JSON shape so the
// response decodes without any prose stripping.
var extractionFormat = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"companies":  stringListSchema(),
		"sectors":    stringListSchema(),
		"regulators": stringListSchema(),
		"people":     stringListSchema(),
		"events":     stringListSchema(),
	},
	"required": []string{"companies", "sectors", "regulators", "people", "events"},
}

const extractionPromptTemplate = `You are a financial news analyst. Extract the named entities from this Indian financial news article.

Title: %s

Body: %s

Return only entities explicitly mentioned in the text:
- companies: listed company names (e.g. "HDFC Bank", "Reliance Industries")
- sectors: industry sectors (e.g. "Banking", "IT", "Pharma")
- regulators: regulatory bodies (e.g. "RBI", "SEBI", "IRDAI")
- people: executives, officials and other notable persons
- events: market-moving events (e.g. "merger", "rate hike", "IPO")`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string                 `json:"model"`
	Messages  []chatMessage          `json:"messages"`
	Stream    bool                   `json:"stream"`
	KeepAlive int                    `json:"keep_alive"`
	Format    map[string]interface{} `json:"format"`
	Options   map[string]interface{} `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

type extractionPayload struct {
	Companies  []string `json:"companies"`
	Sectors    []string `json:"sectors"`
	Regulators []string `json:"regulators"`
	People     []string `json:"people"`
	Events     []string `json:"events"`
}

// OllamaExtractor implements domain.EntityExtractor via Ollama's chat
// endpoint with structured output.
type OllamaExtractor struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewOllamaExtractor(baseURL, model string, timeout time.Duration) *OllamaExtractor {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaExtractor{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  httpclient.NewPooledClient(timeout),
	}
}

func (x *OllamaExtractor) Extract(ctx context.Context, title, body string) (domain.EntityLists, error) {
	prompt := fmt.Sprintf(extractionPromptTemplate, title, body)

	content, err := chatOnce(ctx, x.Client, x.BaseURL, chatRequest{
		Model:     x.Model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		Stream:    false,
		KeepAlive: extractionKeepAlive,
		Format:    extractionFormat,
		Options: map[string]interface{}{
			"temperature": 0.0,
		},
	})
	if err != nil {
		return domain.EntityLists{}, err
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return domain.EntityLists{}, fmt.Errorf("failed to parse extraction output: %w", err)
	}

	return domain.EntityLists{
		Companies:  payload.Companies,
		Sectors:    payload.Sectors,
		Regulators: payload.Regulators,
		People:     payload.People,
		Events:     payload.Events,
	}, nil
}

// chatOnce posts a single structured chat request and returns the
// assistant message content.
func chatOnce(ctx context.Context, client *http.Client, baseURL string, reqBody chatRequest) (string, error) {
	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call chat endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	return strings.TrimSpace(chatResp.Message.Content), nil
}

var _ domain.EntityExtractor = (*OllamaExtractor)(nil)
