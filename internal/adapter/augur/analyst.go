package augur

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"news-intel/internal/domain"
	"news-intel/internal/infra/httpclient"
)

var analysisFormat = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"impacts": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"symbol":     map[string]interface{}{"type": "string"},
					"confidence": map[string]interface{}{"type": "number"},
					"kind":       map[string]interface{}{"type": "string"},
					"reasoning":  map[string]interface{}{"type": "string"},
				},
				"required": []string{"symbol", "confidence", "kind", "reasoning"},
			},
		},
	},
	"required": []string{"impacts"},
}

const analysisPromptTemplate = `You are an Indian equity analyst. Given a financial news article and the entities found in it, infer which NSE stock symbols the news affects.

Title: %s

Body: %s

Entities:
- companies: %s
- sectors: %s
- regulators: %s
- people: %s
- events: %s

For each affected stock return:
- symbol: the NSE ticker (e.g. "HDFCBANK", "RELIANCE")
- confidence: 0.0 to 1.0
- kind: one of "direct", "sector", "regulatory", "indirect"
- reasoning: one sentence explaining the link`

type analysisPayload struct {
	Impacts []struct {
		Symbol     string  `json:"symbol"`
		Confidence float64 `json:"confidence"`
		Kind       string  `json:"kind"`
		Reasoning  string  `json:"reasoning"`
	} `json:"impacts"`
}

// OllamaAnalyst implements domain.ImpactAnalyst via Ollama's chat
// endpoint with structured output.
type OllamaAnalyst struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewOllamaAnalyst(baseURL, model string, timeout time.Duration) *OllamaAnalyst {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaAnalyst{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  httpclient.NewPooledClient(timeout),
	}
}

func (a *OllamaAnalyst) Infer(ctx context.Context, title, body string, entities domain.EntityLists) ([]domain.StockImpact, error) {
	prompt := fmt.Sprintf(analysisPromptTemplate,
		title, body,
		strings.Join(entities.Companies, ", "),
		strings.Join(entities.Sectors, ", "),
		strings.Join(entities.Regulators, ", "),
		strings.Join(entities.People, ", "),
		strings.Join(entities.Events, ", "),
	)

	content, err := chatOnce(ctx, a.Client, a.BaseURL, chatRequest{
		Model:     a.Model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		Stream:    false,
		KeepAlive: extractionKeepAlive,
		Format:    analysisFormat,
		Options: map[string]interface{}{
			"temperature": 0.0,
		},
	})
	if err != nil {
		return nil, err
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse analysis output: %w", err)
	}

	impacts := make([]domain.StockImpact, 0, len(payload.Impacts))
	for _, raw := range payload.Impacts {
		symbol := strings.ToUpper(strings.TrimSpace(raw.Symbol))
		if symbol == "" {
			continue
		}
		impacts = append(impacts, domain.StockImpact{
			Symbol:     symbol,
			Confidence: clampConfidence(raw.Confidence),
			Kind:       parseImpactKind(raw.Kind),
			Reasoning:  raw.Reasoning,
		})
	}
	return impacts, nil
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func parseImpactKind(kind string) domain.ImpactKind {
	switch domain.ImpactKind(strings.ToLower(strings.TrimSpace(kind))) {
	case domain.ImpactDirect:
		return domain.ImpactDirect
	case domain.ImpactSector:
		return domain.ImpactSector
	case domain.ImpactRegulatory:
		return domain.ImpactRegulatory
	default:
		return domain.ImpactIndirect
	}
}

var _ domain.ImpactAnalyst = (*OllamaAnalyst)(nil)
