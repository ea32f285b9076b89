package augur

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaExtractor_Extract_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req chatRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)

		assert.Equal(t, "gemma3:4b", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Contains(t, req.Messages[0].Content, "HDFC Bank posts record profit")
		assert.NotNil(t, req.Format)

		inner := extractionPayload{
			Companies:  []string{"HDFC Bank"},
			Sectors:    []string{"Banking"},
			Regulators: []string{"RBI"},
			People:     []string{"Sashidhar Jagdishan"},
			Events:     []string{"earnings"},
		}
		content, err := json.Marshal(inner)
		require.NoError(t, err)

		resp := chatResponse{Done: true}
		resp.Message.Content = string(content)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	extractor := NewOllamaExtractor(server.URL, "gemma3:4b", 30*time.Second)

	lists, err := extractor.Extract(context.Background(),
		"HDFC Bank posts record profit",
		"The lender reported strong quarterly numbers.")
	require.NoError(t, err)

	assert.Equal(t, []string{"HDFC Bank"}, lists.Companies)
	assert.Equal(t, []string{"Banking"}, lists.Sectors)
	assert.Equal(t, []string{"RBI"}, lists.Regulators)
	assert.Equal(t, []string{"Sashidhar Jagdishan"}, lists.People)
	assert.Equal(t, []string{"earnings"}, lists.Events)
}

func TestOllamaExtractor_Extract_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	extractor := NewOllamaExtractor(server.URL, "gemma3:4b", 30*time.Second)

	_, err := extractor.Extract(context.Background(), "title", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestOllamaExtractor_Extract_MalformedOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{Done: true}
		resp.Message.Content = "not json at all"
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	extractor := NewOllamaExtractor(server.URL, "gemma3:4b", 30*time.Second)

	_, err := extractor.Extract(context.Background(), "title", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse extraction output")
}
