package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc) *openAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := Config{
		APIKey:  "test-key",
		BaseURL: server.URL + "/",
		Model:   "llama-3.3-70b-versatile",
	}
	pool := NewPool(cfg)
	return newOpenAIClient(cfg, pool.httpClient, pool.limiter)
}

func TestOpenAIClient_Complete(t *testing.T) {
	var captured map[string]any
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "llama-3.3-70b-versatile",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  {\"hs_code\": \"8501.10\"}  "}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 7}
		}`))
	})

	resp, err := client.Complete(context.Background(), Request{
		System:      "You classify goods.",
		Prompt:      "Classify an electric motor",
		Temperature: 0,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"hs_code": "8501.10"}`, resp.Content)
	assert.Equal(t, int64(12), resp.InputTokens)
	assert.Equal(t, int64(7), resp.OutputTokens)

	assert.Equal(t, "llama-3.3-70b-versatile", captured["model"])
	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "Classify an electric motor", messages[1].(map[string]any)["content"])
	assert.Contains(t, captured, "temperature", "zero temperature is still sent")
}

func TestOpenAIClient_CompleteWithImage(t *testing.T) {
	var captured openAIRequest
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		var raw struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string              `json:"role"`
				Content []openAIContentPart `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		captured.Model = raw.Model
		require.Len(t, raw.Messages, 1)
		require.Len(t, raw.Messages[0].Content, 2)
		assert.Equal(t, "text", raw.Messages[0].Content[0].Type)
		assert.Equal(t, "image_url", raw.Messages[0].Content[1].Type)
		assert.Equal(t, "data:image/png;base64,aGVsbG8=", raw.Messages[0].Content[1].ImageURL.URL)

		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "A ceramic mug."}}]}`))
	})

	resp, err := client.Complete(context.Background(), Request{
		Model:  "vision-model",
		Prompt: "Describe",
		Images: []Image{{MIMEType: " IMAGE/PNG ", Data: "aGVsbG8="}},
	})
	require.NoError(t, err)
	assert.Equal(t, "A ceramic mug.", resp.Content)
	assert.Equal(t, "vision-model", captured.Model)
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		body            string
		wantUnavailable bool
	}{
		{
			name:            "decommissioned code",
			status:          http.StatusBadRequest,
			body:            `{"error": {"message": "The model has been retired", "code": "model_decommissioned"}}`,
			wantUnavailable: true,
		},
		{
			name:            "not found code",
			status:          http.StatusNotFound,
			body:            `{"error": {"message": "The model does not exist", "code": "model_not_found"}}`,
			wantUnavailable: true,
		},
		{
			name:            "decommissioned message only",
			status:          http.StatusBadRequest,
			body:            `{"error": {"message": "llama-3.2-11b-vision-preview has been Decommissioned"}}`,
			wantUnavailable: true,
		},
		{
			name:   "auth failure",
			status: http.StatusUnauthorized,
			body:   `{"error": {"message": "Invalid API Key", "code": "invalid_api_key"}}`,
		},
		{
			name:   "server error without json",
			status: http.StatusBadGateway,
			body:   `upstream unavailable`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestOpenAIClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Complete(context.Background(), Request{Prompt: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.wantUnavailable, IsModelUnavailable(err))
		})
	}
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})

	_, err := client.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no completion choices")
}

func TestOpenAIClient_CanceledContext(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Complete(ctx, Request{Prompt: "x"})
	assert.Error(t, err)
}
