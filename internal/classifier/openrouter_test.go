package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRouter_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			Temperature float64 `json:"temperature"`
			MaxTokens   int     `json:"max_tokens"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "mistral", body.Model)
		assert.Equal(t, 64, body.MaxTokens)
		assert.Equal(t, 0.1, body.Temperature)
		if assert.Len(t, body.Messages, 1) {
			assert.Equal(t, "user", body.Messages[0].Role)
			assert.Equal(t, "the prompt", body.Messages[0].Content)
		}

		w.Write([]byte(`{"choices": [{"message": {"content": "  {\"label\": \"scam\", \"score\": 1}\n"}}]}`))
	}))
	defer srv.Close()

	o := NewOpenRouter("sk-test", "mistral", srv.URL, 0)
	out, err := o.Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"label": "scam", "score": 1}`, out)
}

func TestOpenRouter_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		want     string
	}{
		{"http error", http.StatusTooManyRequests, `{}`, "API error: 429"},
		{"no choices", http.StatusOK, `{"choices": []}`, "no response from LLM"},
		{"bad json", http.StatusOK, `not json`, "invalid character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			_, err := NewOpenRouter("k", "m", srv.URL, 0).Generate(context.Background(), "p")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGenerativeBackend_WithOpenRouter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {"content": "I cannot classify this."}}]}`))
	}))
	defer srv.Close()

	b := NewGenerativeBackend(NewOpenRouter("k", "m", srv.URL, 0), DefaultThresholds(), 2)
	got, err := b.Label(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, []Verdict{{Label: LabelUncertain, PhishingScore: 0}}, got)
}
