package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultOpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouter generates judgments through an OpenAI-compatible chat
// completions endpoint.
type OpenRouter struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewOpenRouter(apiKey, model, baseURL string, timeout time.Duration) *OpenRouter {
	if baseURL == "" {
		baseURL = DefaultOpenRouterURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenRouter{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *OpenRouter) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.1,
		"max_tokens":  64,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error: %d", resp.StatusCode)
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", err
	}

	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	return strings.TrimSpace(apiResp.Choices[0].Message.Content), nil
}
