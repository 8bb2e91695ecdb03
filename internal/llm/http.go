package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/NoakLiu/SandGraphX/internal/capability"
)

// HTTPClientConfig configures a remote completion backend.
type HTTPClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// HTTPClient talks to an OpenAI-style completion endpoint. Transport
// failures surface as BackendUnavailableError so the engine can apply its
// fail-fast rule when nothing has run yet.
type HTTPClient struct {
	cfg  HTTPClientConfig
	http *http.Client
}

// NewHTTPClient builds a client for the given backend.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		cfg: cfg,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Name implements Client.
func (c *HTTPClient) Name() string { return "http:" + c.cfg.Model }

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Generate implements Client by POSTing a completion request.
func (c *HTTPClient) Generate(ctx context.Context, prompt string, opts map[string]any) (*capability.Response, error) {
	reqBody := completionRequest{Model: c.cfg.Model, Prompt: prompt}
	if t, ok := opts["temperature"].(float64); ok {
		reqBody.Temperature = t
	}
	if m, ok := opts["max_length"].(int); ok {
		reqBody.MaxTokens = m
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &capability.BackendUnavailableError{Backend: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &capability.BackendUnavailableError{
			Backend: c.Name(),
			Err:     fmt.Errorf("server returned status %d", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("completion request rejected with status %d", resp.StatusCode)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode completion response: %w", err)
	}

	return &capability.Response{
		Text:       out.Text,
		Confidence: out.Confidence,
		Metadata:   map[string]any{"backend": c.Name()},
	}, nil
}
