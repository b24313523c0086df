// Package llm is a small client for OpenAI-compatible chat completion APIs,
// used as an external decision oracle.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rustyeddy/ashare/metrics"
)

const (
	// DeepSeekURL is the default chat completions endpoint.
	DeepSeekURL = "https://api.deepseek.com/v1"
	// DefaultModel is used when no model is configured.
	DefaultModel = "deepseek-chat"
	// DefaultTimeout bounds one request.
	DefaultTimeout = 60 * time.Second
)

// ErrNoChoices is returned when the API answers without any message.
var ErrNoChoices = errors.New("llm: response has no choices")

// Client represents a chat completions API client.
type Client struct {
	baseURL    string
	token      string
	model      string
	httpClient *http.Client

	tokens atomic.Int64
}

// NewClient creates a client. An empty baseURL or model selects the
// DeepSeek defaults; a zero timeout selects DefaultTimeout.
func NewClient(token, baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DeepSeekURL
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int64 `json:"total_tokens"`
	} `json:"usage"`
}

// Ask sends prompt as a single user message and returns the reply text.
// There is no retry: a failed call is the caller's to handle.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	if c.token == "" {
		return "", errors.New("llm: API key is not configured")
	}

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	c.tokens.Add(cr.Usage.TotalTokens)
	metrics.LLMTokens(cr.Usage.TotalTokens)

	if len(cr.Choices) == 0 {
		return "", ErrNoChoices
	}
	return cr.Choices[0].Message.Content, nil
}

// TokensUsed is the running total of tokens billed to this client.
func (c *Client) TokensUsed() int64 { return c.tokens.Load() }

func (c *Client) Model() string { return c.model }
