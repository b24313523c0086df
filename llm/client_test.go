package llm

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

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("key", "", "", 0)
	assert.Equal(t, DeepSeekURL, c.baseURL)
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)

	c = NewClient("key", "http://localhost:8080/v1/", "qwen", time.Second)
	assert.Equal(t, "http://localhost:8080/v1", c.baseURL)
	assert.Equal(t, "qwen", c.Model())
}

func TestAskSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "deepseek-chat", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "decide", req.Messages[0].Content)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"action\":\"none\"}"}}],"usage":{"total_tokens":42}}`))
	}))
	defer server.Close()

	c := NewClient("test-key", server.URL, "", 5*time.Second)
	reply, err := c.Ask(context.Background(), "decide")
	require.NoError(t, err)
	assert.Equal(t, `{"action":"none"}`, reply)
	assert.Equal(t, int64(42), c.TokensUsed())

	_, err = c.Ask(context.Background(), "decide")
	require.NoError(t, err)
	assert.Equal(t, int64(84), c.TokensUsed())
}

func TestAskErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"api error", http.StatusUnauthorized, `{"error":"bad key"}`, "status 401"},
		{"bad json", http.StatusOK, `{"choices":`, "decode response"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient("k", server.URL, "", time.Second).Ask(context.Background(), "x")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAskWithoutKey(t *testing.T) {
	_, err := NewClient("", "http://127.0.0.1:1", "", time.Second).Ask(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestAskHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient("k", server.URL, "", 5*time.Second).Ask(ctx, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute request")
}
