package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completionServer fakes the chat completions endpoint, replying with the
// given content and capturing the request body.
func completionServer(t *testing.T, content string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/completions", r.URL.Path)

		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient("", "gpt-4o-mini")
	assert.ErrorIs(t, err, ErrAPIKeyRequired)
}

func TestComplete(t *testing.T) {
	var captured map[string]any
	srv := completionServer(t, "  [0, 2, 1]\n", &captured)
	defer srv.Close()

	c, err := NewClient("test-key", "gpt-4o-mini", WithBaseURL(srv.URL))
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "rank these", 0.2)
	require.NoError(t, err)

	// Surrounding whitespace is trimmed from the reply.
	assert.Equal(t, "[0, 2, 1]", out)

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.Equal(t, 0.2, captured["temperature"])

	msgs, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.Equal(t, "rank these", msg["content"])
}

func TestComplete_EmptyReply(t *testing.T) {
	srv := completionServer(t, "   ", nil)
	defer srv.Close()

	c, err := NewClient("test-key", "", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "say nothing", 0.4)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestComplete_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"model not found"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c, err := NewClient("test-key", "", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "hello", 0.7)
	require.Error(t, err)
}
