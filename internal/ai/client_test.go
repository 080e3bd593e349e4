package ai

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecobot-id/ecobot/internal/config"
)

func testClient(t *testing.T, baseURL string) Client {
	t.Helper()
	return NewClient(config.AIConfig{
		Token:        "test-token",
		BaseURL:      baseURL,
		Model:        "test-model",
		Temperature:  0.7,
		MaxTokens:    100,
		Timeout:      5 * time.Second,
		MaxAttempts:  3,
		RetryBackoff: time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func completionBody(content string) string {
	return `{"choices":[{"message":{"role":"assistant","content":"` + content + `"}}]}`
}

func TestChatCompletionSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody("Halo! Ada yang bisa dibantu?"))
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	reply, err := client.ChatCompletion(context.Background(), []Message{
		{Role: RoleSystem, Content: "Kamu adalah EcoBot."},
		{Role: RoleUser, Content: "halo"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Halo! Ada yang bisa dibantu?", reply)
}

func TestChatCompletionRetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody("pulih"))
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	reply, err := client.ChatCompletion(context.Background(), []Message{{Role: RoleUser, Content: "tes"}})

	require.NoError(t, err)
	assert.Equal(t, "pulih", reply)
	assert.Equal(t, int32(3), calls.Load())
}

func TestChatCompletionExhaustsAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	_, err := client.ChatCompletion(context.Background(), []Message{{Role: RoleUser, Content: "tes"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 chat completion attempts failed")
	assert.Equal(t, int32(3), calls.Load(), "exactly maxAttempts requests, no more")
}

func TestChatCompletionPermanentErrorDoesNotRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	_, err := client.ChatCompletion(context.Background(), []Message{{Role: RoleUser, Content: "tes"}})

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "auth failures must not be retried")
}

func TestChatCompletionUnparseableBodyReturnsApologyWithoutRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, "this is not json at all")
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	reply, err := client.ChatCompletion(context.Background(), []Message{{Role: RoleUser, Content: "tes"}})

	require.NoError(t, err)
	assert.Equal(t, Apology, reply)
	assert.Equal(t, int32(1), calls.Load(), "body parse failures must not be retried")
}

func TestChatCompletionMalformedShapeReturnsApology(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices":[]}`},
		{"empty content", completionBody("")},
		{"whitespace content", completionBody("   ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := testClient(t, server.URL)

			reply, err := client.ChatCompletion(context.Background(), []Message{{Role: RoleUser, Content: "tes"}})

			require.NoError(t, err)
			assert.Equal(t, Apology, reply)
		})
	}
}
