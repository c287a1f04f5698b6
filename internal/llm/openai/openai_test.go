package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-watch-bot/internal/store"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "how is BTC?", body.Messages[1].Content)
		io.WriteString(w, `{"choices":[{"message":{"content":"  BTC is flat. "}}]}`)
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_ENDPOINT", srv.URL)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := store.Default()
	require.NoError(t, err)

	answer, err := NewReasoner(cfg).Complete(context.Background(), "how is BTC?")
	require.NoError(t, err)
	assert.Equal(t, "BTC is flat.", answer)
}

func TestComplete_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := store.Default()
	require.NoError(t, err)
	_, err = NewReasoner(cfg).Complete(context.Background(), "x")
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestComplete_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_ENDPOINT", srv.URL)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := store.Default()
	require.NoError(t, err)

	_, err = NewReasoner(cfg).Complete(context.Background(), "x")
	assert.Error(t, err)
}
