package claude

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
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body["system"])
		io.WriteString(w, `{"content":[{"type":"text","text":"Market is "},{"type":"text","text":"calm."}]}`)
	}))
	defer srv.Close()

	t.Setenv("CLAUDE_API_ENDPOINT", srv.URL)
	t.Setenv("CLAUDE_API_KEY", "key")
	cfg, err := store.Default()
	require.NoError(t, err)

	answer, err := NewReasoner(cfg).Complete(context.Background(), "status?")
	require.NoError(t, err)
	assert.Equal(t, "Market is calm.", answer)
}

func TestExtractText(t *testing.T) {
	assert.Equal(t, "legacy", extractText([]byte(`{"completion":" legacy "}`)))
	assert.Equal(t, "plain body", extractText([]byte("plain body")))
	assert.Equal(t, "", extractText([]byte(`{"content":[]}`)))
}
