package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, "slow down")
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.GET(context.Background(), "/x")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusTooManyRequests))
	assert.Contains(t, err.Error(), "slow down")
}

func TestDoWithRetry_SucceedsAfterFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	req := NewRequest(http.MethodGet, "/candles").WithContext(context.Background())
	resp, err := c.DoWithRetry(req, FixedRetry(5, time.Millisecond))
	require.NoError(t, err)

	var out struct{ OK bool }
	require.NoError(t, resp.ParseJSON(&out))
	assert.True(t, out.OK)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestDoWithRetry_GivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.DoWithRetry(NewRequest(http.MethodGet, "/").WithContext(context.Background()), FixedRetry(2, time.Millisecond))
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestPostMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "42", r.FormValue("chat_id"))
		f, hdr, err := r.FormFile("photo")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "chart.png", hdr.Filename)
		assert.Equal(t, "PNGDATA", string(b))
		io.WriteString(w, "{}")
	}))
	defer srv.Close()

	c := NewClient()
	_, err := c.PostMultipart(context.Background(), srv.URL, map[string]string{"chat_id": "42"},
		&FilePart{Field: "photo", Filename: "chart.png", Data: []byte("PNGDATA")})
	require.NoError(t, err)
}

func TestDo_DefaultHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Key"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "application/json"))
		io.WriteString(w, "{}")
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHeader("X-Key", "secret"))
	_, err := c.POST(context.Background(), "/", map[string]string{"a": "b"})
	require.NoError(t, err)
}
