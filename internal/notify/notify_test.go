package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-watch-bot/internal/api"
	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/types"
)

type botServer struct {
	mu       sync.Mutex
	paths    []string
	payloads []map[string]any
	forms    []map[string]string
	times    []time.Time
	fail     bool
}

func (b *botServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.paths = append(b.paths, r.URL.Path)
		b.times = append(b.times, time.Now())

		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			form := map[string]string{}
			for k, v := range r.MultipartForm.Value {
				form[k] = v[0]
			}
			b.forms = append(b.forms, form)
		} else {
			var p map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
			b.payloads = append(b.payloads, p)
		}

		if b.fail {
			w.WriteHeader(http.StatusTooManyRequests)
			io.WriteString(w, `{"ok":false,"description":"Too Many Requests","parameters":{"retry_after":5}}`)
			return
		}
		io.WriteString(w, `{"ok":true,"result":{}}`)
	})
}

func newTestTelegram(t *testing.T, srv *httptest.Server, interval time.Duration) *Telegram {
	t.Helper()
	tg, err := NewTelegram(TelegramConfig{
		Token:  "TOKEN",
		ChatID: "-1001",
		Threads: map[interfaces.Channel]int{
			interfaces.ChannelGeneral: 24,
			interfaces.ChannelSignals: 32,
		},
		MinSendInterval: interval,
	}, api.WithBaseURL(srv.URL+"/botTOKEN"))
	require.NoError(t, err)
	return tg
}

func TestTelegramSend_RoutesThread(t *testing.T) {
	bs := &botServer{}
	srv := httptest.NewServer(bs.handler(t))
	defer srv.Close()

	tg := newTestTelegram(t, srv, 0)
	require.NoError(t, tg.Send(context.Background(), interfaces.ChannelSignals, "🟢 MACD cross LONG"))
	require.NoError(t, tg.Send(context.Background(), interfaces.ChannelAssistant, "answer"))

	require.Len(t, bs.payloads, 2)
	assert.Equal(t, "/botTOKEN/sendMessage", bs.paths[0])
	assert.Equal(t, "-1001", bs.payloads[0]["chat_id"])
	assert.EqualValues(t, 32, bs.payloads[0]["message_thread_id"])
	_, hasThread := bs.payloads[1]["message_thread_id"]
	assert.False(t, hasThread)
}

func TestTelegramSend_SpacesSends(t *testing.T) {
	bs := &botServer{}
	srv := httptest.NewServer(bs.handler(t))
	defer srv.Close()

	tg := newTestTelegram(t, srv, 50*time.Millisecond)
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tg.Send(context.Background(), interfaces.ChannelGeneral, "hi"))
		}()
	}
	wg.Wait()

	require.Len(t, bs.times, 3)
	first, last := bs.times[0], bs.times[0]
	for _, ts := range bs.times {
		if ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
	}
	assert.GreaterOrEqual(t, last.Sub(first), 90*time.Millisecond)
}

func TestTelegramSend_ReportsAPIError(t *testing.T) {
	bs := &botServer{fail: true}
	srv := httptest.NewServer(bs.handler(t))
	defer srv.Close()

	err := newTestTelegram(t, srv, 0).Send(context.Background(), interfaces.ChannelGeneral, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Too Many Requests")
	assert.Contains(t, err.Error(), "retry after 5s")
}

func TestTelegramSendPhoto(t *testing.T) {
	bs := &botServer{}
	srv := httptest.NewServer(bs.handler(t))
	defer srv.Close()
	tg := newTestTelegram(t, srv, 0)

	require.NoError(t, tg.SendPhoto(context.Background(), interfaces.ChannelGeneral,
		types.Photo{URL: "https://example.com/fng.png", Caption: "Fear & Greed"}))
	require.NoError(t, tg.SendPhoto(context.Background(), interfaces.ChannelGeneral,
		types.Photo{Data: []byte("PNG"), Caption: "6h chart"}))
	assert.Error(t, tg.SendPhoto(context.Background(), interfaces.ChannelGeneral, types.Photo{}))

	require.Len(t, bs.payloads, 1)
	assert.Equal(t, "https://example.com/fng.png", bs.payloads[0]["photo"])
	require.Len(t, bs.forms, 1)
	assert.Equal(t, "6h chart", bs.forms[0]["caption"])
	assert.Equal(t, "24", bs.forms[0]["message_thread_id"])
}

func TestNewTelegram_Disabled(t *testing.T) {
	_, err := NewTelegram(TelegramConfig{ChatID: "1"})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	require.NoError(t, c.Send(context.Background(), interfaces.ChannelGeneral, "hello"))
	require.NoError(t, c.SendPhoto(context.Background(), interfaces.ChannelSignals, types.Photo{URL: "u", Caption: "c"}))
	assert.Equal(t, "[general] hello\n[signals] photo u c\n", buf.String())
}

// updatesServer emulates getUpdates: it returns every stored update at or after
// the requested offset and records the offsets it was asked for.
type updatesServer struct {
	mu      sync.Mutex
	updates []map[string]any
	offsets []float64
}

func (u *updatesServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		defer u.mu.Unlock()
		assert.Equal(t, "/botTOKEN/getUpdates", r.URL.Path)

		var p map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		offset, _ := p["offset"].(float64)
		u.offsets = append(u.offsets, offset)

		result := []map[string]any{}
		for _, up := range u.updates {
			if up["update_id"].(int) >= int(offset) {
				result = append(result, up)
			}
		}
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result}))
	})
}

func textUpdate(id int, chat int64, thread int, user, text string) map[string]any {
	return map[string]any{
		"update_id": id,
		"message": map[string]any{
			"message_thread_id": thread,
			"date":              1700000000 + id,
			"text":              text,
			"chat":              map[string]any{"id": chat},
			"from":              map[string]any{"username": user},
		},
	}
}

func TestTelegramPoll(t *testing.T) {
	us := &updatesServer{updates: []map[string]any{
		textUpdate(10, -1001, 6, "ana", "Programa: revisar BTC en 5 minutos"),
		textUpdate(11, -1001, 32, "bob", "signals chatter"),
		textUpdate(12, -2002, 6, "eve", "other chat"),
		{"update_id": 13},
	}}
	srv := httptest.NewServer(us.handler(t))
	defer srv.Close()

	tg, err := NewTelegram(TelegramConfig{
		Token:  "TOKEN",
		ChatID: "-1001",
		Threads: map[interfaces.Channel]int{
			interfaces.ChannelSignals:   32,
			interfaces.ChannelAssistant: 6,
		},
	}, api.WithBaseURL(srv.URL+"/botTOKEN"))
	require.NoError(t, err)

	msgs, err := tg.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, interfaces.ChannelAssistant, msgs[0].Channel)
	assert.Equal(t, "ana", msgs[0].Username)
	assert.Equal(t, "Programa: revisar BTC en 5 minutos", msgs[0].Text)
	assert.Equal(t, time.Unix(1700000010, 0), msgs[0].SentAt)
	assert.Equal(t, interfaces.ChannelSignals, msgs[1].Channel)

	// The next poll confirms everything seen so far.
	msgs, err = tg.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, []float64{0, 14}, us.offsets)
}

func TestTelegramPoll_APIError(t *testing.T) {
	bs := &botServer{fail: true}
	srv := httptest.NewServer(bs.handler(t))
	defer srv.Close()

	_, err := newTestTelegram(t, srv, 0).Poll(context.Background())
	assert.Error(t, err)
}
