package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"market-watch-bot/internal/api"
	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/types"
)

const telegramBaseURL = "https://api.telegram.org"

// ErrDisabled is returned when Telegram delivery cannot be configured.
var ErrDisabled = errors.New("telegram delivery disabled")

// TelegramConfig selects the chat and the forum thread per channel.
type TelegramConfig struct {
	Token           string
	ChatID          string
	Threads         map[interfaces.Channel]int
	MinSendInterval time.Duration
}

// Telegram delivers through the Bot API. One limiter spaces every send, so it
// is safe to share between the loops. Poll reads incoming messages with
// getUpdates and must be called from a single loop.
type Telegram struct {
	cfg     TelegramConfig
	client  *api.Client
	limiter *rate.Limiter

	mu     sync.Mutex
	offset int64
}

var (
	_ interfaces.Notifier = (*Telegram)(nil)
	_ interfaces.Inbox    = (*Telegram)(nil)
)

func NewTelegram(cfg TelegramConfig, opts ...api.ClientOption) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: TELEGRAM_TOKEN missing", ErrDisabled)
	}
	if cfg.ChatID == "" {
		return nil, fmt.Errorf("%w: chat id missing", ErrDisabled)
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.MinSendInterval > 0 {
		lim = rate.NewLimiter(rate.Every(cfg.MinSendInterval), 1)
	}
	opts = append([]api.ClientOption{
		api.WithBaseURL(telegramBaseURL + "/bot" + cfg.Token),
		api.WithTimeout(30 * time.Second),
	}, opts...)
	return &Telegram{cfg: cfg, client: api.NewClient(opts...), limiter: lim}, nil
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func (t *Telegram) Send(ctx context.Context, channel interfaces.Channel, text string) error {
	payload := map[string]any{
		"chat_id":                  t.cfg.ChatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if thread, ok := t.cfg.Threads[channel]; ok && thread > 0 {
		payload["message_thread_id"] = thread
	}
	return t.call(ctx, "sendMessage", func() (*api.Response, error) {
		return t.client.POST(ctx, "/sendMessage", payload)
	})
}

// SendPhoto posts a photo by URL, or uploads its bytes when no URL is set.
func (t *Telegram) SendPhoto(ctx context.Context, channel interfaces.Channel, photo types.Photo) error {
	thread := t.cfg.Threads[channel]

	if photo.URL != "" {
		payload := map[string]any{
			"chat_id": t.cfg.ChatID,
			"photo":   photo.URL,
		}
		if photo.Caption != "" {
			payload["caption"] = photo.Caption
		}
		if thread > 0 {
			payload["message_thread_id"] = thread
		}
		return t.call(ctx, "sendPhoto", func() (*api.Response, error) {
			return t.client.POST(ctx, "/sendPhoto", payload)
		})
	}

	if len(photo.Data) == 0 {
		return errors.New("photo has neither URL nor data")
	}
	fields := map[string]string{"chat_id": t.cfg.ChatID}
	if photo.Caption != "" {
		fields["caption"] = photo.Caption
	}
	if thread > 0 {
		fields["message_thread_id"] = strconv.Itoa(thread)
	}
	return t.call(ctx, "sendPhoto", func() (*api.Response, error) {
		return t.client.PostMultipart(ctx, "/sendPhoto", fields,
			&api.FilePart{Field: "photo", Filename: "chart.png", Data: photo.Data})
	})
}

func (t *Telegram) call(ctx context.Context, method string, do func() (*api.Response, error)) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}

	resp, err := do()
	if err != nil {
		var se *api.StatusError
		if errors.As(err, &se) {
			var body telegramResponse
			if perr := (&api.Response{Body: []byte(se.Body)}).ParseJSON(&body); perr == nil && body.Description != "" {
				if body.Parameters.RetryAfter > 0 {
					return fmt.Errorf("telegram %s: %s (retry after %ds)", method, body.Description, body.Parameters.RetryAfter)
				}
				return fmt.Errorf("telegram %s: %s", method, body.Description)
			}
		}
		return fmt.Errorf("telegram %s: %w", method, err)
	}

	var body telegramResponse
	if err := resp.ParseJSON(&body); err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	if !body.OK {
		return fmt.Errorf("telegram %s: %s", method, body.Description)
	}
	return nil
}

type telegramUpdates struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      []struct {
		UpdateID int64 `json:"update_id"`
		Message  *struct {
			ThreadID int    `json:"message_thread_id"`
			Date     int64  `json:"date"`
			Text     string `json:"text"`
			Chat     struct {
				ID int64 `json:"id"`
			} `json:"chat"`
			From struct {
				Username  string `json:"username"`
				FirstName string `json:"first_name"`
			} `json:"from"`
		} `json:"message"`
	} `json:"result"`
}

// Poll fetches the updates after the last confirmed one. Every returned update
// is confirmed on the next call through the offset, so a message is handed out
// at most once. Only text messages from the configured chat are returned.
func (t *Telegram) Poll(ctx context.Context) ([]interfaces.Inbound, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	payload := map[string]any{
		"timeout":         0,
		"allowed_updates": []string{"message"},
	}
	if t.offset > 0 {
		payload["offset"] = t.offset
	}
	resp, err := t.client.POST(ctx, "/getUpdates", payload)
	if err != nil {
		return nil, fmt.Errorf("telegram getUpdates: %w", err)
	}
	var body telegramUpdates
	if err := resp.ParseJSON(&body); err != nil {
		return nil, fmt.Errorf("telegram getUpdates: %w", err)
	}
	if !body.OK {
		return nil, fmt.Errorf("telegram getUpdates: %s", body.Description)
	}

	var out []interfaces.Inbound
	for _, u := range body.Result {
		if u.UpdateID >= t.offset {
			t.offset = u.UpdateID + 1
		}
		m := u.Message
		if m == nil || strings.TrimSpace(m.Text) == "" || !t.fromChat(m.Chat.ID) {
			continue
		}
		username := m.From.Username
		if username == "" {
			username = m.From.FirstName
		}
		if username == "" {
			username = "agent"
		}
		out = append(out, interfaces.Inbound{
			UpdateID: u.UpdateID,
			Channel:  t.channelOf(m.ThreadID),
			Username: username,
			Text:     strings.TrimSpace(m.Text),
			SentAt:   time.Unix(m.Date, 0),
		})
	}
	return out, nil
}

// fromChat matches numeric chat ids. A "@name" chat id cannot be compared and
// accepts every chat.
func (t *Telegram) fromChat(id int64) bool {
	if strings.HasPrefix(t.cfg.ChatID, "@") {
		return true
	}
	return strconv.FormatInt(id, 10) == t.cfg.ChatID
}

func (t *Telegram) channelOf(thread int) interfaces.Channel {
	if thread == 0 {
		return ""
	}
	for ch, id := range t.cfg.Threads {
		if id == thread {
			return ch
		}
	}
	return ""
}
