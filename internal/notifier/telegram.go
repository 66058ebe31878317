package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// DefaultAPIURL is the Telegram Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// TelegramConfig represents the configuration of the telegram notifier.
type TelegramConfig struct {
	BotToken string
	ChatID   string
	// APIURL overrides DefaultAPIURL.
	APIURL string
	// ProxyURL routes requests through an HTTP proxy.
	ProxyURL string
	// RetryBackoff is the initial delay between send attempts.
	RetryBackoff time.Duration
	// Logger represents the notifier logger.
	Logger *zerolog.Logger
}

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	cfg    *TelegramConfig
	Client *http.Client
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(cfg *TelegramConfig) *TelegramNotifier {
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}

	transport := &http.Transport{}
	if cfg.ProxyURL != "" {
		if u, err := url.Parse(cfg.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		cfg: cfg,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (t *TelegramNotifier) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.cfg.APIURL, t.cfg.BotToken, method)
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	payload := map[string]any{
		"chat_id":                  t.cfg.ChatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(req, "send message")
}

// SendPhoto uploads a PNG image with a caption to the configured chat.
func (t *TelegramNotifier) SendPhoto(ctx context.Context, caption string, png []byte) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", t.cfg.ChatID); err != nil {
		return fmt.Errorf("write chat id: %w", err)
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return fmt.Errorf("write caption: %w", err)
		}
	}
	part, err := w.CreateFormFile("photo", "chart.png")
	if err != nil {
		return fmt.Errorf("create photo part: %w", err)
	}
	if _, err := part.Write(png); err != nil {
		return fmt.Errorf("write photo: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL("sendPhoto"), &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return t.do(req, "send photo")
}

func (t *TelegramNotifier) do(req *http.Request, op string) error {
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	res := gjson.ParseBytes(respBody)
	if resp.StatusCode != http.StatusOK || !res.Get("ok").Bool() {
		return fmt.Errorf("telegram API error: status %d, description: %s",
			resp.StatusCode, res.Get("description").String())
	}
	return nil
}

// SendWithRetry runs send with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, maxRetries int, send func(ctx context.Context) error) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := send(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}

		backoff := time.Duration(1<<uint(i)) * t.cfg.RetryBackoff
		t.cfg.Logger.Warn().Msgf("telegram send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d attempts exhausted: %w", maxRetries+1, lastErr)
}

// SendText sends text with retry.
func (t *TelegramNotifier) SendText(ctx context.Context, text string, maxRetries int) error {
	return t.SendWithRetry(ctx, maxRetries, func(ctx context.Context) error {
		return t.Send(ctx, text)
	})
}

// SendChart sends a PNG chart with retry.
func (t *TelegramNotifier) SendChart(ctx context.Context, caption string, png []byte, maxRetries int) error {
	return t.SendWithRetry(ctx, maxRetries, func(ctx context.Context) error {
		return t.SendPhoto(ctx, caption, png)
	})
}
