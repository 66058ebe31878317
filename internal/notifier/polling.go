package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(ctx context.Context, command string) string

const pollRetryDelay = 5 * time.Second

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := int64(0)
	client := &http.Client{Timeout: 35 * time.Second, Transport: t.Client.Transport}
	log := t.cfg.Logger

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("telegram polling stopped")
			return
		default:
		}

		next, err := t.poll(ctx, client, offset, handler)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Msgf("polling request failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollRetryDelay):
			}
			continue
		}
		offset = next
	}
}

// poll fetches one batch of updates, dispatches any commands and returns the
// next update offset.
func (t *TelegramNotifier) poll(ctx context.Context, client *http.Client, offset int64, handler CommandHandler) (int64, error) {
	apiURL := fmt.Sprintf("%s?offset=%d&timeout=30", t.methodURL("getUpdates"), offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return offset, fmt.Errorf("create polling request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return offset, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return offset, fmt.Errorf("read polling response: %w", err)
	}

	res := gjson.ParseBytes(body)
	if !res.Get("ok").Bool() {
		return offset, fmt.Errorf("getUpdates: %s", res.Get("description").String())
	}

	for _, update := range res.Get("result").Array() {
		offset = update.Get("update_id").Int() + 1
		text := strings.TrimSpace(update.Get("message.text").String())
		if text == "" {
			continue
		}
		t.cfg.Logger.Info().Msgf("received command: %s", text)
		reply := handler(ctx, text)
		if reply == "" {
			continue
		}
		if err := t.Send(ctx, reply); err != nil {
			t.cfg.Logger.Error().Msgf("send reply: %v", err)
		}
	}
	return offset, nil
}
