package notifier

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/phuslu/log"
	"github.com/tidwall/gjson"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(ctx context.Context, command string) string

// pollTimeout is the server-side long poll in seconds.
const pollTimeout = 30

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := int64(0)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("telegram polling stopped")
			return
		default:
		}

		resp, err := t.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"offset":  strconv.FormatInt(offset, 10),
				"timeout": strconv.Itoa(pollTimeout),
			}).
			Get(t.method("getUpdates"))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("polling request failed")
			sleep(ctx, 5*time.Second)
			continue
		}
		if resp.IsError() {
			log.Warn().Int("status", resp.StatusCode()).Msg("polling rejected")
			sleep(ctx, 5*time.Second)
			continue
		}
		offset = t.dispatch(ctx, resp.Body(), offset, handler)
	}
}

// dispatch handles every update in a getUpdates body and returns the next offset.
func (t *TelegramNotifier) dispatch(ctx context.Context, body []byte, offset int64, handler CommandHandler) int64 {
	gjson.GetBytes(body, "result").ForEach(func(_, update gjson.Result) bool {
		offset = update.Get("update_id").Int() + 1
		// ignore other chats so the bot only answers its owner
		if chat := update.Get("message.chat.id").String(); t.ChatID != "" && chat != "" && chat != t.ChatID {
			return true
		}
		text := strings.TrimSpace(update.Get("message.text").String())
		if text == "" {
			return true
		}
		log.Info().Str("command", text).Msg("received command")
		if reply := handler(ctx, text); reply != "" {
			if err := t.Send(ctx, reply); err != nil {
				log.Error().Err(err).Msg("send reply failed")
			}
		}
		return true
	})
	return offset
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
