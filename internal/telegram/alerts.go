package telegram

import (
	"fmt"
	"io"
	"log/slog"

	"era-photobooth/internal/booth"
)

// TextSender is satisfied by *Client.
type TextSender interface {
	SendText(chatID int64, text string) error
}

// AlertListener tells the operator chat when a capture was abandoned. Sends
// run on their own goroutine so the orchestrator never waits on Telegram.
func AlertListener(sender TextSender, chatID int64, logger *slog.Logger) booth.Listener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return func(ev booth.Event) {
		if ev.Type != booth.EventReset {
			return
		}
		text := fmt.Sprintf("Photobooth capture abandoned after %d attempt(s).\nSession: %d\nReason: %s",
			ev.Attempt, ev.State.Key-1, ev.Err)
		go func() {
			if err := sender.SendText(chatID, text); err != nil {
				logger.Warn("telegram alert failed", "chat_id", chatID, "err", err)
			}
		}()
	}
}
