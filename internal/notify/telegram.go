// Package notify delivers short text messages to an external channel as a
// fire-and-forget side effect. A lost notification is not business-critical,
// so failures are logged and discarded; nothing here ever surfaces an error
// into the request path that triggered it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"cmsapi/internal/config"
)

const sendTimeout = 10 * time.Second

// Notifier sends a human-readable message to the configured channel.
type Notifier interface {
	// Notify dispatches the message without blocking the caller and without
	// reporting delivery outcome. It never retries.
	Notify(text string)
}

// NewTelegram builds a Telegram bot notifier. When the bot token or chat id
// is missing the returned notifier is a no-op, so an unconfigured channel
// degrades delivery instead of failing startup.
func NewTelegram(cfg config.TelegramConfig) Notifier {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		log.Println(`{"level":"info","msg":"notifier_disabled","reason":"telegram credentials not configured"}`)
		return noopNotifier{}
	}
	return &telegramNotifier{
		apiURL: fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", cfg.BotToken),
		chatID: cfg.ChatID,
		client: &http.Client{Timeout: sendTimeout},
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(string) {}

type telegramNotifier struct {
	apiURL string
	chatID string
	client *http.Client
}

// Notify detaches the delivery attempt from the calling request. The spawned
// goroutine owns its own deadline and logs any failure.
func (n *telegramNotifier) Notify(text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := n.send(ctx, text); err != nil {
			log.Printf("notify: telegram delivery failed: %v", err)
		}
	}()
}

func (n *telegramNotifier) send(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}
	return nil
}
