package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/teleport-bridge/teleportd/internal/core/ports"
)

const maxRetries = 5

type message struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type service struct {
	baseUrl    string
	chatID     string
	costChatID string
	httpClient *http.Client
}

// NewService builds a telegram notification sink. Cost reports go to their
// own chat when costChatID is set, otherwise to the main one.
func NewService(botToken, chatID, costChatID string) ports.Notifier {
	if costChatID == "" {
		costChatID = chatID
	}
	return &service{
		baseUrl:    fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", botToken),
		chatID:     chatID,
		costChatID: costChatID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *service) NotifyStatus(ctx context.Context, text string) error {
	return s.send(ctx, s.chatID, text)
}

func (s *service) NotifyError(ctx context.Context, text string) error {
	return s.send(ctx, s.chatID, fmt.Sprintf("ERROR: %s", text))
}

func (s *service) NotifyCost(ctx context.Context, text string) error {
	return s.send(ctx, s.costChatID, text)
}

func (s *service) send(ctx context.Context, chatID, text string) error {
	if s.chatID == "" {
		log.Debug("notifier not configured, dropping message")
		return nil
	}

	payload, err := json.Marshal(message{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	baseDelay := 100 * time.Millisecond

	for attempt := range maxRetries {
		req, err := http.NewRequestWithContext(ctx, "POST", s.baseUrl, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			// Network error - retry with backoff
			if attempt < maxRetries-1 {
				delay := baseDelay * time.Duration(1<<uint(attempt))

				select {
				case <-time.After(delay):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return fmt.Errorf("failed to send message after %d attempts: %w", maxRetries, err)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			_ = resp.Body.Close()
			return nil
		}

		_ = resp.Body.Close()

		// Retry on 5xx (server errors), but not on 4xx (client errors)
		if resp.StatusCode >= 500 {
			if attempt < maxRetries-1 {
				delay := baseDelay * time.Duration(1<<uint(attempt))

				select {
				case <-time.After(delay):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}

		return fmt.Errorf(
			"failed to send message with status %d after %d attempts",
			resp.StatusCode, attempt+1,
		)
	}

	return fmt.Errorf("failed to send message after %d attempts", maxRetries)
}
