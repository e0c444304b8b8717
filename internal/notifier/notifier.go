package notifier

import (
	"context"

	"chatguard/internal/classifier"
	"chatguard/internal/domain"
)

type Notification struct {
	Message domain.ChatMessage
	Verdict classifier.Verdict
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Nop drops every notification. Used when no Telegram bot is configured.
type Nop struct{}

func (Nop) Notify(context.Context, Notification) error { return nil }
