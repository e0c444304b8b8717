package queue

import (
	"context"

	"chatguard/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, msg domain.ChatMessage) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, handler func(ctx context.Context, msg domain.ChatMessage) error) error
	Close() error
}
