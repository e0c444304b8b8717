package scraper

import (
	"context"

	"chatguard/internal/domain"
)

// Scraper fetches the latest messages posted to a channel.
type Scraper interface {
	Scrape(ctx context.Context, channel string) ([]domain.ChatMessage, error)
}
