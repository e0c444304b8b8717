package worker

import (
	"context"
	"log/slog"
	"time"

	"chatguard/internal/config"
	"chatguard/internal/queue"
	"chatguard/internal/scraper"
)

// Scraper polls every configured channel and publishes entries it has not
// queued before.
type Scraper struct {
	scraper   scraper.Scraper
	publisher queue.Publisher
	channels  []string
	interval  time.Duration
	seen      map[string]bool
}

func NewScraper(s scraper.Scraper, p queue.Publisher, cfg config.ScraperConfig) *Scraper {
	return &Scraper{
		scraper:   s,
		publisher: p,
		channels:  cfg.Channels,
		interval:  cfg.Interval,
		seen:      make(map[string]bool),
	}
}

func (w *Scraper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.scrapeAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scrapeAll(ctx)
		}
	}
}

func (w *Scraper) scrapeAll(ctx context.Context) {
	for _, channel := range w.channels {
		log := slog.With("channel", channel)

		messages, err := w.scraper.Scrape(ctx, channel)
		if err != nil {
			log.Error("scrape", "error", err)
			continue
		}

		queued, dups := 0, 0
		for _, msg := range messages {
			if w.seen[msg.ID] {
				dups++
				continue
			}

			if err := w.publisher.Publish(ctx, msg); err != nil {
				log.Error("publish", "id", msg.ID, "error", err)
				continue
			}
			w.seen[msg.ID] = true
			queued++
			log.Debug("queued", "id", msg.ID, "text", truncate(msg.Text, 60))
		}

		log.Info("scraped", "fetched", len(messages), "queued", queued, "duplicates", dups, "seen_total", len(w.seen))
	}
}
