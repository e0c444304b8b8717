package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"chatguard/internal/config"
	"chatguard/internal/logging"
	"chatguard/internal/queue"
	"chatguard/internal/scraper"
	"chatguard/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logging.SetDefault(cfg.Log.Level, cfg.Log.Format)

	if len(cfg.Scraper.Channels) == 0 {
		log.Fatalf("no scraper.channels configured")
	}

	publisher, err := queue.NewKafka(cfg.Queue.Brokers, cfg.Queue.Topic)
	if err != nil {
		log.Fatalf("failed to create queue: %v", err)
	}
	defer publisher.Close()

	w := worker.NewScraper(scraper.NewYouTube(cfg.Scraper.FeedURL), publisher, cfg.Scraper)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Start(ctx)

	slog.Info("scraper started", "channels", len(cfg.Scraper.Channels), "interval", cfg.Scraper.Interval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cancel()
}
