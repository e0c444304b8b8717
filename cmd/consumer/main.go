package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"chatguard/internal/classifier"
	"chatguard/internal/config"
	"chatguard/internal/logging"
	"chatguard/internal/notifier"
	"chatguard/internal/queue"
	"chatguard/internal/redis"
	"chatguard/internal/storage"
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

	repo, err := storage.Open(cfg.Storage)
	if err != nil {
		log.Fatalf("failed to connect to storage: %v", err)
	}
	defer repo.Close()

	labeler, err := classifier.New(cfg.Classifier)
	if err != nil {
		log.Fatalf("failed to build classifier: %v", err)
	}
	if cfg.Redis.Addr != "" {
		rdb, err := redis.New(cfg.Redis.Addr, cfg.Redis.TTL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		labeler = classifier.NewCached(labeler, rdb, classifier.Namespace(cfg.Classifier))
	}

	consumer, err := queue.NewKafkaConsumer(cfg.Queue.Brokers, cfg.Queue.GroupID, cfg.Queue.Topic)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}
	defer consumer.Close()

	var nt notifier.Notifier = notifier.Nop{}
	if cfg.Notifier.TelegramToken != "" {
		nt = notifier.NewTelegram(cfg.Notifier.TelegramToken, cfg.Notifier.TelegramChatIDs)
	}

	w := worker.NewConsumer(consumer, repo, labeler, nt, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := w.Start(ctx); err != nil {
			slog.Error("consumer error", "error", err)
		}
	}()

	slog.Info("consumer started", "backend", cfg.Classifier.Backend)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cancel()
}
