package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"chatguard/internal/api"
	"chatguard/internal/classifier"
	"chatguard/internal/config"
	"chatguard/internal/logging"
	"chatguard/internal/queue"
	"chatguard/internal/redis"
	"chatguard/internal/storage"
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

	// without brokers the server only labels and reads
	var publisher queue.Publisher
	if len(cfg.Queue.Brokers) > 0 {
		kafka, err := queue.NewKafka(cfg.Queue.Brokers, cfg.Queue.Topic)
		if err != nil {
			log.Fatalf("failed to create queue: %v", err)
		}
		defer kafka.Close()
		publisher = kafka
	}

	server := api.NewServer(labeler, repo, publisher)

	go func() {
		slog.Info("server starting", "addr", cfg.Server.Port, "backend", cfg.Classifier.Backend)
		if err := server.Start(cfg.Server.Port); err != nil {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	server.Shutdown()
}
