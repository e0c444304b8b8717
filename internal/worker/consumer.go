package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
	"unicode/utf8"

	"chatguard/internal/classifier"
	"chatguard/internal/domain"
	"chatguard/internal/notifier"
	"chatguard/internal/queue"
	"chatguard/internal/storage"
)

type Broadcaster interface {
	Broadcast(msg string)
}

// Consumer labels chat messages from the queue, stores them and alerts on
// phishing.
type Consumer struct {
	consumer    queue.Consumer
	repo        storage.MessageRepository
	labeler     classifier.Labeler
	notifier    notifier.Notifier
	broadcaster Broadcaster
	now         func() time.Time
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(string) {}

// NewConsumer builds the ingest worker. A nil broadcaster disables live
// updates.
func NewConsumer(c queue.Consumer, r storage.MessageRepository, l classifier.Labeler, n notifier.Notifier, b Broadcaster) *Consumer {
	if b == nil {
		b = nopBroadcaster{}
	}
	return &Consumer{
		consumer:    c,
		repo:        r,
		labeler:     l,
		notifier:    n,
		broadcaster: b,
		now:         time.Now,
	}
}

func (w *Consumer) Start(ctx context.Context) error {
	return w.consumer.Consume(ctx, w.handleMessage)
}

func (w *Consumer) handleMessage(ctx context.Context, msg domain.ChatMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = w.now().UTC()
	}
	if msg.ID == "" {
		msg.ID = domain.GenerateID(msg)
	}

	log := slog.With("id", msg.ID, "channel", msg.Channel, "username", msg.Username)
	log.Debug("received", "text", truncate(msg.Text, 60))

	exists, err := w.repo.Exists(ctx, msg.ID)
	if err != nil {
		log.Error("exists", "error", err)
		return err
	}
	if exists {
		log.Debug("duplicate")
		return nil
	}

	rec := storage.Record{Message: msg, LabeledAt: w.now().UTC()}

	verdict, err := classifier.LabelOne(ctx, w.labeler, msg.Text)
	if err != nil {
		log.Error("label", "error", err)
		verdict = classifier.Verdict{Label: classifier.LabelUncertain}
		rec.LabelError = err.Error()
	}
	rec.Verdict = verdict

	if err := w.repo.Save(ctx, rec); err != nil {
		log.Error("save", "error", err)
		return err
	}

	if data, err := json.Marshal(rec); err == nil {
		w.broadcaster.Broadcast(string(data))
	}

	if verdict.Label == classifier.LabelPhishing {
		log.Info("detected", "label", verdict.Label, "phishing_score", verdict.PhishingScore)

		if err := w.notifier.Notify(ctx, notifier.Notification{
			Message: msg,
			Verdict: verdict,
		}); err != nil {
			log.Error("notify", "error", err)
		}
	}

	return nil
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
