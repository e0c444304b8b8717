package storage

import (
	"context"
	"fmt"
	"time"

	"chatguard/internal/classifier"
	"chatguard/internal/config"
	"chatguard/internal/domain"
)

// Record is a chat message together with the verdict it received.
// LabelError is set when labelling failed and Verdict is only the uncertain
// placeholder; such a record is replaced by the next successful Save.
type Record struct {
	Message    domain.ChatMessage `json:"message"`
	Verdict    classifier.Verdict `json:"verdict"`
	LabeledAt  time.Time          `json:"labeled_at"`
	LabelError string             `json:"label_error,omitempty"`
}

type Stats struct {
	Total     int `json:"total"`
	Phishing  int `json:"phishing"`
	Benign    int `json:"benign"`
	Uncertain int `json:"uncertain"`
}

func (s *Stats) Add(l classifier.Label, n int) {
	s.Total += n
	switch l {
	case classifier.LabelPhishing:
		s.Phishing += n
	case classifier.LabelBenign:
		s.Benign += n
	default:
		s.Uncertain += n
	}
}

type MessageRepository interface {
	Save(ctx context.Context, rec Record) error
	FindByID(ctx context.Context, id string) (*Record, error)
	FindAll(ctx context.Context, limit, offset int) ([]Record, error)
	// Exists reports whether id has a stored verdict that did not fail.
	Exists(ctx context.Context, id string) (bool, error)
	GetStats(ctx context.Context) (Stats, error)
	Close() error
}

// Open returns the repository for the configured driver.
func Open(cfg config.StorageConfig) (MessageRepository, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return NewPostgres(cfg.DSN)
	case config.DriverSQLite:
		return NewSQLite(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
