package storage

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"chatguard/internal/classifier"
	"chatguard/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_messages (
	id             TEXT PRIMARY KEY,
	platform       TEXT NOT NULL,
	channel        TEXT NOT NULL,
	username       TEXT NOT NULL,
	text           TEXT NOT NULL,
	emote_id       TEXT NOT NULL,
	is_reply       BOOLEAN NOT NULL,
	created_at     BIGINT NOT NULL,
	label          TEXT NOT NULL,
	phishing_score DOUBLE PRECISION NOT NULL,
	labeled_at     BIGINT NOT NULL,
	label_error    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS chat_messages_created_at ON chat_messages (created_at);
`

const selectColumns = `id, platform, channel, username, text, emote_id, is_reply, created_at, label, phishing_score, labeled_at, label_error`

// sqlRepository implements MessageRepository over database/sql. Queries use
// '?' placeholders and are rebound for drivers that number them.
type sqlRepository struct {
	db       *sql.DB
	numbered bool
}

func (r *sqlRepository) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *sqlRepository) rebind(query string) string {
	if !r.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (r *sqlRepository) Close() error {
	return r.db.Close()
}

func (r *sqlRepository) Save(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO chat_messages (` + selectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			label = excluded.label,
			phishing_score = excluded.phishing_score,
			labeled_at = excluded.labeled_at,
			label_error = excluded.label_error
		WHERE chat_messages.label_error <> ''
	`

	m := rec.Message
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		m.ID,
		string(m.Platform),
		m.Channel,
		m.Username,
		m.Text,
		m.EmoteID,
		m.IsReply,
		m.CreatedAt.UnixNano(),
		string(rec.Verdict.Label),
		rec.Verdict.PhishingScore,
		rec.LabeledAt.UnixNano(),
		rec.LabelError,
	)

	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var (
		rec                  Record
		platform, label      string
		createdAt, labeledAt int64
	)
	err := s.Scan(
		&rec.Message.ID,
		&platform,
		&rec.Message.Channel,
		&rec.Message.Username,
		&rec.Message.Text,
		&rec.Message.EmoteID,
		&rec.Message.IsReply,
		&createdAt,
		&label,
		&rec.Verdict.PhishingScore,
		&labeledAt,
		&rec.LabelError,
	)
	if err != nil {
		return Record{}, err
	}

	rec.Message.Platform = domain.Platform(platform)
	rec.Message.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.Verdict.Label = classifier.Label(label)
	rec.LabeledAt = time.Unix(0, labeledAt).UTC()
	return rec, nil
}

func (r *sqlRepository) FindByID(ctx context.Context, id string) (*Record, error) {
	query := `SELECT ` + selectColumns + ` FROM chat_messages WHERE id = ?`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

func (r *sqlRepository) FindAll(ctx context.Context, limit, offset int) ([]Record, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM chat_messages ORDER BY created_at DESC LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *sqlRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM chat_messages WHERE id = ? AND label_error = '')`

	var exists bool
	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(&exists)
	return exists, err
}

func (r *sqlRepository) GetStats(ctx context.Context) (Stats, error) {
	query := `SELECT label, COUNT(*) FROM chat_messages GROUP BY label`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return Stats{}, err
		}
		stats.Add(classifier.Label(label), n)
	}

	return stats, rows.Err()
}
