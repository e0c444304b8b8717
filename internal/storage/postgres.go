package storage

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
)

type Postgres struct {
	sqlRepository
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	p := &Postgres{sqlRepository{db: db, numbered: true}}
	if err := p.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return p, nil
}
