package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"clinical-extract/internal/runner"
)

// Prediction is one persisted extraction result.
type Prediction struct {
	bun.BaseModel `bun:"table:predictions,alias:p"`
	ID            int64          `bun:"id,pk,autoincrement"`
	NoteID        string         `bun:"note_id,notnull"`
	Pred          map[string]any `bun:"pred,type:jsonb"`
	Model         string         `bun:"model"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func Connect(dsn string) *sql.DB {
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
}

func New(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func Init(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*Prediction)(nil)).IfNotExists().Exec(ctx)
	return err
}

// Sink stores each output record in the predictions table, alongside the
// JSONL file. It satisfies the sink Writer interface.
type Sink struct {
	db    *bun.DB
	model string
}

func NewSink(db *bun.DB, model string) *Sink {
	return &Sink{db: db, model: model}
}

func (s *Sink) Write(ctx context.Context, rec runner.Output) error {
	pred := &Prediction{
		NoteID: strings.Trim(string(rec.ID), `"`),
		Pred:   rec.Pred,
		Model:  s.model,
	}
	_, err := s.db.NewInsert().Model(pred).Exec(ctx)
	return err
}

func (s *Sink) Close() error {
	return s.db.Close()
}
