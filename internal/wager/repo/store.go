package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store implementa a persistência de usuários, combates, apostas e ledger de créditos
// O mesmo SQL roda em Postgres (lib/pq) e SQLite (modernc): placeholders $N,
// timestamps em epoch ms e ids TEXT gerados na aplicação
type Store struct {
	db  *sql.DB
	now func() time.Time
}

type Option func(*Store)

// WithClock troca o relógio usado nos timestamps (testes)
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New retorna uma instância do store
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping valida a conexão (healthz)
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		credits       BIGINT NOT NULL CHECK (credits >= 0),
		created_at    BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS combats (
		id         TEXT PRIMARY KEY,
		side_a     TEXT NOT NULL,
		side_b     TEXT NOT NULL,
		status     TEXT NOT NULL,
		winner     TEXT,
		created_at BIGINT NOT NULL,
		settled_at BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_combats_created_at ON combats (created_at)`,
	`CREATE TABLE IF NOT EXISTS bets (
		id         TEXT PRIMARY KEY,
		combat_id  TEXT NOT NULL REFERENCES combats (id),
		user_id    TEXT NOT NULL REFERENCES users (id),
		choice     TEXT NOT NULL,
		amount     BIGINT NOT NULL CHECK (amount > 0),
		request_id TEXT,
		created_at BIGINT NOT NULL,
		UNIQUE (user_id, request_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bets_combat ON bets (combat_id)`,
	`CREATE TABLE IF NOT EXISTS credit_ledger (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users (id),
		kind       TEXT NOT NULL,
		amount     BIGINT NOT NULL,
		ref        TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_credit_ledger_user ON credit_ledger (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS payouts (
		bet_id     TEXT PRIMARY KEY REFERENCES bets (id),
		combat_id  TEXT NOT NULL,
		user_id    TEXT NOT NULL,
		amount     BIGINT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
}

// Migrate cria as tabelas se não existirem (idempotente)
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) nowMs() int64 { return s.now().UTC().UnixMilli() }

func fromMs(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// nullable grava string vazia como NULL
func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func newID() string { return uuid.NewString() }

// insertLedger registra a movimentação na mesma transação da alteração de saldo
func (s *Store) insertLedger(ctx context.Context, tx *sql.Tx, userID, kind string, amount int64, ref string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_ledger (id, user_id, kind, amount, ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		newID(), userID, kind, amount, ref, s.nowMs(),
	)
	if err != nil {
		return fmt.Errorf("insert ledger: %w", err)
	}
	return nil
}
