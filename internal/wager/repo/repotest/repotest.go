// Package repotest abre stores SQLite temporários para testes de outros pacotes.
package repotest

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/radieske/combat-bet-platform/internal/shared/db"
	"github.com/radieske/combat-bet-platform/internal/wager/domain"
	"github.com/radieske/combat-bet-platform/internal/wager/repo"
)

// Open cria um store migrado em t.TempDir(); o relógio avança 1ms por leitura
// para que a ordenação por criação seja determinística
func Open(t testing.TB) *repo.Store {
	t.Helper()

	sqlDB, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "bets.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := repo.New(sqlDB, repo.WithClock(TickingClock(time.UnixMilli(1_700_000_000_000))))
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

// TickingClock retorna um relógio monotônico que avança 1ms a cada chamada
func TickingClock(start time.Time) func() time.Time {
	var ticks atomic.Int64
	return func() time.Time {
		return start.Add(time.Duration(ticks.Add(1)) * time.Millisecond)
	}
}

// SeedUser cria um usuário com o saldo informado
func SeedUser(t testing.TB, store *repo.Store, username string, credits int64) domain.User {
	t.Helper()

	u := domain.User{Username: username, PasswordHash: "x", Credits: credits}
	if err := store.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

// SeedCombat cria um combate aberto
func SeedCombat(t testing.TB, store *repo.Store, sideA, sideB string) domain.Combat {
	t.Helper()

	c := domain.Combat{SideA: sideA, SideB: sideB}
	if err := store.CreateCombat(context.Background(), &c); err != nil {
		t.Fatalf("seed combat: %v", err)
	}
	return c
}

// Credits lê o saldo atual do usuário
func Credits(t testing.TB, store *repo.Store, userID string) int64 {
	t.Helper()

	u, err := store.GetUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return u.Credits
}
