package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenSQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bets.db")
	sqlDB, err := Connect(context.Background(), DriverSQLite, "", path)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sqlDB.Close()

	var one int
	if err := sqlDB.QueryRow(`SELECT 1`).Scan(&one); err != nil {
		t.Fatalf("select: %v", err)
	}
	if one != 1 {
		t.Fatalf("select = %d, want 1", one)
	}
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	if _, err := Connect(context.Background(), "oracle", "", ""); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
