package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/radieske/combat-bet-platform/internal/wager/domain"
)

// Debit decrementa o saldo somente se houver crédito suficiente (UPDATE condicional)
// e registra o débito no ledger na mesma transação
// Retorna o novo saldo; sem linha afetada => ErrInsufficientCredits ou ErrNotFound
func (s *Store) Debit(ctx context.Context, userID string, amount int64, ref string) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalid
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin debit: %w", err)
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRowContext(ctx, `
		UPDATE users SET credits = credits - $1
		WHERE id = $2 AND credits >= $1
		RETURNING credits`, amount, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		if ok, lerr := userExists(ctx, tx, userID); lerr != nil {
			return 0, lerr
		} else if !ok {
			return 0, domain.ErrNotFound
		}
		return 0, domain.ErrInsufficientCredits
	}
	if err != nil {
		return 0, fmt.Errorf("debit credits: %w", err)
	}

	if err = s.insertLedger(ctx, tx, userID, domain.LedgerBetDebit, -amount, ref); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit debit: %w", err)
	}
	return balance, nil
}

// Credit incrementa o saldo e registra a movimentação (estorno, ajustes)
func (s *Store) Credit(ctx context.Context, userID string, amount int64, kind, ref string) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalid
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin credit: %w", err)
	}
	defer tx.Rollback()

	balance, err := creditTx(ctx, tx, userID, amount)
	if err != nil {
		return 0, err
	}
	if err = s.insertLedger(ctx, tx, userID, kind, amount, ref); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit credit: %w", err)
	}
	return balance, nil
}

// Ledger lista as movimentações do usuário, mais recentes primeiro
func (s *Store) Ledger(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, kind, amount, ref, created_at
		FROM credit_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select ledger: %w", err)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var (
			e       domain.LedgerEntry
			created int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Amount, &e.Ref, &created); err != nil {
			return nil, fmt.Errorf("scan ledger: %w", err)
		}
		e.CreatedAt = fromMs(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

func creditTx(ctx context.Context, tx *sql.Tx, userID string, amount int64) (int64, error) {
	var balance int64
	err := tx.QueryRowContext(ctx, `
		UPDATE users SET credits = credits + $1
		WHERE id = $2
		RETURNING credits`, amount, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("credit credits: %w", err)
	}
	return balance, nil
}

func userExists(ctx context.Context, tx *sql.Tx, userID string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = $1`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select user: %w", err)
	}
	return true, nil
}
