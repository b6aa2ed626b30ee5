package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/radieske/combat-bet-platform/internal/wager/domain"
)

const combatColumns = `id, side_a, side_b, status, winner, created_at, settled_at`

// CreateCombat grava um combate novo sempre como open
func (s *Store) CreateCombat(ctx context.Context, c *domain.Combat) error {
	if c.ID == "" {
		c.ID = newID()
	}
	c.Status = domain.StatusOpen
	c.Winner = ""
	c.SettledAt = nil
	c.CreatedAt = fromMs(s.nowMs())

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO combats (id, side_a, side_b, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.SideA, c.SideB, string(c.Status), c.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert combat: %w", err)
	}
	return nil
}

func (s *Store) GetCombat(ctx context.Context, id string) (domain.Combat, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+combatColumns+` FROM combats WHERE id = $1`, id)
	c, err := scanCombat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Combat{}, domain.ErrNoSuchCombat
	}
	if err != nil {
		return domain.Combat{}, fmt.Errorf("select combat: %w", err)
	}
	return c, nil
}

// ListCombats retorna os combates mais recentes primeiro
func (s *Store) ListCombats(ctx context.Context, limit int) ([]domain.Combat, error) {
	if limit <= 0 || limit > domain.MaxListedCombats {
		limit = domain.MaxListedCombats
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+combatColumns+`
		FROM combats
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select combats: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Combat, 0, 16)
	for rows.Next() {
		c, err := scanCombat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan combat: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FinishCombat faz a transição open -> finished de forma atômica (compare-and-set)
// Apenas uma chamada concorrente afeta a linha; as demais recebem ErrAlreadySettled
func (s *Store) FinishCombat(ctx context.Context, id, winner string) (domain.Combat, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE combats SET status = $1, winner = $2, settled_at = $3
		WHERE id = $4 AND status = $5`,
		string(domain.StatusFinished), winner, s.nowMs(), id, string(domain.StatusOpen),
	)
	if err != nil {
		return domain.Combat{}, fmt.Errorf("finish combat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Combat{}, fmt.Errorf("finish combat rows: %w", err)
	}

	c, gerr := s.GetCombat(ctx, id)
	if gerr != nil {
		return domain.Combat{}, gerr
	}
	if n == 0 {
		return c, domain.ErrAlreadySettled
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCombat(r rowScanner) (domain.Combat, error) {
	var (
		c       domain.Combat
		status  string
		winner  sql.NullString
		created int64
		settled sql.NullInt64
	)
	if err := r.Scan(&c.ID, &c.SideA, &c.SideB, &status, &winner, &created, &settled); err != nil {
		return domain.Combat{}, err
	}
	c.Status = domain.CombatStatus(status)
	c.Winner = winner.String
	c.CreatedAt = fromMs(created)
	if settled.Valid {
		t := fromMs(settled.Int64)
		c.SettledAt = &t
	}
	return c, nil
}
