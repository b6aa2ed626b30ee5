package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/radieske/combat-bet-platform/internal/wager/domain"
)

// CreateUser insere o usuário; username duplicado => domain.ErrUsernameTaken
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = newID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = fromMs(s.nowMs())
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, credits, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO NOTHING`,
		u.ID, u.Username, u.PasswordHash, u.Credits, u.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUsernameTaken
	}
	return nil
}

// GetUser retorna o usuário com o saldo atual
func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, credits, created_at FROM users WHERE id = $1`, id))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, credits, created_at FROM users WHERE username = $1`, username))
}

func (s *Store) scanUser(row *sql.Row) (domain.User, error) {
	var (
		u       domain.User
		created int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Credits, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	u.CreatedAt = fromMs(created)
	return u, nil
}
