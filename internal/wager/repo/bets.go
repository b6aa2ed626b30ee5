package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/radieske/combat-bet-platform/internal/wager/domain"
)

const betColumns = `b.id, b.combat_id, b.user_id, b.choice, b.amount, b.request_id, b.created_at`

// CreateBet grava a aposta; request id repetido para o mesmo usuário => ErrDuplicateRequest
func (s *Store) CreateBet(ctx context.Context, b *domain.Bet) error {
	if b.ID == "" {
		b.ID = newID()
	}
	b.CreatedAt = fromMs(s.nowMs())

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO bets (id, combat_id, user_id, choice, amount, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, request_id) DO NOTHING`,
		b.ID, b.CombatID, b.UserID, b.Choice, b.Amount, nullable(b.RequestID), b.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrDuplicateRequest
	}
	return nil
}

// GetBetByRequest busca a aposta criada por uma requisição anterior (idempotência)
func (s *Store) GetBetByRequest(ctx context.Context, userID, requestID string) (domain.Bet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+betColumns+` FROM bets b
		WHERE b.user_id = $1 AND b.request_id = $2`, userID, requestID)
	b, err := scanBet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bet{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Bet{}, fmt.Errorf("select bet: %w", err)
	}
	return b, nil
}

// ListBets retorna as apostas do combate com o nome do apostador, em ordem de criação
func (s *Store) ListBets(ctx context.Context, combatID string) ([]domain.BetView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+betColumns+`, u.username
		FROM bets b
		JOIN users u ON u.id = b.user_id
		WHERE b.combat_id = $1
		ORDER BY b.created_at ASC, b.id ASC`, combatID)
	if err != nil {
		return nil, fmt.Errorf("select bets: %w", err)
	}
	defer rows.Close()

	out := make([]domain.BetView, 0, 8)
	for rows.Next() {
		var v domain.BetView
		var reqID sql.NullString
		var created int64
		if err := rows.Scan(&v.ID, &v.CombatID, &v.UserID, &v.Choice, &v.Amount, &reqID, &created, &v.Bettor); err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		v.RequestID = reqID.String
		v.CreatedAt = fromMs(created)
		out = append(out, v)
	}
	return out, rows.Err()
}

// WinningBets lista as apostas no vencedor
func (s *Store) WinningBets(ctx context.Context, combatID, winner string) ([]domain.Bet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+betColumns+` FROM bets b
		WHERE b.combat_id = $1 AND b.choice = $2
		ORDER BY b.created_at ASC, b.id ASC`, combatID, winner)
	if err != nil {
		return nil, fmt.Errorf("select winning bets: %w", err)
	}
	defer rows.Close()

	var out []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// PayBet credita o prêmio de uma aposta uma única vez
// O marcador em payouts(bet_id) é inserido na mesma transação do crédito;
// se já existir, nada é creditado e paid=false
func (s *Store) PayBet(ctx context.Context, b domain.Bet, amount int64) (paid bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin payout: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO payouts (bet_id, combat_id, user_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (bet_id) DO NOTHING`,
		b.ID, b.CombatID, b.UserID, amount, s.nowMs(),
	)
	if err != nil {
		return false, fmt.Errorf("insert payout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	if _, err = creditTx(ctx, tx, b.UserID, amount); err != nil {
		return false, err
	}
	if err = s.insertLedger(ctx, tx, b.UserID, domain.LedgerPayout, amount, b.ID); err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit payout: %w", err)
	}
	return true, nil
}

func scanBet(r rowScanner) (domain.Bet, error) {
	var (
		b       domain.Bet
		reqID   sql.NullString
		created int64
	)
	if err := r.Scan(&b.ID, &b.CombatID, &b.UserID, &b.Choice, &b.Amount, &reqID, &created); err != nil {
		return domain.Bet{}, err
	}
	b.RequestID = reqID.String
	b.CreatedAt = fromMs(created)
	return b, nil
}
