package settlement

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/combat-bet-platform/internal/wager/domain"
)

// PayoutStore é o subconjunto do ledger usado no pagamento
type PayoutStore interface {
	GetCombat(ctx context.Context, id string) (domain.Combat, error)
	WinningBets(ctx context.Context, combatID, winner string) ([]domain.Bet, error)
	PayBet(ctx context.Context, b domain.Bet, amount int64) (bool, error)
}

// Report resume um ciclo de pagamento
type Report struct {
	Paid     int   `json:"paid"`
	Skipped  int   `json:"skipped"` // já pagas anteriormente
	Failed   int   `json:"failed"`
	Credited int64 `json:"credited"`
}

// Payout credita as apostas vencedoras de um combate finalizado
// Cada aposta é paga no máximo uma vez (marcador em payouts); a falha de um
// apostador é registrada e não interrompe os demais
type Payout struct {
	Log        *zap.Logger
	Store      PayoutStore
	Multiplier int64

	OnPaid   func(b domain.Bet, amount int64)
	OnFailed func(ctx context.Context, b domain.Bet, amount int64, err error)
}

func NewPayout(store PayoutStore, log *zap.Logger) *Payout {
	return &Payout{Log: log, Store: store, Multiplier: domain.PayoutMultiplier}
}

// Pay credita Multiplier x valor para cada aposta no vencedor
// Só devolve erro se não conseguir listar as apostas
func (p *Payout) Pay(ctx context.Context, combatID, winner string) (Report, error) {
	// pagamento continua mesmo se a requisição que liquidou for cancelada
	ctx = context.WithoutCancel(ctx)

	bets, err := p.Store.WinningBets(ctx, combatID, winner)
	if err != nil {
		return Report{}, fmt.Errorf("list winning bets: %w", err)
	}

	var rep Report
	for _, b := range bets {
		amount := b.Amount * p.Multiplier
		paid, err := p.Store.PayBet(ctx, b, amount)
		switch {
		case err != nil:
			rep.Failed++
			p.Log.Error("payout failed",
				zap.String("combatId", combatID),
				zap.String("betId", b.ID),
				zap.String("userId", b.UserID),
				zap.Int64("amount", amount),
				zap.Error(err))
			if p.OnFailed != nil {
				p.OnFailed(ctx, b, amount, err)
			}
		case paid:
			rep.Paid++
			rep.Credited += amount
			if p.OnPaid != nil {
				p.OnPaid(b, amount)
			}
		default:
			rep.Skipped++
		}
	}

	p.Log.Info("payout finished",
		zap.String("combatId", combatID),
		zap.String("winner", winner),
		zap.Int("paid", rep.Paid),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed),
		zap.Int64("credited", rep.Credited))
	return rep, nil
}

// Replay repete o pagamento de um combate já finalizado; apostas pagas são puladas
func (p *Payout) Replay(ctx context.Context, combatID string) (Report, error) {
	c, err := p.Store.GetCombat(ctx, combatID)
	if err != nil {
		return Report{}, err
	}
	if c.IsOpen() || c.Winner == "" {
		return Report{}, domain.ErrNotSettled
	}
	return p.Pay(ctx, c.ID, c.Winner)
}
