// Package notify propaga os fatos do escrow e da liquidação para o Kafka e o feed ao vivo.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/combat-bet-platform/internal/wager-service/feed"
	"github.com/radieske/combat-bet-platform/internal/wager/domain"
	"github.com/radieske/combat-bet-platform/internal/wager/producer"
	"github.com/radieske/combat-bet-platform/internal/wager/settlement"
	"github.com/radieske/combat-bet-platform/pkg/contracts/events"
)

// Notifier é plugado nos callbacks do escrow/engine/payout
// Falhas de publicação são logadas; o fato já está gravado e não é desfeito
type Notifier struct {
	Log     *zap.Logger
	Events  producer.Publisher
	Feed    feed.Publisher
	Timeout time.Duration
}

func New(events producer.Publisher, fd feed.Publisher, log *zap.Logger) *Notifier {
	return &Notifier{Log: log, Events: events, Feed: fd, Timeout: 2 * time.Second}
}

func (n *Notifier) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), n.Timeout)
}

// BetPlaced: OnPlaced do escrow
func (n *Notifier) BetPlaced(parent context.Context, b domain.Bet) {
	ctx, cancel := n.ctx(parent)
	defer cancel()

	if err := n.Events.PublishBetPlaced(ctx, events.BetPlaced{
		BetID:    b.ID,
		CombatID: b.CombatID,
		UserID:   b.UserID,
		Choice:   b.Choice,
		Amount:   b.Amount,
	}); err != nil {
		n.Log.Warn("publish bet_placed failed", zap.String("betId", b.ID), zap.Error(err))
	}
	n.broadcast(ctx, feed.Update{
		Type:     feed.TypeBetPlaced,
		CombatID: b.CombatID,
		Payload:  map[string]any{"betId": b.ID, "choice": b.Choice, "amount": b.Amount},
	})
}

// CombatOpened: OnOpened do engine
func (n *Notifier) CombatOpened(parent context.Context, c domain.Combat) {
	ctx, cancel := n.ctx(parent)
	defer cancel()

	n.broadcast(ctx, feed.Update{
		Type:     feed.TypeCombatCreated,
		CombatID: c.ID,
		Payload:  map[string]any{"playerA": c.SideA, "playerB": c.SideB},
	})
}

// CombatSettled: OnSettled do engine; o evento dispara o replay no settlement-worker
func (n *Notifier) CombatSettled(parent context.Context, o settlement.Outcome) {
	ctx, cancel := n.ctx(parent)
	defer cancel()

	if err := n.Events.PublishCombatSettled(ctx, events.CombatSettled{
		CombatID: o.Combat.ID,
		Winner:   o.Winner,
		Dead:     o.Dead,
		Paid:     o.Report.Paid,
		Failed:   o.Report.Failed,
		Credited: o.Report.Credited,
	}); err != nil {
		n.Log.Warn("publish combat_settled failed", zap.String("combatId", o.Combat.ID), zap.Error(err))
	}
	n.broadcast(ctx, feed.Update{
		Type:     feed.TypeCombatSettled,
		CombatID: o.Combat.ID,
		Payload:  map[string]any{"winner": o.Winner, "dead": o.Dead},
	})
}

// PayoutFailed: OnFailed do payout
func (n *Notifier) PayoutFailed(parent context.Context, b domain.Bet, amount int64, cause error) {
	ctx, cancel := n.ctx(parent)
	defer cancel()

	if err := n.Events.PublishPayoutFailed(ctx, events.PayoutFailed{
		CombatID: b.CombatID,
		BetID:    b.ID,
		UserID:   b.UserID,
		Amount:   amount,
		Reason:   cause.Error(),
	}); err != nil {
		n.Log.Warn("publish payout_failed failed", zap.String("betId", b.ID), zap.Error(err))
	}
}

func (n *Notifier) broadcast(ctx context.Context, u feed.Update) {
	if n.Feed == nil {
		return
	}
	if err := n.Feed.Publish(ctx, u); err != nil {
		n.Log.Warn("feed publish failed", zap.String("type", u.Type), zap.Error(err))
	}
}
