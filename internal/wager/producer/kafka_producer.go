// Package producer publica os eventos de domínio de apostas no Kafka.
package producer

import (
	"context"
	"time"

	"github.com/radieske/combat-bet-platform/internal/shared/kafka"
	"github.com/radieske/combat-bet-platform/pkg/contracts/events"
)

// Publisher é o contrato usado pelos serviços; Noop quando Kafka está desligado
type Publisher interface {
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
	PublishCombatSettled(ctx context.Context, e events.CombatSettled) error
	PublishPayoutFailed(ctx context.Context, e events.PayoutFailed) error
}

type Topics struct {
	BetPlaced     string
	CombatSettled string
	PayoutFailed  string
}

// KafkaPublisher usa combatId como key: eventos do mesmo combate ficam ordenados na partição
type KafkaPublisher struct {
	Writer kafka.MessageWriter
	Topics Topics
	now    func() time.Time
}

func NewKafkaPublisher(w kafka.MessageWriter, topics Topics) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topics: topics, now: time.Now}
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	e.TsUnixMs = p.now().UnixMilli()
	return kafka.WriteJSON(ctx, p.Writer, p.Topics.BetPlaced, e.CombatID, e)
}

func (p *KafkaPublisher) PublishCombatSettled(ctx context.Context, e events.CombatSettled) error {
	e.TsUnixMs = p.now().UnixMilli()
	return kafka.WriteJSON(ctx, p.Writer, p.Topics.CombatSettled, e.CombatID, e)
}

func (p *KafkaPublisher) PublishPayoutFailed(ctx context.Context, e events.PayoutFailed) error {
	e.TsUnixMs = p.now().UnixMilli()
	return kafka.WriteJSON(ctx, p.Writer, p.Topics.PayoutFailed, e.CombatID, e)
}

type Noop struct{}

func (Noop) PublishBetPlaced(context.Context, events.BetPlaced) error { return nil }

func (Noop) PublishCombatSettled(context.Context, events.CombatSettled) error { return nil }

func (Noop) PublishPayoutFailed(context.Context, events.PayoutFailed) error { return nil }
