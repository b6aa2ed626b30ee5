// Package consumer reprocessa pagamentos a partir dos eventos combat_settled.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/radieske/combat-bet-platform/internal/shared/kafka"
	"github.com/radieske/combat-bet-platform/internal/wager/domain"
	"github.com/radieske/combat-bet-platform/internal/wager/settlement"
	"github.com/radieske/combat-bet-platform/pkg/contracts/events"
)

// Fetcher é o subconjunto do kafka.Reader com commit explícito
type Fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Replayer repete o pagamento de um combate finalizado
type Replayer interface {
	Replay(ctx context.Context, combatID string) (settlement.Report, error)
}

// Processor consome combat_settled e garante que todas as apostas vencedoras foram pagas
// Mensagens que esgotam as tentativas vão para a DLQ; o offset só é commitado depois
type Processor struct {
	Log      *zap.Logger
	Reader   Fetcher
	Payout   Replayer
	DLQ      kafka.MessageWriter // nil desliga a DLQ
	DLQTopic string

	MaxAttempts uint
	Backoff     time.Duration

	OnConsumed   func()
	OnReplayed   func(rep settlement.Report)
	OnDeadLetter func()
	OnError      func(stage string) // métricas por fase
}

// Run inicia o loop principal de consumo; retorna quando o contexto é cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka fetch failed", zap.Error(err))
			p.fail("fetch")
			if !sleep(ctx, 500*time.Millisecond) {
				return ctx.Err()
			}
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		if err := p.handle(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // sem commit: a mensagem é reentregue
			}
			if derr := p.deadLetter(ctx, m, err); derr != nil {
				// sem commit: o grupo retoma desta mensagem quando o worker reiniciar
				return fmt.Errorf("dead-letter offset %d: %w", m.Offset, derr)
			}
		}

		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
			p.fail("commit")
		}
	}
}

// handle decodifica o evento e roda o replay com retry exponencial
// Falhas de pagamento por apostador também disparam nova tentativa
func (p *Processor) handle(ctx context.Context, m kafka.Message) error {
	var ev events.CombatSettled
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		p.fail("decode")
		return fmt.Errorf("decode combat_settled: %w", err)
	}
	if ev.CombatID == "" {
		p.fail("decode")
		return errors.New("combat_settled without combat_id")
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.Backoff
	policy.MaxInterval = 30 * p.Backoff

	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	rep, err := backoff.Retry(ctx, func() (settlement.Report, error) {
		rep, err := p.Payout.Replay(ctx, ev.CombatID)
		switch {
		case errors.Is(err, domain.ErrNoSuchCombat), errors.Is(err, domain.ErrNotSettled):
			return rep, backoff.Permanent(err)
		case err != nil:
			p.fail("replay")
			return rep, err
		case rep.Failed > 0:
			p.fail("payout")
			return rep, fmt.Errorf("%d payouts failed", rep.Failed)
		}
		return rep, nil
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(attempts))
	if err != nil {
		return err
	}

	p.Log.Info("payout replayed",
		zap.String("combatId", ev.CombatID),
		zap.Int("paid", rep.Paid),
		zap.Int("skipped", rep.Skipped),
		zap.Int64("credited", rep.Credited))
	if p.OnReplayed != nil {
		p.OnReplayed(rep)
	}
	return nil
}

// deadLetter publica a mensagem na DLQ; erro significa que ela não pode ser commitada
func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, cause error) error {
	p.Log.Error("combat_settled dead-lettered",
		zap.String("key", string(m.Key)),
		zap.Int64("offset", m.Offset),
		zap.Error(cause))
	if p.OnDeadLetter != nil {
		p.OnDeadLetter()
	}
	if p.DLQ == nil {
		return nil
	}

	dlq := kafka.Message{
		Topic: p.DLQTopic,
		Key:   m.Key,
		Value: m.Value,
		Headers: []kafka.Header{
			{Key: "error", Value: []byte(cause.Error())},
			{Key: "source_topic", Value: []byte(m.Topic)},
		},
		Time: time.Now(),
	}
	if err := p.DLQ.WriteMessages(ctx, dlq); err != nil {
		p.Log.Error("dlq write failed", zap.Int64("offset", m.Offset), zap.Error(err))
		p.fail("dlq")
		return err
	}
	return nil
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
