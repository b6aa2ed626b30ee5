// Package settlement liquida combates e paga as apostas vencedoras.
package settlement

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/radieske/combat-bet-platform/internal/wager/classifier"
	"github.com/radieske/combat-bet-platform/internal/wager/domain"
)

// Store é o subconjunto do ledger usado pelo motor de liquidação
type Store interface {
	CreateCombat(ctx context.Context, c *domain.Combat) error
	GetCombat(ctx context.Context, id string) (domain.Combat, error)
	FinishCombat(ctx context.Context, id, winner string) (domain.Combat, error)
}

// Outcome é o resultado de uma liquidação bem-sucedida
type Outcome struct {
	Combat domain.Combat
	Winner string
	Dead   string
	Report Report
}

// Engine controla a máquina de estados open -> finished
type Engine struct {
	Log    *zap.Logger
	Store  Store
	Payout *Payout

	OnOpened  func(ctx context.Context, c domain.Combat)
	OnSettled func(ctx context.Context, o Outcome)
	OnResult  func(result string) // settled | código de erro
}

func NewEngine(store Store, payout *Payout, log *zap.Logger) *Engine {
	return &Engine{Log: log, Store: store, Payout: payout}
}

// Open cria um combate aberto para apostas
func (e *Engine) Open(ctx context.Context, creator domain.Identity, sideA, sideB string) (domain.Combat, error) {
	if creator.UserID == "" {
		return domain.Combat{}, domain.ErrNotLoggedIn
	}
	sideA, sideB = strings.TrimSpace(sideA), strings.TrimSpace(sideB)
	if sideA == "" || sideB == "" {
		return domain.Combat{}, domain.ErrMissingPlayers
	}
	// nomes iguais tornariam o vencedor ambíguo
	if domain.SameSides(sideA, sideB) {
		return domain.Combat{}, domain.ErrInvalid
	}

	c := domain.Combat{SideA: sideA, SideB: sideB}
	if err := e.Store.CreateCombat(ctx, &c); err != nil {
		return domain.Combat{}, err
	}

	e.Log.Info("combat opened",
		zap.String("combatId", c.ID),
		zap.String("sideA", c.SideA),
		zap.String("sideB", c.SideB),
		zap.String("by", creator.UserID))
	if e.OnOpened != nil {
		e.OnOpened(ctx, c)
	}
	return c, nil
}

// Settle classifica a prova, finaliza o combate e paga os vencedores
// Duas liquidações concorrentes: só uma vence o compare-and-set e paga
func (e *Engine) Settle(ctx context.Context, caller domain.Identity, combatID, eventText string) (Outcome, error) {
	out, err := e.settle(ctx, caller, combatID, eventText)
	if e.OnResult != nil {
		if err != nil {
			e.OnResult(domain.Code(err))
		} else {
			e.OnResult("settled")
		}
	}
	return out, err
}

func (e *Engine) settle(ctx context.Context, caller domain.Identity, combatID, eventText string) (Outcome, error) {
	if caller.UserID == "" {
		return Outcome{}, domain.ErrNotLoggedIn
	}
	combatID = strings.TrimSpace(combatID)
	if combatID == "" || strings.TrimSpace(eventText) == "" {
		return Outcome{}, domain.ErrInvalid
	}

	c, err := e.Store.GetCombat(ctx, combatID)
	if err != nil {
		return Outcome{}, err
	}
	if !c.IsOpen() {
		return Outcome{}, domain.ErrAlreadySettled
	}

	dead, ok := classifier.Resolve(eventText, c.SideA, c.SideB)
	if !ok {
		return Outcome{}, domain.ErrCannotDetermineOutcome
	}
	winner, _ := c.Opponent(dead)

	// Transição atômica: quem perde a corrida recebe ErrAlreadySettled e não paga
	finished, err := e.Store.FinishCombat(ctx, c.ID, winner)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadySettled) {
			e.Log.Info("settlement lost race", zap.String("combatId", c.ID))
		}
		return Outcome{}, err
	}

	rep, err := e.Payout.Pay(ctx, finished.ID, winner)
	if err != nil {
		// combate já está finalizado; o replay completa o pagamento
		e.Log.Error("payout aborted", zap.String("combatId", finished.ID), zap.Error(err))
	}

	out := Outcome{Combat: finished, Winner: winner, Dead: dead, Report: rep}
	e.Log.Info("combat settled",
		zap.String("combatId", finished.ID),
		zap.String("winner", winner),
		zap.String("dead", dead),
		zap.String("by", caller.UserID))
	if e.OnSettled != nil {
		e.OnSettled(ctx, out)
	}
	return out, nil
}
