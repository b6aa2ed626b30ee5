// Package escrow reserva os créditos do apostador e registra a aposta.
//
// A reserva é uma saga de dois passos: débito condicional do saldo e gravação
// da aposta. Se o segundo passo falhar, o débito é estornado (com retry) antes
// de devolver bet_failed; quem chama nunca vê um débito sem aposta.
package escrow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/combat-bet-platform/internal/wager/domain"
)

// Store é o subconjunto do ledger usado pelo escrow
type Store interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetCombat(ctx context.Context, id string) (domain.Combat, error)
	Debit(ctx context.Context, userID string, amount int64, ref string) (int64, error)
	Credit(ctx context.Context, userID string, amount int64, kind, ref string) (int64, error)
	CreateBet(ctx context.Context, b *domain.Bet) error
	GetBetByRequest(ctx context.Context, userID, requestID string) (domain.Bet, error)
}

type PlaceBetInput struct {
	CombatID  string
	Choice    string
	Amount    int64
	RequestID string // opcional; repetir o mesmo valor devolve a aposta já criada
}

// Manager executa a reserva de créditos
// Callbacks permitem plugar métricas, eventos e feed sem acoplar o escrow a eles
type Manager struct {
	Log   *zap.Logger
	Store Store

	RefundAttempts uint
	RefundBackoff  time.Duration
	RefundTimeout  time.Duration

	OnPlaced   func(ctx context.Context, b domain.Bet) // aposta gravada e débito efetivado
	OnRejected func(reason string)                    // código de erro devolvido
	OnRefund   func(result string)                    // ok | failed
}

func NewManager(store Store, log *zap.Logger) *Manager {
	return &Manager{
		Log:            log,
		Store:          store,
		RefundAttempts: 5,
		RefundBackoff:  100 * time.Millisecond,
		RefundTimeout:  2 * time.Second,
	}
}

// PlaceBet valida, debita e grava a aposta para o apostador informado
func (m *Manager) PlaceBet(ctx context.Context, bettor domain.Identity, in PlaceBetInput) (domain.Bet, error) {
	bet, err := m.placeBet(ctx, bettor, in)
	if err != nil {
		if m.OnRejected != nil {
			m.OnRejected(domain.Code(err))
		}
		return domain.Bet{}, err
	}
	return bet, nil
}

func (m *Manager) placeBet(ctx context.Context, bettor domain.Identity, in PlaceBetInput) (domain.Bet, error) {
	if bettor.UserID == "" {
		return domain.Bet{}, domain.ErrNotLoggedIn
	}
	in.CombatID = strings.TrimSpace(in.CombatID)
	in.RequestID = strings.TrimSpace(in.RequestID)
	if in.CombatID == "" || in.Choice == "" || in.Amount <= 0 {
		return domain.Bet{}, domain.ErrInvalid
	}

	// Retry do cliente: devolve a aposta já registrada sem novo débito
	if in.RequestID != "" {
		prev, err := m.Store.GetBetByRequest(ctx, bettor.UserID, in.RequestID)
		if err == nil {
			return sameRequest(prev, in)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.Bet{}, err
		}
	}

	combat, err := m.Store.GetCombat(ctx, in.CombatID)
	if err != nil {
		return domain.Bet{}, err
	}
	if !combat.IsOpen() {
		return domain.Bet{}, domain.ErrBettingClosed
	}
	if !combat.HasSide(in.Choice) {
		return domain.Bet{}, domain.ErrInvalidChoice
	}
	if strings.EqualFold(in.Choice, bettor.Username) {
		return domain.Bet{}, domain.ErrCannotBetOnSelf
	}

	// Pré-checagem com leitura fresca; a garantia real é o débito condicional
	user, err := m.Store.GetUser(ctx, bettor.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Bet{}, domain.ErrNotLoggedIn
		}
		return domain.Bet{}, err
	}
	if user.Credits < in.Amount {
		return domain.Bet{}, domain.ErrInsufficientCredits
	}

	bet := domain.Bet{
		ID:        uuid.NewString(),
		CombatID:  combat.ID,
		UserID:    bettor.UserID,
		Choice:    in.Choice,
		Amount:    in.Amount,
		RequestID: in.RequestID,
	}

	// 1) Débito condicional
	if _, err := m.Store.Debit(ctx, bettor.UserID, in.Amount, bet.ID); err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			return domain.Bet{}, err
		}
		m.Log.Warn("escrow debit failed",
			zap.String("userId", bettor.UserID), zap.String("combatId", combat.ID), zap.Error(err))
		return domain.Bet{}, domain.ErrDeductFailed
	}

	// 2) Grava a aposta; qualquer falha estorna o débito
	if err := m.Store.CreateBet(ctx, &bet); err != nil {
		m.refund(ctx, bet)
		if errors.Is(err, domain.ErrDuplicateRequest) {
			// outra requisição com a mesma chave venceu a corrida
			prev, gerr := m.Store.GetBetByRequest(context.WithoutCancel(ctx), bettor.UserID, in.RequestID)
			if gerr == nil {
				return sameRequest(prev, in)
			}
		}
		m.Log.Warn("escrow bet insert failed",
			zap.String("betId", bet.ID), zap.String("userId", bettor.UserID), zap.Error(err))
		return domain.Bet{}, domain.ErrBetFailed
	}

	m.Log.Info("bet placed",
		zap.String("betId", bet.ID),
		zap.String("combatId", bet.CombatID),
		zap.String("userId", bet.UserID),
		zap.String("choice", bet.Choice),
		zap.Int64("amount", bet.Amount))

	if m.OnPlaced != nil {
		m.OnPlaced(ctx, bet)
	}
	return bet, nil
}

// sameRequest devolve a aposta já gravada apenas se a chave foi reusada para a mesma aposta
func sameRequest(prev domain.Bet, in PlaceBetInput) (domain.Bet, error) {
	if prev.CombatID != in.CombatID || !strings.EqualFold(prev.Choice, in.Choice) || prev.Amount != in.Amount {
		return domain.Bet{}, domain.ErrDuplicateRequest
	}
	return prev, nil
}

// refund devolve o débito da aposta não gravada
// Roda desacoplado do cancelamento da requisição: o estorno precisa acontecer mesmo
// se o cliente desconectou
func (m *Manager) refund(ctx context.Context, bet domain.Bet) {
	ctx = context.WithoutCancel(ctx)

	attempts := m.RefundAttempts
	if attempts == 0 {
		attempts = 1
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.RefundBackoff
	policy.MaxInterval = 20 * m.RefundBackoff

	_, err := backoff.Retry(ctx, func() (int64, error) {
		opCtx, cancel := context.WithTimeout(ctx, m.RefundTimeout)
		defer cancel()
		bal, err := m.Store.Credit(opCtx, bet.UserID, bet.Amount, domain.LedgerBetRefund, bet.ID)
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalid) {
			return 0, backoff.Permanent(err)
		}
		return bal, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(attempts))

	if err != nil {
		// saldo ficou debitado sem aposta: precisa de reconciliação manual pelo ledger
		m.Log.Error("escrow refund failed",
			zap.String("betId", bet.ID),
			zap.String("userId", bet.UserID),
			zap.Int64("amount", bet.Amount),
			zap.Error(err))
		if m.OnRefund != nil {
			m.OnRefund("failed")
		}
		return
	}
	if m.OnRefund != nil {
		m.OnRefund("ok")
	}
}
