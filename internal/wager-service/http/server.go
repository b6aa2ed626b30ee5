package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/combat-bet-platform/internal/wager-service/auth"
	"github.com/radieske/combat-bet-platform/internal/wager-service/cache"
	"github.com/radieske/combat-bet-platform/internal/wager-service/feed"
	"github.com/radieske/combat-bet-platform/internal/wager/domain"
	"github.com/radieske/combat-bet-platform/internal/wager/escrow"
	"github.com/radieske/combat-bet-platform/internal/wager/settlement"
)

// ReadStore são as consultas usadas diretamente pelos handlers
type ReadStore interface {
	ListCombats(ctx context.Context, limit int) ([]domain.Combat, error)
	ListBets(ctx context.Context, combatID string) ([]domain.BetView, error)
	Ledger(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error)
}

// API expõe os endpoints REST de combates, apostas e sessão
type API struct {
	Log    *zap.Logger
	Auth   *auth.Service
	Escrow *escrow.Manager
	Engine *settlement.Engine
	Payout *settlement.Payout
	Store  ReadStore
	Cache  cache.CombatList // listagem de combates
	Hub    *feed.Hub        // nil desliga /ws

	SecureCookie bool
}

// Router retorna o roteador HTTP com os endpoints REST e o WebSocket
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(withCORS)
	r.Use(a.withIdentity)

	r.Post("/api/register", a.register)
	r.Post("/api/login", a.login)
	r.Post("/api/logout", a.logout)
	r.Get("/api/me", a.me)
	r.Get("/api/me/ledger", a.ledger)

	r.Post("/api/combat/create", a.createCombat)
	r.Get("/api/combats", a.listCombats)
	r.Get("/api/combats/{id}/bets", a.listBets)
	r.Post("/api/combats/{id}/payouts/replay", a.replayPayouts)
	r.Post("/api/bet", a.placeBet)
	r.Post("/api/combat/proof", a.submitProof)

	r.Get("/api/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	if a.Hub != nil {
		r.Get("/ws", a.Hub.HandleWS)
	}
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode lê o corpo JSON; corpo inválido vira ErrInvalid
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.ErrInvalid
	}
	return nil
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// NewServer monta o http.Server público com timeouts
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
