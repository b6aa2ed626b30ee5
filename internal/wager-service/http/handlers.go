package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/combat-bet-platform/internal/wager-service/dto"
	"github.com/radieske/combat-bet-platform/internal/wager/domain"
	"github.com/radieske/combat-bet-platform/internal/wager/escrow"
)

// register cria o usuário com saldo inicial e abre a sessão
func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req dto.CredentialsRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	u, token, err := a.Auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.setSession(w, token)
	writeJSON(w, http.StatusOK, dto.SessionResponse{OK: true, User: dto.FromUser(u), Token: token})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req dto.CredentialsRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	u, token, err := a.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.setSession(w, token)
	writeJSON(w, http.StatusOK, dto.SessionResponse{OK: true, User: dto.FromUser(u), Token: token})
}

// logout apaga o cookie; tokens Bearer expiram sozinhos
func (a *API) logout(w http.ResponseWriter, _ *http.Request) {
	a.clearSession(w)
	writeJSON(w, http.StatusOK, dto.OK{OK: true})
}

// me retorna {"user":null} para anônimos
func (a *API) me(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if id.UserID == "" {
		writeJSON(w, http.StatusOK, dto.MeResponse{})
		return
	}
	u, err := a.Auth.Me(r.Context(), id)
	if err != nil {
		if domain.Code(err) == "not_logged_in" {
			writeJSON(w, http.StatusOK, dto.MeResponse{})
			return
		}
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MeResponse{User: dto.FromUser(u)})
}

func (a *API) ledger(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if id.UserID == "" {
		a.writeError(w, r, domain.ErrNotLoggedIn)
		return
	}
	entries, err := a.Store.Ledger(r.Context(), id.UserID, 100)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromLedger(entries))
}

func (a *API) createCombat(w http.ResponseWriter, r *http.Request) {
	creator := identityFrom(r.Context())
	if creator.UserID == "" {
		a.writeError(w, r, domain.ErrNotLoggedIn)
		return
	}
	var req dto.CreateCombatRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	c, err := a.Engine.Open(r.Context(), creator, req.PlayerA, req.PlayerB)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.invalidateCombats(r.Context())
	writeJSON(w, http.StatusOK, dto.CreateCombatResponse{OK: true, ID: c.ID})
}

// listCombats retorna os combates mais recentes, preferencialmente do cache
func (a *API) listCombats(w http.ResponseWriter, r *http.Request) {
	var cached dto.CombatsResponse
	if ok, err := a.Cache.Get(r.Context(), &cached); err != nil {
		a.Log.Warn("combat cache get failed", zap.Error(err))
	} else if ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	combats, err := a.Store.ListCombats(r.Context(), domain.MaxListedCombats)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	resp := dto.CombatsResponse{Combats: make([]dto.Combat, 0, len(combats))}
	for _, c := range combats {
		resp.Combats = append(resp.Combats, dto.FromCombat(c))
	}
	if err := a.Cache.Set(r.Context(), resp); err != nil {
		a.Log.Warn("combat cache set failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) listBets(w http.ResponseWriter, r *http.Request) {
	views, err := a.Store.ListBets(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromBetViews(views))
}

// placeBet aceita o header Idempotency-Key para retries seguros do cliente
func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	bettor := identityFrom(r.Context())
	if bettor.UserID == "" {
		a.writeError(w, r, domain.ErrNotLoggedIn)
		return
	}
	var req dto.PlaceBetRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	amount, err := req.Amount.Int64()
	if err != nil {
		a.writeError(w, r, domain.ErrInvalid)
		return
	}

	bet, err := a.Escrow.PlaceBet(r.Context(), bettor, escrow.PlaceBetInput{
		CombatID:  req.CombatID,
		Choice:    req.Choice,
		Amount:    amount,
		RequestID: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PlaceBetResponse{OK: true, BetID: bet.ID})
}

func (a *API) submitProof(w http.ResponseWriter, r *http.Request) {
	caller := identityFrom(r.Context())
	if caller.UserID == "" {
		a.writeError(w, r, domain.ErrNotLoggedIn)
		return
	}
	var req dto.ProofRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	out, err := a.Engine.Settle(r.Context(), caller, req.CombatID, req.DeathMessage)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.invalidateCombats(r.Context())
	writeJSON(w, http.StatusOK, dto.ProofResponse{OK: true, Winner: out.Winner, Dead: out.Dead})
}

// replayPayouts reexecuta o pagamento de um combate finalizado (idempotente)
func (a *API) replayPayouts(w http.ResponseWriter, r *http.Request) {
	if identityFrom(r.Context()).UserID == "" {
		a.writeError(w, r, domain.ErrNotLoggedIn)
		return
	}
	rep, err := a.Payout.Replay(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ReplayResponse{
		OK:       true,
		Paid:     rep.Paid,
		Skipped:  rep.Skipped,
		Failed:   rep.Failed,
		Credited: rep.Credited,
	})
}

func (a *API) invalidateCombats(ctx context.Context) {
	if err := a.Cache.Invalidate(context.WithoutCancel(ctx)); err != nil {
		a.Log.Warn("combat cache invalidate failed", zap.Error(err))
	}
}
