package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/combat-bet-platform/internal/wager-service/dto"
	"github.com/radieske/combat-bet-platform/internal/wager/domain"
)

// statusFor mapeia o código de negócio para o status HTTP
func statusFor(code string) int {
	switch code {
	case "not_logged_in", "invalid_credentials":
		return http.StatusUnauthorized
	case "invalid", "missing", "missing_players", "invalid_choice", "cannot_bet_on_self":
		return http.StatusBadRequest
	case "no_combat", "not_found":
		return http.StatusNotFound
	case "username_taken", "betting_closed", "not_enough_credits", "already_finished", "not_finished", "duplicate_request":
		return http.StatusConflict
	case "cannot_detect_dead":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError responde {"ok":false,"error":code}; erros inesperados são logados
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.Code(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		a.Log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("code", code),
			zap.Error(err))
	}
	writeJSON(w, status, dto.Error{OK: false, Error: code})
}
