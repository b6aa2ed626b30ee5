package domain

import "errors"

// Error é uma falha de negócio com código estável, exposto na API.
type Error struct {
	Code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newError(code, msg string) *Error { return &Error{Code: code, msg: msg} }

var (
	// validação
	ErrNotLoggedIn        = newError("not_logged_in", "not logged in")
	ErrInvalid            = newError("invalid", "invalid request")
	ErrMissingCredentials = newError("missing", "username and password are required")
	ErrMissingPlayers     = newError("missing_players", "both combatants are required")
	ErrNoSuchCombat       = newError("no_combat", "combat not found")
	ErrInvalidChoice      = newError("invalid_choice", "choice is not a combatant of this combat")
	ErrCannotBetOnSelf    = newError("cannot_bet_on_self", "cannot bet on yourself")
	ErrUsernameTaken      = newError("username_taken", "username already taken")
	ErrInvalidCredentials = newError("invalid_credentials", "invalid username or password")
	ErrNotFound           = newError("not_found", "not found")

	// conflito de estado
	ErrBettingClosed          = newError("betting_closed", "combat is no longer open for bets")
	ErrInsufficientCredits    = newError("not_enough_credits", "not enough credits")
	ErrAlreadySettled         = newError("already_finished", "combat already settled")
	ErrNotSettled             = newError("not_finished", "combat is not settled yet")
	ErrCannotDetermineOutcome = newError("cannot_detect_dead", "cannot determine which combatant died")
	ErrDuplicateRequest       = newError("duplicate_request", "request already processed")

	// falhas transitórias do store durante o escrow
	ErrDeductFailed = newError("deduct_failed", "could not reserve credits")
	ErrBetFailed    = newError("bet_failed", "could not record bet")
)

// Code extrai o código de negócio; erros desconhecidos viram "internal".
func Code(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "internal"
}
