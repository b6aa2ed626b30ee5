package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/radieske/combat-bet-platform/internal/wager/domain"
)

const sessionCookie = "session"

type identityKey struct{}

// withIdentity resolve o token (Bearer ou cookie) e coloca a identidade no contexto
// Token ausente ou inválido segue anônimo; cada operação decide se exige login
func (a *API) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			if c, err := r.Cookie(sessionCookie); err == nil {
				raw = c.Value
			}
		}
		if raw != "" {
			if id, err := a.Auth.Tokens.Parse(raw); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), identityKey{}, id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// identityFrom devolve a identidade resolvida ou uma identidade vazia (anônimo)
func identityFrom(ctx context.Context) domain.Identity {
	id, _ := ctx.Value(identityKey{}).(domain.Identity)
	return id
}

func (a *API) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
