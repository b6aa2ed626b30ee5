package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/radieske/combat-bet-platform/internal/wager/domain"
)

// Claims do token de sessão (HS256)
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Tokens emite e valida tokens de sessão
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue gera o token para a identidade informada
func (t *Tokens) Issue(id domain.Identity) (string, error) {
	now := t.now()
	claims := Claims{
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse valida assinatura e expiração; qualquer falha vira ErrNotLoggedIn
func (t *Tokens) Parse(raw string) (domain.Identity, error) {
	if raw == "" {
		return domain.Identity{}, domain.ErrNotLoggedIn
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return domain.Identity{}, errors.Join(domain.ErrNotLoggedIn, err)
	}
	if claims.Subject == "" {
		return domain.Identity{}, domain.ErrNotLoggedIn
	}
	return domain.Identity{UserID: claims.Subject, Username: claims.Username}, nil
}
