// Package auth registra usuários, valida senhas e emite tokens de sessão.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/radieske/combat-bet-platform/internal/wager/domain"
)

// UserStore é o subconjunto do ledger usado na autenticação
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
}

type Service struct {
	Log             *zap.Logger
	Store           UserStore
	Tokens          *Tokens
	StartingCredits int64
	Cost            int // custo do bcrypt
}

func NewService(store UserStore, tokens *Tokens, startingCredits int64, log *zap.Logger) *Service {
	return &Service{
		Log:             log,
		Store:           store,
		Tokens:          tokens,
		StartingCredits: startingCredits,
		Cost:            bcrypt.DefaultCost,
	}
}

// Register cria o usuário com o saldo inicial e já devolve o token de sessão
func (s *Service) Register(ctx context.Context, username, password string) (domain.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, "", domain.ErrMissingCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.Cost)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	u := domain.User{Username: username, PasswordHash: string(hash), Credits: s.StartingCredits}
	if err := s.Store.CreateUser(ctx, &u); err != nil {
		return domain.User{}, "", err
	}

	token, err := s.Tokens.Issue(u.Identity())
	if err != nil {
		return domain.User{}, "", err
	}
	s.Log.Info("user registered", zap.String("userId", u.ID), zap.String("username", u.Username))
	return u, token, nil
}

// Login valida a senha; usuário inexistente e senha errada são indistinguíveis
func (s *Service) Login(ctx context.Context, username, password string) (domain.User, string, error) {
	u, err := s.Store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	token, err := s.Tokens.Issue(u.Identity())
	if err != nil {
		return domain.User{}, "", err
	}
	return u, token, nil
}

// Me retorna o usuário atual com saldo fresco
func (s *Service) Me(ctx context.Context, id domain.Identity) (domain.User, error) {
	if id.UserID == "" {
		return domain.User{}, domain.ErrNotLoggedIn
	}
	u, err := s.Store.GetUser(ctx, id.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, domain.ErrNotLoggedIn
	}
	return u, err
}
