// Package cache guarda a listagem de combates no Redis por alguns segundos.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyCombatList = "combats:list"

// CombatList é o cache read-through da listagem de combates
type CombatList interface {
	Get(ctx context.Context, dst any) (bool, error)
	Set(ctx context.Context, v any) error
	Invalidate(ctx context.Context) error
}

// Redis implementa CombatList com TTL curto; criar ou liquidar um combate invalida a chave
type Redis struct {
	R   *redis.Client
	TTL time.Duration
}

func NewRedis(r *redis.Client, ttl time.Duration) *Redis { return &Redis{R: r, TTL: ttl} }

func (c *Redis) Get(ctx context.Context, dst any) (bool, error) {
	b, err := c.R.Get(ctx, keyCombatList).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Redis) Set(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyCombatList, b, c.TTL).Err()
}

func (c *Redis) Invalidate(ctx context.Context) error {
	return c.R.Del(ctx, keyCombatList).Err()
}

// Noop desliga o cache (sem Redis configurado)
type Noop struct{}

func (Noop) Get(context.Context, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, any) error { return nil }
func (Noop) Invalidate(context.Context) error { return nil }
