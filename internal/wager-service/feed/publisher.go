package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher distribui atualizações para as instâncias do wager-service
type Publisher interface {
	Publish(ctx context.Context, u Update) error
}

// RedisBroadcaster publica no canal Redis Pub/Sub; cada instância repassa ao seu Hub
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, u Update) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}

// Local entrega direto no Hub do processo (sem Redis)
type Local struct{ Hub *Hub }

func (l Local) Publish(_ context.Context, u Update) error {
	l.Hub.Broadcast(u)
	return nil
}
