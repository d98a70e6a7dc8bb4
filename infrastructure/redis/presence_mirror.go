package redis

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

const defaultOnlineKey = "chat-relay:online"

// Connect accepts either a redis:// URL or a plain host:port.
func Connect(ctx context.Context, address string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(address, "redis://") {
		opt, err := redis.ParseURL(address)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: address})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// PresenceMirror replaces a redis set with the latest online snapshot.
// The key expires so a crashed relay does not leave users online forever.
type PresenceMirror struct {
	client redis.UniversalClient
	log    *slog.Logger
	key    string
	ttl    time.Duration
}

var _ contract.IPresenceMirror = (*PresenceMirror)(nil)

func NewPresenceMirror(client redis.UniversalClient, log *slog.Logger, key string, ttl time.Duration) *PresenceMirror {
	if key == "" {
		key = defaultOnlineKey
	}
	return &PresenceMirror{client: client, log: log, key: key, ttl: ttl}
}

func (p *PresenceMirror) Publish(ctx context.Context, users []domain.UserID) error {
	members := lo.Map(users, func(u domain.UserID, _ int) any { return string(u) })
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, p.key)
		if len(members) == 0 {
			return nil
		}
		pipe.SAdd(ctx, p.key, members...)
		if p.ttl > 0 {
			pipe.Expire(ctx, p.key, p.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("presence publish failed: %w", err)
	}
	p.log.Debug("Presence mirrored", "key", p.key, "online", len(members))
	return nil
}

// Online reads the mirrored set back, for observers and tests.
func (p *PresenceMirror) Online(ctx context.Context) ([]domain.UserID, error) {
	members, err := p.client.SMembers(ctx, p.key).Result()
	if err != nil {
		return nil, err
	}
	return lo.Map(members, func(m string, _ int) domain.UserID { return domain.UserID(m) }), nil
}
