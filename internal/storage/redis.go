package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/service"
	"github.com/redis/go-redis/v9"
)

const (
	redisSessionIndex  = "tollrisk:sessions"
	redisSessionPrefix = "tollrisk:session:"
)

// RedisStorage keeps each session as a hash of artifacts, indexed by a
// sorted set scored with the last update time.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStorage connects to addr and verifies the connection. A positive
// ttl expires idle sessions.
func NewRedisStorage(ctx context.Context, addr string, ttl time.Duration) (*RedisStorage, error) {
	if err := validateString(addr, "addr"); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return &RedisStorage{client: client, ttl: ttl}, nil
}

func sessionKey(id string) string {
	return redisSessionPrefix + id
}

// Put implements service.Repository.
func (r *RedisStorage) Put(ctx context.Context, sessionID string, name service.ArtifactName, payload []byte) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}
	if err := validateArtifactName(name); err != nil {
		return err
	}

	key := sessionKey(sessionID)
	now := time.Now().UTC()
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, string(name), payload)
		p.ZAdd(ctx, redisSessionIndex, redis.Z{Score: float64(now.UnixMilli()), Member: sessionID})
		if r.ttl > 0 {
			p.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", name, err)
	}
	return nil
}

// Get implements service.Repository.
func (r *RedisStorage) Get(ctx context.Context, sessionID string, name service.ArtifactName) ([]byte, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateArtifactName(name); err != nil {
		return nil, err
	}

	payload, err := r.client.HGet(ctx, sessionKey(sessionID), string(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: artifact %s in session %s", common.ErrNotFound, name, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact %s: %w", name, err)
	}
	return payload, nil
}

// ListSessions implements service.Repository. Index entries whose hash has
// expired are pruned on the way.
func (r *RedisStorage) ListSessions(ctx context.Context) ([]service.SessionInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	entries, err := r.client.ZRevRangeWithScores(ctx, redisSessionIndex, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]service.SessionInfo, 0, len(entries))
	for _, e := range entries {
		id, ok := e.Member.(string)
		if !ok {
			continue
		}
		n, err := r.client.HLen(ctx, sessionKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to inspect session %s: %w", id, err)
		}
		if n == 0 {
			r.client.ZRem(ctx, redisSessionIndex, id)
			continue
		}
		sessions = append(sessions, service.SessionInfo{
			ID:        id,
			UpdatedAt: time.UnixMilli(int64(e.Score)).UTC(),
			Artifacts: int(n),
		})
	}
	sortSessions(sessions)
	return sessions, nil
}

// DeleteSession implements service.Repository.
func (r *RedisStorage) DeleteSession(ctx context.Context, sessionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var deleted *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		deleted = p.Del(ctx, sessionKey(sessionID))
		p.ZRem(ctx, redisSessionIndex, sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	if deleted.Val() == 0 {
		return fmt.Errorf("%w: session %s", common.ErrNotFound, sessionID)
	}
	return nil
}

// Close implements service.Repository.
func (r *RedisStorage) Close() error {
	return r.client.Close()
}
