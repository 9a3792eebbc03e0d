// Package presence mirrors live connection state into Redis so other
// processes (REST API, schedulers) can see who is online without talking
// to the gateway. Keys carry a TTL as a safety net: a crashed gateway
// leaves no permanent ghosts.
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nabekah/farmkonnect-production-sub012/internal/config"
)

// Tracker records online users in Redis. It satisfies the gateway's
// presence sink.
type Tracker struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewTracker creates a tracker over an existing client.
func NewTracker(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &Tracker{rdb: rdb, ttl: ttl, logger: logger}
}

func userKey(userID int64) string { return fmt.Sprintf("presence:user:%d", userID) }
func farmOfKey(userID int64) string {
	return fmt.Sprintf("presence:user:%d:farm", userID)
}
func farmKey(farmID int64) string { return fmt.Sprintf("presence:farm:%d", farmID) }

// Online records a connection. A user is online while at least one of
// their connections is.
func (t *Tracker) Online(ctx context.Context, userID, farmID int64, connID string) error {
	_, err := t.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, userKey(userID), connID)
		p.Expire(ctx, userKey(userID), t.ttl)
		p.Set(ctx, farmOfKey(userID), strconv.FormatInt(farmID, 10), t.ttl)
		p.SAdd(ctx, farmKey(farmID), strconv.FormatInt(userID, 10))
		p.Expire(ctx, farmKey(farmID), t.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("presence online: %w", err)
	}
	return nil
}

// Offline removes a connection. The user stays online until their last
// connection goes.
func (t *Tracker) Offline(ctx context.Context, userID int64, connID string) error {
	if err := t.rdb.SRem(ctx, userKey(userID), connID).Err(); err != nil {
		return fmt.Errorf("presence offline: %w", err)
	}

	remaining, err := t.rdb.SCard(ctx, userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("presence offline: %w", err)
	}
	if remaining > 0 {
		return nil
	}

	// Last connection gone: clear the user out of the farm roster.
	farm, err := t.rdb.Get(ctx, farmOfKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("presence offline: %w", err)
	}
	_, err = t.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if farm != "" {
			p.SRem(ctx, "presence:farm:"+farm, strconv.FormatInt(userID, 10))
		}
		p.Del(ctx, userKey(userID), farmOfKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("presence offline: %w", err)
	}
	return nil
}

// Refresh extends the TTL on a user's presence keys. Callers wire it to
// the heartbeat cadence.
func (t *Tracker) Refresh(ctx context.Context, userID int64) error {
	_, err := t.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Expire(ctx, userKey(userID), t.ttl)
		p.Expire(ctx, farmOfKey(userID), t.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("presence refresh: %w", err)
	}
	return nil
}

// IsOnline reports whether the user has at least one live connection.
func (t *Tracker) IsOnline(ctx context.Context, userID int64) (bool, error) {
	n, err := t.rdb.SCard(ctx, userKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("presence lookup: %w", err)
	}
	return n > 0, nil
}

// OnlineUsers returns the user ids currently online on a farm.
func (t *Tracker) OnlineUsers(ctx context.Context, farmID int64) ([]int64, error) {
	members, err := t.rdb.SMembers(ctx, farmKey(farmID)).Result()
	if err != nil {
		return nil, fmt.Errorf("presence roster: %w", err)
	}
	out := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			t.logger.Warn("skipping malformed roster entry", "farm_id", farmID, "entry", m)
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
