package batchstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"media-portfolio-api/internal/domain/upload"
)

const keyPrefix = "mediaportfolio:batch:"

type kv interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Redis stores JSON snapshots of batches with a TTL, so any replica can
// answer a status poll.
type Redis struct {
	client kv
	ttl    time.Duration
}

func NewRedis(client kv, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Connect opens a client and checks it with PING.
func Connect(ctx context.Context, logger *zap.Logger, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis connected successfully", zap.String("addr", addr))

	return client, nil
}

func (r *Redis) SaveBatchStatus(ctx context.Context, status *upload.BatchStatus) error {
	b, err := json.Marshal(status)
	if err != nil {
		return err
	}

	if err = r.client.Set(ctx, keyPrefix+status.ID, b, r.ttl).Err(); err != nil {
		return fmt.Errorf("save batch status %s: %w", status.ID, err)
	}

	return nil
}

func (r *Redis) FetchBatchStatus(ctx context.Context, batchID string) (*upload.BatchStatus, error) {
	b, err := r.client.Get(ctx, keyPrefix+batchID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch batch status %s: %w", batchID, err)
	}

	st := new(upload.BatchStatus)
	if err = json.Unmarshal(b, st); err != nil {
		return nil, fmt.Errorf("decode batch status %s: %w", batchID, err)
	}

	return st, nil
}
