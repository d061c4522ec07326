package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

type redisQueue struct {
	log *logger.Logger
	rdb *goredis.Client
	key string
}

// NewRedisQueue connects to Redis and backs the task queue with a list:
// LPUSH to enqueue, BRPOP to claim, so payloads come out oldest-first.
func NewRedisQueue(log *logger.Logger, addr, password, key string) (TaskQueue, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if key == "" {
		key = "detect:tasks"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisQueue{
		log: log.With("service", "RedisTaskQueue", "queue_key", key),
		rdb: rdb,
		key: key,
	}, nil
}

func (q *redisQueue) Enqueue(ctx context.Context, payload string) error {
	if q == nil || q.rdb == nil {
		return fmt.Errorf("redis task queue not initialized")
	}
	return q.rdb.LPush(ctx, q.key, payload).Err()
}

func (q *redisQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	if q == nil || q.rdb == nil {
		return "", fmt.Errorf("redis task queue not initialized")
	}
	res, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return "", fmt.Errorf("unexpected BRPOP reply of length %d", len(res))
	}
	return res[1], nil
}

func (q *redisQueue) Close() error {
	if q == nil || q.rdb == nil {
		return nil
	}
	return q.rdb.Close()
}
