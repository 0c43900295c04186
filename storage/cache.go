package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"taskboard-api/domain"
)

// Cache wraps a Store with Redis-backed caching for the list reads. Keys
// carry a per-process epoch and the store version, so a mutation or a restart
// makes every older entry unreachable and nothing has to be evicted.
type Cache struct {
	*Store
	redis *redis.Client
	ttl   time.Duration
	epoch string
}

// NewCache creates a caching Store wrapper using the provided Redis client and TTL.
func NewCache(base *Store, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{Store: base, redis: client, ttl: ttl, epoch: uuid.NewString()}
}

func (c *Cache) ListBoards(ctx context.Context) ([]domain.BoardSummary, error) {
	var boards []domain.BoardSummary
	if c.load(ctx, boardsCacheKey(c.epoch, c.Store.Version()), &boards) {
		return boards, nil
	}

	boards, version := c.Store.ListBoardsAt(ctx)
	c.store(ctx, boardsCacheKey(c.epoch, version), boards)
	return boards, nil
}

func (c *Cache) ListTasks(ctx context.Context, boardID string, sortBy *string) ([]domain.TaskView, error) {
	if sortBy != nil && domain.ValidateSortKey(*sortBy) != nil {
		// Let the store pick between the missing board and bad sort errors.
		return c.Store.ListTasks(ctx, boardID, sortBy)
	}

	var tasks []domain.TaskView
	if c.load(ctx, tasksCacheKey(c.epoch, c.Store.Version(), boardID, sortBy), &tasks) {
		return tasks, nil
	}

	tasks, version, err := c.Store.ListTasksAt(ctx, boardID, sortBy)
	if err != nil {
		return nil, err
	}
	c.store(ctx, tasksCacheKey(c.epoch, version, boardID, sortBy), tasks)
	return tasks, nil
}

func (c *Cache) load(ctx context.Context, key string, out any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func boardsCacheKey(epoch string, version uint64) string {
	return fmt.Sprintf("boards:%s:v%d", epoch, version)
}

func tasksCacheKey(epoch string, version uint64, boardID string, sortBy *string) string {
	order := "unsorted"
	if sortBy != nil {
		order = *sortBy
	}
	return fmt.Sprintf("tasks:%s:v%d:%s:%s", epoch, version, order, boardID)
}
