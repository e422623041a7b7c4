package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"workflow-api/domain"
)

const (
	tasksCacheKey         = "board:tasks"
	membersCacheKey       = "board:members"
	notificationsCacheKey = "board:notifications"
)

// Cache wraps a document store with Redis-backed caching of collection
// snapshots. Reads fall back to the base store on any cache miss or cache
// failure; writes evict the affected collection.
type Cache struct {
	domain.Store
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates the caching wrapper. A nil client disables caching while
// keeping the wrapper transparent.
func NewCache(base domain.Store, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{Store: base, redis: client, ttl: ttl}
}

func (c *Cache) ListTasks(ctx context.Context) ([]domain.Task, error) {
	if tasks, ok := loadCached[domain.Task](ctx, c, tasksCacheKey); ok {
		return tasks, nil
	}
	tasks, err := c.Store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	c.storeCached(ctx, tasksCacheKey, tasks)
	return tasks, nil
}

func (c *Cache) PutTask(ctx context.Context, t domain.Task) error {
	if err := c.Store.PutTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx, tasksCacheKey)
	return nil
}

func (c *Cache) DeleteTask(ctx context.Context, id string) error {
	if err := c.Store.DeleteTask(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, tasksCacheKey)
	return nil
}

func (c *Cache) ClearTasks(ctx context.Context) error {
	if err := c.Store.ClearTasks(ctx); err != nil {
		return err
	}
	c.evict(ctx, tasksCacheKey)
	return nil
}

// ListMembers caches the document shape, not the public JSON, so credential
// hashes survive a cache round-trip.
func (c *Cache) ListMembers(ctx context.Context) ([]domain.Member, error) {
	if docs, ok := loadCached[memberDocument](ctx, c, membersCacheKey); ok {
		members := make([]domain.Member, 0, len(docs))
		for _, doc := range docs {
			members = append(members, doc.toDomain())
		}
		return members, nil
	}
	members, err := c.Store.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]memberDocument, 0, len(members))
	for _, m := range members {
		docs = append(docs, newMemberDocument(m))
	}
	c.storeCached(ctx, membersCacheKey, docs)
	return members, nil
}

func (c *Cache) PutMember(ctx context.Context, m domain.Member) error {
	if err := c.Store.PutMember(ctx, m); err != nil {
		return err
	}
	c.evict(ctx, membersCacheKey)
	return nil
}

func (c *Cache) DeleteMember(ctx context.Context, id string) error {
	if err := c.Store.DeleteMember(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, membersCacheKey)
	return nil
}

func (c *Cache) ClearMembers(ctx context.Context) error {
	if err := c.Store.ClearMembers(ctx); err != nil {
		return err
	}
	c.evict(ctx, membersCacheKey)
	return nil
}

func (c *Cache) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	if notes, ok := loadCached[domain.Notification](ctx, c, notificationsCacheKey); ok {
		return notes, nil
	}
	notes, err := c.Store.ListNotifications(ctx)
	if err != nil {
		return nil, err
	}
	c.storeCached(ctx, notificationsCacheKey, notes)
	return notes, nil
}

func (c *Cache) PutNotification(ctx context.Context, n domain.Notification) error {
	if err := c.Store.PutNotification(ctx, n); err != nil {
		return err
	}
	c.evict(ctx, notificationsCacheKey)
	return nil
}

func (c *Cache) DeleteNotification(ctx context.Context, id string) error {
	if err := c.Store.DeleteNotification(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, notificationsCacheKey)
	return nil
}

func (c *Cache) DeleteNotifications(ctx context.Context, ids []string) error {
	if err := c.Store.DeleteNotifications(ctx, ids); err != nil {
		return err
	}
	c.evict(ctx, notificationsCacheKey)
	return nil
}

func (c *Cache) ClearNotifications(ctx context.Context) error {
	if err := c.Store.ClearNotifications(ctx); err != nil {
		return err
	}
	c.evict(ctx, notificationsCacheKey)
	return nil
}

func loadCached[T any](ctx context.Context, c *Cache, key string) ([]T, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the base store without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return items, true
}

func (c *Cache) storeCached(ctx context.Context, key string, items any) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, key).Err()
}
