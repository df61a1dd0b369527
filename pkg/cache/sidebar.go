// Package cache holds the optional Redis-backed cache of sidebar listings.
//
// Each user has a listing key and a generation counter. Invalidate advances
// the generation, and Set only stores a listing when the generation it was
// read at is still current, so a listing loaded before a mutation committed
// is never written back after that mutation's invalidation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/config"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
)

const (
	defaultNamespace = "mindmap"
	defaultTTL       = 5 * time.Minute
)

// ErrStaleGeneration is returned by Set when the listing was invalidated after it was read.
var ErrStaleGeneration = errors.New("sidebar listing invalidated since read")

// Snapshot is the result of a cache read. Generation must be passed back to
// Set when the caller fills the cache after a miss.
type Snapshot struct {
	Workflows  []*models.SidebarWorkflow
	Hit        bool
	Generation int64
}

// SidebarCache stores a user's sidebar listing between mutations.
type SidebarCache interface {
	Get(ctx context.Context, userID string) (Snapshot, error)
	// Set stores workflows unless the user's listing was invalidated after
	// generation was read, in which case it returns ErrStaleGeneration.
	Set(ctx context.Context, userID string, generation int64, workflows []*models.SidebarWorkflow) error
	// Invalidate drops the listing and advances the user's generation.
	Invalidate(ctx context.Context, userID string) error
}

// NewSidebarCache connects to Redis when cfg enables it. Without a host, or
// when Redis cannot be reached, it returns the no-op cache; the error reports
// the latter. The returned func releases the client.
func NewSidebarCache(ctx context.Context, cfg *config.RedisConfig) (SidebarCache, func(), error) {
	if !cfg.Enabled() {
		return NoopSidebarCache{}, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return NoopSidebarCache{}, func() {}, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSidebarCache(client, cfg.Namespace, cfg.SidebarTTL), func() { _ = client.Close() }, nil
}

// RedisSidebarCache implements SidebarCache on Redis.
type RedisSidebarCache struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
}

// NewRedisSidebarCache creates a cache whose listings expire after ttl.
// Keys are prefixed with namespace.
func NewRedisSidebarCache(client redis.UniversalClient, namespace string, ttl time.Duration) *RedisSidebarCache {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisSidebarCache{client: client, namespace: namespace, ttl: ttl}
}

// ListKey returns the key holding userID's listing.
func (c *RedisSidebarCache) ListKey(userID string) string {
	return c.namespace + ":sidebar:list:" + userID
}

// GenerationKey returns the key holding userID's invalidation counter.
func (c *RedisSidebarCache) GenerationKey(userID string) string {
	return c.namespace + ":sidebar:gen:" + userID
}

func (c *RedisSidebarCache) Get(ctx context.Context, userID string) (Snapshot, error) {
	var listCmd, genCmd *redis.StringCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		listCmd = pipe.Get(ctx, c.ListKey(userID))
		genCmd = pipe.Get(ctx, c.GenerationKey(userID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return Snapshot{}, fmt.Errorf("failed to read sidebar cache: %w", err)
	}

	generation, err := genCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Snapshot{}, fmt.Errorf("failed to read sidebar generation: %w", err)
	}

	data, err := listCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{Generation: generation}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read sidebar cache: %w", err)
	}

	var workflows []*models.SidebarWorkflow
	if err := json.Unmarshal(data, &workflows); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode sidebar cache: %w", err)
	}
	if workflows == nil {
		workflows = []*models.SidebarWorkflow{}
	}
	return Snapshot{Workflows: workflows, Hit: true, Generation: generation}, nil
}

func (c *RedisSidebarCache) Set(ctx context.Context, userID string, generation int64, workflows []*models.SidebarWorkflow) error {
	data, err := json.Marshal(workflows)
	if err != nil {
		return fmt.Errorf("failed to encode sidebar cache: %w", err)
	}

	genKey := c.GenerationKey(userID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return ErrStaleGeneration
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.ListKey(userID), data, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return ErrStaleGeneration
	default:
		return fmt.Errorf("failed to write sidebar cache: %w", err)
	}
}

func (c *RedisSidebarCache) Invalidate(ctx context.Context, userID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.GenerationKey(userID))
		pipe.Del(ctx, c.ListKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate sidebar cache: %w", err)
	}
	return nil
}

// NoopSidebarCache is used when Redis is not configured. Every Get misses.
type NoopSidebarCache struct{}

func (NoopSidebarCache) Get(context.Context, string) (Snapshot, error) {
	return Snapshot{}, nil
}

func (NoopSidebarCache) Set(context.Context, string, int64, []*models.SidebarWorkflow) error {
	return nil
}

func (NoopSidebarCache) Invalidate(context.Context, string) error { return nil }

var (
	_ SidebarCache = (*RedisSidebarCache)(nil)
	_ SidebarCache = NoopSidebarCache{}
)
