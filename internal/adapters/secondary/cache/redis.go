package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jupiterclapton/postboard/internal/core/domain"
	"github.com/jupiterclapton/postboard/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

// RedisPostCache est le backing Redis du cache de résultats.
// Le TTL est porté par Redis (SET ... EX), l'invalidation est un DEL.
// La borne de capacité est déléguée à Redis (maxmemory + politique LRU),
// pas gérée ici.
type RedisPostCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPostCache(client *redis.Client, ttl time.Duration) *RedisPostCache {
	return &RedisPostCache{client: client, ttl: ttl}
}

var _ ports.PostCache = (*RedisPostCache)(nil)

// DTO interne pour ne pas mettre de tags JSON sur le Domain.
type postDTO struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func cacheKey(owner string) string {
	return fmt.Sprintf("posts:%s", owner)
}

func (c *RedisPostCache) Get(ctx context.Context, owner string) ([]domain.Post, bool, error) {
	data, err := c.client.Get(ctx, cacheKey(owner)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var dtos []postDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		// Entrée illisible (format changé ?) : on la purge et on traite en miss.
		_ = c.client.Del(ctx, cacheKey(owner)).Err()
		return nil, false, nil
	}

	posts := make([]domain.Post, len(dtos))
	for i, d := range dtos {
		posts[i] = domain.Post{ID: d.ID, Owner: d.Owner, Text: d.Text, CreatedAt: d.CreatedAt}
	}
	return posts, true, nil
}

func (c *RedisPostCache) Set(ctx context.Context, owner string, posts []domain.Post) error {
	dtos := make([]postDTO, len(posts))
	for i, p := range posts {
		dtos[i] = postDTO{ID: p.ID, Owner: p.Owner, Text: p.Text, CreatedAt: p.CreatedAt}
	}

	data, err := json.Marshal(dtos)
	if err != nil {
		return fmt.Errorf("marshal posts: %w", err)
	}

	return c.client.Set(ctx, cacheKey(owner), data, c.ttl).Err()
}

func (c *RedisPostCache) Invalidate(ctx context.Context, owner string) error {
	// DEL est idempotent : no-op si la clé n'existe pas.
	return c.client.Del(ctx, cacheKey(owner)).Err()
}
