package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/jupiterclapton/postboard/internal/core/domain"
	"github.com/jupiterclapton/postboard/internal/core/ports"
)

// MemoryPostCache est un cache TTL borné (LRU) : l'équivalent mémoire du
// backing Redis, avec les mêmes sémantiques vues du port.
//
//   - TTL fixe par entrée, posé au Set.
//   - Capacité maximale : à plein, le Set d'une nouvelle clé évince
//     l'entrée la moins récemment utilisée.
//   - Un Get sur une entrée expirée l'évince et se comporte comme un miss.
type MemoryPostCache struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration

	entries map[string]*list.Element
	lru     *list.List // front = plus récemment utilisé

	// now est remplaçable dans les tests pour piloter l'expiration.
	now func() time.Time
}

type cacheEntry struct {
	owner     string
	posts     []domain.Post
	expiresAt time.Time
}

func NewMemoryPostCache(maxEntries int, ttl time.Duration) *MemoryPostCache {
	return &MemoryPostCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
		now:        time.Now,
	}
}

var _ ports.PostCache = (*MemoryPostCache)(nil)

func (c *MemoryPostCache) Get(ctx context.Context, owner string) ([]domain.Post, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[owner]
	if !ok {
		return nil, false, nil
	}

	entry := elem.Value.(*cacheEntry)
	if !c.now().Before(entry.expiresAt) {
		// Entrée périmée trouvée en lecture : éviction immédiate + miss.
		c.removeElement(elem)
		return nil, false, nil
	}

	c.lru.MoveToFront(elem)

	// Copie : l'appelant ne doit jamais voir la slice interne (contrat du port).
	posts := make([]domain.Post, len(entry.posts))
	copy(posts, entry.posts)
	return posts, true, nil
}

func (c *MemoryPostCache) Set(ctx context.Context, owner string, posts []domain.Post) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[owner]; ok {
		// Remplacement : on rafraîchit valeur, TTL et position LRU.
		entry := elem.Value.(*cacheEntry)
		entry.posts = posts
		entry.expiresAt = c.now().Add(c.ttl)
		c.lru.MoveToFront(elem)
		return nil
	}

	// À capacité : éviction du moins récemment utilisé avant insertion.
	if c.lru.Len() >= c.maxEntries {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}

	elem := c.lru.PushFront(&cacheEntry{
		owner:     owner,
		posts:     posts,
		expiresAt: c.now().Add(c.ttl),
	})
	c.entries[owner] = elem
	return nil
}

func (c *MemoryPostCache) Invalidate(ctx context.Context, owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[owner]; ok {
		c.removeElement(elem)
	}
	// No-op si absent
	return nil
}

// Len retourne le nombre d'entrées courantes (expirées comprises).
func (c *MemoryPostCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *MemoryPostCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	delete(c.entries, entry.owner)
	c.lru.Remove(elem)
}
