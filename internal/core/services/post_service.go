package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jupiterclapton/postboard/internal/core/domain"
	"github.com/jupiterclapton/postboard/internal/core/ports"
)

// PostServiceImpl orchestre PostRepository + PostCache.
//
// Invariant central : une entrée de cache pour un owner ne survit JAMAIS à
// une écriture (add/delete) de cet owner. La mutation du store et
// l'invalidation du cache sont exécutées sous le même verrou par owner,
// tout comme le chemin de lecture (lookup -> recompute -> fill). Un lecteur
// concurrent observe donc soit l'entrée pré-mutation encore valide, soit un
// miss suivi d'un recalcul frais — jamais un snapshot périmé.
type PostServiceImpl struct {
	repo      ports.PostRepository
	cache     ports.PostCache
	publisher ports.EventPublisher

	// Verrous par owner. La map grandit avec le nombre d'owners actifs,
	// acceptable à cette échelle (une entrée = un mutex).
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPostService(repo ports.PostRepository, cache ports.PostCache, pub ports.EventPublisher) *PostServiceImpl {
	return &PostServiceImpl{
		repo:      repo,
		cache:     cache,
		publisher: pub,
		locks:     make(map[string]*sync.Mutex),
	}
}

// ownerLock retourne le mutex dédié à un owner (créé à la demande).
func (s *PostServiceImpl) ownerLock(owner string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[owner]
	if !ok {
		l = &sync.Mutex{}
		s.locks[owner] = l
	}
	return l
}

func (s *PostServiceImpl) AddPost(ctx context.Context, owner, text string) (*domain.Post, error) {
	// 1. Validation AVANT tout effet : un refus ne doit ni écrire ni invalider.
	if len(text) > domain.MaxPostBytes {
		return nil, domain.ErrPostTooLarge
	}

	post := &domain.Post{
		ID:        uuid.NewString(),
		Owner:     owner,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	lock := s.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	// 2. Sauvegarde (Source of Truth)
	if err := s.repo.Save(ctx, post); err != nil {
		return nil, err
	}

	// 3. Invalidation AVANT l'acquittement : la prochaine lecture recalcule.
	// L'écriture est déjà engagée : un échec d'invalidation (cache distant
	// down) ne fait pas échouer la requête — voir le contrat de PostCache.
	if err := s.cache.Invalidate(ctx, owner); err != nil {
		slog.Error("cache invalidate failed", "owner", owner, "error", err)
	}

	// 4. Publication événement (best effort)
	if err := s.publisher.PublishPostCreated(ctx, post); err != nil {
		slog.Warn("publish post.created failed", "post_id", post.ID, "error", err)
	}

	return post, nil
}

func (s *PostServiceImpl) GetPosts(ctx context.Context, owner string) ([]domain.Post, error) {
	lock := s.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	// 1. Cache d'abord
	if posts, ok, err := s.cache.Get(ctx, owner); err == nil && ok {
		return posts, nil
	} else if err != nil {
		// Cache down (ex: Redis) -> dégradation : on recalcule depuis le store.
		slog.Warn("cache get failed, falling back to store", "owner", owner, "error", err)
	}

	// 2. Miss : recalcul depuis le store
	posts, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	// 3. Peuplement du cache pour les lectures suivantes
	if err := s.cache.Set(ctx, owner, posts); err != nil {
		slog.Warn("cache set failed", "owner", owner, "error", err)
	}

	return posts, nil
}

func (s *PostServiceImpl) DeletePost(ctx context.Context, postID, owner string) error {
	lock := s.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	// 1. Suppression conditionnelle : (id, owner) doivent correspondre.
	// Un id existant mais possédé par un autre owner reste un NotFound.
	if err := s.repo.Delete(ctx, postID, owner); err != nil {
		return err
	}

	// 2. Invalidation avant l'acquittement (même contrat que AddPost :
	// la suppression est engagée, l'échec d'invalidation se loggue)
	if err := s.cache.Invalidate(ctx, owner); err != nil {
		slog.Error("cache invalidate failed", "owner", owner, "error", err)
	}

	// 3. Publication événement (best effort)
	if err := s.publisher.PublishPostDeleted(ctx, postID, owner); err != nil {
		slog.Warn("publish post.deleted failed", "post_id", postID, "error", err)
	}

	return nil
}
