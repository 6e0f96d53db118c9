package repository

import (
	"context"
	"sync"

	"github.com/jupiterclapton/postboard/internal/core/domain"
	"github.com/jupiterclapton/postboard/internal/core/ports"
)

// --- USERS ---

// MemoryUserRepo est le backing par défaut : une simple map email -> user.
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewMemoryUserRepo() ports.UserRepository {
	return &MemoryUserRepo{users: make(map[string]*domain.User)}
}

func (r *MemoryUserRepo) Save(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Email]; ok {
		return domain.ErrEmailAlreadyExists
	}
	r.users[user.Email] = user
	return nil
}

func (r *MemoryUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// --- POSTS ---

// MemoryPostRepo garde les posts dans une slice, en ordre d'insertion.
// ListByOwner est un scan O(n) sur tous les posts : acceptable à cette
// échelle, à remplacer par un index si le volume grandit.
type MemoryPostRepo struct {
	mu    sync.RWMutex
	posts []domain.Post
}

func NewMemoryPostRepo() ports.PostRepository {
	return &MemoryPostRepo{}
}

func (r *MemoryPostRepo) Save(ctx context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, *post)
	return nil
}

func (r *MemoryPostRepo) Delete(ctx context.Context, postID, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.posts {
		if p.ID == postID && p.Owner == owner {
			r.posts = append(r.posts[:i], r.posts[i+1:]...)
			return nil
		}
	}
	return domain.ErrPostNotFound
}

func (r *MemoryPostRepo) ListByOwner(ctx context.Context, owner string) ([]domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	// Les appelants reçoivent leur propre slice, jamais la structure interne.
	result := make([]domain.Post, 0)
	for _, p := range r.posts {
		if p.Owner == owner {
			result = append(result, p)
		}
	}
	return result, nil
}
