package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jupiterclapton/postboard/internal/adapters/secondary/cache"
	"github.com/jupiterclapton/postboard/internal/adapters/secondary/eventbroker"
	"github.com/jupiterclapton/postboard/internal/adapters/secondary/repository"
	"github.com/jupiterclapton/postboard/internal/core/domain"
	"github.com/jupiterclapton/postboard/internal/core/services"
)

func newPostService() *services.PostServiceImpl {
	return services.NewPostService(
		repository.NewMemoryPostRepo(),
		cache.NewMemoryPostCache(100, 5*time.Minute),
		eventbroker.NewNoopBroker(),
	)
}

func TestAddThenGetPosts(t *testing.T) {
	ctx := context.Background()
	svc := newPostService()

	post, err := svc.AddPost(ctx, "a@x.com", "hello")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if post.ID == "" {
		t.Fatal("expected a non-empty post id")
	}

	posts, err := svc.GetPosts(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Text != "hello" {
		t.Fatalf("expected [hello], got %+v", posts)
	}
}

// Le cœur du contrat : une lecture qui suit une écriture voit TOUJOURS
// l'état courant du store, jamais un snapshot pré-mutation servi par le cache.
func TestWriteInvalidatesCachedRead(t *testing.T) {
	ctx := context.Background()
	svc := newPostService()

	first, _ := svc.AddPost(ctx, "a@x.com", "first")

	// Cette lecture peuple le cache
	if posts, _ := svc.GetPosts(ctx, "a@x.com"); len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}

	// Écriture : le cache pour a@x.com doit être invalidé
	_, _ = svc.AddPost(ctx, "a@x.com", "second")
	if posts, _ := svc.GetPosts(ctx, "a@x.com"); len(posts) != 2 {
		t.Fatalf("read after add served stale cache: got %d posts, want 2", len(posts))
	}

	// Suppression : même contrat, immédiatement, pas après expiration du TTL
	if err := svc.DeletePost(ctx, first.ID, "a@x.com"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	posts, _ := svc.GetPosts(ctx, "a@x.com")
	if len(posts) != 1 || posts[0].Text != "second" {
		t.Fatalf("read after delete served stale cache: got %+v", posts)
	}
}

func TestDeleteCrossOwnerRefused(t *testing.T) {
	ctx := context.Background()
	svc := newPostService()

	post, _ := svc.AddPost(ctx, "a@x.com", "mine")

	if err := svc.DeletePost(ctx, post.ID, "b@x.com"); !errors.Is(err, domain.ErrPostNotFound) {
		t.Errorf("expected ErrPostNotFound for another caller, got %v", err)
	}
	if posts, _ := svc.GetPosts(ctx, "a@x.com"); len(posts) != 1 {
		t.Errorf("post must survive a cross-owner delete attempt")
	}
}

func TestAddPostSizeLimit(t *testing.T) {
	ctx := context.Background()
	svc := newPostService()

	// Exactement 1 MiB : accepté
	if _, err := svc.AddPost(ctx, "a@x.com", strings.Repeat("a", domain.MaxPostBytes)); err != nil {
		t.Fatalf("exactly MaxPostBytes should pass, got %v", err)
	}

	// Un octet de trop : refusé, et le store reste inchangé
	if _, err := svc.AddPost(ctx, "a@x.com", strings.Repeat("a", domain.MaxPostBytes+1)); !errors.Is(err, domain.ErrPostTooLarge) {
		t.Fatalf("expected ErrPostTooLarge, got %v", err)
	}
	if posts, _ := svc.GetPosts(ctx, "a@x.com"); len(posts) != 1 {
		t.Errorf("rejected post must not be appended, got %d posts", len(posts))
	}
}

// La limite se mesure en octets encodés, pas en runes.
func TestAddPostSizeLimitCountsBytes(t *testing.T) {
	ctx := context.Background()
	svc := newPostService()

	// "é" = 2 octets UTF-8 : la moitié de MaxPostBytes en runes suffit à déborder
	text := strings.Repeat("é", domain.MaxPostBytes/2+1)
	if _, err := svc.AddPost(ctx, "a@x.com", text); !errors.Is(err, domain.ErrPostTooLarge) {
		t.Errorf("expected ErrPostTooLarge on encoded byte length, got %v", err)
	}
}

// flakyCache simule un backing distant down : Get et Invalidate échouent.
type flakyCache struct{}

func (flakyCache) Get(ctx context.Context, owner string) ([]domain.Post, bool, error) {
	return nil, false, errors.New("cache backend down")
}
func (flakyCache) Set(ctx context.Context, owner string, posts []domain.Post) error {
	return errors.New("cache backend down")
}
func (flakyCache) Invalidate(ctx context.Context, owner string) error {
	return errors.New("cache backend down")
}

// Une écriture déjà engagée dans le store ne doit pas être rapportée en
// échec parce que l'invalidation du cache a échoué : pas d'effet partiel
// côté caller. Les lectures se dégradent vers le store.
func TestWriteSucceedsWhenCacheInvalidateFails(t *testing.T) {
	ctx := context.Background()
	svc := services.NewPostService(
		repository.NewMemoryPostRepo(),
		flakyCache{},
		eventbroker.NewNoopBroker(),
	)

	post, err := svc.AddPost(ctx, "a@x.com", "hello")
	if err != nil {
		t.Fatalf("add must succeed despite cache failure: %v", err)
	}

	// Lecture dégradée : recalcul depuis le store
	posts, err := svc.GetPosts(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("get must fall back to the store: %v", err)
	}
	if len(posts) != 1 || posts[0].Text != "hello" {
		t.Fatalf("expected [hello] from the store, got %+v", posts)
	}

	if err := svc.DeletePost(ctx, post.ID, "a@x.com"); err != nil {
		t.Fatalf("delete must succeed despite cache failure: %v", err)
	}
	if posts, _ := svc.GetPosts(ctx, "a@x.com"); len(posts) != 0 {
		t.Fatalf("expected empty list after delete, got %+v", posts)
	}
}

func TestGetPostsIsolatedPerOwner(t *testing.T) {
	ctx := context.Background()
	svc := newPostService()

	_, _ = svc.AddPost(ctx, "a@x.com", "a1")
	_, _ = svc.AddPost(ctx, "b@x.com", "b1")
	_, _ = svc.AddPost(ctx, "a@x.com", "a2")

	posts, _ := svc.GetPosts(ctx, "a@x.com")
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts for a@x.com, got %d", len(posts))
	}
	// Ordre d'insertion conservé
	if posts[0].Text != "a1" || posts[1].Text != "a2" {
		t.Errorf("expected insertion order [a1 a2], got [%s %s]", posts[0].Text, posts[1].Text)
	}

	// Une écriture de b ne doit pas invalider le cache de a, ni l'inverse polluer
	_, _ = svc.AddPost(ctx, "b@x.com", "b2")
	if posts, _ := svc.GetPosts(ctx, "b@x.com"); len(posts) != 2 {
		t.Errorf("expected 2 posts for b@x.com, got %d", len(posts))
	}
}
