package ports

import (
	"context"

	"github.com/jupiterclapton/postboard/internal/core/domain"
)

// --- INPUTS (Command Pattern) ---
// Utiliser des structs permet d'ajouter des champs optionnels plus tard sans casser la signature.

type RegisterCmd struct {
	Email    string
	Password string
}

type LoginCmd struct {
	Email    string
	Password string
}

// --- OUTPUTS ---

type AuthResponse struct {
	User  *domain.User
	Token string // Avec le provider par défaut, le token EST l'email
}

// --- PORTS PRIMAIRES (Driving) ---
// C'est l'API que l'Hexagone expose au monde extérieur (HTTP, CLI).

type IdentityService interface {
	Register(ctx context.Context, cmd RegisterCmd) (*AuthResponse, error)
	Login(ctx context.Context, cmd LoginCmd) (*AuthResponse, error)

	// ValidateToken résout un token vers l'email du caller.
	// C'est le prédicat d'authentification des opérations protégées.
	ValidateToken(ctx context.Context, token string) (string, error)
}

type PostService interface {
	// AddPost crée un post pour owner et invalide son entrée de cache.
	AddPost(ctx context.Context, owner, text string) (*domain.Post, error)

	// GetPosts retourne les posts d'owner, depuis le cache si l'entrée est fraîche.
	GetPosts(ctx context.Context, owner string) ([]domain.Post, error)

	// DeletePost supprime le post seulement si (id, owner) correspondent,
	// puis invalide l'entrée de cache d'owner.
	DeletePost(ctx context.Context, postID, owner string) error
}
