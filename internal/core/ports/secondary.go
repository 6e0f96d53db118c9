package ports

import (
	"context"

	"github.com/jupiterclapton/postboard/internal/core/domain"
)

// --- PERSISTANCE (DB) ---

// UserRepository est un Port Secondaire (Driven).
// Deux backings existent : map en mémoire (défaut) et Postgres (pgx).
type UserRepository interface {
	Save(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type PostRepository interface {
	Save(ctx context.Context, post *domain.Post) error

	// Delete supprime uniquement si id ET owner correspondent.
	// Retourne domain.ErrPostNotFound sinon.
	Delete(ctx context.Context, postID, owner string) error

	// ListByOwner retourne les posts d'owner en ordre d'insertion.
	ListByOwner(ctx context.Context, owner string) ([]domain.Post, error)
}

// --- CACHE DE RÉSULTATS ---

// PostCache est le cache temporel des résultats de GetPosts, clé = owner.
// Contrat dur : toute écriture qui mutate les posts d'un owner DOIT appeler
// Invalidate pour cet owner avant que l'écriture ne soit acquittée.
//
// Une implémentation dont Invalidate peut échouer (backing distant) doit
// échouer pareil sur Get tant que le backing est down : sinon une entrée
// qu'on n'a pas pu invalider resterait servable. Le backing Redis respecte
// ça naturellement (même connexion pour les deux).
//
// La slice retournée par Get appartient à l'appelant : les implémentations
// retournent une copie, jamais leur structure interne.
type PostCache interface {
	Get(ctx context.Context, owner string) ([]domain.Post, bool, error)
	Set(ctx context.Context, owner string, posts []domain.Post) error
	Invalidate(ctx context.Context, owner string) error
}

// --- MESSAGERIE (BROKER) ---

// EventPublisher est le port vers Nats.
// Publication best-effort : un broker lent/down ne fait jamais échouer la requête.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, email string) error
	PublishPostCreated(ctx context.Context, post *domain.Post) error
	PublishPostDeleted(ctx context.Context, postID, owner string) error
}

// --- SÉCURITÉ (CRYPTO) ---

// PasswordHasher abstrait le stockage du mot de passe (plain, Argon2).
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenProvider abstrait le schéma de token (email brut, JWT).
type TokenProvider interface {
	Generate(user *domain.User) (string, error)
	Validate(token string) (email string, err error)
}
