package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// --- ERREURS DU DOMAINE ---
var (
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrUserNotFound       = errors.New("user not found")
)

// --- ENTITÉ ---

// User est volontairement minimal : l'email EST l'identité (clé unique)
// et le mot de passe est une chaîne opaque comparée via le port PasswordHasher.
type User struct {
	Email     string
	Password  string // Stocké tel que produit par le hasher (plain par défaut)
	CreatedAt time.Time
}

// --- FACTORY (CONSTRUCTEUR) ---

// NewUser crée une instance valide.
// C'est le SEUL moyen de créer un user proprement (normalisation + validation).
func NewUser(email, password string) (*User, error) {
	// 1. Validation des invariants (règle métier bloquante)
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	return &User{
		Email:     NormalizeEmail(email),
		Password:  password,
		CreatedAt: time.Now().UTC(), // Toujours utiliser UTC
	}, nil
}

// NormalizeEmail est la forme canonique sous laquelle un email est stocké.
// Toute recherche dans le store DOIT passer par la même normalisation,
// sinon "A@x.com" au signup et "a@x.com" au login divergent.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// --- VALIDATEURS INTERNES ---

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return ErrInvalidEmail
	}
	return nil
}
