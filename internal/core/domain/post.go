package domain

import (
	"errors"
	"time"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrPostTooLarge = errors.New("post payload too large")
)

// MaxPostBytes est la taille maximale du texte d'un post,
// mesurée en octets UTF-8 encodés (1 MiB).
const MaxPostBytes = 1 << 20

// Post est immuable une fois créé : aucune opération d'édition n'existe.
type Post struct {
	ID        string
	Owner     string // Email de l'identité qui a créé le post
	Text      string
	CreatedAt time.Time
}
