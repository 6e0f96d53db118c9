package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jupiterclapton/postboard/internal/core/domain"
)

// --- EMAIL BRUT (DÉFAUT) ---

// EmailTokenProvider : le token EST l'email en clair.
// C'est le contrat littéral de l'API d'origine, conservé tel quel comme
// schéma par défaut. JWTProvider est l'alternative opt-in (AUTH_MODE=jwt).
// La preuve de possession se limite au fait qu'un signup/login a eu lieu :
// la validation finale (l'email existe-t-il ?) appartient à IdentityService.
type EmailTokenProvider struct{}

func NewEmailTokenProvider() *EmailTokenProvider { return &EmailTokenProvider{} }

func (EmailTokenProvider) Generate(user *domain.User) (string, error) {
	return user.Email, nil
}

func (EmailTokenProvider) Validate(token string) (string, error) {
	if token == "" {
		return "", domain.ErrInvalidToken
	}
	return token, nil
}

// --- JWT (OPT-IN) ---

// Claims étend les claims standards JWT
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type JWTProvider struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewJWTProvider signe en HS256 avec un secret partagé.
func NewJWTProvider(secret []byte, expiry time.Duration) *JWTProvider {
	return &JWTProvider{
		secret: secret,
		expiry: expiry,
		issuer: "postboard",
	}
}

func (j *JWTProvider) Generate(user *domain.User) (string, error) {
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    j.issuer,
			Subject:   user.Email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// Validate vérifie la signature et retourne l'email (Subject).
func (j *JWTProvider) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Vérifier que l'alg est bien HMAC : empêche les attaques où
		// l'attaquant force l'algo à "none" ou à une clé publique RSA.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		return "", err // Token expiré ou signature invalide
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims.Email, nil
	}
	return "", errors.New("invalid token claims")
}
