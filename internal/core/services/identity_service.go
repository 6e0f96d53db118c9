package services

import (
	"context"
	"fmt"

	"github.com/jupiterclapton/postboard/internal/core/domain"
	"github.com/jupiterclapton/postboard/internal/core/ports"
)

// IdentityService implémente ports.IdentityService (Primary Port).
// Il contient la logique applicative : signup, login, résolution de token.
type IdentityService struct {
	repo          ports.UserRepository
	hasher        ports.PasswordHasher
	tokenProvider ports.TokenProvider
	broker        ports.EventPublisher
}

// NewIdentityService est le constructeur avec injection de dépendances.
func NewIdentityService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	token ports.TokenProvider,
	broker ports.EventPublisher,
) *IdentityService {
	return &IdentityService{
		repo:          repo,
		hasher:        hasher,
		tokenProvider: token,
		broker:        broker,
	}
}

func (s *IdentityService) Register(ctx context.Context, cmd ports.RegisterCmd) (*ports.AuthResponse, error) {
	// 1. Fail Fast : vérifier l'unicité de l'email (sous sa forme canonique,
	// la même que celle sous laquelle NewUser le stockera)
	existing, err := s.repo.GetByEmail(ctx, domain.NormalizeEmail(cmd.Email))
	if err == nil && existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}

	// 2. Passage par le hasher (plain par défaut : contrat littéral de l'API)
	stored, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Domaine : création de l'entité (validation des invariants dans NewUser)
	user, err := domain.NewUser(cmd.Email, stored)
	if err != nil {
		return nil, err
	}

	// 4. Persistance
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("repository save failed: %w", err)
	}

	// 5. Token + publication événement (best effort, on ne bloque pas le retour)
	token, err := s.tokenProvider.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("token generation failed: %w", err)
	}
	_ = s.broker.PublishUserRegistered(ctx, user.Email)

	return &ports.AuthResponse{User: user, Token: token}, nil
}

func (s *IdentityService) Login(ctx context.Context, cmd ports.LoginCmd) (*ports.AuthResponse, error) {
	// 1. Récupération sous forme canonique : "A@x.com" au login doit
	// retrouver le user stocké "a@x.com".
	// On retourne la même erreur générique que l'email existe ou pas.
	user, err := s.repo.GetByEmail(ctx, domain.NormalizeEmail(cmd.Email))
	if err != nil || user == nil {
		return nil, domain.ErrInvalidCredentials
	}

	// 2. Vérification mot de passe (égalité via le port)
	if err := s.hasher.Compare(user.Password, cmd.Password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	// 3. Génération token
	token, err := s.tokenProvider.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("login token gen failed: %w", err)
	}

	return &ports.AuthResponse{User: user, Token: token}, nil
}

// ValidateToken résout le token vers un email ET vérifie que cet email
// est bien une identité connue. Un token syntaxiquement valide pour un
// user inexistant reste un 401.
func (s *IdentityService) ValidateToken(ctx context.Context, token string) (string, error) {
	email, err := s.tokenProvider.Validate(token)
	if err != nil {
		return "", domain.ErrInvalidToken
	}

	user, err := s.repo.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil || user == nil {
		return "", domain.ErrInvalidToken
	}
	return user.Email, nil
}
