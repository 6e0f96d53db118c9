package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jupiterclapton/postboard/internal/core/domain"
	"github.com/jupiterclapton/postboard/internal/core/ports"
)

// Schéma attendu :
//
//	CREATE TABLE users (
//	    email      TEXT PRIMARY KEY,
//	    password   TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
//
//	CREATE TABLE posts (
//	    id         TEXT PRIMARY KEY,
//	    owner      TEXT NOT NULL,
//	    text       TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX posts_owner_idx ON posts (owner, created_at);

// --- USERS ---

type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(db *pgxpool.Pool) ports.UserRepository {
	return &PostgresUserRepo{db: db}
}

func (r *PostgresUserRepo) Save(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (email, password, created_at) VALUES ($1, $2, $3)`

	_, err := r.db.Exec(ctx, query, user.Email, user.Password, user.CreatedAt)
	if err != nil {
		// La contrainte UNIQUE est la garantie ultime contre la race
		// entre le check applicatif et l'insert.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrEmailAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT email, password, created_at FROM users WHERE email = $1`

	var u domain.User
	err := r.db.QueryRow(ctx, query, email).Scan(&u.Email, &u.Password, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// --- POSTS ---

type PostgresPostRepo struct {
	db *pgxpool.Pool
}

func NewPostgresPostRepo(db *pgxpool.Pool) ports.PostRepository {
	return &PostgresPostRepo{db: db}
}

func (r *PostgresPostRepo) Save(ctx context.Context, post *domain.Post) error {
	query := `INSERT INTO posts (id, owner, text, created_at) VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, post.ID, post.Owner, post.Text, post.CreatedAt)
	return err
}

// Delete supprime uniquement si (id, owner) correspondent.
// RowsAffected == 0 couvre les deux cas : id inconnu ou mauvais owner.
func (r *PostgresPostRepo) Delete(ctx context.Context, postID, owner string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1 AND owner = $2`, postID, owner)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

func (r *PostgresPostRepo) ListByOwner(ctx context.Context, owner string) ([]domain.Post, error) {
	query := `
		SELECT id, owner, text, created_at
		FROM posts
		WHERE owner = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]domain.Post, 0)
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.Owner, &p.Text, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
