package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/jupiterclapton/postboard/internal/core/domain"
)

const (
	StreamName     = "POSTBOARD"
	SubjectPattern = "postboard.>" // Tous les events postboard.*
)

type NatsBroker struct {
	js jetstream.JetStream
}

// NewNatsBroker initialise la connexion et s'assure que le Stream existe (idempotent).
func NewNatsBroker(url string) (*NatsBroker, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectPattern},
		Storage:  jetstream.FileStorage,
		Replicas: 1, // Mettre 3 en cluster
	})
	if err != nil {
		return nil, fmt.Errorf("create stream: %w", err)
	}

	return &NatsBroker{js: js}, nil
}

// --- PAYLOADS ---

type UserRegisteredEvent struct {
	Email string `json:"email"`
}

type PostCreatedEvent struct {
	PostID    string    `json:"post_id"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
}

type PostDeletedEvent struct {
	PostID string `json:"post_id"`
	Owner  string `json:"owner"`
}

func (n *NatsBroker) PublishUserRegistered(ctx context.Context, email string) error {
	return n.publish(ctx, "postboard.user.registered", UserRegisteredEvent{Email: email})
}

func (n *NatsBroker) PublishPostCreated(ctx context.Context, post *domain.Post) error {
	return n.publish(ctx, "postboard.post.created", PostCreatedEvent{
		PostID:    post.ID,
		Owner:     post.Owner,
		CreatedAt: post.CreatedAt,
	})
}

func (n *NatsBroker) PublishPostDeleted(ctx context.Context, postID, owner string) error {
	return n.publish(ctx, "postboard.post.deleted", PostDeletedEvent{PostID: postID, Owner: owner})
}

func (n *NatsBroker) publish(ctx context.Context, subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// JetStream garantit que le serveur a bien reçu et persisté le message.
	if _, err := n.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}
