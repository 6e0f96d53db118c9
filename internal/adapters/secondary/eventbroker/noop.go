package eventbroker

import (
	"context"

	"github.com/jupiterclapton/postboard/internal/core/domain"
)

// NoopBroker est utilisé quand NATS_URL est vide (dev local, tests).
type NoopBroker struct{}

func NewNoopBroker() *NoopBroker { return &NoopBroker{} }

func (NoopBroker) PublishUserRegistered(ctx context.Context, email string) error { return nil }

func (NoopBroker) PublishPostCreated(ctx context.Context, post *domain.Post) error { return nil }

func (NoopBroker) PublishPostDeleted(ctx context.Context, postID, owner string) error { return nil }
