package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/google/uuid"
)

const (
	TopicOrderEvents      = "order_events"
	TopicProductEvents    = "product_events"
	TopicReviewEvents     = "review_events"
	TopicNewsletterEvents = "newsletter_events"
	TopicUserEvents       = "user_events"

	EventOrderCreated                 = "order_created"
	EventOrderStatusChanged           = "order_status_changed"
	EventReviewEligible               = "review_eligible"
	EventProductCreated               = "product_created"
	EventProductUpdated               = "product_updated"
	EventProductDeleted               = "product_deleted"
	EventNewsletterConfirmRequested   = "newsletter_confirmation_requested"
	EventNewsletterSubscriptionChange = "newsletter_subscription_changed"
	EventEmailVerificationRequested   = "email_verification_requested"
	EventEmailVerified                = "email_verified"
	EventPasswordChanged              = "password_changed"

	publishTimeout = 5 * time.Second
)

type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, event Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, Event) error { return nil }

// publish is fire-and-forget; a broker outage never fails the request.
func publish(ctx context.Context, p Publisher, topic, key, typ string, data any) {
	if p == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	ev := Event{Type: typ, OccurredAt: time.Now().UTC(), Data: data}
	if err := p.Publish(pctx, topic, key, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_failed", "topic", topic, "type", typ, "key", key, "error", err)
	}
}

type ProductIndexer interface {
	IndexProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// ProductSearcher returns matching product ids ordered by relevance.
type ProductSearcher interface {
	SearchProducts(ctx context.Context, query string, from, size int) (int64, []uuid.UUID, error)
}

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

func nowFunc(f func() time.Time) time.Time {
	if f != nil {
		return f().UTC()
	}
	return time.Now().UTC()
}
