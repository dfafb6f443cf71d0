package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/google/uuid"
)

type SubscribeOutcome string

const (
	SubscribePending           SubscribeOutcome = "pending"
	SubscribeResent            SubscribeOutcome = "resent"
	SubscribeAlreadySubscribed SubscribeOutcome = "already_subscribed"
)

type NewsletterService struct {
	Repo      *repo.GormRepo
	Publisher Publisher
	Now       func() time.Time
}

type confirmationEvent struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type subscriptionEvent struct {
	Email      string `json:"email"`
	Subscribed bool   `json:"subscribed"`
}

func (s *NewsletterService) Subscribe(ctx context.Context, email string) (SubscribeOutcome, error) {
	l := logging.FromContext(ctx).With("svc", "newsletter.subscribe")

	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}

	sub, err := s.Repo.SubscriberByEmail(ctx, email)
	switch {
	case err == nil:
		if sub.IsSubscribed {
			return SubscribeAlreadySubscribed, nil
		}
		s.requestConfirmation(ctx, sub)
		return SubscribeResent, nil
	case errors.Is(storeErr(err), ErrNotFound):
	default:
		l.Error("subscribe_error", "error", err)
		return "", storeErr(err)
	}

	sub = &models.Subscriber{Email: email}
	if err := s.Repo.CreateSubscriber(ctx, sub); err != nil {
		l.Error("subscribe_error", "error", err)
		return "", storeErr(err)
	}
	s.requestConfirmation(ctx, sub)
	return SubscribePending, nil
}

func (s *NewsletterService) requestConfirmation(ctx context.Context, sub *models.Subscriber) {
	publish(ctx, s.Publisher, TopicNewsletterEvents, sub.Email, EventNewsletterConfirmRequested, confirmationEvent{
		Email: sub.Email,
		Token: sub.Token,
	})
}

// Confirm activates a pending subscription.
func (s *NewsletterService) Confirm(ctx context.Context, token string) error {
	if token == "" {
		return ErrNotFound
	}
	ok, err := s.Repo.ConfirmSubscriber(ctx, token, nowFunc(s.Now))
	if err != nil {
		return storeErr(err)
	}
	if !ok {
		return fmt.Errorf("%w: no pending subscription for token", ErrNotFound)
	}
	if sub, err := s.Repo.SubscriberByToken(ctx, token); err == nil {
		publish(ctx, s.Publisher, TopicNewsletterEvents, sub.Email, EventNewsletterSubscriptionChange, subscriptionEvent{Email: sub.Email, Subscribed: true})
	}
	return nil
}

func (s *NewsletterService) Unsubscribe(ctx context.Context, token string) error {
	if token == "" {
		return ErrNotFound
	}
	sub, err := s.Repo.SubscriberByToken(ctx, token)
	if err != nil {
		return storeErr(err)
	}
	return s.unsubscribe(ctx, sub)
}

func (s *NewsletterService) AdminUnsubscribe(ctx context.Context, id uuid.UUID) error {
	sub, err := s.Repo.SubscriberByID(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	return s.unsubscribe(ctx, sub)
}

func (s *NewsletterService) unsubscribe(ctx context.Context, sub *models.Subscriber) error {
	if err := s.Repo.UnsubscribeSubscriber(ctx, sub.ID, nowFunc(s.Now)); err != nil {
		return storeErr(err)
	}
	publish(ctx, s.Publisher, TopicNewsletterEvents, sub.Email, EventNewsletterSubscriptionChange, subscriptionEvent{Email: sub.Email, Subscribed: false})
	return nil
}

func (s *NewsletterService) List(ctx context.Context, filter string) ([]models.Subscriber, error) {
	switch filter {
	case "", repo.SubscribersAll, repo.SubscribersSubscribed, repo.SubscribersUnsubscribed:
	default:
		return nil, fmt.Errorf("%w: unknown filter %q", ErrValidation, filter)
	}
	items, err := s.Repo.ListSubscribers(ctx, filter)
	if err != nil {
		return nil, storeErr(err)
	}
	if items == nil {
		items = []models.Subscriber{}
	}
	return items, nil
}
