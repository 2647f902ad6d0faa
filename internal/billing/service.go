// Package billing applies subscription webhook events to user profiles.
// Events arrive from the billing provider keyed by app_user_id, which is the
// profile uid.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/ledtorch/deejiar/internal/account"
)

// EventType enumerates the billing events this service understands.
type EventType string

const (
	EventInitialPurchase EventType = "INITIAL_PURCHASE"
	EventRenewal         EventType = "RENEWAL"
	EventCancellation    EventType = "CANCELLATION"
	EventExpiration      EventType = "EXPIRATION"
	EventTest            EventType = "TEST"
)

// Event is the normalized webhook payload.
type Event struct {
	Type           EventType
	AppUserID      string
	ProductID      string
	PeriodType     string
	ExpirationAtMs int64
}

// Outcome acknowledges how an event was handled. Unknown event types are
// acknowledged as ignored, never treated as errors.
type Outcome struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Service patches subscription state onto profile rows.
type Service struct {
	repo   account.Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a billing Service.
func NewService(repo account.Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Apply maps the event to a profile patch and applies it.
func (s *Service) Apply(ctx context.Context, event Event) (Outcome, error) {
	patch, ok := s.patchFor(event)
	if !ok {
		if event.Type == EventTest {
			s.logger.Info("test webhook received")
			return Outcome{Status: "success", Reason: "test"}, nil
		}
		s.logger.Warn("unknown webhook event type", "type", event.Type)
		return Outcome{Status: "ignored", Reason: "unknown_event_type"}, nil
	}

	if event.AppUserID == "" {
		return Outcome{Status: "ignored", Reason: "missing_app_user_id"}, nil
	}

	if _, err := s.repo.Update(ctx, event.AppUserID, patch); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			s.logger.Warn("webhook for unknown user", "uid", event.AppUserID, "type", event.Type)
			return Outcome{Status: "ignored", Reason: "unknown_user"}, nil
		}
		return Outcome{}, fmt.Errorf("apply %s: %w", event.Type, err)
	}

	s.logger.Info("subscription event applied", "uid", event.AppUserID, "type", event.Type, "product", event.ProductID)
	return Outcome{Status: "success"}, nil
}

func (s *Service) patchFor(event Event) (account.ProfilePatch, bool) {
	premiumOn := true
	premiumOff := false
	now := s.now().UTC()

	switch event.Type {
	case EventInitialPurchase:
		active := subscriptionStatusFor(event.PeriodType)
		patch := account.ProfilePatch{
			Premium:               &premiumOn,
			SubscriptionPlan:      &event.ProductID,
			SubscriptionStatus:    &active,
			SubscriptionStartedAt: &now,
		}
		if expires := expirationTime(event); expires != nil {
			patch.SubscriptionExpiresAt = expires
		}
		return patch, true

	case EventRenewal:
		active := account.SubscriptionActive
		patch := account.ProfilePatch{
			Premium:            &premiumOn,
			SubscriptionStatus: &active,
		}
		if expires := expirationTime(event); expires != nil {
			patch.SubscriptionExpiresAt = expires
		}
		return patch, true

	case EventCancellation:
		// Cancellation alone never revokes premium: paid access runs to
		// the end of the period, which arrives as EXPIRATION.
		cancelled := account.SubscriptionCancelled
		return account.ProfilePatch{SubscriptionStatus: &cancelled}, true

	case EventExpiration:
		expired := account.SubscriptionExpired
		return account.ProfilePatch{
			Premium:               &premiumOff,
			SubscriptionStatus:    &expired,
			SubscriptionExpiresAt: &now,
		}, true
	}

	return account.ProfilePatch{}, false
}

func subscriptionStatusFor(periodType string) account.SubscriptionStatus {
	if periodType == "TRIAL" {
		return account.SubscriptionTrial
	}
	return account.SubscriptionActive
}

func expirationTime(event Event) *time.Time {
	if event.ExpirationAtMs <= 0 {
		return nil
	}
	t := time.UnixMilli(event.ExpirationAtMs).UTC()
	return &t
}
