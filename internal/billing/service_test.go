package billing

import (
	"context"
	"io"
	"testing"
	"time"

	"log/slog"

	"github.com/ledtorch/deejiar/internal/account"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedUser(t *testing.T, repo account.Repository, uid string, premium bool, status account.SubscriptionStatus) {
	t.Helper()
	_, err := repo.Insert(context.Background(), account.UserProfile{
		UID:                uid,
		Email:              uid + "@example.com",
		AccountStatus:      account.StatusActive,
		Premium:            premium,
		SubscriptionStatus: status,
	})
	if err != nil {
		t.Fatalf("seeding user: %v", err)
	}
}

func TestApplyInitialPurchase(t *testing.T) {
	repo := account.NewInMemoryRepository()
	seedUser(t, repo, "dj_20260101_aaaaaaaa", false, "")
	svc := NewService(repo, testLogger())

	expires := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	outcome, err := svc.Apply(context.Background(), Event{
		Type:           EventInitialPurchase,
		AppUserID:      "dj_20260101_aaaaaaaa",
		ProductID:      "deejiar_premium_monthly",
		PeriodType:     "NORMAL",
		ExpirationAtMs: expires.UnixMilli(),
	})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if outcome.Status != "success" {
		t.Fatalf("expected success, got %+v", outcome)
	}

	profile, _ := repo.GetByUID(context.Background(), "dj_20260101_aaaaaaaa")
	if !profile.Premium {
		t.Fatal("expected premium on after purchase")
	}
	if profile.SubscriptionStatus != account.SubscriptionActive {
		t.Fatalf("expected active subscription, got %q", profile.SubscriptionStatus)
	}
	if profile.SubscriptionPlan != "deejiar_premium_monthly" {
		t.Fatalf("expected plan recorded, got %q", profile.SubscriptionPlan)
	}
	if profile.SubscriptionExpiresAt == nil || !profile.SubscriptionExpiresAt.Equal(expires) {
		t.Fatalf("expected expiry %v, got %v", expires, profile.SubscriptionExpiresAt)
	}
}

func TestApplyInitialPurchaseTrialPeriod(t *testing.T) {
	repo := account.NewInMemoryRepository()
	seedUser(t, repo, "dj_20260101_bbbbbbbb", false, "")
	svc := NewService(repo, testLogger())

	if _, err := svc.Apply(context.Background(), Event{
		Type:       EventInitialPurchase,
		AppUserID:  "dj_20260101_bbbbbbbb",
		ProductID:  "deejiar_premium_yearly",
		PeriodType: "TRIAL",
	}); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	profile, _ := repo.GetByUID(context.Background(), "dj_20260101_bbbbbbbb")
	if profile.SubscriptionStatus != account.SubscriptionTrial {
		t.Fatalf("expected trial status, got %q", profile.SubscriptionStatus)
	}
}

func TestApplyCancellationKeepsPremium(t *testing.T) {
	repo := account.NewInMemoryRepository()
	seedUser(t, repo, "dj_20260101_cccccccc", true, account.SubscriptionActive)
	svc := NewService(repo, testLogger())

	outcome, err := svc.Apply(context.Background(), Event{
		Type:      EventCancellation,
		AppUserID: "dj_20260101_cccccccc",
	})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if outcome.Status != "success" {
		t.Fatalf("expected success, got %+v", outcome)
	}

	profile, _ := repo.GetByUID(context.Background(), "dj_20260101_cccccccc")
	if !profile.Premium {
		t.Fatal("cancellation must not revoke premium before the period ends")
	}
	if profile.SubscriptionStatus != account.SubscriptionCancelled {
		t.Fatalf("expected cancelled status, got %q", profile.SubscriptionStatus)
	}
}

func TestApplyExpirationClearsPremium(t *testing.T) {
	repo := account.NewInMemoryRepository()
	seedUser(t, repo, "dj_20260101_dddddddd", true, account.SubscriptionCancelled)
	svc := NewService(repo, testLogger())

	if _, err := svc.Apply(context.Background(), Event{
		Type:      EventExpiration,
		AppUserID: "dj_20260101_dddddddd",
	}); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	profile, _ := repo.GetByUID(context.Background(), "dj_20260101_dddddddd")
	if profile.Premium {
		t.Fatal("expiration must revoke premium")
	}
	if profile.SubscriptionStatus != account.SubscriptionExpired {
		t.Fatalf("expected expired status, got %q", profile.SubscriptionStatus)
	}
}

func TestApplyRenewal(t *testing.T) {
	repo := account.NewInMemoryRepository()
	seedUser(t, repo, "dj_20260101_eeeeeeee", false, account.SubscriptionExpired)
	svc := NewService(repo, testLogger())

	expires := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Apply(context.Background(), Event{
		Type:           EventRenewal,
		AppUserID:      "dj_20260101_eeeeeeee",
		ExpirationAtMs: expires.UnixMilli(),
	}); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	profile, _ := repo.GetByUID(context.Background(), "dj_20260101_eeeeeeee")
	if !profile.Premium || profile.SubscriptionStatus != account.SubscriptionActive {
		t.Fatalf("expected premium active after renewal, got premium=%v status=%q", profile.Premium, profile.SubscriptionStatus)
	}
}

func TestApplyTestEvent(t *testing.T) {
	svc := NewService(account.NewInMemoryRepository(), testLogger())

	outcome, err := svc.Apply(context.Background(), Event{Type: EventTest})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if outcome.Status != "success" || outcome.Reason != "test" {
		t.Fatalf("expected test acknowledgement, got %+v", outcome)
	}
}

func TestApplyUnknownEventType(t *testing.T) {
	svc := NewService(account.NewInMemoryRepository(), testLogger())

	outcome, err := svc.Apply(context.Background(), Event{Type: "BILLING_ISSUE", AppUserID: "dj_x"})
	if err != nil {
		t.Fatalf("unknown types must be acknowledged, got error %v", err)
	}
	if outcome.Status != "ignored" || outcome.Reason != "unknown_event_type" {
		t.Fatalf("expected ignored/unknown_event_type, got %+v", outcome)
	}
}

func TestApplyUnknownUser(t *testing.T) {
	svc := NewService(account.NewInMemoryRepository(), testLogger())

	outcome, err := svc.Apply(context.Background(), Event{Type: EventRenewal, AppUserID: "dj_missing"})
	if err != nil {
		t.Fatalf("unknown users must be acknowledged, got error %v", err)
	}
	if outcome.Status != "ignored" || outcome.Reason != "unknown_user" {
		t.Fatalf("expected ignored/unknown_user, got %+v", outcome)
	}
}

func TestApplyMissingAppUserID(t *testing.T) {
	svc := NewService(account.NewInMemoryRepository(), testLogger())

	outcome, err := svc.Apply(context.Background(), Event{Type: EventRenewal})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if outcome.Status != "ignored" || outcome.Reason != "missing_app_user_id" {
		t.Fatalf("expected ignored/missing_app_user_id, got %+v", outcome)
	}
}
