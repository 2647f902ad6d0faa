package account

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
)

// InMemoryRepository stores profiles in an in-process map, ideal for local
// development or tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	byUID   map[string]UserProfile
	byEmail map[string]string
}

// NewInMemoryRepository constructs an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byUID:   make(map[string]UserProfile),
		byEmail: make(map[string]string),
	}
}

// Insert stores a new profile row.
func (r *InMemoryRepository) Insert(_ context.Context, profile UserProfile) (UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalizeEmail(profile.Email)
	if _, exists := r.byEmail[key]; exists {
		return UserProfile{}, fail(ErrConflict, "profile already exists for email")
	}
	if _, exists := r.byUID[profile.UID]; exists {
		return UserProfile{}, fail(ErrConflict, "profile already exists for uid")
	}

	r.byUID[profile.UID] = profile
	r.byEmail[key] = profile.UID
	return profile, nil
}

// GetByEmail returns the profile for an email, or nil when absent.
func (r *InMemoryRepository) GetByEmail(_ context.Context, email string) (*UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	uid, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	profile := r.byUID[uid]
	return &profile, nil
}

// GetByUID returns the profile for a uid, or nil when absent.
func (r *InMemoryRepository) GetByUID(_ context.Context, uid string) (*UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.byUID[uid]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

// Update applies a patch to an existing row.
func (r *InMemoryRepository) Update(_ context.Context, uid string, patch ProfilePatch) (*UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.byUID[uid]
	if !ok {
		return nil, ErrNotFound
	}

	applyPatch(&profile, patch)
	r.byUID[uid] = profile
	return &profile, nil
}

// Delete removes a row by uid.
func (r *InMemoryRepository) Delete(_ context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.byUID[uid]
	if !ok {
		return ErrNotFound
	}

	delete(r.byUID, uid)
	delete(r.byEmail, normalizeEmail(profile.Email))
	return nil
}

// ListDueForDeletion returns pending-deletion rows whose schedule has elapsed.
func (r *InMemoryRepository) ListDueForDeletion(_ context.Context, now time.Time) ([]UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []UserProfile
	for _, profile := range r.byUID {
		if profile.AccountStatus != StatusPendingDeletion {
			continue
		}
		if profile.DeletionScheduledAt != nil && !profile.DeletionScheduledAt.After(now) {
			due = append(due, profile)
		}
	}
	return due, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func applyPatch(profile *UserProfile, patch ProfilePatch) {
	if patch.AccountStatus != nil {
		profile.AccountStatus = *patch.AccountStatus
	}
	if patch.LastLogin != nil {
		profile.LastLogin = patch.LastLogin
	}
	if patch.DeletionRequestedAt != nil {
		profile.DeletionRequestedAt = patch.DeletionRequestedAt
	}
	if patch.DeletionScheduledAt != nil {
		profile.DeletionScheduledAt = patch.DeletionScheduledAt
	}
	if patch.Premium != nil {
		profile.Premium = *patch.Premium
	}
	if patch.SubscriptionPlan != nil {
		profile.SubscriptionPlan = *patch.SubscriptionPlan
	}
	if patch.SubscriptionStatus != nil {
		profile.SubscriptionStatus = *patch.SubscriptionStatus
	}
	if patch.SubscriptionStartedAt != nil {
		profile.SubscriptionStartedAt = patch.SubscriptionStartedAt
	}
	if patch.SubscriptionExpiresAt != nil {
		profile.SubscriptionExpiresAt = patch.SubscriptionExpiresAt
	}
	if patch.DisplayName != nil {
		profile.DisplayName = *patch.DisplayName
	}
	if patch.Language != nil {
		profile.Language = pq.StringArray(*patch.Language)
	}
	if patch.Age != nil {
		profile.Age = patch.Age
	}
	if patch.Gender != nil {
		profile.Gender = patch.Gender
	}
	if patch.XAccount != nil {
		profile.XAccount = patch.XAccount
	}
	if patch.IGAccount != nil {
		profile.IGAccount = patch.IGAccount
	}
}
