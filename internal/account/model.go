package account

import (
	"time"

	"github.com/lib/pq"
)

// AccountStatus gates login and registration for a profile.
type AccountStatus string

const (
	StatusActive          AccountStatus = "active"
	StatusPendingDeletion AccountStatus = "pending_deletion"
)

// SubscriptionStatus mirrors the billing provider's view of a subscription.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// UserProfile is the locally owned account row. The uid is generated here and
// is independent of the identity provider's subject id, so the provider can
// be swapped without rekeying users.
type UserProfile struct {
	UID           string        `db:"uid" json:"uid"`
	Email         string        `db:"email" json:"email"`
	AccountStatus AccountStatus `db:"account_status" json:"account_status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	LastLogin     *time.Time    `db:"last_login" json:"last_login,omitempty"`

	Premium               bool               `db:"premium" json:"premium"`
	SubscriptionPlan      string             `db:"subscription_plan" json:"subscription_plan,omitempty"`
	SubscriptionStatus    SubscriptionStatus `db:"subscription_status" json:"subscription_status,omitempty"`
	SubscriptionStartedAt *time.Time         `db:"subscription_started_at" json:"subscription_started_at,omitempty"`
	SubscriptionExpiresAt *time.Time         `db:"subscription_expires_at" json:"subscription_expires_at,omitempty"`

	DeletionRequestedAt *time.Time `db:"deletion_requested_at" json:"deletion_requested_at,omitempty"`
	DeletionScheduledAt *time.Time `db:"deletion_scheduled_at" json:"deletion_scheduled_at,omitempty"`

	DisplayName string         `db:"display_name" json:"display_name,omitempty"`
	Language    pq.StringArray `db:"language" json:"language"`
	Age         *int           `db:"age" json:"age,omitempty"`
	Gender      *string        `db:"gender" json:"gender,omitempty"`
	XAccount    *string        `db:"x_account" json:"x_account,omitempty"`
	IGAccount   *string        `db:"ig_account" json:"ig_account,omitempty"`
}

// AuthResponse is the uniform payload returned by every session-issuing
// operation.
type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         AuthUser `json:"user"`
	ExpiresIn    int      `json:"expires_in"`
}

// AuthUser is the profile subset embedded in an AuthResponse.
type AuthUser struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Premium     bool   `json:"premium"`
	IsNewUser   bool   `json:"is_new_user"`
}

// ProfilePatch captures partial updates to a profile row. Nil fields are left
// untouched.
type ProfilePatch struct {
	AccountStatus       *AccountStatus
	LastLogin           *time.Time
	DeletionRequestedAt *time.Time
	DeletionScheduledAt *time.Time

	Premium               *bool
	SubscriptionPlan      *string
	SubscriptionStatus    *SubscriptionStatus
	SubscriptionStartedAt *time.Time
	SubscriptionExpiresAt *time.Time

	DisplayName *string
	Language    *[]string
	Age         *int
	Gender      *string
	XAccount    *string
	IGAccount   *string
}

// IsZero reports whether the patch changes nothing.
func (p ProfilePatch) IsZero() bool {
	return p == ProfilePatch{}
}

// UpdateProfileInput carries the caller-editable profile fields.
type UpdateProfileInput struct {
	DisplayName *string
	Language    *[]string
	Age         *int
	Gender      *string
	XAccount    *string
	IGAccount   *string
}

// DeletionSchedule reports the outcome of scheduling an account deletion.
type DeletionSchedule struct {
	UID             string    `json:"uid"`
	RequestedAt     time.Time `json:"requested_at"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	RecoveryContact string    `json:"recovery_contact"`
}

// PurgeSummary reports a purge sweep's partial-success outcome.
type PurgeSummary struct {
	Deleted []string `json:"deleted"`
	Failed  []string `json:"failed"`
}

// SubscriptionInfo is the read-only subscription view for a profile.
type SubscriptionInfo struct {
	Premium               bool               `json:"premium"`
	SubscriptionPlan      string             `json:"subscription_plan,omitempty"`
	SubscriptionStatus    SubscriptionStatus `json:"subscription_status,omitempty"`
	SubscriptionStartedAt *time.Time         `json:"subscription_started_at,omitempty"`
	SubscriptionExpiresAt *time.Time         `json:"subscription_expires_at,omitempty"`
}
