package account

import (
	"context"
	"time"
)

// Repository defines profile-row persistence. Implementations return
// ErrNotFound for missing rows and ErrConflict for unique-key violations.
type Repository interface {
	Insert(ctx context.Context, profile UserProfile) (UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*UserProfile, error)
	GetByUID(ctx context.Context, uid string) (*UserProfile, error)
	Update(ctx context.Context, uid string, patch ProfilePatch) (*UserProfile, error)
	Delete(ctx context.Context, uid string) error

	// ListDueForDeletion returns profiles in pending_deletion whose
	// scheduled time is at or before now.
	ListDueForDeletion(ctx context.Context, now time.Time) ([]UserProfile, error)
}
