package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const profileColumns = `
	uid, email, account_status, created_at, last_login,
	premium, subscription_plan, subscription_status, subscription_started_at, subscription_expires_at,
	deletion_requested_at, deletion_scheduled_at,
	display_name, language, age, gender, x_account, ig_account
`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores a new profile row.
func (r *PostgresRepository) Insert(ctx context.Context, profile UserProfile) (UserProfile, error) {
	const query = `
		INSERT INTO users (
			uid, email, account_status, created_at, last_login,
			premium, subscription_plan, subscription_status, subscription_started_at, subscription_expires_at,
			deletion_requested_at, deletion_scheduled_at,
			display_name, language, age, gender, x_account, ig_account
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.db.ExecContext(ctx, query,
		profile.UID,
		normalizeEmail(profile.Email),
		profile.AccountStatus,
		profile.CreatedAt,
		profile.LastLogin,
		profile.Premium,
		profile.SubscriptionPlan,
		profile.SubscriptionStatus,
		profile.SubscriptionStartedAt,
		profile.SubscriptionExpiresAt,
		profile.DeletionRequestedAt,
		profile.DeletionScheduledAt,
		profile.DisplayName,
		pq.StringArray(profile.Language),
		profile.Age,
		profile.Gender,
		profile.XAccount,
		profile.IGAccount,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return UserProfile{}, fail(ErrConflict, "profile already exists for email")
		}
		return UserProfile{}, err
	}

	return profile, nil
}

// GetByEmail returns the profile for an email, or nil when absent.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, normalizeEmail(email))
}

// GetByUID returns the profile for a uid, or nil when absent.
func (r *PostgresRepository) GetByUID(ctx context.Context, uid string) (*UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM users WHERE uid = $1`
	return r.getOne(ctx, query, uid)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*UserProfile, error) {
	var profile UserProfile
	if err := r.db.GetContext(ctx, &profile, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// Update applies a patch to an existing row and returns the updated profile.
func (r *PostgresRepository) Update(ctx context.Context, uid string, patch ProfilePatch) (*UserProfile, error) {
	assignments, args := buildAssignments(patch)
	if len(assignments) == 0 {
		return r.GetByUID(ctx, uid)
	}

	args = append(args, uid)
	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE uid = $%d RETURNING `+profileColumns,
		strings.Join(assignments, ", "),
		len(args),
	)

	var profile UserProfile
	if err := r.db.GetContext(ctx, &profile, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// Delete removes a row by uid.
func (r *PostgresRepository) Delete(ctx context.Context, uid string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE uid = $1`, uid)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDueForDeletion returns pending-deletion rows whose schedule has elapsed.
func (r *PostgresRepository) ListDueForDeletion(ctx context.Context, now time.Time) ([]UserProfile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM users
		WHERE account_status = $1 AND deletion_scheduled_at <= $2
		ORDER BY deletion_scheduled_at
	`

	var profiles []UserProfile
	if err := r.db.SelectContext(ctx, &profiles, query, StatusPendingDeletion, now); err != nil {
		return nil, err
	}
	return profiles, nil
}

func buildAssignments(patch ProfilePatch) ([]string, []any) {
	var assignments []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.AccountStatus != nil {
		add("account_status", *patch.AccountStatus)
	}
	if patch.LastLogin != nil {
		add("last_login", *patch.LastLogin)
	}
	if patch.DeletionRequestedAt != nil {
		add("deletion_requested_at", *patch.DeletionRequestedAt)
	}
	if patch.DeletionScheduledAt != nil {
		add("deletion_scheduled_at", *patch.DeletionScheduledAt)
	}
	if patch.Premium != nil {
		add("premium", *patch.Premium)
	}
	if patch.SubscriptionPlan != nil {
		add("subscription_plan", *patch.SubscriptionPlan)
	}
	if patch.SubscriptionStatus != nil {
		add("subscription_status", *patch.SubscriptionStatus)
	}
	if patch.SubscriptionStartedAt != nil {
		add("subscription_started_at", *patch.SubscriptionStartedAt)
	}
	if patch.SubscriptionExpiresAt != nil {
		add("subscription_expires_at", *patch.SubscriptionExpiresAt)
	}
	if patch.DisplayName != nil {
		add("display_name", *patch.DisplayName)
	}
	if patch.Language != nil {
		add("language", pq.StringArray(*patch.Language))
	}
	if patch.Age != nil {
		add("age", *patch.Age)
	}
	if patch.Gender != nil {
		add("gender", *patch.Gender)
	}
	if patch.XAccount != nil {
		add("x_account", *patch.XAccount)
	}
	if patch.IGAccount != nil {
		add("ig_account", *patch.IGAccount)
	}

	return assignments, args
}
