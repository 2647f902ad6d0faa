package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ledtorch/deejiar/internal/identity"
)

// Provider is the slice of the identity provider the lifecycle service
// consumes. The provider owns OTP challenges, session issuance and
// refresh-token rotation; this service never re-implements any of it.
type Provider interface {
	SendOtp(ctx context.Context, email string, opts identity.OtpOptions) error
	VerifyOtp(ctx context.Context, email, code string) (identity.VerifyResult, error)
	RefreshSession(ctx context.Context, refreshToken string) (identity.VerifyResult, error)
	GetUser(ctx context.Context, accessToken string) (identity.Identity, error)
	SignOut(ctx context.Context, accessToken string) error
	UpdateMetadata(ctx context.Context, identityID string, metadata map[string]any) error
	DeleteIdentity(ctx context.Context, identityID string) error
	ListIdentities(ctx context.Context) ([]identity.Identity, error)
}

// Notifier delivers operational notifications. Failures are logged, never
// propagated.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

const defaultGracePeriod = 30 * 24 * time.Hour

// Service drives the account lifecycle state machine:
// no account -> otp pending -> active <-> otp pending (login), and
// active -> pending_deletion -> purged.
type Service struct {
	repo            Repository
	provider        Provider
	notifier        Notifier
	logger          *slog.Logger
	gracePeriod     time.Duration
	recoveryContact string
	now             func() time.Time
}

// ServiceOption configures the Service during construction.
type ServiceOption func(*Service)

// WithGracePeriod overrides the deletion grace period.
func WithGracePeriod(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.gracePeriod = d
		}
	}
}

// WithRecoveryContact sets the contact channel reported when a deletion is
// scheduled.
func WithRecoveryContact(contact string) ServiceOption {
	return func(s *Service) {
		s.recoveryContact = contact
	}
}

// WithNotifier attaches a best-effort notifier for purge summaries.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates the lifecycle service.
func NewService(repo Repository, provider Provider, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		repo:            repo,
		provider:        provider,
		logger:          logger,
		gracePeriod:     defaultGracePeriod,
		recoveryContact: "hi@deejiar.com",
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RequestRegistration starts the registration flow by asking the provider to
// email an OTP. No local row is created until the code is verified, so an
// abandoned flow leaves nothing behind.
func (s *Service) RequestRegistration(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup profile: %w", err)
	}
	if existing != nil {
		if existing.AccountStatus == StatusPendingDeletion {
			return fail(ErrConflict, "an account with this email is pending deletion")
		}
		return fail(ErrConflict, "account already exists, use login instead")
	}

	err = s.provider.SendOtp(ctx, email, identity.OtpOptions{
		CreateIfMissing: true,
		PurposeTag:      "registration",
	})
	if err != nil {
		return s.translateSendError(err, email)
	}

	return nil
}

// VerifyRegistration verifies the registration OTP and creates the profile
// row. Re-verification for an email that already has a row is idempotent and
// returns the existing profile.
func (s *Service) VerifyRegistration(ctx context.Context, email, otp string) (AuthResponse, error) {
	email = normalizeEmail(email)

	result, err := s.provider.VerifyOtp(ctx, email, otp)
	if err != nil {
		return AuthResponse{}, s.translateVerifyError(err, email)
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("lookup profile: %w", err)
	}
	if existing != nil {
		// Double-submit of a still-valid code. One row per email holds.
		return s.authResponse(result.Session, *existing, false), nil
	}

	profile := UserProfile{
		UID:           s.generateUID(),
		Email:         email,
		AccountStatus: StatusActive,
		CreatedAt:     s.now().UTC(),
		Premium:       false,
		Language:      pq.StringArray{},
	}

	created, err := s.repo.Insert(ctx, profile)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			// Lost a creation race; the winner's row is authoritative.
			winner, lookupErr := s.repo.GetByEmail(ctx, email)
			if lookupErr == nil && winner != nil {
				return s.authResponse(result.Session, *winner, false), nil
			}
		}
		return AuthResponse{}, fmt.Errorf("create profile: %w", err)
	}

	// Mirror the uid into provider metadata for debugging. The local row is
	// the source of truth, so a mirror failure must not fail registration.
	mirror := map[string]any{"uid": created.UID, "provider": "email"}
	if err := s.provider.UpdateMetadata(ctx, result.Identity.ID, mirror); err != nil {
		s.logger.Warn("metadata mirror failed", "email", email, "error", err)
	}

	return s.authResponse(result.Session, created, true), nil
}

// RequestLogin starts the login flow for an existing, active account.
func (s *Service) RequestLogin(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	profile, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup profile: %w", err)
	}
	if profile == nil {
		return fail(ErrNotFound, "no account found with this email, register first")
	}
	if profile.AccountStatus == StatusPendingDeletion {
		return fail(ErrForbidden, "account is pending deletion")
	}

	err = s.provider.SendOtp(ctx, email, identity.OtpOptions{
		CreateIfMissing: false,
		PurposeTag:      "login",
	})
	if err != nil {
		return s.translateSendError(err, email)
	}

	return nil
}

// VerifyLogin verifies the login OTP and issues a session. A valid OTP for an
// email with no local row is an error, never an auto-repair: fabricating a
// profile here would mint an unknown uid.
func (s *Service) VerifyLogin(ctx context.Context, email, otp string) (AuthResponse, error) {
	email = normalizeEmail(email)

	result, err := s.provider.VerifyOtp(ctx, email, otp)
	if err != nil {
		return AuthResponse{}, s.translateVerifyError(err, email)
	}

	profile, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("lookup profile: %w", err)
	}
	if profile == nil {
		return AuthResponse{}, fail(ErrNotFound, "no profile for this account, register first")
	}
	if profile.AccountStatus == StatusPendingDeletion {
		return AuthResponse{}, fail(ErrForbidden, "account is pending deletion")
	}

	now := s.now().UTC()
	updated, err := s.repo.Update(ctx, profile.UID, ProfilePatch{LastLogin: &now})
	if err != nil {
		return AuthResponse{}, fmt.Errorf("update last login: %w", err)
	}

	return s.authResponse(result.Session, *updated, false), nil
}

// Refresh exchanges a refresh token for a fresh session. The provider alone
// enforces single-use rotation; its rejection detail is logged verbatim for
// debugging instead of being second-guessed locally.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResponse, error) {
	result, err := s.provider.RefreshSession(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, identity.ErrUnavailable) {
			return AuthResponse{}, fail(ErrUpstream, "identity provider unavailable")
		}
		s.logger.Info("session refresh rejected", "detail", err)
		return AuthResponse{}, fail(ErrUnauthorized, "invalid refresh token")
	}

	profile, err := s.repo.GetByEmail(ctx, normalizeEmail(result.Identity.Email))
	if err != nil {
		return AuthResponse{}, fmt.Errorf("lookup profile: %w", err)
	}
	if profile == nil {
		return AuthResponse{}, fail(ErrNotFound, "no profile for this account")
	}

	return s.authResponse(result.Session, *profile, false), nil
}

// Logout signs the session out with the provider, best-effort. Client-side
// token discard is the real logout boundary, so this always succeeds.
func (s *Service) Logout(ctx context.Context, accessToken string) {
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		s.logger.Warn("provider sign-out failed", "error", err)
	}
}

// CurrentUser resolves an access token to the local profile.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*UserProfile, error) {
	ident, err := s.provider.GetUser(ctx, accessToken)
	if err != nil {
		if errors.Is(err, identity.ErrUnavailable) {
			return nil, fail(ErrUpstream, "identity provider unavailable")
		}
		return nil, fail(ErrUnauthorized, "invalid or expired token")
	}

	profile, err := s.repo.GetByEmail(ctx, normalizeEmail(ident.Email))
	if err != nil {
		return nil, fmt.Errorf("lookup profile: %w", err)
	}
	if profile == nil {
		return nil, fail(ErrNotFound, "no profile for this account")
	}

	return profile, nil
}

// UpdateProfile patches the caller-editable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, accessToken string, input UpdateProfileInput) (*UserProfile, error) {
	profile, err := s.CurrentUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	patch := ProfilePatch{
		DisplayName: input.DisplayName,
		Language:    input.Language,
		Age:         input.Age,
		Gender:      input.Gender,
		XAccount:    input.XAccount,
		IGAccount:   input.IGAccount,
	}
	if patch.IsZero() {
		return profile, nil
	}

	updated, err := s.repo.Update(ctx, profile.UID, patch)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return updated, nil
}

// Subscription returns the read-only subscription view for the caller.
func (s *Service) Subscription(ctx context.Context, accessToken string) (SubscriptionInfo, error) {
	profile, err := s.CurrentUser(ctx, accessToken)
	if err != nil {
		return SubscriptionInfo{}, err
	}

	return SubscriptionInfo{
		Premium:               profile.Premium,
		SubscriptionPlan:      profile.SubscriptionPlan,
		SubscriptionStatus:    profile.SubscriptionStatus,
		SubscriptionStartedAt: profile.SubscriptionStartedAt,
		SubscriptionExpiresAt: profile.SubscriptionExpiresAt,
	}, nil
}

// ScheduleDeletion moves the caller's account to pending_deletion with a
// grace-period deadline. An active or trial subscription is marked cancelled,
// but premium access runs until the already-paid period ends; the billing
// EXPIRATION event clears it.
func (s *Service) ScheduleDeletion(ctx context.Context, accessToken string) (DeletionSchedule, error) {
	profile, err := s.CurrentUser(ctx, accessToken)
	if err != nil {
		return DeletionSchedule{}, err
	}

	if profile.AccountStatus == StatusPendingDeletion {
		scheduled := ""
		if profile.DeletionScheduledAt != nil {
			scheduled = profile.DeletionScheduledAt.Format(time.RFC3339)
		}
		return DeletionSchedule{}, fail(ErrBadRequest, "deletion already scheduled for "+scheduled)
	}

	now := s.now().UTC()
	deadline := now.Add(s.gracePeriod)
	pending := StatusPendingDeletion

	patch := ProfilePatch{
		AccountStatus:       &pending,
		DeletionRequestedAt: &now,
		DeletionScheduledAt: &deadline,
	}
	if profile.SubscriptionStatus == SubscriptionActive || profile.SubscriptionStatus == SubscriptionTrial {
		cancelled := SubscriptionCancelled
		patch.SubscriptionStatus = &cancelled
	}

	if _, err := s.repo.Update(ctx, profile.UID, patch); err != nil {
		return DeletionSchedule{}, fmt.Errorf("schedule deletion: %w", err)
	}

	return DeletionSchedule{
		UID:             profile.UID,
		RequestedAt:     now,
		ScheduledAt:     deadline,
		RecoveryContact: s.recoveryContact,
	}, nil
}

// PurgeExpiredDeletions hard-deletes every account whose grace period has
// elapsed: local row first, then the upstream identity. Failures are isolated
// per row and reported in the summary; the sweep itself never aborts.
func (s *Service) PurgeExpiredDeletions(ctx context.Context) (PurgeSummary, error) {
	now := s.now().UTC()

	due, err := s.repo.ListDueForDeletion(ctx, now)
	if err != nil {
		return PurgeSummary{}, fmt.Errorf("scan due deletions: %w", err)
	}

	summary := PurgeSummary{Deleted: []string{}, Failed: []string{}}
	if len(due) == 0 {
		return summary, nil
	}

	identities, err := s.provider.ListIdentities(ctx)
	if err != nil {
		s.logger.Warn("listing identities failed, purging local rows only", "error", err)
	}
	identityByEmail := make(map[string]string, len(identities))
	for _, ident := range identities {
		identityByEmail[normalizeEmail(ident.Email)] = ident.ID
	}

	for _, profile := range due {
		if err := s.purgeOne(ctx, profile, now, identityByEmail); err != nil {
			s.logger.Error("purge failed", "uid", profile.UID, "email", profile.Email, "error", err)
			summary.Failed = append(summary.Failed, profile.UID)
			continue
		}
		summary.Deleted = append(summary.Deleted, profile.UID)
	}

	s.notifyPurge(ctx, summary)
	return summary, nil
}

func (s *Service) purgeOne(ctx context.Context, profile UserProfile, now time.Time, identityByEmail map[string]string) error {
	// Re-check at delete time: a row picked by the scan must not be purged
	// if it changed state while the sweep was running.
	current, err := s.repo.GetByUID(ctx, profile.UID)
	if err != nil {
		return fmt.Errorf("re-check profile: %w", err)
	}
	if current == nil {
		return nil
	}
	if current.AccountStatus != StatusPendingDeletion {
		return nil
	}
	if current.DeletionScheduledAt == nil || current.DeletionScheduledAt.After(now) {
		return nil
	}

	if err := s.repo.Delete(ctx, profile.UID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete profile: %w", err)
	}

	if identityID, ok := identityByEmail[normalizeEmail(profile.Email)]; ok {
		if err := s.provider.DeleteIdentity(ctx, identityID); err != nil {
			return fmt.Errorf("delete upstream identity: %w", err)
		}
	}

	return nil
}

func (s *Service) notifyPurge(ctx context.Context, summary PurgeSummary) {
	if s.notifier == nil || len(summary.Deleted) == 0 {
		return
	}

	subject := fmt.Sprintf("Account deletion - %d accounts deleted", len(summary.Deleted))
	body := "The following accounts were permanently deleted:\n\n" + strings.Join(summary.Deleted, "\n")
	if len(summary.Failed) > 0 {
		body += "\n\nFailed to delete:\n" + strings.Join(summary.Failed, "\n")
	}

	if err := s.notifier.Send(ctx, subject, body); err != nil {
		s.logger.Warn("purge notification failed", "error", err)
	}
}

func (s *Service) authResponse(session identity.Session, profile UserProfile, isNew bool) AuthResponse {
	return AuthResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
		User: AuthUser{
			UID:         profile.UID,
			Email:       profile.Email,
			DisplayName: profile.DisplayName,
			Premium:     profile.Premium,
			IsNewUser:   isNew,
		},
	}
}

func (s *Service) translateSendError(err error, email string) error {
	if errors.Is(err, identity.ErrUnavailable) {
		return fail(ErrUpstream, "identity provider unavailable")
	}
	s.logger.Warn("otp send rejected", "email", email, "detail", err)
	return fail(ErrBadRequest, "failed to send verification code")
}

func (s *Service) translateVerifyError(err error, email string) error {
	if errors.Is(err, identity.ErrUnavailable) {
		return fail(ErrUpstream, "identity provider unavailable")
	}
	s.logger.Info("otp verification rejected", "email", email, "detail", err)
	return fail(ErrUnauthorized, "invalid or expired code")
}

// generateUID mints a provider-independent user id: dj_<date>_<random>.
func (s *Service) generateUID() string {
	date := s.now().UTC().Format("20060102")
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("dj_%s_%s", date, random)
}
