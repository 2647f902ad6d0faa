package http

import (
	"net/http"

	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/ledtorch/deejiar/internal/account"
	"github.com/ledtorch/deejiar/internal/metrics"
)

// AuthHandler exposes the OTP authentication and account lifecycle endpoints.
type AuthHandler struct {
	svc      *account.Service
	validate *validator.Validate
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewAuthHandler creates a handler.
func NewAuthHandler(svc *account.Service, m *metrics.Metrics, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:      svc,
		validate: validator.New(),
		metrics:  m,
		logger:   logger,
	}
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyOtpRequest struct {
	Email string `json:"email" validate:"required,email"`
	Otp   string `json:"otp" validate:"required,min=4,max=10"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// SendRegistrationOtp starts the registration flow.
func (h *AuthHandler) SendRegistrationOtp(w http.ResponseWriter, r *http.Request) {
	var payload emailRequest
	if !h.decode(w, r, &payload) {
		return
	}

	err := h.svc.RequestRegistration(r.Context(), payload.Email)
	h.metrics.RecordOtpSend("registration", err == nil)
	if err != nil {
		writeAccountError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "registration code sent",
		"email":   payload.Email,
		"action":  "register",
	})
}

// VerifyRegistrationOtp completes registration and creates the profile.
func (h *AuthHandler) VerifyRegistrationOtp(w http.ResponseWriter, r *http.Request) {
	var payload verifyOtpRequest
	if !h.decode(w, r, &payload) {
		return
	}

	resp, err := h.svc.VerifyRegistration(r.Context(), payload.Email, payload.Otp)
	h.metrics.RecordOtpVerify("registration", err == nil)
	if err != nil {
		writeAccountError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// SendLoginOtp starts the login flow.
func (h *AuthHandler) SendLoginOtp(w http.ResponseWriter, r *http.Request) {
	var payload emailRequest
	if !h.decode(w, r, &payload) {
		return
	}

	err := h.svc.RequestLogin(r.Context(), payload.Email)
	h.metrics.RecordOtpSend("login", err == nil)
	if err != nil {
		writeAccountError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "login code sent",
		"email":   payload.Email,
		"action":  "login",
	})
}

// VerifyLoginOtp completes login and issues a session.
func (h *AuthHandler) VerifyLoginOtp(w http.ResponseWriter, r *http.Request) {
	var payload verifyOtpRequest
	if !h.decode(w, r, &payload) {
		return
	}

	resp, err := h.svc.VerifyLogin(r.Context(), payload.Email, payload.Otp)
	h.metrics.RecordOtpVerify("login", err == nil)
	if err != nil {
		writeAccountError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Refresh exchanges a refresh token for a new session.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload refreshRequest
	if !h.decode(w, r, &payload) {
		return
	}

	resp, err := h.svc.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		writeAccountError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Me returns the authenticated profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile := ProfileFromContext(r.Context())
	if profile == nil {
		unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type updateProfileRequest struct {
	DisplayName *string   `json:"display_name"`
	Language    *[]string `json:"language"`
	Age         *int      `json:"age" validate:"omitempty,gte=13,lte=120"`
	Gender      *string   `json:"gender" validate:"omitempty,oneof=male female other prefer_not_to_say"`
	XAccount    *string   `json:"x_account"`
	IGAccount   *string   `json:"ig_account"`
}

// UpdateMe patches the caller-editable profile fields.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var payload updateProfileRequest
	if !h.decode(w, r, &payload) {
		return
	}

	updated, err := h.svc.UpdateProfile(r.Context(), bearerToken(r), account.UpdateProfileInput{
		DisplayName: payload.DisplayName,
		Language:    payload.Language,
		Age:         payload.Age,
		Gender:      payload.Gender,
		XAccount:    payload.XAccount,
		IGAccount:   payload.IGAccount,
	})
	if err != nil {
		writeAccountError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Logout signs the session out, best-effort.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		unauthorized(w)
		return
	}

	h.svc.Logout(r.Context(), token)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// DeleteAccount schedules the caller's account for deletion.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.svc.ScheduleDeletion(r.Context(), bearerToken(r))
	if err != nil {
		writeAccountError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, schedule)
}

// SubscriptionStatus returns the read-only subscription view.
func (h *AuthHandler) SubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Subscription(r.Context(), bearerToken(r))
	if err != nil {
		writeAccountError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSONBody(w, r, dst); err != nil {
		writeDecodeError(w, err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}
