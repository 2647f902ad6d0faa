package http

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/ledtorch/deejiar/internal/account"
	"github.com/ledtorch/deejiar/internal/mapdata"
	"github.com/ledtorch/deejiar/internal/metrics"
)

// AdminHandler exposes the dashboard surface: login, the deletion purge
// trigger and the map-JSON editor.
type AdminHandler struct {
	username string
	password string
	secret   string
	svc      *account.Service
	store    *mapdata.Store
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewAdminHandler creates a handler wired with the configured credentials.
func NewAdminHandler(username, password, secret string, svc *account.Service, store *mapdata.Store, m *metrics.Metrics, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		username: username,
		password: password,
		secret:   secret,
		svc:      svc,
		store:    store,
		metrics:  m,
		logger:   logger,
	}
}

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login validates admin credentials and issues a short-lived JWT.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.username == "" || h.password == "" {
		writeError(w, http.StatusBadRequest, "admin login is disabled")
		return
	}

	var payload adminLoginRequest
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeDecodeError(w, err)
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(payload.Username), []byte(h.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(payload.Password), []byte(h.password)) == 1
	if !userOK || !passOK {
		writeError(w, http.StatusUnauthorized, "invalid admin credentials")
		return
	}

	token, err := issueAdminToken(h.secret, payload.Username)
	if err != nil {
		h.logger.Error("admin token issuance failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token": token,
		"role":  "admin",
	})
}

// Purge runs the deletion sweep. Invoked by an external scheduler or an
// operator; safe to run concurrently with normal traffic.
func (h *AdminHandler) Purge(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.PurgeExpiredDeletions(r.Context())
	if err != nil {
		writeAccountError(w, err, h.logger)
		return
	}

	h.metrics.RecordPurge(len(summary.Deleted), len(summary.Failed))
	h.logger.Info("purge sweep finished", "deleted", len(summary.Deleted), "failed", len(summary.Failed))
	writeJSON(w, http.StatusOK, summary)
}

// ListFiles enumerates the editable map JSON files.
func (h *AdminHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.List()
	if err != nil {
		h.logger.Error("listing map files failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list files")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"files": names})
}

// GetFile returns one map JSON file for editing.
func (h *AdminHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	data, err := h.store.File(name)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// SaveFile replaces one map JSON file and invalidates its cache.
func (h *AdminHandler) SaveFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	limited := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	defer func() { _ = limited.Close() }()

	data, err := io.ReadAll(limited)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if err := h.store.Save(name, data); err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.logger.Info("map file updated", "file", name)
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "file updated",
		"filename": name,
	})
}

func (h *AdminHandler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mapdata.ErrInvalidName), errors.Is(err, mapdata.ErrInvalidJSON):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, mapdata.ErrNotFound):
		writeError(w, http.StatusNotFound, "file not found")
	default:
		h.logger.Error("map data error", "error", err)
		writeError(w, http.StatusInternalServerError, "map data unavailable")
	}
}
