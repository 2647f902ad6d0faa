package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"log/slog"

	"github.com/ledtorch/deejiar/internal/account"
)

const maxJSONBodyBytes int64 = 1 << 20 // 1 MiB

var errPayloadTooLarge = errors.New("payload too large")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	limited := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	defer func() {
		_ = limited.Close()
	}()

	decoder := json.NewDecoder(limited)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w (max %d bytes)", errPayloadTooLarge, maxErr.Limit)
		}
		return err
	}
	return nil
}

func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errPayloadTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}
	// Generic message to avoid leaking JSON parsing internals
	writeError(w, http.StatusBadRequest, "invalid request body")
}

// writeAccountError maps the lifecycle taxonomy to HTTP status codes. The
// provider's native errors never reach this point.
func writeAccountError(w http.ResponseWriter, err error, logger *slog.Logger) {
	switch {
	case errors.Is(err, account.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, account.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, account.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, account.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, account.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrUpstream):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error("unexpected service error", "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected error")
	}
}
