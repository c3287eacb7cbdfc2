package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agit8or1/passgate"
)

// maxBodyBytes caps request bodies. Auth payloads are a few hundred bytes;
// anything larger is not a legitimate client.
const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeLoginError maps engine login failures onto the wire. All credential
// rejections share one body; only rate limiting and the second-factor
// prompt are allowed to look different.
func (h *Handler) writeLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, passgate.ErrLoginRateLimited):
		writeError(w, http.StatusTooManyRequests, "Too many login attempts")
	case errors.Is(err, passgate.ErrTOTPInvalid), errors.Is(err, passgate.ErrBackupCodeInvalid):
		writeError(w, http.StatusUnauthorized, "Invalid 2FA code")
	case errors.Is(err, passgate.ErrInvalidCredentials),
		errors.Is(err, passgate.ErrUserNotFound),
		errors.Is(err, passgate.ErrAccountDisabled):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		h.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// writeTwoFactorError maps lifecycle failures onto the wire. Code
// rejections on lifecycle endpoints are client errors, not authentication
// failures: the caller already holds a valid session.
func (h *Handler) writeTwoFactorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, passgate.ErrTOTPInvalid):
		writeError(w, http.StatusBadRequest, "Invalid 2FA code")
	case errors.Is(err, passgate.ErrTOTPNotConfigured):
		writeError(w, http.StatusBadRequest, "2FA is not configured")
	case errors.Is(err, passgate.ErrUserNotFound), errors.Is(err, passgate.ErrAccountDisabled):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	default:
		h.logger.Error("two-factor operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
