package httpapi

import (
	"net/http"

	"github.com/agit8or1/passgate/jwt"
	"github.com/agit8or1/passgate/middleware"
)

// codeRequest is the shared body of /2fa/verify, /2fa/enable and
// /2fa/disable. The field is named token on the wire for historical
// client compatibility; it carries a TOTP code, never a session token.
type codeRequest struct {
	Token string `json:"token"`
}

type twoFactorSetupResponse struct {
	Secret string `json:"secret"`
	QRCode string `json:"qrCode"`
}

type twoFactorResult struct {
	Success     bool     `json:"success"`
	BackupCodes []string `json:"backupCodes,omitempty"`
}

// sessionClaims pulls the guard-attached claims. The guard rejects
// unauthenticated requests before any of these handlers run, so a miss
// here means the handler was mounted without it.
func (h *Handler) sessionClaims(w http.ResponseWriter, r *http.Request) (*jwt.SessionClaims, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return claims, true
}

func (h *Handler) decodeCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req codeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return "", false
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "2FA code is required")
		return "", false
	}
	return req.Token, true
}

func (h *Handler) handleTwoFactorStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.sessionClaims(w, r)
	if !ok {
		return
	}

	enabled, err := h.engine.TOTPStatus(r.Context(), claims.UID)
	if err != nil {
		h.writeTwoFactorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

func (h *Handler) handleTwoFactorSetup(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.sessionClaims(w, r)
	if !ok {
		return
	}

	setup, err := h.engine.GenerateTOTPSetup(r.Context(), claims.UID)
	if err != nil {
		h.writeTwoFactorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, twoFactorSetupResponse{
		Secret: setup.SecretBase32,
		QRCode: setup.QRCodeURL,
	})
}

func (h *Handler) handleTwoFactorVerify(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.sessionClaims(w, r)
	if !ok {
		return
	}
	code, ok := h.decodeCode(w, r)
	if !ok {
		return
	}

	backupCodes, err := h.engine.ConfirmTOTPSetup(r.Context(), claims.UID, code)
	if err != nil {
		h.writeTwoFactorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, twoFactorResult{Success: true, BackupCodes: backupCodes})
}

func (h *Handler) handleTwoFactorEnable(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.sessionClaims(w, r)
	if !ok {
		return
	}
	code, ok := h.decodeCode(w, r)
	if !ok {
		return
	}

	if err := h.engine.EnableTOTP(r.Context(), claims.UID, code); err != nil {
		h.writeTwoFactorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, twoFactorResult{Success: true})
}

func (h *Handler) handleTwoFactorDisable(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.sessionClaims(w, r)
	if !ok {
		return
	}
	code, ok := h.decodeCode(w, r)
	if !ok {
		return
	}

	if err := h.engine.DisableTOTP(r.Context(), claims.UID, code); err != nil {
		h.writeTwoFactorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, twoFactorResult{Success: true})
}
