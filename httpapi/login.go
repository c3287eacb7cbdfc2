package httpapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/agit8or1/passgate"
)

type loginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	TOTPToken string `json:"totpToken"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  wireUser `json:"user"`
}

type wireUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	TOTPEnabled bool   `json:"totpEnabled"`
	LastLogin   string `json:"lastLogin,omitempty"`
}

func wireUserFrom(info passgate.AccountInfo) wireUser {
	u := wireUser{
		ID:          info.ID,
		Username:    info.Username,
		Role:        info.Role,
		TOTPEnabled: info.TOTPEnabled,
	}
	if !info.LastLogin.IsZero() {
		u.LastLogin = info.LastLogin.UTC().Format(time.RFC3339)
	}
	return u
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	ctx := requestContext(r)

	var (
		result *passgate.LoginResult
		err    error
	)
	if req.TOTPToken == "" {
		result, err = h.engine.Login(ctx, req.Username, req.Password)
	} else {
		result, err = h.engine.LoginWithCode(ctx, req.Username, req.Password, req.TOTPToken)
	}
	if err != nil {
		h.writeLoginError(w, err)
		return
	}

	if result.TwoFactorRequired {
		writeJSON(w, http.StatusOK, map[string]bool{"requires2FA": true})
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token: result.Token,
		User:  wireUserFrom(result.Account),
	})
}

// requestContext tags the request context with the client address so the
// engine's per-IP throttle sees it.
func requestContext(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return passgate.WithClientIP(r.Context(), host)
}
