// Package httpapi exposes the engine's login and two-factor lifecycle as a
// JSON wire surface. Handler errors are {"error": "..."} bodies whose
// message never discloses more than the status code already does; the
// session guard answers unauthenticated requests with a bare 401.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/agit8or1/passgate"
	"github.com/agit8or1/passgate/middleware"
)

// Handler routes the wire surface:
//
//	POST /login              credentials (+ optional second-factor code)
//	GET  /session/validate   token liveness probe
//	GET  /2fa/status         enrollment state
//	POST /2fa/setup          mint a pending secret
//	POST /2fa/verify         confirm setup, first enable returns backup codes
//	POST /2fa/enable         re-enable with an existing secret
//	POST /2fa/disable        tear down enrollment
//
// Everything below /login sits behind the session guard.
type Handler struct {
	engine *passgate.Engine
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewHandler wires the routes. A nil logger falls back to slog.Default().
func NewHandler(engine *passgate.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{engine: engine, logger: logger, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /login", h.handleLogin)

	guard := middleware.Require(engine)
	h.mux.Handle("GET /session/validate", guard(http.HandlerFunc(h.handleSessionValidate)))
	h.mux.Handle("GET /2fa/status", guard(http.HandlerFunc(h.handleTwoFactorStatus)))
	h.mux.Handle("POST /2fa/setup", guard(http.HandlerFunc(h.handleTwoFactorSetup)))
	h.mux.Handle("POST /2fa/verify", guard(http.HandlerFunc(h.handleTwoFactorVerify)))
	h.mux.Handle("POST /2fa/enable", guard(http.HandlerFunc(h.handleTwoFactorEnable)))
	h.mux.Handle("POST /2fa/disable", guard(http.HandlerFunc(h.handleTwoFactorDisable)))

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleSessionValidate(w http.ResponseWriter, r *http.Request) {
	// The guard already proved the token; reaching here is the answer.
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}
