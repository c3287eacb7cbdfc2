package middleware

import (
	"net/http"

	"github.com/agit8or1/passgate"
)

// RequireElevated returns middleware that admits only sessions whose role
// claim is elevated. Valid sessions without the role receive 403.
func RequireElevated(engine *passgate.Engine) func(http.Handler) http.Handler {
	return Guard(engine, Options{RequireElevated: true})
}
