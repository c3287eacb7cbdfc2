package middleware

import (
	"net/http"

	"github.com/agit8or1/passgate"
)

// Require returns middleware that admits any authenticated session,
// regardless of role.
func Require(engine *passgate.Engine) func(http.Handler) http.Handler {
	return Guard(engine, Options{})
}
