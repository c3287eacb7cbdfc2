package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/agit8or1/passgate"
	"github.com/agit8or1/passgate/jwt"
)

type sessionClaimsContextKey struct{}

// ClaimsFromContext returns the session claims Guard attached after a
// successful validation.
func ClaimsFromContext(ctx context.Context) (*jwt.SessionClaims, bool) {
	claims, ok := ctx.Value(sessionClaimsContextKey{}).(*jwt.SessionClaims)
	return claims, ok
}

// Options selects what Guard enforces beyond token validity.
type Options struct {
	// RequireElevated rejects authenticated requests whose role claim is
	// not elevated. The rejection is 403, never 401: the caller proved who
	// they are, they just lack the role.
	RequireElevated bool
}

// Guard returns middleware that authenticates each request before the
// wrapped handler runs. The token comes from the Authorization header
// (Bearer scheme) or, when the header is absent, from the token query
// parameter so that links which cannot set headers still work. Missing
// and invalid tokens produce byte-identical 401 responses; the reason a
// token was rejected only ever appears in server-side logs.
func Guard(engine *passgate.Engine, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				reject(w)
				return
			}

			token, ok := requestToken(r)
			if !ok {
				reject(w)
				return
			}

			claims, err := engine.ValidateToken(token)
			if err != nil {
				reject(w)
				return
			}

			if opts.RequireElevated && !claims.Elevated() {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), sessionClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(w http.ResponseWriter) {
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// requestToken extracts the session token. The Authorization header wins
// when both carriers are present.
func requestToken(r *http.Request) (string, bool) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token, true
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
