package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContextDiff/pkg/errors"
)

// HeaderAPISecret carries the shared API secret.
const HeaderAPISecret = "X-API-SECRET"

// AuthConfig configures RequireAccess.
type AuthConfig struct {
	// APISecret is the shared secret. Empty disables the check.
	APISecret string
	// AllowedOrigins are trusted front-ends admitted without the secret.
	AllowedOrigins []string
	// SkipPaths bypass the check.
	SkipPaths []string
}

// RequireAccess admits a request when no secret is configured, when the
// X-API-SECRET header matches, or when its Origin (falling back to Referer)
// is trusted. Everything else gets 403.
func RequireAccess(config AuthConfig, logger logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	skipSet := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skipSet[p] = true
	}
	origins := newOriginMatcher(config.AllowedOrigins)
	secret := []byte(config.APISecret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(secret) == 0 || skipSet[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(HeaderAPISecret)
			if provided != "" && subtle.ConstantTimeCompare([]byte(provided), secret) == 1 {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = r.Header.Get("Referer")
			}
			if origins.match(origin) {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("access denied",
				logging.String("path", r.URL.Path),
				logging.Bool("secret_present", provided != ""),
				logging.String("origin", origin),
				logging.String("client_ip", ClientIP(r)))
			writeError(w, errors.New(errors.ErrCodeForbidden,
				"access denied, a valid X-API-SECRET header or trusted origin is required"))
		})
	}
}

//Personal.AI order the ending
