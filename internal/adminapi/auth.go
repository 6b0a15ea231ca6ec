package adminapi

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ryxu-xo/euralink/logger"
)

// adminClaims is the shape of the static ops token: no user identity, just
// a role and an expiry, signed with the configured shared secret.
type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// bearerAuthMiddleware rejects requests whose Authorization header is not
// "Bearer <token>" for a token signed with secret and carrying role=admin.
func bearerAuthMiddleware(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "missing or malformed Authorization header")
				return
			}

			claims := &adminClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return key, nil
			})
			if err != nil || !token.Valid || claims.Role != "admin" {
				logger.Warn("adminapi: rejected request", logger.String("path", r.URL.Path), logger.ErrorField(err))
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
