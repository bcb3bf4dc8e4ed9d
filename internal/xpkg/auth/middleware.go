package auth

import (
	"context"
	"net/http"
	"strings"

	"quiklii/internal/xpkg/errs"

	"github.com/go-chi/render"
)

type contextKey struct{}

// FromContext returns the claims placed by Middleware. The second value is
// false only when the handler is reachable without the middleware.
func FromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(Claims)
	return claims, ok
}

// Middleware validates the bearer token and attaches the caller's claims.
func Middleware(validator Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				unauthorized(w, r, "missing bearer token")
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				unauthorized(w, r, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, claims)))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]string{
		"error":   string(errs.KindAuthentication),
		"message": message,
	})
}
