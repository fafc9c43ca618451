package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shopfront/apiserver/internal/services"
)

const msgTokenFailed = "not authorized, token failed"

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier interface {
	Subject(token string) (string, error)
}

// RequireAuth enforces bearer authentication and puts the caller into the
// request context.
func RequireAuth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, msgTokenFailed)
				return
			}

			subject, err := tokens.Subject(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, msgTokenFailed)
				return
			}

			ctx := withCaller(r.Context(), services.Caller{ID: subject})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
