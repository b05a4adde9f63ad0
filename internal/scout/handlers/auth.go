package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// sharedSecretMiddleware guards admin endpoints with a bearer shared secret.
// An empty secret disables the guard entirely.
func sharedSecretMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, err := extractTokenFromHeader(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractTokenFromHeader(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errAuthHeaderRequired
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" || token == authHeader {
		return "", errAuthFormatInvalid
	}
	return token, nil
}

var (
	errAuthHeaderRequired = &authError{"authorization header required"}
	errAuthFormatInvalid  = &authError{"invalid authorization format"}
)

type authError struct{ msg string }

func (e *authError) Error() string { return e.msg }
