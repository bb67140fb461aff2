package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/code-runner/internal/middleware"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. A plain string key could be
// read or shadowed by any package that knows the string. Only this package
// can create a key of type contextKey.
type contextKey string

const subjectKey contextKey = "subject"

// CookieName is the cookie a browser playground may carry the token in.
const CookieName = "token"

// RequireAuth is a middleware that rejects requests without a valid token.
//
// The token is read from "Authorization: Bearer <jwt>" (service callers)
// or from the "token" cookie (a browser front end). On success the
// subject is stored in the request context and on the request log line;
// otherwise the chain stops with 401 Unauthorized.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := extractSubject(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="code-runner"`)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"success":false,"error":"unauthorized","message":"valid authentication required"}`))
				return
			}

			middleware.SetSubject(r.Context(), subject)
			ctx := context.WithValue(r.Context(), subjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth records the caller if a valid token is present but never
// blocks the request. Public routes (languages, health) use it so the
// request log line still names known callers.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subject, err := extractSubject(r, tokens); err == nil {
				middleware.SetSubject(r.Context(), subject)
				r = r.WithContext(context.WithValue(r.Context(), subjectKey, subject))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SubjectFromContext returns the authenticated caller, or ("", false) for
// anonymous requests.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey).(string)
	return s, ok && s != ""
}

// extractSubject prefers the Authorization header over the cookie.
func extractSubject(r *http.Request, tokens *TokenService) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return tokens.Validate(strings.TrimSpace(token))
		}
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil {
		// http.ErrNoCookie: anonymous
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
