package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/idtoken"
)

// IdentityVerifier resolves a bearer token to an internal user id.
type IdentityVerifier interface {
	Verify(ctx context.Context, bearerToken string) (userID string, err error)
}

// GoogleIDTokenVerifier validates Google-issued ID tokens and uses the
// token's stable subject as the user id.
type GoogleIDTokenVerifier struct {
	audience string
}

// NewGoogleIDTokenVerifier creates a verifier bound to the given audience,
// typically the OAuth client id.
func NewGoogleIDTokenVerifier(audience string) *GoogleIDTokenVerifier {
	return &GoogleIDTokenVerifier{audience: audience}
}

// Verify validates the token signature, expiry and audience.
func (v *GoogleIDTokenVerifier) Verify(ctx context.Context, bearerToken string) (string, error) {
	payload, err := idtoken.Validate(ctx, bearerToken, v.audience)
	if err != nil {
		return "", fmt.Errorf("failed to validate identity token: %w", err)
	}
	if payload.Subject == "" {
		return "", fmt.Errorf("identity token has no subject")
	}
	return payload.Subject, nil
}

type contextKey string

const userIDKey contextKey = "user_id"

// userIDFrom returns the authenticated user id stored by requireAuth.
func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// requireAuth wraps a handler with bearer-token authentication.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		userID, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			s.logger.Debug("identity verification failed", "error", err.Error())
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	}
}
