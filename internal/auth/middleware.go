package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"myshop/internal/session"
)

// Revocations reports token ids that were signed out before expiry.
type Revocations interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Middleware struct {
	issuer  *Issuer
	revoked Revocations
}

// NewMiddleware builds the bearer-token check. revoked may be nil when no
// revocation list is available.
func NewMiddleware(issuer *Issuer, revoked Revocations) *Middleware {
	return &Middleware{
		issuer:  issuer,
		revoked: revoked,
	}
}

func (m *Middleware) ValidateToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		principal, claims, err := m.issuer.Parse(parts[1])
		if err != nil {
			slog.Warn("Invalid token attempt", "error", err)
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		if m.revoked != nil {
			revoked, err := m.revoked.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				slog.Error("Revocation check failed", "error", err)
				http.Error(w, "Session check unavailable", http.StatusServiceUnavailable)
				return
			}
			if revoked {
				http.Error(w, "Session has been signed out", http.StatusUnauthorized)
				return
			}
		}

		sess := session.ForPrincipal(principal, claims.ID)
		next(w, r.WithContext(session.WithSession(r.Context(), sess)))
	}
}
