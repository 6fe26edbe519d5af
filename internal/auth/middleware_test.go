package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myshop/internal/models"
	"myshop/internal/session"
)

type revocationSet map[string]bool

func (r revocationSet) IsRevoked(ctx context.Context, id string) (bool, error) {
	return r[id], nil
}

type brokenRevocations struct{}

func (brokenRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

var grace = models.Principal{ID: "p-42", Email: "grace@example.com", DisplayName: "Grace"}

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)

	tok, err := issuer.Issue(grace)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.ID)

	p, claims, err := issuer.Parse(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, grace, p)
	assert.Equal(t, tok.ID, claims.ID)
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := issuer.Issue(grace)
	require.NoError(t, err)

	_, _, err = NewIssuer("test-secret", time.Minute).Parse(expired.Value)
	assert.Error(t, err)

	foreign, err := NewIssuer("other-secret", time.Hour).Issue(grace)
	require.NoError(t, err)
	_, _, err = NewIssuer("test-secret", time.Hour).Parse(foreign.Value)
	assert.Error(t, err)
}

func serveProtected(m *Middleware, header string) (*httptest.ResponseRecorder, *session.Session) {
	var seen *session.Session
	h := m.ValidateToken(func(w http.ResponseWriter, r *http.Request) {
		seen = session.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec, seen
}

func TestMiddleware(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)
	tok, err := issuer.Issue(grace)
	require.NoError(t, err)

	tests := []struct {
		name    string
		revoked Revocations
		header  string
		want    int
	}{
		{"missing header", nil, "", http.StatusUnauthorized},
		{"wrong scheme", nil, "Basic abc", http.StatusUnauthorized},
		{"garbage token", nil, "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid", nil, "Bearer " + tok.Value, http.StatusNoContent},
		{"valid, not revoked", revocationSet{}, "Bearer " + tok.Value, http.StatusNoContent},
		{"revoked", revocationSet{tok.ID: true}, "Bearer " + tok.Value, http.StatusUnauthorized},
		{"revocation check down", brokenRevocations{}, "Bearer " + tok.Value, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, sess := serveProtected(NewMiddleware(issuer, tt.revoked), tt.header)
			assert.Equal(t, tt.want, rec.Code)

			if tt.want == http.StatusNoContent {
				require.NotNil(t, sess)
				p, ok := sess.Principal()
				require.True(t, ok)
				assert.Equal(t, grace, p)
				assert.Equal(t, tok.ID, sess.TokenID())
			} else {
				assert.Nil(t, sess)
			}
		})
	}
}
