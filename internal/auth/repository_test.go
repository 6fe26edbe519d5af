package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"myshop/internal/apperr"
	"myshop/internal/config"
	"myshop/internal/models"
	"myshop/internal/session"
	"myshop/internal/store"
)

type captureMailer struct {
	email, token string
	err          error
}

func (m *captureMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.email, m.token = email, token
	return m.err
}

func newSQLiteBackend(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, config.DriverSQLite, ":memory:", store.WithHashCost(bcrypt.MinCost))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var ada = models.UserProfile{Name: "Ada", Phone: "555-0100", Address: "12 St James's Square", Email: "ada@example.com"}

func TestSignupLoginAndProfileRoundTrip(t *testing.T) {
	repo := NewRepository(newSQLiteBackend(t), nil, time.Hour)
	ctx := context.Background()

	signupSession := session.New()
	require.True(t, repo.Signup(ctx, signupSession, ada, "secret1").IsSuccess())
	assert.True(t, signupSession.Authenticated(), "signup signs the session in")

	sess := session.New()
	principal, ok := repo.Login(ctx, sess, "ada@example.com", "secret1").Value()
	require.True(t, ok)
	assert.Equal(t, "Ada", principal.DisplayName)

	profile, ok := repo.RetrieveProfile(ctx, sess).Value()
	require.True(t, ok)
	assert.Equal(t, ada, profile)

	updated := ada
	updated.Name = "Ada Lovelace"
	updated.Phone = ""
	require.True(t, repo.UpdateProfile(ctx, sess, updated).IsSuccess())

	profile, ok = repo.RetrieveProfile(ctx, sess).Value()
	require.True(t, ok)
	assert.Equal(t, updated, profile)

	p, _ := sess.Principal()
	assert.Equal(t, "Ada Lovelace", p.DisplayName)
}

func TestRetrieveProfileFailures(t *testing.T) {
	backend := newSQLiteBackend(t)
	repo := NewRepository(backend, nil, time.Hour)
	ctx := context.Background()

	r := repo.RetrieveProfile(ctx, session.New())
	assert.ErrorIs(t, r.Err(), apperr.ErrNotAuthenticated)

	p, err := backend.CreatePrincipal(ctx, "nodoc@example.com", "secret1", "")
	require.NoError(t, err)

	sess := session.New()
	sess.SetPrincipal(p)
	r = repo.RetrieveProfile(ctx, sess)
	assert.ErrorIs(t, r.Err(), apperr.ErrNotFound)
}

func TestLoginFailures(t *testing.T) {
	repo := NewRepository(newSQLiteBackend(t), nil, time.Hour)
	ctx := context.Background()
	require.True(t, repo.Signup(ctx, session.New(), ada, "secret1").IsSuccess())

	sess := session.New()
	r := repo.Login(ctx, sess, "ada@example.com", "nope-nope")
	assert.ErrorIs(t, r.Err(), apperr.ErrNotAuthenticated)
	assert.False(t, sess.Authenticated())

	r = repo.Login(ctx, sess, "", "")
	assert.ErrorIs(t, r.Err(), apperr.ErrInvalidArgument)
}

func TestSignupDuplicateEmail(t *testing.T) {
	repo := NewRepository(newSQLiteBackend(t), nil, time.Hour)
	ctx := context.Background()

	require.True(t, repo.Signup(ctx, session.New(), ada, "secret1").IsSuccess())
	r := repo.Signup(ctx, session.New(), ada, "secret2")
	assert.ErrorIs(t, r.Err(), apperr.ErrConflict)
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	repo := NewRepository(newSQLiteBackend(t), nil, time.Hour)

	r := repo.UpdateProfile(context.Background(), session.New(), ada)
	require.True(t, r.IsFailure())
	assert.ErrorIs(t, r.Err(), apperr.ErrNotAuthenticated)
}

type failingDocuments struct {
	*store.Store
}

func (failingDocuments) PutProfile(context.Context, string, models.UserProfile) error {
	return errors.New("document store unavailable")
}

func TestSignupKeepsPrincipalWhenDocumentWriteFails(t *testing.T) {
	backend := newSQLiteBackend(t)
	repo := NewRepository(failingDocuments{backend}, nil, time.Hour)
	ctx := context.Background()

	r := repo.Signup(ctx, session.New(), ada, "secret1")
	require.True(t, r.IsFailure())
	assert.ErrorIs(t, r.Err(), apperr.ErrUnknown)

	_, err := backend.Authenticate(ctx, "ada@example.com", "secret1")
	assert.NoError(t, err, "the principal write is not rolled back")
}

func TestUpdateProfileFailureIsReturnedNotRaised(t *testing.T) {
	backend := newSQLiteBackend(t)
	p, err := backend.CreatePrincipal(context.Background(), "ada@example.com", "secret1", "Ada")
	require.NoError(t, err)

	repo := NewRepository(failingDocuments{backend}, nil, time.Hour)
	sess := session.ForPrincipal(p, "")

	r := repo.UpdateProfile(context.Background(), sess, ada)
	assert.True(t, r.IsFailure())
}

func TestPasswordResetFlow(t *testing.T) {
	mailer := &captureMailer{}
	repo := NewRepository(newSQLiteBackend(t), mailer, time.Hour)
	ctx := context.Background()
	require.True(t, repo.Signup(ctx, session.New(), ada, "secret1").IsSuccess())

	msg, ok := repo.RequestPasswordReset(ctx, "ada@example.com").Value()
	require.True(t, ok)
	assert.Equal(t, "Password reset email sent successfully", msg)
	assert.Equal(t, "ada@example.com", mailer.email)
	require.NotEmpty(t, mailer.token)

	require.True(t, repo.ConfirmPasswordReset(ctx, mailer.token, "brand-new").IsSuccess())
	assert.True(t, repo.Login(ctx, session.New(), "ada@example.com", "brand-new").IsSuccess())

	r := repo.RequestPasswordReset(ctx, "ghost@example.com")
	assert.ErrorIs(t, r.Err(), apperr.ErrNotFound)
}

func TestPasswordResetMailerFailure(t *testing.T) {
	mailer := &captureMailer{err: errors.New("smtp down")}
	repo := NewRepository(newSQLiteBackend(t), mailer, time.Hour)
	ctx := context.Background()
	require.True(t, repo.Signup(ctx, session.New(), ada, "secret1").IsSuccess())

	r := repo.RequestPasswordReset(ctx, "ada@example.com")
	assert.ErrorIs(t, r.Err(), apperr.ErrTransport)
}

func TestLogoutClearsSession(t *testing.T) {
	repo := NewRepository(newSQLiteBackend(t), nil, time.Hour)
	sess := session.ForPrincipal(models.Principal{ID: "p1"}, "")

	repo.Logout(sess)
	assert.False(t, sess.Authenticated())
}
