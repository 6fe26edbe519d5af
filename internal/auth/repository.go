package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"myshop/internal/apperr"
	"myshop/internal/models"
	"myshop/internal/resource"
	"myshop/internal/session"
	"myshop/internal/telemetry"
)

const passwordResetSent = "Password reset email sent successfully"

// Backend is the identity provider plus the profile document store.
type Backend interface {
	CreatePrincipal(ctx context.Context, email, password, displayName string) (models.Principal, error)
	Authenticate(ctx context.Context, email, password string) (models.Principal, error)
	SetDisplayName(ctx context.Context, principalID, name string) error
	GetProfile(ctx context.Context, principalID string) (models.UserProfile, error)
	PutProfile(ctx context.Context, principalID string, p models.UserProfile) error
	CreateResetToken(ctx context.Context, email string, ttl time.Duration) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer hands reset tokens to the log instead of an email transport.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	slog.Info("Password reset requested", "email", email, "token", token)
	return nil
}

// Repository is the auth/profile repository. Every operation returns a
// Result; none of them lets an error escape.
//
// Signup and UpdateProfile are two writes each (principal, then profile
// document) with no compensation: if the second write fails the first one
// stays, and the caller sees Failure.
type Repository struct {
	backend  Backend
	mailer   Mailer
	resetTTL time.Duration
}

func NewRepository(backend Backend, mailer Mailer, resetTTL time.Duration) *Repository {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &Repository{backend: backend, mailer: mailer, resetTTL: resetTTL}
}

func (r *Repository) Login(ctx context.Context, sess *session.Session, email, password string) resource.Result[models.Principal] {
	if strings.TrimSpace(email) == "" || password == "" {
		return done("auth.login", resource.Failure[models.Principal](apperr.New(apperr.KindInvalidArgument, "email and password are required")))
	}

	p, err := r.backend.Authenticate(ctx, email, password)
	if err != nil {
		return done("auth.login", resource.Failure[models.Principal](err))
	}

	sess.SetPrincipal(p)
	return done("auth.login", resource.Success(p))
}

func (r *Repository) Signup(ctx context.Context, sess *session.Session, profile models.UserProfile, password string) resource.Result[resource.Unit] {
	p, err := r.backend.CreatePrincipal(ctx, profile.Email, password, profile.Name)
	if err != nil {
		return done("auth.signup", resource.Failure[resource.Unit](err))
	}
	sess.SetPrincipal(p)

	if err := r.backend.PutProfile(ctx, p.ID, profile); err != nil {
		slog.Warn("Principal created without profile document", "user_id", p.ID, "error", err)
		return done("auth.signup", resource.Failure[resource.Unit](err))
	}
	return done("auth.signup", resource.Success(resource.Unit{}))
}

func (r *Repository) RetrieveProfile(ctx context.Context, sess *session.Session) resource.Result[models.UserProfile] {
	p, ok := sess.Principal()
	if !ok {
		return done("auth.retrieve_profile", resource.Failure[models.UserProfile](apperr.New(apperr.KindNotAuthenticated, "user not logged in")))
	}

	profile, err := r.backend.GetProfile(ctx, p.ID)
	return done("auth.retrieve_profile", resource.FromPair(profile, err))
}

func (r *Repository) UpdateProfile(ctx context.Context, sess *session.Session, profile models.UserProfile) resource.Result[resource.Unit] {
	p, ok := sess.Principal()
	if !ok {
		return done("auth.update_profile", resource.Failure[resource.Unit](apperr.New(apperr.KindNotAuthenticated, "user not logged in")))
	}

	if err := r.backend.SetDisplayName(ctx, p.ID, profile.Name); err != nil {
		return done("auth.update_profile", resource.Failure[resource.Unit](err))
	}
	p.DisplayName = profile.Name
	sess.SetPrincipal(p)

	if err := r.backend.PutProfile(ctx, p.ID, profile); err != nil {
		return done("auth.update_profile", resource.Failure[resource.Unit](err))
	}
	return done("auth.update_profile", resource.Success(resource.Unit{}))
}

func (r *Repository) RequestPasswordReset(ctx context.Context, email string) resource.Result[string] {
	token, err := r.backend.CreateResetToken(ctx, email, r.resetTTL)
	if err != nil {
		return done("auth.request_password_reset", resource.Failure[string](err))
	}

	if err := r.mailer.SendPasswordReset(ctx, email, token); err != nil {
		return done("auth.request_password_reset", resource.Failure[string](apperr.Wrap(apperr.KindTransport, err, "send password reset email")))
	}
	return done("auth.request_password_reset", resource.Success(passwordResetSent))
}

func (r *Repository) ConfirmPasswordReset(ctx context.Context, token, newPassword string) resource.Result[resource.Unit] {
	err := r.backend.ResetPassword(ctx, token, newPassword)
	return done("auth.confirm_password_reset", resource.FromPair(resource.Unit{}, err))
}

// Logout signs the session out. It cannot fail.
func (r *Repository) Logout(sess *session.Session) {
	sess.Clear()
	telemetry.ObserveResult("auth.logout", resource.StateSuccess.String())
}

func done[T any](op string, r resource.Result[T]) resource.Result[T] {
	if err := r.Err(); err != nil {
		classified := apperr.Classify(err)
		slog.Error("Auth operation failed", "operation", op, "kind", classified.Kind, "error", err)
		r = resource.Failure[T](classified)
	}
	telemetry.ObserveResult(op, r.State().String())
	return r
}
