package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"myshop/internal/apperr"
)

type resetRow struct {
	PrincipalID string `db:"principal_id"`
	ExpiresAt   int64  `db:"expires_at"`
}

// CreateResetToken issues a single-use password-reset token for email.
func (s *Store) CreateResetToken(ctx context.Context, email string, ttl time.Duration) (string, error) {
	row, err := s.principalBy(ctx, goqu.Ex{colEmail: normalizeEmail(email)})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", apperr.New(apperr.KindNotFound, "no user with this email address")
		}
		return "", err
	}

	token := uuid.NewString()
	query, args, err := s.dialect.Insert(tablePasswordResets).
		Rows(goqu.Record{
			colToken:       token,
			colPrincipalID: row.ID,
			colExpiresAt:   s.now().Add(ttl).Unix(),
		}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnknown, err, "build insert reset query")
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", dbError(err, "insert reset token")
	}
	return token, nil
}

// ResetPassword consumes token and sets a new password for its principal.
// Unknown, used and expired tokens are all reported as not found.
func (s *Store) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperr.Newf(apperr.KindInvalidArgument, "password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidArgument, err, "hash password")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return dbError(err, "begin password reset")
	}
	defer func() { _ = tx.Rollback() }()

	selectQuery, args, err := s.dialect.From(tablePasswordResets).
		Select(colPrincipalID, colExpiresAt).
		Where(goqu.Ex{colToken: token}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperr.Wrap(apperr.KindUnknown, err, "build select reset query")
	}

	var reset resetRow
	if err := tx.GetContext(ctx, &reset, selectQuery, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.KindNotFound, "reset token is invalid or expired")
		}
		return dbError(err, "select reset token")
	}

	deleteQuery, args, err := s.dialect.Delete(tablePasswordResets).
		Where(goqu.Ex{colToken: token}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperr.Wrap(apperr.KindUnknown, err, "build delete reset query")
	}
	if _, err := tx.ExecContext(ctx, deleteQuery, args...); err != nil {
		return dbError(err, "delete reset token")
	}

	if s.now().Unix() > reset.ExpiresAt {
		if err := tx.Commit(); err != nil {
			return dbError(err, "commit password reset")
		}
		return apperr.New(apperr.KindNotFound, "reset token is invalid or expired")
	}

	updateQuery, args, err := s.dialect.Update(tablePrincipals).
		Set(goqu.Record{colPasswordHash: string(hash)}).
		Where(goqu.Ex{colID: reset.PrincipalID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperr.Wrap(apperr.KindUnknown, err, "build update password query")
	}
	if _, err := tx.ExecContext(ctx, updateQuery, args...); err != nil {
		return dbError(err, "update password")
	}

	if err := tx.Commit(); err != nil {
		return dbError(err, "commit password reset")
	}
	return nil
}
