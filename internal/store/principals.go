package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"myshop/internal/apperr"
	"myshop/internal/models"
)

type principalRow struct {
	ID           string `db:"id"`
	Email        string `db:"email"`
	DisplayName  string `db:"display_name"`
	PasswordHash string `db:"password_hash"`
}

func (r principalRow) principal() models.Principal {
	return models.Principal{ID: r.ID, Email: r.Email, DisplayName: r.DisplayName}
}

// CreatePrincipal registers a new credential pair. The email must be unused.
func (s *Store) CreatePrincipal(ctx context.Context, email, password, displayName string) (models.Principal, error) {
	email = normalizeEmail(email)
	if email == "" {
		return models.Principal{}, apperr.New(apperr.KindInvalidArgument, "email is required")
	}
	if len(password) < minPasswordLength {
		return models.Principal{}, apperr.Newf(apperr.KindInvalidArgument, "password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return models.Principal{}, apperr.Wrap(apperr.KindInvalidArgument, err, "hash password")
	}

	p := models.Principal{ID: uuid.NewString(), Email: email, DisplayName: displayName}

	query, args, err := s.dialect.Insert(tablePrincipals).
		Rows(goqu.Record{
			colID:           p.ID,
			colEmail:        p.Email,
			colDisplayName:  p.DisplayName,
			colPasswordHash: string(hash),
			colCreatedAt:    s.now().Unix(),
		}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return models.Principal{}, apperr.Wrap(apperr.KindUnknown, err, "build insert principal query")
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return models.Principal{}, apperr.New(apperr.KindConflict, "email address is already in use")
		}
		return models.Principal{}, dbError(err, "insert principal")
	}
	return p, nil
}

// Authenticate checks the credential pair. Unknown email and wrong password
// are reported identically.
func (s *Store) Authenticate(ctx context.Context, email, password string) (models.Principal, error) {
	row, err := s.principalBy(ctx, goqu.Ex{colEmail: normalizeEmail(email)})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.Principal{}, apperr.New(apperr.KindNotAuthenticated, "invalid email or password")
		}
		return models.Principal{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return models.Principal{}, apperr.New(apperr.KindNotAuthenticated, "invalid email or password")
	}
	return row.principal(), nil
}

func (s *Store) PrincipalByID(ctx context.Context, id string) (models.Principal, error) {
	row, err := s.principalBy(ctx, goqu.Ex{colID: id})
	if err != nil {
		return models.Principal{}, err
	}
	return row.principal(), nil
}

func (s *Store) SetDisplayName(ctx context.Context, id, name string) error {
	query, args, err := s.dialect.Update(tablePrincipals).
		Set(goqu.Record{colDisplayName: name}).
		Where(goqu.Ex{colID: id}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperr.Wrap(apperr.KindUnknown, err, "build update principal query")
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return dbError(err, "update display name")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.New(apperr.KindNotFound, "principal not found")
	}
	return nil
}

func (s *Store) principalBy(ctx context.Context, where goqu.Ex) (principalRow, error) {
	query, args, err := s.dialect.From(tablePrincipals).
		Select(colID, colEmail, colDisplayName, colPasswordHash).
		Where(where).
		Prepared(true).
		ToSQL()
	if err != nil {
		return principalRow{}, apperr.Wrap(apperr.KindUnknown, err, "build select principal query")
	}

	var row principalRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return principalRow{}, apperr.New(apperr.KindNotFound, "principal not found")
		}
		return principalRow{}, dbError(err, "select principal")
	}
	return row, nil
}
