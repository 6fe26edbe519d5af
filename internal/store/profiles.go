package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"

	"myshop/internal/apperr"
	"myshop/internal/models"
)

func (s *Store) GetProfile(ctx context.Context, principalID string) (models.UserProfile, error) {
	query, args, err := s.dialect.From(tableProfiles).
		Select(colName, colPhone, colAddress, colEmail).
		Where(goqu.Ex{colPrincipalID: principalID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return models.UserProfile{}, apperr.Wrap(apperr.KindUnknown, err, "build select profile query")
	}

	var profile models.UserProfile
	if err := s.db.GetContext(ctx, &profile, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.UserProfile{}, apperr.New(apperr.KindNotFound, "user data not found")
		}
		return models.UserProfile{}, dbError(err, "select profile")
	}
	return profile, nil
}

// PutProfile replaces the whole document for principalID, creating it if
// it does not exist yet.
func (s *Store) PutProfile(ctx context.Context, principalID string, p models.UserProfile) error {
	fields := goqu.Record{
		colName:    p.Name,
		colPhone:   p.Phone,
		colAddress: p.Address,
		colEmail:   p.Email,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return dbError(err, "begin profile write")
	}
	defer func() { _ = tx.Rollback() }()

	update, args, err := s.dialect.Update(tableProfiles).
		Set(fields).
		Where(goqu.Ex{colPrincipalID: principalID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperr.Wrap(apperr.KindUnknown, err, "build update profile query")
	}

	res, err := tx.ExecContext(ctx, update, args...)
	if err != nil {
		return dbError(err, "update profile")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err, "update profile")
	}

	if n == 0 {
		row := goqu.Record{colPrincipalID: principalID}
		for k, v := range fields {
			row[k] = v
		}
		insert, args, err := s.dialect.Insert(tableProfiles).Rows(row).Prepared(true).ToSQL()
		if err != nil {
			return apperr.Wrap(apperr.KindUnknown, err, "build insert profile query")
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return dbError(err, "insert profile")
		}
	}

	if err := tx.Commit(); err != nil {
		return dbError(err, "commit profile write")
	}
	return nil
}
