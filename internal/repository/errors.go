package repository

import (
	"errors"
	"strings"

	appErr "github.com/deliverypulse/engine/pkg/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// classify maps driver errors to application codes. Unique violations that
// reach this point are not the expected upsert conflicts, so they surface as
// conflicts; lost connections surface as unavailable.
func classify(err error, msg string) *appErr.AppError {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return appErr.Wrap(err, appErr.CodeNotFound, msg)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return appErr.Wrap(err, appErr.CodeConflict, msg)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return appErr.Wrap(err, appErr.CodeInvalid, msg)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return appErr.Wrap(err, appErr.CodeConflict, msg).WithMeta("constraint", pgErr.ConstraintName)
		case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == "57P01":
			return appErr.Wrap(err, appErr.CodeUnavailable, msg)
		}
		return appErr.Wrap(err, appErr.CodeInternal, msg).WithMeta("sqlstate", pgErr.Code)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return appErr.Wrap(err, appErr.CodeUnavailable, msg)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return appErr.Wrap(err, appErr.CodeConflict, msg)
	}
	return appErr.Wrap(err, appErr.CodeInternal, msg)
}
