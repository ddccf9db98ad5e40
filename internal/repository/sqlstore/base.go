package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

// Postgres SQLSTATE codes the store translates.
const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
	pqExclusionViolation  = "23P01"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db *sqlx.DB
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

func (r *BaseRepository) isPostgres() bool {
	return r.db.DriverName() == DriverPostgres
}

// WithTx executes a function within a transaction. The transaction is rolled
// back when fn fails, panics, or ctx is cancelled before commit.
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit transaction", err)
	}
	return nil
}

// storeErr classifies a driver error into an application error. Anything it
// does not recognise is StoreUnavailable.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(op, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqExclusionViolation:
			return &apperrors.AppError{
				Code:    apperrors.ErrSlotNoLongerAvailable,
				Message: fmt.Sprintf("slot taken during %s", op),
				Err:     err,
			}
		case pqUniqueViolation:
			return apperrors.BadRequest(fmt.Sprintf("duplicate record during %s", op), err)
		case pqForeignKeyViolation:
			return apperrors.NotFound("referenced record for "+op, err)
		}
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintForeignKey:
			return apperrors.NotFound("referenced record for "+op, err)
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return apperrors.BadRequest(fmt.Sprintf("duplicate record during %s", op), err)
		}
	}
	return apperrors.StoreUnavailable(op, err)
}
