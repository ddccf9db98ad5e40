package sqlstore

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

const bookingColumns = `id, worker_id, service_id, booking_date, start_minute, duration_minutes,
	end_minute, status, client_name, client_email, client_phone, service_name,
	service_duration, service_price, cost, notes, cancel_reason, version,
	created_at, updated_at`

type bookingRepository struct {
	BaseRepository
}

func NewBookingRepository(base BaseRepository) repository.BookingRepository {
	return &bookingRepository{base}
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var booking model.Booking
	query := r.db.Rebind(`SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`)
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, storeErr("booking", err)
	}
	return &booking, nil
}

func (r *bookingRepository) ListOccupying(ctx context.Context, workerID uuid.UUID, date string) ([]*model.Booking, error) {
	return listOccupying(ctx, r.db, workerID, date)
}

func (r *bookingRepository) List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error) {
	var (
		where []string
		args  []interface{}
	)
	if filters != nil {
		if filters.WorkerID != nil {
			where = append(where, "worker_id = ?")
			args = append(args, *filters.WorkerID)
		}
		if filters.Date != "" {
			where = append(where, "booking_date = ?")
			args = append(args, filters.Date)
		}
		if filters.Status != "" {
			where = append(where, "status = ?")
			args = append(args, filters.Status)
		}
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY booking_date, start_minute, id"

	bookings := []*model.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, r.db.Rebind(query), args...); err != nil {
		return nil, storeErr("list bookings", err)
	}
	return bookings, nil
}

func (r *bookingRepository) Commit(ctx context.Context, booking *model.Booking, event *model.OutboxEvent, guard repository.ConflictGuard) error {
	if booking.WorkerID == nil {
		return apperrors.BadRequest("booking has no worker", nil)
	}
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockWorker(ctx, tx, *booking.WorkerID); err != nil {
			return err
		}
		existing, err := listOccupying(ctx, tx, *booking.WorkerID, booking.Date)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(existing); err != nil {
				return err
			}
		}

		query := tx.Rebind(`
			INSERT INTO bookings (` + bookingColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		_, err = tx.ExecContext(ctx, query,
			booking.ID,
			booking.WorkerID,
			booking.ServiceID,
			booking.Date,
			booking.StartMinute,
			booking.DurationMinutes,
			booking.EndMinute,
			booking.Status,
			booking.ClientContact.Name,
			booking.ClientContact.Email,
			booking.ClientContact.Phone,
			booking.ServiceName,
			booking.ServiceDuration,
			booking.ServicePrice,
			booking.Cost,
			booking.Notes,
			booking.CancelReason,
			booking.Version,
			booking.CreatedAt,
			booking.UpdatedAt,
		)
		if err != nil {
			return storeErr("insert booking", err)
		}
		return insertOutbox(ctx, tx, event)
	})
}

func (r *bookingRepository) Reschedule(ctx context.Context, booking *model.Booking, expectedVersion int, event *model.OutboxEvent, guard repository.ConflictGuard) error {
	if booking.WorkerID == nil {
		return apperrors.BadRequest("booking has no worker", nil)
	}
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockWorker(ctx, tx, *booking.WorkerID); err != nil {
			return err
		}
		existing, err := listOccupying(ctx, tx, *booking.WorkerID, booking.Date)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(existing); err != nil {
				return err
			}
		}

		query := tx.Rebind(`
			UPDATE bookings
			SET booking_date = ?, start_minute = ?, duration_minutes = ?, end_minute = ?,
				version = ?, updated_at = ?
			WHERE id = ? AND version = ?
		`)
		result, err := tx.ExecContext(ctx, query,
			booking.Date,
			booking.StartMinute,
			booking.DurationMinutes,
			booking.EndMinute,
			booking.Version,
			booking.UpdatedAt,
			booking.ID,
			expectedVersion,
		)
		if err != nil {
			return storeErr("reschedule booking", err)
		}
		if err := r.requireVersion(ctx, tx, result, booking.ID); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, event)
	})
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, booking *model.Booking, from model.BookingStatus, expectedVersion int, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			UPDATE bookings
			SET status = ?, cancel_reason = ?, version = ?, updated_at = ?
			WHERE id = ? AND status = ? AND version = ?
		`)
		result, err := tx.ExecContext(ctx, query,
			booking.Status,
			booking.CancelReason,
			booking.Version,
			booking.UpdatedAt,
			booking.ID,
			from,
			expectedVersion,
		)
		if err != nil {
			return storeErr("update booking status", err)
		}
		if err := r.requireVersion(ctx, tx, result, booking.ID); err != nil {
			return err
		}

		if booking.Status == model.BookingStatusCompleted && booking.WorkerID != nil {
			_, err := tx.ExecContext(ctx,
				tx.Rebind(`UPDATE workers SET completed_bookings = completed_bookings + 1, updated_at = ? WHERE id = ?`),
				booking.UpdatedAt, *booking.WorkerID)
			if err != nil {
				return storeErr("count completed booking", err)
			}
		}
		return insertOutbox(ctx, tx, event)
	})
}

// requireVersion turns a zero-row optimistic update into NotFound or
// VersionConflict depending on whether the booking still exists.
func (r *bookingRepository) requireVersion(ctx context.Context, tx *sqlx.Tx, result rowsAffected, id uuid.UUID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return storeErr("booking", err)
	}
	if n > 0 {
		return nil
	}
	var exists int
	if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM bookings WHERE id = ?`), id); err != nil {
		return storeErr("booking", err)
	}
	if exists == 0 {
		return apperrors.NotFound("booking", nil)
	}
	return apperrors.VersionConflict("booking", id)
}

func listOccupying(ctx context.Context, q sqlx.ExtContext, workerID uuid.UUID, date string) ([]*model.Booking, error) {
	query, args, err := sqlx.In(`
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE worker_id = ? AND booking_date = ? AND status IN (?)
		ORDER BY start_minute, id
	`, workerID, date, model.OccupyingStatuses())
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	bookings := []*model.Booking{}
	if err := sqlx.SelectContext(ctx, q, &bookings, q.Rebind(query), args...); err != nil {
		return nil, storeErr("list occupying bookings", err)
	}
	return bookings, nil
}
