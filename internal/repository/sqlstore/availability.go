package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
)

const slotColumns = `id, worker_id, day_of_week, start_minute, end_minute, active, created_at, updated_at`

type availabilityRepository struct {
	BaseRepository
}

func NewAvailabilityRepository(base BaseRepository) repository.AvailabilityRepository {
	return &availabilityRepository{base}
}

func (r *availabilityRepository) ListSlots(ctx context.Context, workerID uuid.UUID, dayOfWeek int) ([]*model.AvailabilitySlot, error) {
	slots := []*model.AvailabilitySlot{}
	query := r.db.Rebind(`
		SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE worker_id = ? AND day_of_week = ? AND active = ?
		ORDER BY start_minute
	`)
	if err := r.db.SelectContext(ctx, &slots, query, workerID, dayOfWeek, true); err != nil {
		return nil, storeErr("list availability slots", err)
	}
	return slots, nil
}

func (r *availabilityRepository) ListAllSlots(ctx context.Context, workerID uuid.UUID) ([]*model.AvailabilitySlot, error) {
	slots := []*model.AvailabilitySlot{}
	query := r.db.Rebind(`
		SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE worker_id = ?
		ORDER BY day_of_week, start_minute
	`)
	if err := r.db.SelectContext(ctx, &slots, query, workerID); err != nil {
		return nil, storeErr("list availability slots", err)
	}
	return slots, nil
}

func (r *availabilityRepository) ListOverrides(ctx context.Context, workerID uuid.UUID, date string) ([]*model.AvailabilityOverride, error) {
	overrides := []*model.AvailabilityOverride{}
	query := r.db.Rebind(`
		SELECT id, worker_id, override_date, start_minute, end_minute, available, reason, created_at
		FROM availability_overrides
		WHERE worker_id = ? AND override_date = ?
		ORDER BY created_at, id
	`)
	if err := r.db.SelectContext(ctx, &overrides, query, workerID, date); err != nil {
		return nil, storeErr("list availability overrides", err)
	}
	return overrides, nil
}

func (r *availabilityRepository) ReplaceSlots(ctx context.Context, workerID uuid.UUID, slots []*model.AvailabilitySlot) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := touchWorker(ctx, tx, workerID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM availability_slots WHERE worker_id = ?`), workerID); err != nil {
			return storeErr("clear availability slots", err)
		}

		query := tx.Rebind(`
			INSERT INTO availability_slots (` + slotColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		now := time.Now().UTC()
		for _, slot := range slots {
			if slot.ID == uuid.Nil {
				slot.ID = uuid.New()
			}
			slot.WorkerID = workerID
			if slot.CreatedAt.IsZero() {
				slot.CreatedAt = now
			}
			slot.UpdatedAt = now
			_, err := tx.ExecContext(ctx, query,
				slot.ID,
				slot.WorkerID,
				slot.DayOfWeek,
				slot.StartMinute,
				slot.EndMinute,
				slot.Active,
				slot.CreatedAt,
				slot.UpdatedAt,
			)
			if err != nil {
				return storeErr("insert availability slot", err)
			}
		}
		return nil
	})
}

func (r *availabilityRepository) CreateOverride(ctx context.Context, override *model.AvailabilityOverride) error {
	if override.ID == uuid.Nil {
		override.ID = uuid.New()
	}
	if override.CreatedAt.IsZero() {
		override.CreatedAt = time.Now().UTC()
	}
	query := r.db.Rebind(`
		INSERT INTO availability_overrides (
			id, worker_id, override_date, start_minute, end_minute, available, reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		override.ID,
		override.WorkerID,
		override.Date,
		override.StartMinute,
		override.EndMinute,
		override.Available,
		override.Reason,
		override.CreatedAt,
	)
	return storeErr("create availability override", err)
}
