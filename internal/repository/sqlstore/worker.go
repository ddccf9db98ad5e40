package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

const workerColumns = `w.id, w.name, w.hourly_rate, w.rating, w.completed_bookings,
	w.is_available, w.details, w.created_at, w.updated_at`

type workerRepository struct {
	BaseRepository
}

func NewWorkerRepository(base BaseRepository) repository.WorkerRepository {
	return &workerRepository{base}
}

func (r *workerRepository) CreateWorker(ctx context.Context, worker *model.WorkerProfile) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO workers (
				id, name, hourly_rate, rating, completed_bookings,
				is_available, details, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		_, err := tx.ExecContext(ctx, query,
			worker.ID,
			worker.Name,
			worker.HourlyRate,
			worker.Rating,
			worker.CompletedBookings,
			worker.IsAvailable,
			worker.Details,
			worker.CreatedAt,
			worker.UpdatedAt,
		)
		if err != nil {
			return storeErr("create worker", err)
		}
		return insertWorkerServices(ctx, tx, worker.ID, worker.ServiceIDs)
	})
}

func (r *workerRepository) GetWorkerProfile(ctx context.Context, id uuid.UUID) (*model.WorkerProfile, error) {
	var worker model.WorkerProfile
	query := r.db.Rebind(`SELECT ` + workerColumns + ` FROM workers w WHERE w.id = ?`)
	if err := r.db.GetContext(ctx, &worker, query, id); err != nil {
		return nil, storeErr("worker", err)
	}

	profiles := []*model.WorkerProfile{&worker}
	if err := r.loadServiceIDs(ctx, profiles); err != nil {
		return nil, err
	}
	return &worker, nil
}

func (r *workerRepository) ListByService(ctx context.Context, serviceID uuid.UUID) ([]*model.WorkerProfile, error) {
	workers := []*model.WorkerProfile{}
	query := r.db.Rebind(`
		SELECT ` + workerColumns + `
		FROM workers w
		JOIN worker_services ws ON ws.worker_id = w.id
		WHERE ws.service_id = ?
		ORDER BY w.id
	`)
	if err := r.db.SelectContext(ctx, &workers, query, serviceID); err != nil {
		return nil, storeErr("list workers by service", err)
	}
	if err := r.loadServiceIDs(ctx, workers); err != nil {
		return nil, err
	}
	return workers, nil
}

func (r *workerRepository) SetServices(ctx context.Context, workerID uuid.UUID, serviceIDs []uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := touchWorker(ctx, tx, workerID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM worker_services WHERE worker_id = ?`), workerID); err != nil {
			return storeErr("clear worker services", err)
		}
		return insertWorkerServices(ctx, tx, workerID, serviceIDs)
	})
}

func (r *workerRepository) SetAvailable(ctx context.Context, workerID uuid.UUID, available bool) error {
	query := r.db.Rebind(`UPDATE workers SET is_available = ?, updated_at = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, available, time.Now().UTC(), workerID)
	if err != nil {
		return storeErr("set worker availability", err)
	}
	return requireRow(result, "worker")
}

func (r *workerRepository) loadServiceIDs(ctx context.Context, workers []*model.WorkerProfile) error {
	if len(workers) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*model.WorkerProfile, len(workers))
	ids := make([]uuid.UUID, 0, len(workers))
	for _, w := range workers {
		w.ServiceIDs = []uuid.UUID{}
		byID[w.ID] = w
		ids = append(ids, w.ID)
	}

	query, args, err := sqlx.In(`
		SELECT worker_id, service_id FROM worker_services
		WHERE worker_id IN (?)
		ORDER BY worker_id, service_id
	`, ids)
	if err != nil {
		return apperrors.Internal(err)
	}

	var rows []struct {
		WorkerID  uuid.UUID `db:"worker_id"`
		ServiceID uuid.UUID `db:"service_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return storeErr("load worker services", err)
	}
	for _, row := range rows {
		if w, ok := byID[row.WorkerID]; ok {
			w.ServiceIDs = append(w.ServiceIDs, row.ServiceID)
		}
	}
	return nil
}

func insertWorkerServices(ctx context.Context, tx *sqlx.Tx, workerID uuid.UUID, serviceIDs []uuid.UUID) error {
	query := tx.Rebind(`INSERT INTO worker_services (worker_id, service_id) VALUES (?, ?)`)
	seen := make(map[uuid.UUID]struct{}, len(serviceIDs))
	for _, serviceID := range serviceIDs {
		if _, dup := seen[serviceID]; dup {
			continue
		}
		seen[serviceID] = struct{}{}
		if _, err := tx.ExecContext(ctx, query, workerID, serviceID); err != nil {
			return storeErr("assign worker service", err)
		}
	}
	return nil
}

// lockWorker bumps the worker's booking sequence. The row lock it takes is
// held until the transaction ends and serialises every booking write for the
// worker.
func lockWorker(ctx context.Context, tx *sqlx.Tx, workerID uuid.UUID) error {
	result, err := tx.ExecContext(ctx,
		tx.Rebind(`UPDATE workers SET booking_seq = booking_seq + 1 WHERE id = ?`), workerID)
	if err != nil {
		return storeErr("lock worker", err)
	}
	return requireRow(result, "worker")
}

func touchWorker(ctx context.Context, tx *sqlx.Tx, workerID uuid.UUID) error {
	result, err := tx.ExecContext(ctx,
		tx.Rebind(`UPDATE workers SET updated_at = ? WHERE id = ?`), time.Now().UTC(), workerID)
	if err != nil {
		return storeErr("update worker", err)
	}
	return requireRow(result, "worker")
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func requireRow(result rowsAffected, resource string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return storeErr(resource, err)
	}
	if n == 0 {
		return apperrors.NotFound(resource, nil)
	}
	return nil
}
