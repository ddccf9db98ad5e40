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

const outboxColumns = `id, event_type, payload, status, error_message, retry_count,
	retry_at, processed_at, created_at, updated_at`

// outboxClaimLease is how long a claimed event is hidden from other
// processors before it is handed out again.
const outboxClaimLease = 5 * time.Minute

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	return insertOutbox(ctx, r.db, event)
}

// ClaimPendingEvents hands out up to limit due events and leases them to
// the caller for outboxClaimLease. A claimed event stays invisible to other
// processors until it is marked processed or failed, or the lease runs out
// (a processor that died mid-batch). On postgres rows another processor is
// claiming are skipped instead of waited on.
func (r *outboxRepository) ClaimPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	now := time.Now().UTC()
	query := `
		SELECT ` + outboxColumns + `
		FROM outbox_events
		WHERE status IN (?, ?)
		AND (retry_at IS NULL OR retry_at <= ?)
		ORDER BY created_at, id
		LIMIT ?
	`
	if r.isPostgres() {
		query += " FOR UPDATE SKIP LOCKED"
	}
	claim := r.db.Rebind(`
		UPDATE outbox_events
		SET status = ?, retry_at = ?, updated_at = ?
		WHERE id = ?
		AND status IN (?, ?)
		AND (retry_at IS NULL OR retry_at <= ?)
	`)

	var claimed []*model.OutboxEvent
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		candidates := []*model.OutboxEvent{}
		if err := tx.SelectContext(ctx, &candidates, tx.Rebind(query),
			model.OutboxStatusPending, model.OutboxStatusProcessing, now, limit); err != nil {
			return storeErr("get pending outbox events", err)
		}

		leaseEnd := now.Add(outboxClaimLease)
		claimed = make([]*model.OutboxEvent, 0, len(candidates))
		for _, event := range candidates {
			result, err := tx.ExecContext(ctx, claim,
				model.OutboxStatusProcessing, leaseEnd, now, event.ID,
				model.OutboxStatusPending, model.OutboxStatusProcessing, now)
			if err != nil {
				return storeErr("claim outbox event", err)
			}
			// Zero rows: another processor got there first.
			if n, err := result.RowsAffected(); err != nil || n == 0 {
				continue
			}
			event.Status = model.OutboxStatusProcessing
			event.RetryAt = &leaseEnd
			claimed = append(claimed, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`
		UPDATE outbox_events
		SET status = ?, processed_at = ?, error_message = NULL, updated_at = ?
		WHERE id = ?
	`)
	result, err := r.db.ExecContext(ctx, query, model.OutboxStatusProcessed, now, now, id)
	if err != nil {
		return storeErr("mark outbox event processed", err)
	}
	return requireRow(result, "outbox event")
}

// MarkFailed records a delivery failure. A non-nil retryAt keeps the event
// pending until then; a nil retryAt marks it failed for good.
func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, retryAt *time.Time) error {
	status := model.OutboxStatusFailed
	if retryAt != nil {
		status = model.OutboxStatusPending
	}
	query := r.db.Rebind(`
		UPDATE outbox_events
		SET status = ?, error_message = ?, retry_at = ?, retry_count = retry_count + 1, updated_at = ?
		WHERE id = ?
	`)
	result, err := r.db.ExecContext(ctx, query, status, errorMessage, retryAt, time.Now().UTC(), id)
	if err != nil {
		return storeErr("mark outbox event failed", err)
	}
	return requireRow(result, "outbox event")
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := r.db.Rebind(`
		DELETE FROM outbox_events
		WHERE status = ?
		AND processed_at < ?
	`)
	result, err := r.db.ExecContext(ctx, query, model.OutboxStatusProcessed, before.UTC())
	if err != nil {
		return 0, storeErr("delete processed outbox events", err)
	}
	return result.RowsAffected()
}

func insertOutbox(ctx context.Context, e sqlx.ExtContext, event *model.OutboxEvent) error {
	if event == nil {
		return nil
	}
	if event.Payload == nil {
		return apperrors.BadRequest("event payload cannot be nil", nil)
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Status == "" {
		event.Status = model.OutboxStatusPending
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	event.UpdatedAt = event.CreatedAt

	query := e.Rebind(`
		INSERT INTO outbox_events (` + outboxColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := e.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		[]byte(event.Payload),
		event.Status,
		event.ErrorMessage,
		event.RetryCount,
		event.RetryAt,
		event.ProcessedAt,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return storeErr("insert outbox event", err)
	}
	return nil
}
