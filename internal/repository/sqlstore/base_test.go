package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

func TestStoreErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.ErrorCode
	}{
		{"exclusion violation", &pq.Error{Code: pqExclusionViolation}, apperrors.ErrSlotNoLongerAvailable},
		{"wrapped exclusion violation", fmt.Errorf("wrap: %w", &pq.Error{Code: pqExclusionViolation}), apperrors.ErrSlotNoLongerAvailable},
		{"unique violation", &pq.Error{Code: pqUniqueViolation}, apperrors.ErrBadRequest},
		{"foreign key violation", fmt.Errorf("wrap: %w", &pq.Error{Code: pqForeignKeyViolation}), apperrors.ErrNotFound},
		{"other postgres error", &pq.Error{Code: "57014"}, apperrors.ErrStoreUnavailable},
		{"no rows", sql.ErrNoRows, apperrors.ErrNotFound},
		{"connection refused", errors.New("dial tcp: connection refused"), apperrors.ErrStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := storeErr("insert booking", tt.err)
			assert.Equal(t, tt.want, apperrors.CodeOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, storeErr("noop", nil))

	slotTaken := apperrors.SlotNoLongerAvailable(uuid.New())
	assert.Same(t, slotTaken, storeErr("commit booking", slotTaken), "application errors pass through")
}
