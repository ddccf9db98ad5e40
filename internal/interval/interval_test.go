package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

var monday = time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)

func mustNew(t *testing.T, start, duration int) Interval {
	t.Helper()
	iv, err := New(monday, start, duration)
	require.NoError(t, err)
	return iv
}

func TestNewRejectsNonPositiveDuration(t *testing.T) {
	for _, d := range []int{0, -1, -60} {
		_, err := New(monday, 600, d)
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidInterval), "duration %d", d)
	}
}

func TestNewRejectsIntervalsLeavingTheDay(t *testing.T) {
	_, err := New(monday, 23*60, 120)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidInterval))

	_, err = New(monday, -10, 30)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidInterval))

	iv, err := New(monday, 23*60, 60)
	require.NoError(t, err)
	assert.Equal(t, MinutesPerDay, iv.End)
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	nineToTen := mustNew(t, 9*60, 60)
	tenToEleven := mustNew(t, 10*60, 60)
	nineThirty := mustNew(t, 9*60+30, 60)

	assert.False(t, nineToTen.Overlaps(tenToEleven))
	assert.False(t, tenToEleven.Overlaps(nineToTen))
	assert.True(t, nineToTen.Overlaps(nineThirty))
	assert.True(t, nineThirty.Overlaps(tenToEleven))
	assert.True(t, nineToTen.Overlaps(nineToTen))
}

func TestOverlapsRequiresSameDate(t *testing.T) {
	a := mustNew(t, 600, 60)
	b, err := New(monday.AddDate(0, 0, 7), 600, 60)
	require.NoError(t, err)
	assert.False(t, a.Overlaps(b))
}

func TestContains(t *testing.T) {
	window := mustNew(t, 9*60, 8*60)

	assert.True(t, window.Contains(mustNew(t, 9*60, 60)))
	assert.True(t, window.Contains(mustNew(t, 16*60, 60)))
	assert.False(t, window.Contains(mustNew(t, 16*60+30, 60)))
	assert.False(t, window.Contains(mustNew(t, 8*60+30, 60)))
}

func TestSubtract(t *testing.T) {
	window := mustNew(t, 9*60, 8*60)

	pieces := window.Subtract(mustNew(t, 12*60, 60))
	require.Len(t, pieces, 2)
	assert.Equal(t, 9*60, pieces[0].Start)
	assert.Equal(t, 12*60, pieces[0].End)
	assert.Equal(t, 13*60, pieces[1].Start)
	assert.Equal(t, 17*60, pieces[1].End)

	assert.Empty(t, window.Subtract(mustNew(t, 8*60, 10*60)))
	assert.Equal(t, []Interval{window}, window.Subtract(mustNew(t, 18*60, 30)))
}

func TestClockRoundTrip(t *testing.T) {
	m, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, m)
	assert.Equal(t, "09:30", FormatClock(m))

	end, err := ParseClock("24:00")
	require.NoError(t, err)
	assert.Equal(t, MinutesPerDay, end)

	for _, bad := range []string{"9", "25:00", "10:75", "aa:10", "24:30"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-03")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d.Weekday())
	assert.Equal(t, "2024-06-03", FormatDate(d))

	_, err = ParseDate("03/06/2024")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
}
