package residency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "civreg/pkg/domain-errors"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResidenceExtension(t *testing.T) {
	now := date(2025, 8, 15)

	t.Run("extension within the cap from the original start", func(t *testing.T) {
		r := &TemporaryResidence{
			StartDate: date(2025, 1, 1),
			EndDate:   date(2025, 6, 30),
			Status:    ResidenceActive,
		}
		require.NoError(t, r.CanExtend(date(2025, 12, 31)))
		r.ApplyExtension(date(2025, 12, 31), now)
		assert.Equal(t, ResidenceExtended, r.Status)
		assert.Equal(t, date(2025, 12, 31), r.EndDate)
	})

	t.Run("cumulative span past twelve months is rejected", func(t *testing.T) {
		r := &TemporaryResidence{
			StartDate: date(2025, 1, 1),
			EndDate:   date(2025, 12, 31),
			Status:    ResidenceExtended,
		}
		err := r.CanExtend(date(2026, 2, 1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("exactly twelve months is allowed", func(t *testing.T) {
		r := &TemporaryResidence{
			StartDate: date(2025, 1, 1),
			EndDate:   date(2025, 12, 31),
			Status:    ResidenceExtended,
		}
		require.NoError(t, r.CanExtend(date(2026, 1, 1)))
	})

	t.Run("extension is one-way", func(t *testing.T) {
		r := &TemporaryResidence{
			StartDate: date(2025, 1, 1),
			EndDate:   date(2025, 6, 30),
			Status:    ResidenceActive,
		}
		err := r.CanExtend(date(2025, 6, 30))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		err = r.CanExtend(date(2025, 5, 1))
		require.Error(t, err)
	})

	t.Run("terminal states cannot be extended", func(t *testing.T) {
		for _, status := range []ResidenceStatus{ResidenceExpired, ResidenceCancelled} {
			r := &TemporaryResidence{
				StartDate: date(2025, 1, 1),
				EndDate:   date(2025, 6, 30),
				Status:    status,
			}
			err := r.CanExtend(date(2025, 9, 1))
			require.Error(t, err, "status %s", status)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
		}
	})
}

func TestResidenceCancellation(t *testing.T) {
	now := date(2025, 8, 15)

	t.Run("active residence can be cancelled", func(t *testing.T) {
		r := &TemporaryResidence{Status: ResidenceActive}
		require.NoError(t, r.CanCancel())
		r.ApplyCancel(now)
		assert.Equal(t, ResidenceCancelled, r.Status)
		assert.False(t, r.Status.Open())
	})

	t.Run("extended residence cannot be cancelled", func(t *testing.T) {
		r := &TemporaryResidence{Status: ResidenceExtended}
		err := r.CanCancel()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("cancellation is terminal", func(t *testing.T) {
		r := &TemporaryResidence{Status: ResidenceCancelled}
		require.Error(t, r.CanCancel())
	})
}

func TestAbsenceLifecycle(t *testing.T) {
	now := date(2025, 8, 15)

	t.Run("return within the registration window", func(t *testing.T) {
		a := &TemporaryAbsence{
			StartDate:          date(2025, 3, 1),
			ExpectedReturnDate: date(2025, 9, 1),
			Status:             AbsenceActive,
		}
		actual := date(2025, 8, 10)
		require.NoError(t, a.CanMarkReturned(actual))
		a.ApplyReturn(actual, now)
		assert.Equal(t, AbsenceReturned, a.Status)
		require.NotNil(t, a.ActualReturnDate)
		assert.Equal(t, actual, *a.ActualReturnDate)
	})

	t.Run("return before the start date is rejected", func(t *testing.T) {
		a := &TemporaryAbsence{
			StartDate:          date(2025, 3, 1),
			ExpectedReturnDate: date(2025, 9, 1),
			Status:             AbsenceActive,
		}
		err := a.CanMarkReturned(date(2025, 2, 1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("a returned absence is terminal", func(t *testing.T) {
		a := &TemporaryAbsence{Status: AbsenceReturned}
		require.Error(t, a.CanMarkReturned(now))
		require.Error(t, a.CanExtend(date(2026, 1, 1)))
	})

	t.Run("absence extension observes the cumulative cap", func(t *testing.T) {
		a := &TemporaryAbsence{
			StartDate:          date(2025, 1, 1),
			ExpectedReturnDate: date(2025, 10, 1),
			Status:             AbsenceActive,
		}
		require.NoError(t, a.CanExtend(date(2025, 12, 1)))

		err := a.CanExtend(date(2026, 3, 1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
