package oracle

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depositprotocol/internal/events"
	"depositprotocol/internal/protocol"
)

func TestReserveOracle(t *testing.T) {
	t.Run("starts at zero and unhealthy", func(t *testing.T) {
		o := New(nil)
		assert.Equal(t, 0, o.Ratio().Sign())
		assert.False(t, o.Healthy())
		assert.False(t, o.Address().IsZero())
	})

	t.Run("updates and emits the new value", func(t *testing.T) {
		rec := events.NewRecorder()
		o := New(rec)
		ratio := protocol.RatioFromPercent(85)

		require.NoError(t, o.SetRatio(ratio))
		assert.Equal(t, 0, o.Ratio().Cmp(ratio))

		got := rec.Events()
		require.Len(t, got, 1)
		ev, ok := got[0].(protocol.RatioUpdated)
		require.True(t, ok)
		assert.Equal(t, 0, ev.Ratio.Cmp(ratio))
		assert.Equal(t, o.Address(), ev.Source)
	})

	t.Run("allows repeated distinct updates", func(t *testing.T) {
		o := New(nil)
		for _, pct := range []int64{95, 75, 110} {
			r := protocol.RatioFromPercent(pct)
			require.NoError(t, o.SetRatio(r))
			assert.Equal(t, 0, o.Ratio().Cmp(r))
		}
		assert.True(t, o.Healthy())
	})

	t.Run("zero is rejected and state is kept", func(t *testing.T) {
		rec := events.NewRecorder()
		o := New(rec)
		require.NoError(t, o.SetRatio(protocol.Kappa))
		rec.Reset()

		assert.ErrorIs(t, o.SetRatio(big.NewInt(0)), protocol.ErrInvalidRatio)
		assert.ErrorIs(t, o.SetRatio(nil), protocol.ErrInvalidRatio)
		assert.ErrorIs(t, o.SetRatio(big.NewInt(-1)), protocol.ErrInvalidRatio)
		assert.Equal(t, 0, o.Ratio().Cmp(protocol.Kappa))
		assert.Empty(t, rec.Events())
	})

	t.Run("current value is a no-op update", func(t *testing.T) {
		rec := events.NewRecorder()
		o := New(rec)
		require.NoError(t, o.SetRatio(protocol.Kappa))
		rec.Reset()

		assert.ErrorIs(t, o.SetRatio(new(big.Int).Set(protocol.Kappa)), protocol.ErrNoOpUpdate)
		assert.Equal(t, 0, o.Ratio().Cmp(protocol.Kappa))
		assert.Empty(t, rec.Events())
	})

	t.Run("returned ratio is a copy", func(t *testing.T) {
		o := New(nil)
		require.NoError(t, o.SetRatio(protocol.Kappa))
		r := o.Ratio()
		r.SetInt64(1)
		assert.Equal(t, 0, o.Ratio().Cmp(protocol.Kappa))
	})
}
