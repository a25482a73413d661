package governance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depositprotocol/internal/events"
	"depositprotocol/internal/protocol"
)

var (
	founder = protocol.AddressFromLabel("founder")
	other   = protocol.AddressFromLabel("other")
)

func TestController(t *testing.T) {
	t.Run("initializes with founder as governor and Active", func(t *testing.T) {
		c := New(founder, nil)
		assert.Equal(t, founder, c.Governor())
		assert.True(t, c.IsGovernor(founder))
		assert.False(t, c.IsGovernor(other))
		assert.False(t, c.IsPaused())
		assert.True(t, c.Ledger().IsZero())
	})

	t.Run("governor pauses and unpauses", func(t *testing.T) {
		rec := events.NewRecorder()
		c := New(founder, rec)

		require.NoError(t, c.Pause(founder))
		assert.True(t, c.IsPaused())
		require.NoError(t, c.Unpause(founder))
		assert.False(t, c.IsPaused())

		assert.Equal(t, []protocol.EventKind{protocol.KindPaused, protocol.KindUnpaused}, rec.Kinds())
		assert.Equal(t, protocol.Paused{Source: c.Address(), By: founder}, rec.Events()[0])
	})

	t.Run("repeated pause and unpause are silent no-ops", func(t *testing.T) {
		rec := events.NewRecorder()
		c := New(founder, rec)

		require.NoError(t, c.Unpause(founder))
		require.NoError(t, c.Pause(founder))
		require.NoError(t, c.Pause(founder))
		assert.True(t, c.IsPaused())
		assert.Equal(t, []protocol.EventKind{protocol.KindPaused}, rec.Kinds())
	})

	t.Run("non-governor is rejected everywhere without state change", func(t *testing.T) {
		rec := events.NewRecorder()
		c := New(founder, rec)
		ledger := protocol.AddressFromLabel("ledger")
		require.NoError(t, c.SetLedger(founder, ledger))
		rec.Reset()

		assert.ErrorIs(t, c.Pause(other), protocol.ErrNotGovernor)
		assert.False(t, c.IsPaused())

		require.NoError(t, c.Pause(founder))
		rec.Reset()
		assert.ErrorIs(t, c.Unpause(other), protocol.ErrNotGovernor)
		assert.True(t, c.IsPaused())

		assert.ErrorIs(t, c.SetGovernor(other, other), protocol.ErrNotGovernor)
		assert.Equal(t, founder, c.Governor())

		assert.ErrorIs(t, c.SetLedger(other, protocol.AddressFromLabel("rogue")), protocol.ErrNotGovernor)
		assert.Equal(t, ledger, c.Ledger())

		assert.Empty(t, rec.Events())
	})

	t.Run("rotation is immediate and exclusive", func(t *testing.T) {
		rec := events.NewRecorder()
		c := New(founder, rec)

		require.NoError(t, c.SetGovernor(founder, other))
		assert.Equal(t, other, c.Governor())
		assert.True(t, c.IsGovernor(other))
		assert.False(t, c.IsGovernor(founder))

		assert.ErrorIs(t, c.Pause(founder), protocol.ErrNotGovernor)
		require.NoError(t, c.Pause(other))

		assert.Equal(t, protocol.GovernorChanged{Source: c.Address(), Previous: founder, Governor: other}, rec.Events()[0])
	})

	t.Run("rotation works while paused", func(t *testing.T) {
		c := New(founder, nil)
		require.NoError(t, c.Pause(founder))
		require.NoError(t, c.SetGovernor(founder, other))
		assert.True(t, c.IsPaused())
		require.NoError(t, c.Unpause(other))
	})

	t.Run("rotation to the zero address is refused", func(t *testing.T) {
		c := New(founder, nil)
		assert.ErrorIs(t, c.SetGovernor(founder, protocol.ZeroAddress), protocol.ErrZeroAddress)
		assert.Equal(t, founder, c.Governor())
	})

	t.Run("governor rebinds the ledger", func(t *testing.T) {
		rec := events.NewRecorder()
		c := New(founder, rec)
		next := protocol.AddressFromLabel("ledger-v2")
		require.NoError(t, c.SetLedger(founder, next))
		assert.Equal(t, next, c.Ledger())
		assert.Equal(t, protocol.LedgerChanged{Source: c.Address(), Ledger: next}, rec.Events()[0])
	})

	t.Run("state round-trips through restore", func(t *testing.T) {
		c := New(founder, nil)
		require.NoError(t, c.Pause(founder))
		s := c.State()

		fresh := New(other, nil)
		fresh.Restore(s)
		assert.Equal(t, s, fresh.State())
		assert.True(t, fresh.IsGovernor(founder))
		assert.True(t, fresh.IsPaused())
	})
}
