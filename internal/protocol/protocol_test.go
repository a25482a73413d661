package protocol

import (
	"encoding/json"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress(t *testing.T) {
	t.Run("parse accepts prefixed and bare hex", func(t *testing.T) {
		a, err := ParseAddress("0x00000000000000000000000000000000000000ff")
		require.NoError(t, err)
		b, err := ParseAddress("00000000000000000000000000000000000000FF")
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Equal(t, "0x00000000000000000000000000000000000000ff", a.String())
	})

	t.Run("parse rejects wrong length and bad hex", func(t *testing.T) {
		_, err := ParseAddress("0x1234")
		assert.Error(t, err)
		_, err = ParseAddress("0xzz000000000000000000000000000000000000ff")
		assert.Error(t, err)
	})

	t.Run("labels are deterministic and distinct", func(t *testing.T) {
		assert.Equal(t, AddressFromLabel("alice"), AddressFromLabel("alice"))
		assert.NotEqual(t, AddressFromLabel("alice"), AddressFromLabel("bob"))
		assert.False(t, AddressFromLabel("alice").IsZero())
	})

	t.Run("random addresses differ", func(t *testing.T) {
		assert.NotEqual(t, RandomAddress(), RandomAddress())
	})

	t.Run("json uses hex text", func(t *testing.T) {
		a := AddressFromLabel("carol")
		raw, err := json.Marshal(map[string]Address{"a": a})
		require.NoError(t, err)
		assert.Contains(t, string(raw), a.String())

		var back map[string]Address
		require.NoError(t, json.Unmarshal(raw, &back))
		assert.Equal(t, a, back["a"])
	})
}

func TestRatios(t *testing.T) {
	assert.Equal(t, 0, RatioFromPercent(100).Cmp(Kappa))
	assert.Equal(t, "0.4", FormatRatio(RatioFromPercent(40)))
	assert.Equal(t, "110", RatioPercent(RatioFromPercent(110)))
	assert.Equal(t, "0", FormatRatio(nil))

	r, err := ParseRatio("0.85")
	require.NoError(t, err)
	assert.Equal(t, 0, r.Cmp(RatioFromPercent(85)))

	_, err = ParseRatio("-1")
	assert.Error(t, err)

	assert.True(t, MeetsKappa(Kappa))
	assert.True(t, MeetsKappa(RatioFromPercent(150)))
	assert.False(t, MeetsKappa(new(big.Int).Sub(Kappa, big.NewInt(1))))
	assert.False(t, MeetsKappa(nil))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(big.NewInt(1)))
	assert.ErrorIs(t, ValidateAmount(nil), ErrInvalidAmount)
	assert.ErrorIs(t, ValidateAmount(big.NewInt(0)), ErrInvalidAmount)
	assert.ErrorIs(t, ValidateAmount(big.NewInt(-5)), ErrInvalidAmount)
}

func TestCode(t *testing.T) {
	wrapped := fmt.Errorf("mint: %w", ErrProtocolPaused)
	assert.Equal(t, "protocol_paused", Code(wrapped))
	assert.Equal(t, "not_governor", Code(ErrNotGovernor))
	assert.Equal(t, "", Code(fmt.Errorf("other")))
}

func TestTransferDirection(t *testing.T) {
	alice := AddressFromLabel("alice")
	assert.True(t, Transfer{To: alice}.IsMint())
	assert.True(t, Transfer{From: alice}.IsBurn())
	move := Transfer{From: alice, To: AddressFromLabel("bob")}
	assert.False(t, move.IsMint())
	assert.False(t, move.IsBurn())
}
