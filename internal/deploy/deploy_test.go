package deploy

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depositprotocol/internal/events"
	"depositprotocol/internal/protocol"
	"depositprotocol/internal/verifier"
)

var founder = protocol.AddressFromLabel("founder")

func TestDeployWiresComponents(t *testing.T) {
	rec := events.NewRecorder()
	s, err := Deploy(Options{Founder: founder}, rec)
	require.NoError(t, err)

	assert.Equal(t, founder, s.Governance.Governor())
	assert.False(t, s.Governance.IsPaused())
	assert.Equal(t, s.Token.Address(), s.Governance.Ledger())
	assert.Equal(t, 0, s.Oracle.Ratio().Cmp(protocol.Kappa))
	assert.Equal(t, DefaultName, s.Token.Name())
	assert.Equal(t, DefaultSymbol, s.Token.Symbol())

	m, ok := s.Mock()
	require.True(t, ok)
	assert.True(t, m.Valid())

	assert.Equal(t, []protocol.EventKind{protocol.KindLedgerChanged, protocol.KindRatioUpdated}, rec.Kinds())

	require.NoError(t, s.Token.Mint(protocol.AddressFromLabel("alice"), big.NewInt(1), nil))
}

func TestDeployOptions(t *testing.T) {
	t.Run("zero initial ratio leaves oracle unset", func(t *testing.T) {
		s, err := Deploy(Options{Founder: founder, InitialRatio: new(big.Int)}, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, s.Oracle.Ratio().Sign())
		assert.ErrorIs(t, s.Token.Mint(founder, big.NewInt(1), nil), protocol.ErrInsufficientReserve)
	})

	t.Run("custom verifier", func(t *testing.T) {
		v := verifier.NewMock(false, nil)
		s, err := Deploy(Options{Founder: founder, Verifier: v, Name: "X", Symbol: "X"}, nil)
		require.NoError(t, err)
		assert.Equal(t, v.Address(), s.AddressBook().Verifier)
		assert.Equal(t, "X", s.Token.Symbol())
	})

	t.Run("zero founder is rejected", func(t *testing.T) {
		_, err := Deploy(Options{}, nil)
		assert.ErrorIs(t, err, protocol.ErrZeroAddress)
	})

	t.Run("negative ratio is rejected", func(t *testing.T) {
		_, err := Deploy(Options{Founder: founder, InitialRatio: big.NewInt(-1)}, nil)
		assert.ErrorIs(t, err, protocol.ErrInvalidRatio)
	})
}

func TestAddressBookRoundTrip(t *testing.T) {
	s, err := Deploy(Options{Founder: founder}, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "addresses.json")
	require.NoError(t, s.WriteAddressBook(path))

	book, err := ReadAddressBook(path)
	require.NoError(t, err)
	assert.Equal(t, s.AddressBook(), book)

	next := verifier.NewMock(true, nil)
	require.NoError(t, s.Token.SetVerifier(founder, next))
	assert.Equal(t, next.Address(), s.AddressBook().Verifier)
}
