package metrics

import (
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depositprotocol/internal/deploy"
	"depositprotocol/internal/events"
	"depositprotocol/internal/protocol"
)

func TestMetricsFollowEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	bus := events.NewBus()
	bus.Subscribe(m.Handle)

	founder := protocol.AddressFromLabel("founder")
	alice := protocol.AddressFromLabel("alice")
	s, err := deploy.Deploy(deploy.Options{Founder: founder}, bus)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReserveRatio))

	tenTokens := new(big.Int).Mul(big.NewInt(10), protocol.Scale)
	require.NoError(t, s.Token.Mint(alice, tenTokens, nil))
	require.NoError(t, s.Token.Redeem(alice, protocol.Scale))
	require.NoError(t, s.Token.Transfer(alice, founder, protocol.Scale))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.TotalSupply))

	require.NoError(t, s.Oracle.SetRatio(protocol.RatioFromPercent(40)))
	assert.InDelta(t, 0.4, testutil.ToFloat64(m.ReserveRatio), 1e-9)

	require.NoError(t, s.Governance.Pause(founder))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Paused))
	require.NoError(t, s.Governance.Unpause(founder))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Paused))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Events.WithLabelValues(string(protocol.KindTransfer))))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues(string(protocol.KindRatioUpdated))))
}

func TestSeedAndRejections(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Seed(new(big.Int).Mul(big.NewInt(5), protocol.Scale), protocol.RatioFromPercent(120), true)
	assert.Equal(t, 5.0, testutil.ToFloat64(m.TotalSupply))
	assert.InDelta(t, 1.2, testutil.ToFloat64(m.ReserveRatio), 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Paused))

	m.ObserveRejection("mint", protocol.ErrProtocolPaused)
	m.ObserveRejection("mint", protocol.ErrProtocolPaused)
	m.ObserveRejection("redeem", protocol.ErrInsufficientBalance)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Rejections.WithLabelValues("mint", protocol.Code(protocol.ErrProtocolPaused))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("redeem", protocol.Code(protocol.ErrInsufficientBalance))))
}
