package main

import (
	"math/big"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depositprotocol/internal/deploy"
	"depositprotocol/internal/events"
	"depositprotocol/internal/metrics"
	"depositprotocol/internal/protocol"
	"depositprotocol/internal/store"
)

func TestScenarios(t *testing.T) {
	for _, sc := range scenarios(false) {
		t.Run(sc.name, func(t *testing.T) {
			require.NoError(t, runScenario(sc, zerolog.Nop()))
		})
	}
}

func TestGroth16Scenario(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup in short mode")
	}
	all := scenarios(true)
	require.NoError(t, runScenario(all[len(all)-1], zerolog.Nop()))
}

func TestRunnerCatchesWrongOutcome(t *testing.T) {
	sc := scenario{
		name: "expects failure that does not happen",
		steps: func(s *deploy.Stack) []step {
			return []step{{"mint", func() error { return s.Token.Mint(user, units(1), proof) }, protocol.ErrProtocolPaused}}
		},
	}
	assert.Error(t, runScenario(sc, zerolog.Nop()))
}

// Events observed on the bus must replay into the same supply the ledger
// reports, even under concurrent writers.
func TestEventStreamReplaysLedger(t *testing.T) {
	bus := events.NewBus()
	rec := events.NewRecorder()
	bus.Subscribe(rec.Handle)
	m := metrics.New(prometheus.NewRegistry())
	bus.Subscribe(m.Handle)

	s, err := deploy.Deploy(deploy.Options{Founder: founder}, bus)
	require.NoError(t, err)

	accounts := []protocol.Address{user, other, founder}
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := accounts[i%len(accounts)]
			_ = s.Token.Mint(a, protocol.Scale, proof)
			_ = s.Token.Redeem(a, new(big.Int).Quo(protocol.Scale, big.NewInt(2)))
			_ = s.Token.Transfer(a, accounts[(i+1)%len(accounts)], big.NewInt(7))
			if i%7 == 0 {
				_ = s.Governance.Pause(founder)
				_ = s.Governance.Unpause(founder)
			}
		}(i)
	}
	wg.Wait()

	replayed := new(big.Int)
	balances := map[protocol.Address]*big.Int{}
	var lastSeq uint64
	for _, env := range rec.Envelopes() {
		require.Greater(t, env.Seq, lastSeq)
		lastSeq = env.Seq

		tr, ok := env.Event.(protocol.Transfer)
		if !ok {
			continue
		}
		if tr.IsMint() {
			replayed.Add(replayed, tr.Amount)
		} else {
			balances[tr.From] = new(big.Int).Sub(protocol.Clone(balances[tr.From]), tr.Amount)
		}
		if tr.IsBurn() {
			replayed.Sub(replayed, tr.Amount)
		} else {
			balances[tr.To] = new(big.Int).Add(protocol.Clone(balances[tr.To]), tr.Amount)
		}
	}

	assert.Equal(t, 0, replayed.Cmp(s.Token.TotalSupply()))
	for _, a := range accounts {
		assert.Equal(t, 0, protocol.Clone(balances[a]).Cmp(s.Token.BalanceOf(a)), "balance of %s", a)
	}

	supply, _ := new(big.Rat).SetFrac(s.Token.TotalSupply(), protocol.Scale).Float64()
	assert.InDelta(t, supply, testutil.ToFloat64(m.TotalSupply), 1e-9)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Paused))
}

func TestRestartFromSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	first, err := deploy.Deploy(deploy.Options{Founder: founder}, nil)
	require.NoError(t, err)
	require.NoError(t, first.Token.Mint(user, units(1000), proof))
	require.NoError(t, first.Oracle.SetRatio(protocol.RatioFromPercent(40)))
	require.NoError(t, first.Governance.SetGovernor(founder, other))
	require.NoError(t, store.Capture(first).SaveToFile(path))

	second, err := deploy.Deploy(deploy.Options{Founder: founder}, nil)
	require.NoError(t, err)
	snap, err := store.LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, snap.Apply(second))

	assert.Equal(t, first.AddressBook(), second.AddressBook())
	assert.ErrorIs(t, second.Token.Mint(user, units(1), proof), protocol.ErrInsufficientReserve)
	assert.ErrorIs(t, second.Governance.Pause(founder), protocol.ErrNotGovernor)
	require.NoError(t, second.Governance.Pause(other))
	require.NoError(t, second.Token.Redeem(user, units(1000)))
	assert.Equal(t, 0, second.Token.TotalSupply().Sign())
}
