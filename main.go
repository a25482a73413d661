// main.go - Walks a fresh deployment through the reference scenarios.
//
// The runner deploys the four components on an event bus, plays the
// acceptance scenarios and the full lifecycle (mint, reserve drop, pause,
// recovery, unpause, redeem, verifier upgrade) and logs every protocol event.
// It exits non-zero on the first step whose outcome differs from the
// expected one.
//
// Usage:
//
//	go run .            mock verifier only
//	go run . -groth16   also upgrade to the Groth16 eligibility verifier
package main

import (
	"errors"
	"flag"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/rs/zerolog"

	"depositprotocol/internal/deploy"
	"depositprotocol/internal/events"
	"depositprotocol/internal/protocol"
	"depositprotocol/internal/verifier"
)

var (
	founder = protocol.AddressFromLabel("founder")
	user    = protocol.AddressFromLabel("user")
	other   = protocol.AddressFromLabel("other")
	proof   = []byte{0x00}
)

// step is one action with its expected outcome; want nil means success.
type step struct {
	name string
	run  func() error
	want error
}

// scenario is a named sequence of steps over a fresh stack.
type scenario struct {
	name  string
	steps func(s *deploy.Stack) []step
	check func(s *deploy.Stack) error
}

func units(n int64) *big.Int { return big.NewInt(n) }

func scenarios(withGroth16 bool) []scenario {
	out := []scenario{
		{
			name: "A: healthy mint",
			steps: func(s *deploy.Stack) []step {
				return []step{{"mint 1000", func() error { return s.Token.Mint(user, units(1000), proof) }, nil}}
			},
			check: balanceIs(user, 1000),
		},
		{
			name: "B: reserve below threshold",
			steps: func(s *deploy.Stack) []step {
				return []step{
					{"ratio to 40%", func() error { return s.Oracle.SetRatio(protocol.RatioFromPercent(40)) }, nil},
					{"mint 1000", func() error { return s.Token.Mint(user, units(1000), proof) }, protocol.ErrInsufficientReserve},
				}
			},
			check: balanceIs(user, 0),
		},
		{
			name: "C: proof rejected",
			steps: func(s *deploy.Stack) []step {
				return []step{
					{"verifier to false", func() error { return setValid(s, false) }, nil},
					{"mint 1000", func() error { return s.Token.Mint(user, units(1000), proof) }, protocol.ErrInvalidProof},
				}
			},
			check: balanceIs(user, 0),
		},
		{
			name: "D: pause takes precedence",
			steps: func(s *deploy.Stack) []step {
				return []step{
					{"pause", func() error { return s.Governance.Pause(founder) }, nil},
					{"ratio to 40%", func() error { return s.Oracle.SetRatio(protocol.RatioFromPercent(40)) }, nil},
					{"mint 1000", func() error { return s.Token.Mint(user, units(1000), proof) }, protocol.ErrProtocolPaused},
				}
			},
			check: balanceIs(user, 0),
		},
		{
			name: "E: non-governor administration",
			steps: func(s *deploy.Stack) []step {
				return []step{
					{"pause", func() error { return s.Governance.Pause(other) }, protocol.ErrNotGovernor},
					{"unpause", func() error { return s.Governance.Unpause(other) }, protocol.ErrNotGovernor},
					{"set governor", func() error { return s.Governance.SetGovernor(other, other) }, protocol.ErrNotGovernor},
					{"set verifier", func() error {
						return s.Token.SetVerifier(other, verifier.NewMock(true, nil))
					}, protocol.ErrNotGovernor},
				}
			},
			check: func(s *deploy.Stack) error {
				if s.Governance.Governor() != founder || s.Governance.IsPaused() {
					return errors.New("governance state changed")
				}
				return nil
			},
		},
		{
			name:  "lifecycle",
			steps: lifecycle,
			check: func(s *deploy.Stack) error {
				if err := balanceIs(user, 600)(s); err != nil {
					return err
				}
				if s.Token.TotalSupply().Cmp(units(1600)) != 0 {
					return fmt.Errorf("total supply %s, want 1600", s.Token.TotalSupply())
				}
				return nil
			},
		},
	}
	if withGroth16 {
		out = append(out, scenario{name: "groth16 eligibility", steps: eligibility, check: balanceIs(user, 500)})
	}
	return out
}

func lifecycle(s *deploy.Stack) []step {
	next := verifier.NewMock(false, nil)
	return []step{
		{"mint 1000", func() error { return s.Token.Mint(user, units(1000), proof) }, nil},
		{"reserve drops to 85%", func() error { return s.Oracle.SetRatio(protocol.RatioFromPercent(85)) }, nil},
		{"mint during shortfall", func() error { return s.Token.Mint(other, units(1000), proof) }, protocol.ErrInsufficientReserve},
		{"pause", func() error { return s.Governance.Pause(founder) }, nil},
		{"reserve recovers", func() error { return s.Oracle.SetRatio(protocol.Kappa) }, nil},
		{"mint while paused", func() error { return s.Token.Mint(other, units(1000), proof) }, protocol.ErrProtocolPaused},
		{"unpause", func() error { return s.Governance.Unpause(founder) }, nil},
		{"mint after recovery", func() error { return s.Token.Mint(other, units(1000), proof) }, nil},
		{"redeem 400", func() error { return s.Token.Redeem(user, units(400)) }, nil},
		{"redeem too much", func() error { return s.Token.Redeem(user, units(601)) }, protocol.ErrInsufficientBalance},
		{"upgrade verifier", func() error { return s.Token.SetVerifier(founder, next) }, nil},
		{"mint with rejecting verifier", func() error { return s.Token.Mint(user, units(1), proof) }, protocol.ErrInvalidProof},
	}
}

func eligibility(s *deploy.Stack) []step {
	var (
		prover *verifier.Prover
		g16    *verifier.Groth16
		cred   *verifier.Credential
		bundle []byte
	)
	return []step{
		{"groth16 setup", func() error {
			p, vk, err := verifier.Setup()
			if err != nil {
				return err
			}
			prover, g16 = p, verifier.NewGroth16(vk)
			return nil
		}, nil},
		{"upgrade verifier", func() error { return s.Token.SetVerifier(founder, g16) }, nil},
		{"prove credential", func() error {
			var err error
			if cred, err = verifier.NewCredential(user); err != nil {
				return err
			}
			bundle, err = prover.Prove(cred)
			return err
		}, nil},
		{"mint before attestation", func() error { return s.Token.Mint(user, units(500), bundle) }, protocol.ErrInvalidProof},
		{"attest and mint", func() error {
			g16.Attest(cred.Commitment)
			return s.Token.Mint(user, units(500), bundle)
		}, nil},
		{"mint with garbage proof", func() error { return s.Token.Mint(user, units(1), []byte("junk")) }, protocol.ErrInvalidProof},
	}
}

func setValid(s *deploy.Stack, flag bool) error {
	m, ok := s.Mock()
	if !ok {
		return errors.New("stack verifier has no capability flag")
	}
	m.SetValid(flag)
	return nil
}

func balanceIs(addr protocol.Address, want int64) func(*deploy.Stack) error {
	return func(s *deploy.Stack) error {
		if got := s.Token.BalanceOf(addr); got.Cmp(units(want)) != 0 {
			return fmt.Errorf("balance of %s is %s, want %d", addr, got, want)
		}
		return nil
	}
}

// runScenario plays sc on a fresh stack whose events go to logger.
func runScenario(sc scenario, logger zerolog.Logger) error {
	bus := events.NewBus()
	bus.Subscribe(events.LogSink(logger))
	stack, err := deploy.Deploy(deploy.Options{Founder: founder}, bus)
	if err != nil {
		return err
	}

	for _, st := range sc.steps(stack) {
		err := st.run()
		switch {
		case st.want == nil && err != nil:
			return fmt.Errorf("%s: unexpected error: %w", st.name, err)
		case st.want != nil && !errors.Is(err, st.want):
			return fmt.Errorf("%s: got %v, want %v", st.name, err, st.want)
		}
		ev := logger.Info().Str("step", st.name)
		if err != nil {
			ev = ev.Str("rejected", protocol.Code(err))
		}
		ev.Msg("step ok")
	}
	if sc.check != nil {
		if err := sc.check(stack); err != nil {
			return fmt.Errorf("final state: %w", err)
		}
	}
	return nil
}

func main() {
	withGroth16 := flag.Bool("groth16", false, "include the Groth16 eligibility scenario")
	jsonLogs := flag.Bool("json", false, "log as JSON")
	flag.Parse()

	var logger zerolog.Logger
	if *jsonLogs {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	}

	for _, sc := range scenarios(*withGroth16) {
		l := logger.With().Str("scenario", sc.name).Logger()
		l.Info().Msg("=== start ===")
		if err := runScenario(sc, l); err != nil {
			l.Error().Err(err).Msg("scenario failed")
			os.Exit(1)
		}
		l.Info().Msg("=== passed ===")
	}
}
