// main.go - depositd serves a deposit-token deployment over HTTP.
//
// On start it deploys the component stack, restores the last snapshot if
// one exists, writes the address book and serves the API together with
// /metrics and /healthz. SIGINT or SIGTERM triggers a graceful shutdown that
// saves a fresh snapshot.
//
// Usage:
//
//	depositd -config depositd.toml
//	depositd -init depositd.toml
//	depositd -config depositd.toml -token 0x...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"depositprotocol/internal/api"
	"depositprotocol/internal/deploy"
	"depositprotocol/internal/events"
	"depositprotocol/internal/metrics"
	"depositprotocol/internal/protocol"
	"depositprotocol/internal/store"
	"depositprotocol/internal/token"
	"depositprotocol/internal/verifier"
)

const version = "0.3.0"

func main() {
	configPath := flag.String("config", "", "path to TOML config")
	initPath := flag.String("init", "", "write a default config to this path and exit")
	tokenFor := flag.String("token", "", "print a bearer token for this address and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of tokens printed by -token")
	flag.Parse()

	if *initPath != "" {
		if err := SaveConfig(DefaultConfig(), *initPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *tokenFor != "" {
		addr, err := protocol.ParseAddress(*tokenFor)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		tok, err := api.IssueToken([]byte(cfg.JWTSecret), addr, *tokenTTL)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(tok)
		return
	}

	logger, err := NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("depositd stopped")
	}
	logger.Info().Msg("depositd stopped")
}

func run(ctx context.Context, cfg Config, logger zerolog.Logger) error {
	bus := events.NewBus()
	bus.Subscribe(events.LogSink(logger.With().Str("component", "events").Logger()))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	v, err := buildVerifier(cfg, bus, logger)
	if err != nil {
		return err
	}
	stack, err := deploy.Deploy(deploy.Options{
		Name:         cfg.TokenName,
		Symbol:       cfg.TokenSymbol,
		Founder:      cfg.Founder,
		InitialRatio: protocol.RatioFromPercent(cfg.InitialRatioPercent),
		Verifier:     v,
	}, bus)
	if err != nil {
		return err
	}

	if err := restore(cfg.SnapshotPath, stack, logger); err != nil {
		return err
	}
	m.Seed(stack.Token.TotalSupply(), stack.Oracle.Ratio(), stack.Governance.IsPaused())
	bus.Subscribe(m.Handle)

	if cfg.AddressBookPath != "" {
		if err := stack.WriteAddressBook(cfg.AddressBookPath); err != nil {
			return err
		}
	}
	book := stack.AddressBook()
	logger.Info().
		Stringer("token", book.DepositToken).
		Stringer("oracle", book.ReserveOracle).
		Stringer("governance", book.GovernanceController).
		Stringer("verifier", book.Verifier).
		Stringer("governor", stack.Governance.Governor()).
		Msg("stack deployed")

	health := NewHealthChecker(version)
	registerChecks(health, stack)

	g, ctx := errgroup.WithContext(ctx)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		pub := events.NewRedisPublisher(client, cfg.RedisChannel, logger.With().Str("component", "redis").Logger())
		bus.Subscribe(pub.Handle)
		g.Go(func() error { return pub.Run(ctx) })
		health.Register("redis", func() (HealthStatus, string) {
			pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := client.Ping(pingCtx).Err(); err != nil {
				return Degraded, err.Error()
			}
			return Healthy, "OK"
		})
	}

	srv, err := api.New(api.Config{
		Stack:   stack,
		Bus:     bus,
		Secret:  []byte(cfg.JWTSecret),
		Logger:  logger.With().Str("component", "api").Logger(),
		Metrics: m,
	})
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(NewClientRateLimiter(cfg.RateLimit, cfg.RateWindow).Middleware)
	srv.Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Handle("/healthz", health)

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info().Str("listen", cfg.Listen).Msg("serving")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("http shutdown")
		}
		return save(cfg.SnapshotPath, stack, logger)
	})

	return g.Wait()
}

func buildVerifier(cfg Config, emitter protocol.Emitter, logger zerolog.Logger) (token.ProofVerifier, error) {
	switch cfg.VerifierMode {
	case "groth16":
		if err := os.MkdirAll(cfg.KeyDir, 0o755); err != nil {
			return nil, err
		}
		_, vk, err := verifier.SetupFromFiles(
			filepath.Join(cfg.KeyDir, "eligibility_pk.bin"),
			filepath.Join(cfg.KeyDir, "eligibility_vk.bin"),
		)
		if err != nil {
			return nil, fmt.Errorf("eligibility keys: %w", err)
		}
		logger.Info().Str("key_dir", cfg.KeyDir).Msg("groth16 verifier ready")
		return verifier.NewGroth16(vk), nil
	default:
		return verifier.NewMock(true, emitter), nil
	}
}

func restore(path string, stack *deploy.Stack, logger zerolog.Logger) error {
	if path == "" {
		return nil
	}
	snap, err := store.LoadFromFile(path)
	if errors.Is(err, store.ErrNoSnapshot) {
		logger.Info().Str("path", path).Msg("no snapshot, starting fresh")
		return nil
	}
	if err != nil {
		return err
	}
	if err := snap.Apply(stack); err != nil {
		return err
	}
	logger.Info().Str("path", path).Time("saved_at", snap.SavedAt).Msg("snapshot restored")
	return nil
}

func save(path string, stack *deploy.Stack, logger zerolog.Logger) error {
	if path == "" {
		return nil
	}
	if err := store.Capture(stack).SaveToFile(path); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	logger.Info().Str("path", path).Msg("snapshot saved")
	return nil
}

func registerChecks(hc *HealthChecker, stack *deploy.Stack) {
	hc.Register("ledger", func() (HealthStatus, string) {
		st := stack.Token.State()
		sum := new(big.Int)
		for _, h := range st.Holders {
			sum.Add(sum, h.Balance)
		}
		if sum.Cmp(st.TotalSupply) != 0 {
			return Unhealthy, "balances do not sum to supply"
		}
		return Healthy, "OK"
	})
	hc.Register("reserve", func() (HealthStatus, string) {
		ratio := stack.Oracle.Ratio()
		if !protocol.MeetsKappa(ratio) {
			return Degraded, "reserve ratio " + protocol.FormatRatio(ratio) + " below threshold, minting halted"
		}
		return Healthy, "ratio " + protocol.FormatRatio(ratio)
	})
	hc.Register("governance", func() (HealthStatus, string) {
		if stack.Governance.IsPaused() {
			return Degraded, "protocol paused"
		}
		return Healthy, "active"
	})
}
