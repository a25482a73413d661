// Package api serves the protocol over HTTP.
//
// Reads are public. Writes carry a bearer token whose subject is the caller
// address; every write is forwarded to the component with that caller and
// the component decides authorization.
package api

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"depositprotocol/internal/deploy"
	"depositprotocol/internal/events"
	"depositprotocol/internal/metrics"
	"depositprotocol/internal/protocol"
)

// Server exposes a deployed stack.
type Server struct {
	stack   *deploy.Stack
	bus     *events.Bus
	secret  []byte
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Config holds Server dependencies. Bus and Metrics are optional; without a
// bus the event stream answers 503.
type Config struct {
	Stack   *deploy.Stack
	Bus     *events.Bus
	Secret  []byte
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// New builds a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Stack == nil {
		return nil, fmt.Errorf("api: stack is required")
	}
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("api: jwt secret is required")
	}
	return &Server{
		stack:   cfg.Stack,
		bus:     cfg.Bus,
		secret:  cfg.Secret,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}, nil
}

// Register mounts all endpoints on r.
func (s *Server) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Use(s.observe)

		r.Get("/addresses", s.handleAddresses)
		r.Get("/supply", s.handleSupply)
		r.Get("/balances/{address}", s.handleBalance)
		r.Get("/allowances/{owner}/{spender}", s.handleAllowance)
		r.Get("/reserve", s.handleReserve)
		r.Get("/governance", s.handleGovernance)
		r.Post("/verify", s.handleVerify)
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Post("/mint", s.handleMint)
			r.Post("/redeem", s.handleRedeem)
			r.Post("/transfer", s.handleTransfer)
			r.Post("/transfer-from", s.handleTransferFrom)
			r.Post("/approve", s.handleApprove)
			r.Put("/reserve", s.handleSetReserve)
			r.Post("/admin/pause", s.handlePause)
			r.Post("/admin/unpause", s.handleUnpause)
			r.Post("/admin/governor", s.handleSetGovernor)
			r.Post("/admin/verifier/valid", s.handleSetValid)
			r.Post("/admin/verifier/attest", s.handleAttest)
			r.Post("/admin/verifier/revoke", s.handleRevoke)
		})
	})
}

// Handler returns a standalone router with all endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if s.metrics != nil {
			route := r.Method + " " + chi.RouteContext(r.Context()).RoutePattern()
			s.metrics.ObserveRequest(route, start)
		}
	})
}

// Amount is a base-unit integer carried as a decimal string in JSON.
type Amount struct{ *big.Int }

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(protocol.Clone(a.Int).String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount must be a decimal string: %w", err)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("amount %q is not an integer", s)
	}
	a.Int = v
	return nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func pathAddress(r *http.Request, name string) (protocol.Address, error) {
	addr, err := protocol.ParseAddress(chi.URLParam(r, name))
	if err != nil {
		return protocol.ZeroAddress, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return addr, nil
}
