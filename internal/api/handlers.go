package api

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"depositprotocol/internal/protocol"
)

type supplyResponse struct {
	Address     protocol.Address `json:"address"`
	Name        string           `json:"name"`
	Symbol      string           `json:"symbol"`
	Decimals    uint8            `json:"decimals"`
	TotalSupply Amount           `json:"total_supply"`
}

type balanceResponse struct {
	Address protocol.Address `json:"address"`
	Balance Amount           `json:"balance"`
}

type allowanceResponse struct {
	Owner     protocol.Address `json:"owner"`
	Spender   protocol.Address `json:"spender"`
	Allowance Amount           `json:"allowance"`
}

type reserveResponse struct {
	Address protocol.Address `json:"address"`
	Ratio   string           `json:"ratio"`
	Percent string           `json:"percent"`
	Healthy bool             `json:"healthy"`
}

type governanceResponse struct {
	Address  protocol.Address `json:"address"`
	Governor protocol.Address `json:"governor"`
	Paused   bool             `json:"paused"`
	Ledger   protocol.Address `json:"ledger"`
}

type verifyRequest struct {
	Proof []byte `json:"proof"`
}

type verifyResponse struct {
	Verifier protocol.Address `json:"verifier"`
	Valid    bool             `json:"valid"`
}

type mintRequest struct {
	To     protocol.Address `json:"to"`
	Amount Amount           `json:"amount"`
	Proof  []byte           `json:"proof"`
}

type amountRequest struct {
	Amount Amount `json:"amount"`
}

type transferRequest struct {
	To     protocol.Address `json:"to"`
	Amount Amount           `json:"amount"`
}

type transferFromRequest struct {
	From   protocol.Address `json:"from"`
	To     protocol.Address `json:"to"`
	Amount Amount           `json:"amount"`
}

type approveRequest struct {
	Spender protocol.Address `json:"spender"`
	Amount  Amount           `json:"amount"`
}

type ratioRequest struct {
	Ratio string `json:"ratio"`
}

type governorRequest struct {
	Governor protocol.Address `json:"governor"`
}

type validRequest struct {
	Valid bool `json:"valid"`
}

type commitmentRequest struct {
	Commitment string `json:"commitment"`
}

type attestResponse struct {
	Verifier   protocol.Address `json:"verifier"`
	Commitment string           `json:"commitment"`
	Attested   bool             `json:"attested"`
}

// attester is implemented by verifiers backed by a commitment registry.
type attester interface {
	Attest(commitment []byte)
	Revoke(commitment []byte)
	IsAttested(commitment []byte) bool
}

func (s *Server) handleAddresses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stack.AddressBook())
}

func (s *Server) handleSupply(w http.ResponseWriter, r *http.Request) {
	l := s.stack.Token
	writeJSON(w, http.StatusOK, supplyResponse{
		Address:     l.Address(),
		Name:        l.Name(),
		Symbol:      l.Symbol(),
		Decimals:    l.Decimals(),
		TotalSupply: Amount{l.TotalSupply()},
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		s.writeError(w, "balance", err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Address: addr, Balance: Amount{s.stack.Token.BalanceOf(addr)}})
}

func (s *Server) handleAllowance(w http.ResponseWriter, r *http.Request) {
	owner, err := pathAddress(r, "owner")
	if err != nil {
		s.writeError(w, "allowance", err)
		return
	}
	spender, err := pathAddress(r, "spender")
	if err != nil {
		s.writeError(w, "allowance", err)
		return
	}
	writeJSON(w, http.StatusOK, allowanceResponse{
		Owner:     owner,
		Spender:   spender,
		Allowance: Amount{s.stack.Token.Allowance(owner, spender)},
	})
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	o := s.stack.Oracle
	ratio := o.Ratio()
	writeJSON(w, http.StatusOK, reserveResponse{
		Address: o.Address(),
		Ratio:   protocol.FormatRatio(ratio),
		Percent: protocol.RatioPercent(ratio),
		Healthy: protocol.MeetsKappa(ratio),
	})
}

func (s *Server) handleGovernance(w http.ResponseWriter, r *http.Request) {
	st := s.stack.Governance.State()
	writeJSON(w, http.StatusOK, governanceResponse(st))
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, "verify", err)
		return
	}
	v := s.stack.Token.Verifier()
	writeJSON(w, http.StatusOK, verifyResponse{Verifier: v.Address(), Valid: v.Verify(req.Proof)})
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, "mint", err)
		return
	}
	if err := s.stack.Token.Mint(req.To, req.Amount.Int, req.Proof); err != nil {
		s.writeError(w, "mint", err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Address: req.To, Balance: Amount{s.stack.Token.BalanceOf(req.To)}})
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	caller := Caller(r.Context())
	var req amountRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, "redeem", err)
		return
	}
	if err := s.stack.Token.Redeem(caller, req.Amount.Int); err != nil {
		s.writeError(w, "redeem", err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Address: caller, Balance: Amount{s.stack.Token.BalanceOf(caller)}})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	caller := Caller(r.Context())
	var req transferRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, "transfer", err)
		return
	}
	if err := s.stack.Token.Transfer(caller, req.To, req.Amount.Int); err != nil {
		s.writeError(w, "transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Address: caller, Balance: Amount{s.stack.Token.BalanceOf(caller)}})
}

func (s *Server) handleTransferFrom(w http.ResponseWriter, r *http.Request) {
	caller := Caller(r.Context())
	var req transferFromRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, "transfer_from", err)
		return
	}
	if err := s.stack.Token.TransferFrom(caller, req.From, req.To, req.Amount.Int); err != nil {
		s.writeError(w, "transfer_from", err)
		return
	}
	writeJSON(w, http.StatusOK, allowanceResponse{
		Owner:     req.From,
		Spender:   caller,
		Allowance: Amount{s.stack.Token.Allowance(req.From, caller)},
	})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	caller := Caller(r.Context())
	var req approveRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, "approve", err)
		return
	}
	if err := s.stack.Token.Approve(caller, req.Spender, req.Amount.Int); err != nil {
		s.writeError(w, "approve", err)
		return
	}
	writeJSON(w, http.StatusOK, allowanceResponse{
		Owner:     caller,
		Spender:   req.Spender,
		Allowance: Amount{s.stack.Token.Allowance(caller, req.Spender)},
	})
}

// handleSetReserve wraps the unrestricted oracle setter in a governor check.
func (s *Server) handleSetReserve(w http.ResponseWriter, r *http.Request) {
	if err := s.requireGovernor(r); err != nil {
		s.writeError(w, "set_ratio", err)
		return
	}
	var req ratioRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, "set_ratio", err)
		return
	}
	ratio, err := protocol.ParseRatio(req.Ratio)
	if err != nil {
		s.writeError(w, "set_ratio", fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := s.stack.Oracle.SetRatio(ratio); err != nil {
		s.writeError(w, "set_ratio", err)
		return
	}
	s.handleReserve(w, r)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.stack.Governance.Pause(Caller(r.Context())); err != nil {
		s.writeError(w, "pause", err)
		return
	}
	s.handleGovernance(w, r)
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	if err := s.stack.Governance.Unpause(Caller(r.Context())); err != nil {
		s.writeError(w, "unpause", err)
		return
	}
	s.handleGovernance(w, r)
}

func (s *Server) handleSetGovernor(w http.ResponseWriter, r *http.Request) {
	var req governorRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, "set_governor", err)
		return
	}
	if err := s.stack.Governance.SetGovernor(Caller(r.Context()), req.Governor); err != nil {
		s.writeError(w, "set_governor", err)
		return
	}
	s.handleGovernance(w, r)
}

// handleSetValid flips the Mock capability flag. Only the governor may do so
// over HTTP, and only when the stack runs the Mock.
func (s *Server) handleSetValid(w http.ResponseWriter, r *http.Request) {
	if err := s.requireGovernor(r); err != nil {
		s.writeError(w, "set_valid", err)
		return
	}
	var req validRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, "set_valid", err)
		return
	}
	m, ok := s.stack.Mock()
	if !ok {
		writeJSON(w, http.StatusConflict, errorBody{Error: "unsupported", Message: "verifier has no capability flag"})
		return
	}
	m.SetValid(req.Valid)
	writeJSON(w, http.StatusOK, verifyResponse{Verifier: m.Address(), Valid: m.Valid()})
}

func (s *Server) requireGovernor(r *http.Request) error {
	if !s.stack.Governance.IsGovernor(Caller(r.Context())) {
		return protocol.ErrNotGovernor
	}
	return nil
}

func (s *Server) handleAttest(w http.ResponseWriter, r *http.Request) {
	s.updateAttestation(w, r, "attest", attester.Attest)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	s.updateAttestation(w, r, "revoke", attester.Revoke)
}

func (s *Server) updateAttestation(w http.ResponseWriter, r *http.Request, op string, apply func(attester, []byte)) {
	if err := s.requireGovernor(r); err != nil {
		s.writeError(w, op, err)
		return
	}
	var req commitmentRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, op, err)
		return
	}
	commitment, err := hex.DecodeString(strings.TrimPrefix(req.Commitment, "0x"))
	if err != nil || len(commitment) == 0 {
		s.writeError(w, op, fmt.Errorf("%w: commitment must be hex", errBadRequest))
		return
	}
	v := s.stack.Token.Verifier()
	a, ok := v.(attester)
	if !ok {
		writeJSON(w, http.StatusConflict, errorBody{Error: "unsupported", Message: "verifier has no commitment registry"})
		return
	}
	apply(a, commitment)
	writeJSON(w, http.StatusOK, attestResponse{
		Verifier:   v.Address(),
		Commitment: "0x" + hex.EncodeToString(commitment),
		Attested:   a.IsAttested(commitment),
	})
}
