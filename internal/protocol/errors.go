package protocol

import "errors"

// Rejections. Every one is terminal for the call that produced it and leaves
// component state untouched.
var (
	ErrNotGovernor           = errors.New("not governor")
	ErrProtocolPaused        = errors.New("protocol is paused")
	ErrInsufficientReserve   = errors.New("reserve below threshold")
	ErrInvalidProof          = errors.New("invalid zk-KYC proof")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInvalidRatio          = errors.New("ratio must be positive")
	ErrNoOpUpdate            = errors.New("ratio unchanged")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrZeroAddress           = errors.New("zero address")
)

// Code returns the stable identifier of a rejection, or "" when err is not
// one of ours. Used as a metrics label and in API error bodies.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotGovernor):
		return "not_governor"
	case errors.Is(err, ErrProtocolPaused):
		return "protocol_paused"
	case errors.Is(err, ErrInsufficientReserve):
		return "insufficient_reserve"
	case errors.Is(err, ErrInvalidProof):
		return "invalid_proof"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrInvalidRatio):
		return "invalid_ratio"
	case errors.Is(err, ErrNoOpUpdate):
		return "noop_update"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientAllowance):
		return "insufficient_allowance"
	case errors.Is(err, ErrZeroAddress):
		return "zero_address"
	default:
		return ""
	}
}
