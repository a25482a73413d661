package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"depositprotocol/internal/protocol"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errBadRequest marks malformed input that never reached a component.
var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, protocol.ErrNotGovernor):
		return http.StatusForbidden
	case errors.Is(err, protocol.ErrProtocolPaused):
		return http.StatusLocked
	case errors.Is(err, protocol.ErrInsufficientReserve),
		errors.Is(err, protocol.ErrInvalidProof),
		errors.Is(err, protocol.ErrInsufficientBalance),
		errors.Is(err, protocol.ErrInsufficientAllowance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, protocol.ErrInvalidRatio),
		errors.Is(err, protocol.ErrNoOpUpdate),
		errors.Is(err, protocol.ErrInvalidAmount),
		errors.Is(err, protocol.ErrZeroAddress),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	code := protocol.Code(err)
	if code == "" {
		code = "bad_request"
		if statusFor(err) == http.StatusInternalServerError {
			code = "internal"
			s.logger.Error().Err(err).Str("op", op).Msg("request failed")
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveRejection(op, err)
	}
	writeJSON(w, statusFor(err), errorBody{Error: code, Message: err.Error()})
}
