package events

import (
	"github.com/rs/zerolog"

	"depositprotocol/internal/protocol"
)

// LogSink returns a handler writing one structured line per event.
func LogSink(logger zerolog.Logger) Handler {
	return func(env Envelope) {
		e := logger.Info().
			Uint64("seq", env.Seq).
			Str("kind", string(env.Kind)).
			Stringer("source", env.Event.Origin())

		switch ev := env.Event.(type) {
		case protocol.RatioUpdated:
			e = e.Str("ratio", protocol.FormatRatio(ev.Ratio))
		case protocol.ValidityChanged:
			e = e.Bool("valid", ev.Valid)
		case protocol.Paused:
			e = e.Stringer("by", ev.By)
		case protocol.Unpaused:
			e = e.Stringer("by", ev.By)
		case protocol.GovernorChanged:
			e = e.Stringer("previous", ev.Previous).Stringer("governor", ev.Governor)
		case protocol.LedgerChanged:
			e = e.Stringer("ledger", ev.Ledger)
		case protocol.Transfer:
			e = e.Stringer("from", ev.From).Stringer("to", ev.To).Str("amount", ev.Amount.String())
		case protocol.Approval:
			e = e.Stringer("owner", ev.Owner).Stringer("spender", ev.Spender).Str("amount", ev.Amount.String())
		case protocol.VerifierChanged:
			e = e.Stringer("previous", ev.Previous).Stringer("verifier", ev.Verifier)
		}
		e.Msg("protocol event")
	}
}
