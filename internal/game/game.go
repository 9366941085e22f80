// Package game is the opaque seam between the peer controller and an
// external tic-tac-toe rules engine. The core never inspects move
// semantics; it only forwards GAME_INVITE, GAME_MOVE, and GAME_RESULT
// records verbatim and acknowledges delivery at the transport level.
// GROUP_CREATE and GROUP_MSG records are forwarded to the same Sink.
package game

import "github.com/ImaginaryLogs/CSNETWK-MCO3/internal/record"

// Sink receives forwarded game records. A no-op Sink is used when no
// external game module is attached.
type Sink interface {
	OnMessage(r *record.Record)
}

// NopSink discards every forwarded record. It is the controller's default
// Sink when the caller hasn't attached a real game module.
type NopSink struct{}

// OnMessage implements Sink by doing nothing.
func (NopSink) OnMessage(*record.Record) {}
