// Package headstate defines HeadState, the tagged variant HeadLogic.Update
// folds events into.
package headstate

import (
	"github.com/sideledger/headnode/ledger"
	"github.com/sideledger/headnode/party"
	"github.com/sideledger/headnode/snapshot"
)

// Phase mirrors chain.Phase but at the HeadState level, which carries
// additional off-chain-only fields the chain mirror does not track.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInitial
	PhaseOpen
	PhaseClosed
	PhaseFinal
)

// SeenTx is one transaction HeadLogic has applied locally, pending full
// confirmation (every party's AckTx).
type SeenTx struct {
	Tx        ledger.Tx
	Acks      map[int]bool
	Confirmed bool
	Notified  bool // guards against double TxReceived
}

// State is the single tagged variant of HeadState: Idle | Initial |
// Open | Closed | Final. Rather than a language-level sum type (Go has
// none), every field is present and Phase says which subset is
// meaningful — the same technique a worker's Task/Result structs use
// when they carry more fields than any one caller needs.
type State struct {
	Phase Phase

	// Initial
	Parties        []party.Party
	Committed      map[int]ledger.UTxO
	PendingCommits map[int]bool

	// Open
	Parameters        party.Parameters
	ConfirmedUTxO     ledger.UTxO
	LocalUTxO         ledger.UTxO
	SeenTxs           []SeenTx
	ConfirmedSnapshot snapshot.Signed
	Pending           *snapshot.InProgress

	// Closed
	ContestationDeadline uint64
	Contesters           map[int]bool

	// Final
	FinalUTxO ledger.UTxO
}

// Idle is the zero State.
func Idle() State { return State{Phase: PhaseIdle} }

// ConfirmedTxIDs returns the transaction of every confirmed SeenTx (the
// Tx values, not their IDs), in SeenTxs order.
func (s State) ConfirmedTxIDs() []ledger.Tx {
	out := make([]ledger.Tx, 0, len(s.SeenTxs))
	for _, st := range s.SeenTxs {
		if st.Confirmed {
			out = append(out, st.Tx)
		}
	}
	return out
}
