package chain

import (
	"github.com/sideledger/headnode/common"
	"github.com/sideledger/headnode/ledger"
	"github.com/sideledger/headnode/party"
)

// Phase names the four non-Idle on-chain lifecycle states plus Idle
// itself.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInitial
	PhaseOpen
	PhaseClosed
	PhaseFinal
)

// State is the chain-observable subset of head lifecycle data:
// everything ChainStateMachine's observers need to recognise the next
// transaction and everything LocalChainState needs to roll back to.
// It intentionally excludes off-chain-only fields (seenTxs, localUTxO,
// snapshot-in-progress) that live solely in headstate.State.
type State struct {
	Phase Phase
	Head  HeadID

	Parameters party.Parameters

	// Initial
	Committed      map[int]ledger.UTxO
	PendingCommits map[int]bool

	// Open
	ConfirmedUTxO    ledger.UTxO
	ConfirmedNumber  uint64

	// Closed
	ContestationDeadline uint64
	Contesters           map[int]bool

	// Final
	FinalUTxO ledger.UTxO

	// RecordedAt is the chain point this State was observed at; used by
	// LocalChainState's bounded history.
	RecordedAt common.ChainPoint
}

// Idle is the zero State: nothing known about any head yet.
func Idle() State { return State{Phase: PhaseIdle} }
