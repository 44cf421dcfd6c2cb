package chain

import (
	"github.com/sideledger/headnode/ledger"
	"github.com/sideledger/headnode/party"
)

// Transition is the event half of an observer's (event, state') result:
// a tagged description of which lifecycle step was recognised, carrying
// exactly the fields HeadLogic needs to update its own HeadState.
type Transition struct {
	Kind TxKind

	// Init
	Parameters party.Parameters

	// Commit
	Committer int
	Committed ledger.UTxO

	// Collect
	CollectedUTxO ledger.UTxO

	// Close
	Snapshot uint64
	Deadline uint64

	// Contest
	Contester  int
	Contesters map[int]bool

	// Fanout / Abort
	FinalUTxO ledger.UTxO
}

// headMatches reports whether tx targets the head the observer is
// tracking; a mismatch means "unrelated transaction", observed silently
// as None.
func headMatches(tracked, txHead HeadID) bool {
	var zero HeadID
	if tracked == zero {
		return true // not yet bound to a head (Idle, awaiting ObserveInit)
	}
	return tracked == txHead
}

func pendingFrom(parties []party.Party) map[int]bool {
	m := make(map[int]bool, len(parties))
	for _, p := range parties {
		m[p.Index] = true
	}
	return m
}

// ObserveInit recognises the Init transaction and moves Idle -> Initial.
// head is the identifier the follower has assigned this transaction
// (derived from its seed input), becoming the tracked HeadID going
// forward.
func ObserveInit(s State, tx OnChainTx, head HeadID) (Transition, State, bool) {
	if tx.Kind != TxInit || s.Phase != PhaseIdle {
		return Transition{}, s, false
	}
	params := party.Parameters{Parties: tx.Parties, ContestationPeriod: tx.ContestationPeriod}
	next := State{
		Phase:          PhaseInitial,
		Head:           head,
		Parameters:     params,
		Committed:      make(map[int]ledger.UTxO),
		PendingCommits: pendingFrom(tx.Parties),
	}
	return Transition{Kind: TxInit, Parameters: params}, next, true
}

// ObserveCommit recognises a party's commit transaction during Initial.
func ObserveCommit(s State, tx OnChainTx) (Transition, State, bool) {
	if tx.Kind != TxCommit || s.Phase != PhaseInitial || !headMatches(s.Head, tx.Head) {
		return Transition{}, s, false
	}
	next := s
	next.Committed = cloneCommitted(s.Committed)
	next.Committed[tx.Committer.Index] = tx.Committed
	next.PendingCommits = cloneBoolSet(s.PendingCommits)
	delete(next.PendingCommits, tx.Committer.Index)

	return Transition{Kind: TxCommit, Committer: tx.Committer.Index, Committed: tx.Committed}, next, true
}

// ObserveCollect recognises the collect-com transaction, opening the
// head once every party has committed.
func ObserveCollect(s State, tx OnChainTx) (Transition, State, bool) {
	if tx.Kind != TxCollect || s.Phase != PhaseInitial || !headMatches(s.Head, tx.Head) {
		return Transition{}, s, false
	}
	next := State{
		Phase:           PhaseOpen,
		Head:            s.Head,
		Parameters:      s.Parameters,
		ConfirmedUTxO:   tx.Committed,
		ConfirmedNumber: 0,
	}
	return Transition{Kind: TxCollect, CollectedUTxO: tx.Committed}, next, true
}

// ObserveAbort recognises the abort transaction, reimbursing commits
// before any collect-com.
func ObserveAbort(s State, tx OnChainTx) (Transition, State, bool) {
	if tx.Kind != TxAbort || s.Phase != PhaseInitial || !headMatches(s.Head, tx.Head) {
		return Transition{}, s, false
	}
	next := State{Phase: PhaseFinal, Head: s.Head, FinalUTxO: tx.FinalUTxO}
	return Transition{Kind: TxAbort, FinalUTxO: tx.FinalUTxO}, next, true
}

// ObserveClose recognises the close transaction, opening the
// contestation window.
func ObserveClose(s State, tx OnChainTx) (Transition, State, bool) {
	if tx.Kind != TxClose || s.Phase != PhaseOpen || !headMatches(s.Head, tx.Head) {
		return Transition{}, s, false
	}
	next := State{
		Phase:                PhaseClosed,
		Head:                 s.Head,
		Parameters:           s.Parameters,
		ConfirmedUTxO:        tx.ConfirmedUTxO,
		ConfirmedNumber:      tx.Snapshot,
		ContestationDeadline: tx.Deadline,
		Contesters:           make(map[int]bool),
	}
	return Transition{Kind: TxClose, Snapshot: tx.Snapshot, Deadline: tx.Deadline}, next, true
}

// ObserveContest recognises a contest transaction during Closed. The
// closed parties, contestation deadline, and contesters it needs are
// read straight off the State being observed against — s.Parameters.Parties,
// s.ContestationDeadline, s.Contesters — rather than carried separately,
// since that is the only place those values exist by the time a contest
// is observed.
func ObserveContest(s State, tx OnChainTx) (Transition, State, bool) {
	if tx.Kind != TxContest || s.Phase != PhaseClosed || !headMatches(s.Head, tx.Head) {
		return Transition{}, s, false
	}
	next := s
	next.Contesters = cloneBoolSet(s.Contesters)
	if tx.Contester != nil {
		next.Contesters[tx.Contester.Index] = true
	}
	if tx.Snapshot > s.ConfirmedNumber {
		next.ConfirmedUTxO = tx.ConfirmedUTxO
		next.ConfirmedNumber = tx.Snapshot
	}
	if tx.Deadline > next.ContestationDeadline {
		next.ContestationDeadline = tx.Deadline
	}
	return Transition{Kind: TxContest, Snapshot: tx.Snapshot, Contesters: next.Contesters}, next, true
}

// ObserveFanout recognises the terminal fanout transaction.
func ObserveFanout(s State, tx OnChainTx) (Transition, State, bool) {
	if tx.Kind != TxFanout || s.Phase != PhaseClosed || !headMatches(s.Head, tx.Head) {
		return Transition{}, s, false
	}
	next := State{Phase: PhaseFinal, Head: s.Head, FinalUTxO: tx.FinalUTxO}
	return Transition{Kind: TxFanout, FinalUTxO: tx.FinalUTxO}, next, true
}

func cloneCommitted(m map[int]ledger.UTxO) map[int]ledger.UTxO {
	out := make(map[int]ledger.UTxO, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBoolSet(m map[int]bool) map[int]bool {
	out := make(map[int]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
