package chain

import (
	"fmt"
	"time"

	"github.com/sideledger/headnode/ledger"
	"github.com/sideledger/headnode/party"
)

// CommitOutput describes one UTxO entry a party wants to commit, along
// with the two shape flags the commit constructor must reject on.
type CommitOutput struct {
	Ref                 ledger.Ref
	Value               int
	LegacyAddress       bool
	HasReferenceScript  bool
}

// Spendable describes what the committing party can spend when Commit
// builds its transaction; Initialize takes its seed input as a plain
// string instead.
type Spendable struct {
	// OwnInitial is true when the committing party's initial marker
	// (created by the Init transaction) is present among Spendable's
	// inputs. Absent means CannotFindOwnInitial.
	OwnInitial bool
}

// Initialize always succeeds given a spendable seed: it
// builds the Init transaction that will create the head and its initial
// per-party markers.
func Initialize(ctx Context, params party.Parameters, seedInput string) OnChainTx {
	return OnChainTx{
		Kind:                TxInit,
		Parties:             params.Parties,
		ContestationPeriod:  params.ContestationPeriod,
		SeedInput:           seedInput,
	}
}

// Commit builds the per-party commit transaction, or rejects it per its
// four named rejection rules.
func Commit(ctx Context, head HeadID, spendable Spendable, committer party.Party, toCommit []CommitOutput) (OnChainTx, error) {
	if !spendable.OwnInitial {
		return OnChainTx{}, &CommitError{Reason: CannotFindOwnInitial}
	}

	total := 0
	committedUTxO := ledger.NewSimpleUTxO()
	for _, out := range toCommit {
		if out.LegacyAddress {
			return OnChainTx{}, &CommitError{Reason: UnsupportedLegacyOutput}
		}
		if out.HasReferenceScript {
			return OnChainTx{}, &CommitError{Reason: CannotCommitReferenceScript}
		}
		total += out.Value
		committedUTxO[out.Ref] = out.Value
	}

	if ctx.Network == NetworkMainnet && total > MainnetCommitCap {
		return OnChainTx{}, &CommitError{Reason: CommittedTooMuchForMainnet}
	}

	return OnChainTx{
		Kind:      TxCommit,
		Head:      head,
		Committer: committer,
		Committed: committedUTxO,
	}, nil
}

// Abort builds the abort transaction, reimbursing every party that had
// already committed.
func Abort(ctx Context, head HeadID, committed map[int]ledger.UTxO) OnChainTx {
	merged := ledger.NewSimpleUTxO()
	for _, u := range committed {
		if su, ok := u.(ledger.SimpleUTxO); ok {
			for ref, v := range su {
				merged[ref] = v
			}
		}
	}
	return OnChainTx{Kind: TxAbort, Head: head, FinalUTxO: merged}
}

// Collect builds the collect-com transaction that opens the head once
// every party has committed.
func Collect(ctx Context, head HeadID, committed map[int]ledger.UTxO) OnChainTx {
	merged := ledger.NewSimpleUTxO()
	for _, u := range committed {
		if su, ok := u.(ledger.SimpleUTxO); ok {
			for ref, v := range su {
				merged[ref] = v
			}
		}
	}
	return OnChainTx{Kind: TxCollect, Head: head, Committed: merged}
}

// Close builds the close transaction for the current confirmedSnapshot.
// lowerSlot/upperPointInTime bound the observation window used to
// derive the contestation deadline, which must satisfy
// upper - lower <= contestationPeriod.
func Close(ctx Context, head HeadID, params party.Parameters, snapshotNumber uint64, confirmedUTxO ledger.UTxO, lowerSlot, upperPointInTime uint64) (OnChainTx, error) {
	if upperPointInTime < lowerSlot {
		return OnChainTx{}, &CloseError{Reason: "upper point in time precedes lower slot"}
	}
	window := time.Duration(upperPointInTime-lowerSlot) * time.Second
	if window > params.ContestationPeriod {
		return OnChainTx{}, &CloseError{Reason: fmt.Sprintf("window %s exceeds contestation period %s", window, params.ContestationPeriod)}
	}
	deadline := upperPointInTime + uint64(params.ContestationPeriod/time.Second)
	return OnChainTx{
		Kind:             TxClose,
		Head:             head,
		Snapshot:         snapshotNumber,
		ConfirmedUTxO:    confirmedUTxO,
		LowerSlot:        lowerSlot,
		UpperPointInTime: upperPointInTime,
		Deadline:         deadline,
	}, nil
}

// Contest builds the contest transaction for a contester who knows a
// higher-numbered confirmed snapshot than the one currently closing.
func Contest(ctx Context, head HeadID, snapshotNumber uint64, confirmedUTxO ledger.UTxO, contester party.Party, deadline uint64) OnChainTx {
	c := contester
	return OnChainTx{
		Kind:          TxContest,
		Head:          head,
		Snapshot:      snapshotNumber,
		ConfirmedUTxO: confirmedUTxO,
		Contester:     &c,
		Deadline:      deadline,
	}
}

// Fanout builds the terminal transaction that materialises the final
// head UTxO on the base chain once the contestation deadline has passed.
func Fanout(ctx Context, head HeadID, finalUTxO ledger.UTxO) OnChainTx {
	return OnChainTx{Kind: TxFanout, Head: head, FinalUTxO: finalUTxO}
}
