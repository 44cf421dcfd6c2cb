package headlogic

import (
	"github.com/sideledger/headnode/client"
	"github.com/sideledger/headnode/common"
	"github.com/sideledger/headnode/crypto"
	"github.com/sideledger/headnode/event"
	"github.com/sideledger/headnode/headstate"
	"github.com/sideledger/headnode/ledger"
	"github.com/sideledger/headnode/network"
	"github.com/sideledger/headnode/snapshot"
)

// onReqSn implements the snapshot protocol, receiver side: a
// leader-sequential, strictly-numbered proposal that every party
// independently re-derives and acks.
func onReqSn(env Env, led ledger.Ledger, state headstate.State, msg network.Message) Outcome {
	expected := state.ConfirmedSnapshot.Body.Number + 1
	leader := state.Parameters.Leader(expected)
	if !msg.From.Equal(leader) {
		return invalidEvent("ReqSn from non-leader")
	}
	if msg.Number != expected {
		return outOfOrderSnapshot(expected, msg.Number)
	}
	if state.Pending != nil {
		return invalidEvent("ReqSn while a snapshot is already pending")
	}

	for _, txID := range msg.TxIds {
		if findSeenTx(state, txID) == nil {
			return Wait()
		}
	}

	candidateUTxO := state.ConfirmedSnapshot.Body.UTxO
	for _, txID := range msg.TxIds {
		tx := findSeenTx(state, txID)
		next, err := led.Apply(candidateUTxO, tx)
		if err != nil {
			return ledgerRejection(err)
		}
		candidateUTxO = next
	}
	body := snapshot.Snapshot{Number: msg.Number, Confirmed: msg.TxIds, UTxO: candidateUTxO}

	utxoHash, err := crypto.HashUTxO(body.UTxO)
	if err != nil {
		return invalidEvent("unable to hash candidate UTxO: " + err.Error())
	}
	sig := crypto.SignSnapshot(env.SigningKey, body.Number, utxoHash, body.ConfirmedBytes())

	next := state
	pending := snapshot.NewInProgress(msg.Number, leader.Index, body)
	pending.Acks[env.Self.Index] = sig
	next.Pending = pending

	return NewState(next, event.SendToPeers(network.AckSn(env.Self, msg.Number, sig)))
}

// onAckSn implements the sender side: collect acks for the pending
// snapshot, verifying each against the locally-recomputed candidate body
// so a signature over a different body (or under the wrong key) is
// silently dropped rather than accepted.
func onAckSn(env Env, state headstate.State, msg network.Message) Outcome {
	if state.Pending == nil || msg.Number != state.Pending.Number {
		return NewState(state) // not the pending snapshot: silent drop
	}

	fromIdx := msg.From.Index
	if fromIdx < 0 || fromIdx >= len(state.Parameters.Parties) {
		return NewState(state)
	}
	vkey := state.Parameters.Parties[fromIdx].VKey

	utxoHash, err := crypto.HashUTxO(state.Pending.Body.UTxO)
	if err != nil {
		return NewState(state)
	}
	if !crypto.VerifySnapshot(vkey, state.Pending.Number, utxoHash, state.Pending.Body.ConfirmedBytes(), msg.Sig) {
		return NewState(state) // bad signature: silent drop, never Error
	}

	pending := *state.Pending
	pending.Acks = cloneSigMap(pending.Acks)
	pending.Acks[fromIdx] = msg.Sig

	next := state
	next.Pending = &pending

	if len(pending.Acks) < len(state.Parameters.Parties) {
		return NewState(next)
	}

	// All parties have signed: promote to confirmed, clear pending, and
	// drop the now-confirmed txs out of seenTxs' unconfirmed suffix.
	signed := snapshot.Signed{Body: pending.Body, Signatures: cloneSigMap(pending.Acks)}
	next.ConfirmedSnapshot = signed
	next.SeenTxs = dropConfirmedPrefix(state.SeenTxs, pending.Body.Confirmed)
	next.Pending = nil

	effects := []event.Effect{event.NotifyClient(client.Notification{Kind: client.NotifySnapshotConfirmed, Snapshot: signed})}

	// If we are the leader for the next snapshot number, propose it
	// immediately over whatever remains unconfirmed.
	nextNumber := signed.Body.Number + 1
	if state.Parameters.Leader(nextNumber).Index == env.Self.Index {
		txIds := make([]common.TxID, 0, len(next.SeenTxs))
		for _, seen := range next.SeenTxs {
			txIds = append(txIds, seen.Tx.ID())
		}
		effects = append(effects, event.SendToPeers(network.ReqSn(env.Self, env.Self, nextNumber, txIds)))
	}

	return NewState(next, effects...)
}

func findSeenTx(state headstate.State, id common.TxID) ledger.Tx {
	for _, seen := range state.SeenTxs {
		if seen.Tx.ID() == id {
			return seen.Tx
		}
	}
	return nil
}

func cloneSigMap(m map[int]common.Signature) map[int]common.Signature {
	out := make(map[int]common.Signature, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// dropConfirmedPrefix removes from seenTxs every tx-id now folded into
// the confirmed snapshot, preserving the invariant that localUTxO =
// apply*(confirmedSnapshot.utxo, unconfirmed suffix of seenTxs).
func dropConfirmedPrefix(seenTxs []headstate.SeenTx, confirmed []common.TxID) []headstate.SeenTx {
	confirmedSet := make(map[common.TxID]bool, len(confirmed))
	for _, id := range confirmed {
		confirmedSet[id] = true
	}
	out := make([]headstate.SeenTx, 0, len(seenTxs))
	for _, seen := range seenTxs {
		if !confirmedSet[seen.Tx.ID()] {
			out = append(out, seen)
		}
	}
	return out
}
