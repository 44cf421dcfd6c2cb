package headlogic

import (
	"github.com/sideledger/headnode/chain"
	"github.com/sideledger/headnode/client"
	"github.com/sideledger/headnode/event"
	"github.com/sideledger/headnode/headstate"
	"github.com/sideledger/headnode/ledger"
)

// Update is the pure core of the head protocol: (state, event) ->
// Outcome. It never performs I/O; every side effect the caller must
// perform is returned in Outcome.Effects.
func Update(env Env, led ledger.Ledger, state headstate.State, ev event.Event) Outcome {
	switch ev.Kind {
	case event.KindClientRequest:
		return updateClientRequest(env, led, state, ev.Client)
	case event.KindNetworkMessage:
		return updateNetworkMessage(env, led, state, ev.Message)
	case event.KindChainObservation:
		return updateChainObservation(env, state, ev.Chain)
	case event.KindTick:
		return updateTick(env, state, ev.At)
	case event.KindRollback:
		return NewState(applyRollback(state, ev))
	default:
		return invalidEvent("unknown event kind")
	}
}

// applyRollback resets the off-chain-only parts of HeadState that the
// chain-level Rollback can't itself describe. Off-chain progress newer
// than the restored chain point (unconfirmed seenTxs, in-flight
// snapshots) cannot be trusted to still be valid against the restored
// UTxO, so it is dropped; parties will re-propose.
func applyRollback(state headstate.State, ev event.Event) headstate.State {
	restored := ev.Restored
	next := state
	switch restored.Phase {
	case chain.PhaseIdle:
		return headstate.Idle()
	case chain.PhaseInitial:
		next.Phase = headstate.PhaseInitial
		next.Parties = restored.Parameters.Parties
		next.Committed = restored.Committed
		next.PendingCommits = restored.PendingCommits
	case chain.PhaseOpen:
		// Signed snapshots are off-chain objects, never anchored
		// on-chain before Close, so a rollback has nothing new to say
		// about them: ConfirmedSnapshot carries over unchanged (next
		// is a copy of state), and confirmedUTxO/localUTxO are derived
		// from it rather than from the chain-level restored.ConfirmedUTxO,
		// preserving localUTxO = apply*(confirmedSnapshot.utxo,
		// unconfirmed suffix of seenTxs) with an empty suffix.
		next.Phase = headstate.PhaseOpen
		next.Parameters = restored.Parameters
		next.ConfirmedUTxO = state.ConfirmedSnapshot.Body.UTxO
		next.LocalUTxO = state.ConfirmedSnapshot.Body.UTxO
		next.SeenTxs = nil
		next.Pending = nil
	case chain.PhaseClosed:
		next.Phase = headstate.PhaseClosed
		next.ContestationDeadline = restored.ContestationDeadline
		next.Contesters = restored.Contesters
	case chain.PhaseFinal:
		next.Phase = headstate.PhaseFinal
		next.FinalUTxO = restored.FinalUTxO
	}
	return next
}

func updateClientRequest(env Env, led ledger.Ledger, state headstate.State, cmd client.Command) Outcome {
	switch state.Phase {
	case headstate.PhaseIdle:
		return updateIdleClientRequest(env, state, cmd)
	case headstate.PhaseInitial:
		return updateInitialClientRequest(env, state, cmd)
	case headstate.PhaseOpen:
		return updateOpenClientRequest(env, led, state, cmd)
	case headstate.PhaseClosed:
		return NewState(state, event.NotifyClient(client.Failed("head is closed")))
	case headstate.PhaseFinal:
		return NewState(state, event.NotifyClient(client.Failed("head is finalized")))
	default:
		return invalidEvent("unknown state phase")
	}
}
