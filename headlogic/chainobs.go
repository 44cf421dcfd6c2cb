package headlogic

import (
	"time"

	"github.com/sideledger/headnode/chain"
	"github.com/sideledger/headnode/client"
	"github.com/sideledger/headnode/event"
	"github.com/sideledger/headnode/headstate"
	"github.com/sideledger/headnode/ledger"
	"github.com/sideledger/headnode/party"
	"github.com/sideledger/headnode/snapshot"
)

// updateChainObservation folds one recognised on-chain transition into
// HeadState. Observations are the sole authority that advances the
// lifecycle phase; HeadLogic never second-guesses them.
func updateChainObservation(env Env, state headstate.State, obs event.ChainObservation) Outcome {
	t := obs.Transition
	switch t.Kind {
	case chain.TxInit:
		next := headstate.State{
			Phase:          headstate.PhaseInitial,
			Parties:        t.Parameters.Parties,
			Parameters:     t.Parameters,
			Committed:      make(map[int]ledger.UTxO),
			PendingCommits: pendingSet(t.Parameters.Parties),
		}
		return NewState(next, event.NotifyClient(client.Notification{Kind: client.NotifyReadyToCommit}))

	case chain.TxCommit:
		if state.Phase != headstate.PhaseInitial {
			return invalidEvent("Commit observed outside Initial")
		}
		next := state
		next.Committed = cloneUTxOMap(state.Committed)
		next.Committed[t.Committer] = t.Committed
		next.PendingCommits = cloneBoolSet(state.PendingCommits)
		delete(next.PendingCommits, t.Committer)
		return NewState(next)

	case chain.TxAbort:
		return NewState(headstate.State{Phase: headstate.PhaseFinal, FinalUTxO: t.FinalUTxO},
			event.NotifyClient(client.Notification{Kind: client.NotifyHeadIsFinalized, UTxO: t.FinalUTxO}))

	case chain.TxCollect:
		if state.Phase != headstate.PhaseInitial {
			return invalidEvent("Collect observed outside Initial")
		}
		next := headstate.State{
			Phase:         headstate.PhaseOpen,
			Parameters:    party.Parameters{Parties: state.Parties, ContestationPeriod: state.Parameters.ContestationPeriod},
			ConfirmedUTxO: t.CollectedUTxO,
			LocalUTxO:     t.CollectedUTxO,
			ConfirmedSnapshot: snapshot.Signed{
				Body: snapshot.Snapshot{Number: 0, UTxO: t.CollectedUTxO},
			},
		}
		return NewState(next, event.NotifyClient(client.Notification{Kind: client.NotifyHeadIsOpen}))

	case chain.TxClose:
		if state.Phase != headstate.PhaseOpen {
			return invalidEvent("Close observed outside Open")
		}
		next := headstate.State{
			Phase:                headstate.PhaseClosed,
			Parameters:           state.Parameters,
			ConfirmedSnapshot:    state.ConfirmedSnapshot,
			ContestationDeadline: t.Deadline,
			Contesters:           make(map[int]bool),
		}
		effects := []event.Effect{event.NotifyClient(client.Notification{Kind: client.NotifyHeadIsClosed, Deadline: t.Deadline})}
		// If we know a strictly higher confirmed snapshot than the one
		// closing, schedule a contest with it.
		if state.ConfirmedSnapshot.Body.Number > t.Snapshot {
			contestTx := chain.Contest(chain.Context{}, chain.HeadID{}, state.ConfirmedSnapshot.Body.Number, state.ConfirmedSnapshot.Body.UTxO, env.Self, t.Deadline)
			effects = append(effects, event.PostTx(contestTx))
		}
		return NewState(next, effects...)

	case chain.TxContest:
		if state.Phase != headstate.PhaseClosed {
			return invalidEvent("Contest observed outside Closed")
		}
		next := state
		next.Contesters = t.Contesters
		return NewState(next)

	case chain.TxFanout:
		return NewState(headstate.State{Phase: headstate.PhaseFinal, FinalUTxO: t.FinalUTxO},
			event.NotifyClient(client.Notification{Kind: client.NotifyHeadIsFinalized, UTxO: t.FinalUTxO}))

	default:
		return invalidEvent("unhandled chain observation")
	}
}

// updateTick drives the one core-level timeout: the contestation
// deadline. Once wall-clock at reaches the deadline while Closed, the
// fanout transaction is posted.
func updateTick(env Env, state headstate.State, at time.Time) Outcome {
	if state.Phase != headstate.PhaseClosed {
		return NewState(state)
	}
	if uint64(at.Unix()) < state.ContestationDeadline {
		return NewState(state)
	}
	tx := chain.Fanout(chain.Context{}, chain.HeadID{}, state.ConfirmedSnapshot.Body.UTxO)
	return NewState(state, event.PostTx(tx))
}

func pendingSet(parties []party.Party) map[int]bool {
	m := make(map[int]bool, len(parties))
	for _, p := range parties {
		m[p.Index] = true
	}
	return m
}

func cloneUTxOMap(m map[int]ledger.UTxO) map[int]ledger.UTxO {
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
