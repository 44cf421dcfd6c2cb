package headlogic

import (
	"github.com/sideledger/headnode/chain"
	"github.com/sideledger/headnode/client"
	"github.com/sideledger/headnode/event"
	"github.com/sideledger/headnode/headstate"
	"github.com/sideledger/headnode/ledger"
)

func updateInitialClientRequest(env Env, state headstate.State, cmd client.Command) Outcome {
	switch cmd.Kind {
	case client.CmdCommit:
		ownInitial := state.PendingCommits[env.Self.Index]
		tx, err := chain.Commit(chain.Context{}, chain.HeadID{}, chain.Spendable{OwnInitial: ownInitial}, env.Self, toCommitOutputs(cmd.UTxO))
		if err != nil {
			notif := client.Failed(err.Error())
			notif.RequestID = cmd.RequestID
			return NewState(state, event.NotifyClient(notif))
		}
		return NewState(state, event.PostTx(tx))
	case client.CmdAbort:
		tx := chain.Abort(chain.Context{}, chain.HeadID{}, state.Committed)
		return NewState(state, event.PostTx(tx))
	default:
		notif := client.Failed("invalid command while Initial")
		notif.RequestID = cmd.RequestID
		return NewState(state, event.NotifyClient(notif))
	}
}

// toCommitOutputs adapts a caller-supplied ledger.UTxO into the shape
// chain.Commit needs to apply its rejection rules. The simple ledger
// carries no legacy-address or reference-script markers, so both flags
// are always false for it; a richer Ledger implementation would supply
// real flags here.
func toCommitOutputs(u ledger.UTxO) []chain.CommitOutput {
	su, ok := u.(ledger.SimpleUTxO)
	if !ok {
		return nil
	}
	out := make([]chain.CommitOutput, 0, len(su))
	for ref, value := range su {
		out = append(out, chain.CommitOutput{Ref: ref, Value: value})
	}
	return out
}
