package headlogic

import (
	"github.com/sideledger/headnode/chain"
	"github.com/sideledger/headnode/client"
	"github.com/sideledger/headnode/event"
	"github.com/sideledger/headnode/headstate"
	"github.com/sideledger/headnode/ledger"
	"github.com/sideledger/headnode/network"
)

func chainClose(env Env, state headstate.State) (chain.OnChainTx, error) {
	slot := env.CurrentSlot
	return chain.Close(chain.Context{CurrentSlot: slot}, chain.HeadID{}, state.Parameters,
		state.ConfirmedSnapshot.Body.Number, state.ConfirmedSnapshot.Body.UTxO, slot, slot)
}

// updateOpenClientRequest handles the three client commands valid while
// Open: NewTx kicks off confirmation, Close posts the close transaction,
// GetUTxO answers synchronously via notification.
func updateOpenClientRequest(env Env, led ledger.Ledger, state headstate.State, cmd client.Command) Outcome {
	switch cmd.Kind {
	case client.CmdNewTx:
		return NewState(state, event.SendToPeers(network.ReqTx(env.Self, cmd.Tx)))
	case client.CmdClose:
		tx, err := chainClose(env, state)
		if err != nil {
			notif := client.Failed(err.Error())
			notif.RequestID = cmd.RequestID
			return NewState(state, event.NotifyClient(notif))
		}
		return NewState(state, event.PostTx(tx))
	case client.CmdGetUTxO:
		return NewState(state, event.NotifyClient(client.Notification{Kind: client.NotifyUTxOResponse, RequestID: cmd.RequestID, UTxO: state.LocalUTxO}))
	default:
		notif := client.Failed("invalid command while Open")
		notif.RequestID = cmd.RequestID
		return NewState(state, event.NotifyClient(notif))
	}
}

// onReqTx implements step 2 of the tx confirmation protocol: if the tx
// applies to localUTxO, record it as seen, update localUTxO,
// and broadcast an ack; otherwise Wait (inputs not yet present locally).
func onReqTx(env Env, led ledger.Ledger, state headstate.State, msg network.Message) Outcome {
	for _, seen := range state.SeenTxs {
		if seen.Tx.ID() == msg.Tx.ID() {
			return NewState(state) // idempotent re-delivery, silently ignored
		}
	}

	next, err := led.Apply(state.LocalUTxO, msg.Tx)
	if err != nil {
		return Wait()
	}

	newState := state
	newState.LocalUTxO = next
	newState.SeenTxs = append(append([]headstate.SeenTx{}, state.SeenTxs...), headstate.SeenTx{
		Tx:   msg.Tx,
		Acks: map[int]bool{env.Self.Index: true},
	})
	return NewState(newState, event.SendToPeers(network.AckTx(env.Self, msg.Tx)))
}

// onAckTx implements step 3: record the ack; once every party has acked,
// mark the tx confirmed and notify the client exactly once.
func onAckTx(env Env, state headstate.State, msg network.Message) Outcome {
	idx := -1
	for i, seen := range state.SeenTxs {
		if seen.Tx.ID() == msg.AckedTx.ID() {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Wait() // ack for a tx we haven't seen a ReqTx for yet
	}

	seenTxs := append([]headstate.SeenTx{}, state.SeenTxs...)
	st := seenTxs[idx]
	acks := make(map[int]bool, len(st.Acks)+1)
	for k, v := range st.Acks {
		acks[k] = v
	}
	acks[msg.From.Index] = true
	st.Acks = acks

	var effects []event.Effect
	if !st.Confirmed && len(acks) >= len(state.Parameters.Parties) {
		st.Confirmed = true
	}
	if st.Confirmed && !st.Notified {
		st.Notified = true
		effects = append(effects, event.NotifyClient(client.Notification{Kind: client.NotifyTxReceived, Tx: st.Tx}))
	}
	seenTxs[idx] = st

	next := state
	next.SeenTxs = seenTxs
	return NewState(next, effects...)
}
