package headlogic

import (
	"github.com/sideledger/headnode/client"
	"github.com/sideledger/headnode/event"
	"github.com/sideledger/headnode/headstate"
	"github.com/sideledger/headnode/ledger"
	"github.com/sideledger/headnode/network"
)

func updateNetworkMessage(env Env, led ledger.Ledger, state headstate.State, msg network.Message) Outcome {
	if msg.Kind == network.KindPing {
		return NewState(state, event.NotifyClient(client.Notification{Kind: client.NotifyPeerConnected, Host: msg.Host}))
	}

	if state.Phase != headstate.PhaseOpen {
		// Duplicate/out-of-order protocol messages outside Open are
		// silently ignored.
		return NewState(state)
	}

	switch msg.Kind {
	case network.KindReqTx:
		return onReqTx(env, led, state, msg)
	case network.KindAckTx:
		return onAckTx(env, state, msg)
	case network.KindReqSn:
		return onReqSn(env, led, state, msg)
	case network.KindAckSn:
		return onAckSn(env, state, msg)
	default:
		return invalidEvent("unknown network message kind")
	}
}
