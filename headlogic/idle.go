package headlogic

import (
	"github.com/sideledger/headnode/chain"
	"github.com/sideledger/headnode/client"
	"github.com/sideledger/headnode/event"
	"github.com/sideledger/headnode/headstate"
	"github.com/sideledger/headnode/party"
)

func updateIdleClientRequest(env Env, state headstate.State, cmd client.Command) Outcome {
	if cmd.Kind != client.CmdInit {
		notif := client.Failed("head is idle: only Init is valid")
		notif.RequestID = cmd.RequestID
		return NewState(state, event.NotifyClient(notif))
	}
	params := party.Parameters{Parties: cmd.Parties, ContestationPeriod: cmd.ContestationPeriod}
	tx := chain.Initialize(chain.Context{}, params, cmd.SeedInput)
	return NewState(state, event.PostTx(tx))
}
