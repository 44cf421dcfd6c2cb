// Package event defines the Event and Effect sum types that flow through
// HeadLogic.Update: Event is consumed, Effect is produced.
package event

import (
	"time"

	"github.com/sideledger/headnode/chain"
	"github.com/sideledger/headnode/client"
	"github.com/sideledger/headnode/common"
	"github.com/sideledger/headnode/network"
)

// Kind discriminates the five Event constructors.
type Kind int

const (
	KindClientRequest Kind = iota
	KindNetworkMessage
	KindChainObservation
	KindTick
	KindRollback
)

// Event is wrapped with a monotonic EventID when it is appended to the
// journal; EventID is zero until journal.Append assigns it.
type Event struct {
	EventID uint64
	Kind    Kind

	Client  client.Command          // ClientRequest
	Message network.Message         // NetworkMessage
	Chain   ChainObservation        // ChainObservation
	At      time.Time                // Tick
	Point   common.ChainPoint        // Rollback
	Restored chain.State             // Rollback: the state LocalChainState restored to
}

// ChainObservation carries one recognised on-chain transition, tagged
// with the chain point it was observed at.
type ChainObservation struct {
	Transition chain.Transition
	Point      common.ChainPoint
	Head       chain.HeadID
}

func NewClientRequest(cmd client.Command) Event {
	return Event{Kind: KindClientRequest, Client: cmd}
}

func NewNetworkMessage(msg network.Message) Event {
	return Event{Kind: KindNetworkMessage, Message: msg}
}

func NewChainObservation(obs ChainObservation) Event {
	return Event{Kind: KindChainObservation, Chain: obs}
}

func NewTick(at time.Time) Event {
	return Event{Kind: KindTick, At: at}
}

func NewRollback(point common.ChainPoint, restored chain.State) Event {
	return Event{Kind: KindRollback, Point: point, Restored: restored}
}

// EffectKind discriminates the four Effect constructors.
type EffectKind int

const (
	EffectSendToPeers EffectKind = iota
	EffectNotifyClient
	EffectPostTx
	EffectDelay
)

// Effect is one action HeadLogic.Update asks the shell to perform. All
// I/O is channelled through returned Effects.
type Effect struct {
	Kind EffectKind

	Peers  network.Message      // SendToPeers
	Notify client.Notification  // NotifyClient
	Tx     chain.OnChainTx      // PostTx
	After  time.Duration        // Delay
	Then   Event                // Delay
}

func SendToPeers(msg network.Message) Effect { return Effect{Kind: EffectSendToPeers, Peers: msg} }

func NotifyClient(n client.Notification) Effect {
	return Effect{Kind: EffectNotifyClient, Notify: n}
}

func PostTx(tx chain.OnChainTx) Effect { return Effect{Kind: EffectPostTx, Tx: tx} }

func Delay(after time.Duration, then Event) Effect {
	return Effect{Kind: EffectDelay, After: after, Then: then}
}
