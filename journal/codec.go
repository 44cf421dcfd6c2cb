package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sideledger/headnode/chain"
	"github.com/sideledger/headnode/client"
	"github.com/sideledger/headnode/common"
	"github.com/sideledger/headnode/event"
	"github.com/sideledger/headnode/ledger"
	"github.com/sideledger/headnode/network"
	"github.com/sideledger/headnode/party"
)

// JSONCodec marshals Events to JSON. ledger.Tx and ledger.UTxO are
// opaque interfaces by design (core/ledger is a black box); this codec
// only knows how to round-trip the concrete ledger.Simple types this
// repository ships, the same narrowing crypto.HashUTxO and
// headlogic.toCommitOutputs already do. A deployment swapping in a
// different Ledger implementation supplies its own Codec.
type JSONCodec struct{}

type wireEvent struct {
	Kind     event.Kind
	Client   wireCommand
	Message  wireMessage
	Chain    wireChainObservation
	At       time.Time
	Point    common.ChainPoint
	Restored wireChainState
}

// wireChainState narrows chain.State's ledger.UTxO fields to
// ledger.SimpleUTxO the same way wireCommand/wireMessage narrow Tx/UTxO
// elsewhere in this codec.
type wireChainState struct {
	Phase      chain.Phase
	Head       chain.HeadID
	Parameters party.Parameters

	Committed      map[int]ledger.SimpleUTxO
	PendingCommits map[int]bool

	ConfirmedUTxO   ledger.SimpleUTxO
	ConfirmedNumber uint64

	ContestationDeadline uint64
	Contesters           map[int]bool

	FinalUTxO ledger.SimpleUTxO

	RecordedAt common.ChainPoint
}

func asWireChainState(s chain.State) (wireChainState, error) {
	w := wireChainState{
		Phase:                s.Phase,
		Head:                 s.Head,
		Parameters:           s.Parameters,
		PendingCommits:       s.PendingCommits,
		ConfirmedNumber:      s.ConfirmedNumber,
		ContestationDeadline: s.ContestationDeadline,
		Contesters:           s.Contesters,
		RecordedAt:           s.RecordedAt,
	}
	if s.Committed != nil {
		w.Committed = make(map[int]ledger.SimpleUTxO, len(s.Committed))
		for k, u := range s.Committed {
			su, err := asSimpleUTxO(u)
			if err != nil {
				return wireChainState{}, err
			}
			w.Committed[k] = su
		}
	}
	confirmed, err := asSimpleUTxO(s.ConfirmedUTxO)
	if err != nil {
		return wireChainState{}, err
	}
	w.ConfirmedUTxO = confirmed
	final, err := asSimpleUTxO(s.FinalUTxO)
	if err != nil {
		return wireChainState{}, err
	}
	w.FinalUTxO = final
	return w, nil
}

func (w wireChainState) toChainState() chain.State {
	s := chain.State{
		Phase:                w.Phase,
		Head:                 w.Head,
		Parameters:           w.Parameters,
		PendingCommits:       w.PendingCommits,
		ConfirmedNumber:      w.ConfirmedNumber,
		ContestationDeadline: w.ContestationDeadline,
		Contesters:           w.Contesters,
		RecordedAt:           w.RecordedAt,
	}
	if w.Committed != nil {
		s.Committed = make(map[int]ledger.UTxO, len(w.Committed))
		for k, u := range w.Committed {
			s.Committed[k] = u
		}
	}
	if w.ConfirmedUTxO != nil {
		s.ConfirmedUTxO = w.ConfirmedUTxO
	}
	if w.FinalUTxO != nil {
		s.FinalUTxO = w.FinalUTxO
	}
	return s
}

type wireCommand struct {
	Kind               client.CommandKind
	Parties            []party.Party
	ContestationPeriod time.Duration
	SeedInput          string
	UTxO               ledger.SimpleUTxO
	Tx                 ledger.SimpleTx
}

type wireMessage struct {
	Kind    network.Kind
	From    party.Party
	Tx      ledger.SimpleTx
	AckedTx ledger.SimpleTx
	Leader  party.Party
	Number  uint64
	TxIds   []common.TxID
	Sig     common.Signature
	Host    string
}

type wireChainObservation struct {
	Transition wireTransition
	Point      common.ChainPoint
	Head       chain.HeadID
}

type wireTransition struct {
	Kind          chain.TxKind
	Parameters    party.Parameters
	Committer     int
	Committed     ledger.SimpleUTxO
	CollectedUTxO ledger.SimpleUTxO
	Snapshot      uint64
	Deadline      uint64
	Contester     int
	Contesters    map[int]bool
	FinalUTxO     ledger.SimpleUTxO
}

func asWireTransition(t chain.Transition) (wireTransition, error) {
	w := wireTransition{
		Kind:       t.Kind,
		Parameters: t.Parameters,
		Committer:  t.Committer,
		Snapshot:   t.Snapshot,
		Deadline:   t.Deadline,
		Contester:  t.Contester,
		Contesters: t.Contesters,
	}
	committed, err := asSimpleUTxO(t.Committed)
	if err != nil {
		return wireTransition{}, err
	}
	w.Committed = committed
	collected, err := asSimpleUTxO(t.CollectedUTxO)
	if err != nil {
		return wireTransition{}, err
	}
	w.CollectedUTxO = collected
	final, err := asSimpleUTxO(t.FinalUTxO)
	if err != nil {
		return wireTransition{}, err
	}
	w.FinalUTxO = final
	return w, nil
}

func (w wireTransition) toTransition() chain.Transition {
	t := chain.Transition{
		Kind:       w.Kind,
		Parameters: w.Parameters,
		Committer:  w.Committer,
		Snapshot:   w.Snapshot,
		Deadline:   w.Deadline,
		Contester:  w.Contester,
		Contesters: w.Contesters,
	}
	if w.Committed != nil {
		t.Committed = w.Committed
	}
	if w.CollectedUTxO != nil {
		t.CollectedUTxO = w.CollectedUTxO
	}
	if w.FinalUTxO != nil {
		t.FinalUTxO = w.FinalUTxO
	}
	return t
}

func asSimpleUTxO(u ledger.UTxO) (ledger.SimpleUTxO, error) {
	if u == nil {
		return nil, nil
	}
	s, ok := u.(ledger.SimpleUTxO)
	if !ok {
		return nil, fmt.Errorf("journal: JSONCodec only supports ledger.SimpleUTxO, got %T", u)
	}
	return s, nil
}

func asSimpleTx(t ledger.Tx) (ledger.SimpleTx, error) {
	if t == nil {
		return ledger.SimpleTx{}, nil
	}
	s, ok := t.(ledger.SimpleTx)
	if !ok {
		return ledger.SimpleTx{}, fmt.Errorf("journal: JSONCodec only supports ledger.SimpleTx, got %T", t)
	}
	return s, nil
}

func (JSONCodec) Marshal(ev event.Event) ([]byte, error) {
	w := wireEvent{
		Kind: ev.Kind,
		Client: wireCommand{
			Kind:               ev.Client.Kind,
			Parties:            ev.Client.Parties,
			ContestationPeriod: ev.Client.ContestationPeriod,
			SeedInput:          ev.Client.SeedInput,
		},
		Message: wireMessage{
			Kind:   ev.Message.Kind,
			From:   ev.Message.From,
			Leader: ev.Message.Leader,
			Number: ev.Message.Number,
			TxIds:  ev.Message.TxIds,
			Sig:    ev.Message.Sig,
			Host:   ev.Message.Host,
		},
		At:    ev.At,
		Point: ev.Point,
	}

	transition, err := asWireTransition(ev.Chain.Transition)
	if err != nil {
		return nil, err
	}
	w.Chain = wireChainObservation{
		Transition: transition,
		Point:      ev.Chain.Point,
		Head:       ev.Chain.Head,
	}

	restored, err := asWireChainState(ev.Restored)
	if err != nil {
		return nil, err
	}
	w.Restored = restored

	utxo, err := asSimpleUTxO(ev.Client.UTxO)
	if err != nil {
		return nil, err
	}
	w.Client.UTxO = utxo

	tx, err := asSimpleTx(ev.Client.Tx)
	if err != nil {
		return nil, err
	}
	w.Client.Tx = tx

	msgTx, err := asSimpleTx(ev.Message.Tx)
	if err != nil {
		return nil, err
	}
	w.Message.Tx = msgTx

	msgAckedTx, err := asSimpleTx(ev.Message.AckedTx)
	if err != nil {
		return nil, err
	}
	w.Message.AckedTx = msgAckedTx

	return json.Marshal(w)
}

func (JSONCodec) Unmarshal(version uint8, payload []byte) (event.Event, error) {
	var w wireEvent
	if err := json.Unmarshal(payload, &w); err != nil {
		return event.Event{}, err
	}

	ev := event.Event{
		Kind: w.Kind,
		Client: client.Command{
			Kind:               w.Client.Kind,
			Parties:            w.Client.Parties,
			ContestationPeriod: w.Client.ContestationPeriod,
			SeedInput:          w.Client.SeedInput,
			UTxO:               w.Client.UTxO,
			Tx:                 w.Client.Tx,
		},
		Message: network.Message{
			Kind:    w.Message.Kind,
			From:    w.Message.From,
			Tx:      w.Message.Tx,
			AckedTx: w.Message.AckedTx,
			Leader:  w.Message.Leader,
			Number:  w.Message.Number,
			TxIds:   w.Message.TxIds,
			Sig:     w.Message.Sig,
			Host:    w.Message.Host,
		},
		Chain: event.ChainObservation{
			Transition: w.Chain.Transition.toTransition(),
			Point:      w.Chain.Point,
			Head:       w.Chain.Head,
		},
		At:       w.At,
		Point:    w.Point,
		Restored: w.Restored.toChainState(),
	}

	// VersionLegacy records predate ContestationPeriod/SeedInput on
	// CmdInit; json.Unmarshal already leaves those at their zero value
	// for such records, so no explicit migration step is needed here.
	_ = version

	return ev, nil
}
