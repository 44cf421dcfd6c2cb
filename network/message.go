// Package network defines the wire messages head parties exchange
// and the Transport interface the core sends them through.
// The transport itself — ordered, authenticated point-to-point delivery
// — is an external collaborator; this package specifies its
// interface plus an in-memory implementation for tests and a
// Kafka-backed implementation for the domain stack.
package network

import (
	"github.com/sideledger/headnode/common"
	"github.com/sideledger/headnode/ledger"
	"github.com/sideledger/headnode/party"
)

// Kind discriminates the five message shapes parties exchange.
type Kind int

const (
	KindReqTx Kind = iota
	KindAckTx
	KindReqSn
	KindAckSn
	KindPing
)

// Message is the canonical wire envelope. Unknown fields are a hard
// decode error at the transport boundary; that rule is
// enforced by the concrete transport's decoder, not by this struct.
type Message struct {
	Kind Kind
	From party.Party

	// ReqTx
	Tx ledger.Tx

	// AckTx
	AckedTx ledger.Tx

	// ReqSn
	Leader  party.Party
	Number  uint64
	TxIds   []common.TxID

	// AckSn
	Sig common.Signature

	// Ping
	Host string
}

func ReqTx(from party.Party, tx ledger.Tx) Message {
	return Message{Kind: KindReqTx, From: from, Tx: tx}
}

func AckTx(from party.Party, tx ledger.Tx) Message {
	return Message{Kind: KindAckTx, From: from, AckedTx: tx}
}

func ReqSn(from party.Party, leader party.Party, number uint64, txIds []common.TxID) Message {
	return Message{Kind: KindReqSn, From: from, Leader: leader, Number: number, TxIds: txIds}
}

func AckSn(from party.Party, number uint64, sig common.Signature) Message {
	return Message{Kind: KindAckSn, From: from, Number: number, Sig: sig}
}

func Ping(from party.Party, host string) Message {
	return Message{Kind: KindPing, From: from, Host: host}
}
