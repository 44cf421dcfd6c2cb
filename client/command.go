// Package client defines the client-facing command and notification
// surface. The client-facing API server itself is an external
// collaborator; this package specifies the message shapes plus a thin
// HTTP surface and notification sinks.
package client

import (
	"time"

	"github.com/google/uuid"

	"github.com/sideledger/headnode/ledger"
	"github.com/sideledger/headnode/party"
	"github.com/sideledger/headnode/snapshot"
)

// CommandKind discriminates the six client commands a party can issue
// against its own node.
type CommandKind int

const (
	CmdInit CommandKind = iota
	CmdCommit
	CmdNewTx
	CmdClose
	CmdGetUTxO
	CmdAbort
)

// Command is the canonical client request envelope. RequestID correlates
// a Command with the single terminal Notification it produces; the HTTP
// surface assigns one to every inbound request so a fan-out Notifier
// (every subscriber sees every notification) can still be filtered down
// to the reply for one caller.
type Command struct {
	Kind               CommandKind
	RequestID          uuid.UUID
	Parties            []party.Party // Init
	ContestationPeriod time.Duration // Init
	SeedInput          string        // Init
	UTxO               ledger.UTxO   // Commit
	Tx                 ledger.Tx     // NewTx
}

// NotificationKind discriminates the client notifications.
type NotificationKind int

const (
	NotifyReadyToCommit NotificationKind = iota
	NotifyHeadIsOpen
	NotifyTxReceived
	NotifySnapshotConfirmed
	NotifyHeadIsClosed
	NotifyHeadIsFinalized
	NotifyPeerConnected
	NotifyCommandFailed
	NotifyDropped
	NotifyUTxOResponse // answers GetUTxO
)

// Notification is the canonical client notification envelope. Every
// command produces exactly one terminal notification. RequestID, when
// set, echoes the Command.RequestID that produced it so a caller can
// pick its own reply out of a shared notification stream.
type Notification struct {
	Kind      NotificationKind
	RequestID uuid.UUID

	Tx       ledger.Tx       // TxReceived
	Snapshot snapshot.Signed // SnapshotConfirmed
	Deadline uint64          // HeadIsClosed
	UTxO     ledger.UTxO     // HeadIsFinalized / GetUTxO replies
	Host     string          // PeerConnected
	Reason   string          // CommandFailed
}

func Failed(reason string) Notification {
	return Notification{Kind: NotifyCommandFailed, Reason: reason}
}
