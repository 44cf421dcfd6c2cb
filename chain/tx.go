// Package chain implements the off-chain mirror of the on-chain Head
// lifecycle: constructors that build base-ledger
// transactions for each transition, and observers that recognise those
// transitions in transactions read back off the chain.
package chain

import (
	"time"

	"github.com/sideledger/headnode/common"
	"github.com/sideledger/headnode/ledger"
	"github.com/sideledger/headnode/party"
)

// HeadID uniquely identifies a head on the base chain (derived from the
// seed input consumed by the init transaction).
type HeadID common.Hash32

// OnChainTx is the opaque base-ledger transaction the constructors
// produce and the observers consume. The base-ledger transaction builder
// itself is out of scope; this core only needs to tag each
// constructed transaction with which Head lifecycle step it encodes and
// to carry the fields observers need to recognise it, mirroring how a
// real tx would carry them in its outputs/datums.
type OnChainTx struct {
	Kind TxKind
	Head HeadID

	// Init
	Parties            []party.Party
	ContestationPeriod time.Duration
	SeedInput          string

	// Commit
	Committer party.Party
	Committed ledger.UTxO

	// Close / Contest
	Snapshot          uint64
	ConfirmedUTxO     ledger.UTxO
	LowerSlot         uint64
	UpperPointInTime  uint64
	Deadline          uint64
	Contester         *party.Party

	// Fanout / Abort
	FinalUTxO ledger.UTxO
}

// TxKind enumerates the seven lifecycle-transition transaction shapes.
type TxKind int

const (
	TxInit TxKind = iota
	TxCommit
	TxAbort
	TxCollect
	TxClose
	TxContest
	TxFanout
)

func (k TxKind) String() string {
	switch k {
	case TxInit:
		return "Init"
	case TxCommit:
		return "Commit"
	case TxAbort:
		return "Abort"
	case TxCollect:
		return "Collect"
	case TxClose:
		return "Close"
	case TxContest:
		return "Contest"
	case TxFanout:
		return "Fanout"
	default:
		return "Unknown"
	}
}

// Context carries the ambient parameters constructors need but that are
// not part of HeadState: the network tag (for the mainnet value cap) and
// the current slot, supplied by the chain follower.
type Context struct {
	Network     Network
	CurrentSlot uint64
}

// Network distinguishes mainnet from other networks for the commit
// value-cap rule.
type Network int

const (
	NetworkTestnet Network = iota
	NetworkMainnet
)

// MainnetCommitCap is the hard ceiling on total committed value per head
// on mainnet.
const MainnetCommitCap = 100_000_000_000
