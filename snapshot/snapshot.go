// Package snapshot defines the signed, numbered UTxO checkpoints that
// anchor an Open head.
package snapshot

import (
	"github.com/sideledger/headnode/common"
	"github.com/sideledger/headnode/ledger"
)

// Snapshot is a candidate or confirmed numbered state of the open head.
// Number 0 is the initial snapshot formed at collect-com.
type Snapshot struct {
	Number    uint64
	UTxO      ledger.UTxO
	Confirmed []common.TxID
}

// ConfirmedBytes canonically encodes the confirmed tx-id sequence for
// signing; Number and the UTxO hash are folded in separately by the
// crypto package's domain separation, so this only needs to commit to
// the ordered tx-id list.
func (s Snapshot) ConfirmedBytes() []byte {
	var out []byte
	for _, id := range s.Confirmed {
		out = append(out, []byte(id)...)
		out = append(out, 0)
	}
	return out
}

// Signed pairs a Snapshot with the signatures collected for it so far,
// keyed by the signing party's index.
type Signed struct {
	Body       Snapshot
	Signatures map[int]common.Signature
}

// Complete reports whether every one of n parties has signed.
func (s Signed) Complete(n int) bool {
	return len(s.Signatures) >= n
}

// InProgress tracks the single outstanding snapshot negotiation allowed
// per head.
type InProgress struct {
	Number uint64
	Leader int // party index
	Body   Snapshot
	Acks   map[int]common.Signature
}

// NewInProgress starts tracking acks for a freshly-proposed snapshot.
func NewInProgress(number uint64, leader int, body Snapshot) *InProgress {
	return &InProgress{Number: number, Leader: leader, Body: body, Acks: make(map[int]common.Signature)}
}
