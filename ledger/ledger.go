// Package ledger defines the pure UTxO validation interface the head
// protocol core treats as a black box, plus a "simple"
// implementation sufficient for tests: each transaction declares its
// inputs and outputs as sets of tagged integers.
package ledger

import (
	"fmt"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/sideledger/headnode/common"
)

// Tx is the opaque off-chain transaction the core passes to Ledger. The
// core never inspects a Tx's fields directly; it only asks the Ledger to
// apply it and asks for its stable ID.
type Tx interface {
	ID() common.TxID
}

// UTxO is the opaque UTxO set the core passes between Ledger calls. The
// core only ever hashes it (via crypto.HashUTxO) or hands it back to
// Ledger.Apply; it never inspects entries directly.
type UTxO interface {
	// Clone returns a deep copy, since HeadState holds UTxO sets by value
	// semantics (confirmedUTxO, localUTxO must not alias).
	Clone() UTxO
}

// Error reports why Apply rejected a transaction.
type Error struct {
	TxID   common.TxID
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("ledger: reject %s: %s", e.TxID, e.Reason) }

// Ledger validates and applies transactions against a UTxO set. Pure,
// deterministic, side-effect free.
type Ledger interface {
	Initial() UTxO
	Apply(u UTxO, tx Tx) (UTxO, error)
}

// --- simple ledger -------------------------------------------------------

// Ref is a tagged-integer output reference used by the simple ledger.
type Ref int

// SimpleUTxO maps output references to opaque weight values; a transaction
// is applicable if every input ref is present, and produces the declared
// output refs with the declared weights.
type SimpleUTxO map[Ref]int

func NewSimpleUTxO() SimpleUTxO { return make(SimpleUTxO) }

func (u SimpleUTxO) Clone() UTxO {
	out := make(SimpleUTxO, len(u))
	for k, v := range u {
		out[k] = v
	}
	return out
}

// Has reports whether ref is a spendable entry.
func (u SimpleUTxO) Has(ref Ref) bool {
	_, ok := u[ref]
	return ok
}

// SimpleTx spends Inputs and produces Outputs, each tagged with a weight
// carried forward (so downstream SimpleTxs can reference it).
type SimpleTx struct {
	TxId    common.TxID
	Inputs  []Ref
	Outputs map[Ref]int
}

func (t SimpleTx) ID() common.TxID { return t.TxId }

// Simple is the black-box Ledger implementation used in tests: it applies
// SimpleTx values against a SimpleUTxO.
type Simple struct {
	hashCache *fastcache.Cache
}

// NewSimple builds a Simple ledger and allocates a small in-process
// fastcache, exposed through HashCache. Apply does not use it, and
// crypto.HashUTxO hashes without any cache.
func NewSimple() *Simple {
	return &Simple{hashCache: fastcache.New(1 << 20)}
}

func (s *Simple) Initial() UTxO { return NewSimpleUTxO() }

func (s *Simple) Apply(u UTxO, tx Tx) (UTxO, error) {
	st, ok := u.(SimpleUTxO)
	if !ok {
		return nil, &Error{TxID: tx.ID(), Reason: "not a SimpleUTxO"}
	}
	simpleTx, ok := tx.(SimpleTx)
	if !ok {
		return nil, &Error{TxID: tx.ID(), Reason: "not a SimpleTx"}
	}

	for _, in := range simpleTx.Inputs {
		if !st.Has(in) {
			return nil, &Error{TxID: tx.ID(), Reason: fmt.Sprintf("missing input %d", in)}
		}
	}

	next := st.Clone().(SimpleUTxO)
	for _, in := range simpleTx.Inputs {
		delete(next, in)
	}
	for ref, weight := range simpleTx.Outputs {
		next[ref] = weight
	}
	return next, nil
}

// HashCache exposes the cache allocated by NewSimple; nothing in this
// repository reads or writes it. It is in-process only and does not
// survive a restart.
func (s *Simple) HashCache() *fastcache.Cache { return s.hashCache }
