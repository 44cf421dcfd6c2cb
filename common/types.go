// Package common holds the scalar types shared by every layer of the
// head protocol core: identities, hashes, and the small value types that
// appear in more than one package (Hash32, VerificationKey, Signature,
// ...). Party itself lives in package party.
package common

import (
	"encoding/hex"
	"fmt"
)

// Hash32 is a deterministic 32-byte digest, used for UTxO commitments and
// snapshot bodies.
type Hash32 [32]byte

func (h Hash32) String() string { return hex.EncodeToString(h[:]) }

func (h Hash32) IsZero() bool { return h == Hash32{} }

// VerificationKey identifies a party's public signing key.
type VerificationKey []byte

func (k VerificationKey) String() string { return hex.EncodeToString(k) }

// Signature is an opaque, deterministically-serialised signature over a
// message under some VerificationKey.
type Signature []byte

func (s Signature) String() string { return hex.EncodeToString(s) }

// MultiSig is an aggregate of per-party Signatures, in party order.
type MultiSig []Signature

// TxID stably identifies an off-chain transaction.
type TxID string

// ChainPoint identifies a position on the base chain: a slot and the
// hash of the block at that slot. Used for rollback bookkeeping.
type ChainPoint struct {
	Slot uint64
	Hash Hash32
}

func (p ChainPoint) String() string {
	return fmt.Sprintf("%d@%s", p.Slot, p.Hash)
}

// Less orders ChainPoints by slot; used by LocalChainState's history.
func (p ChainPoint) Less(o ChainPoint) bool { return p.Slot < o.Slot }
