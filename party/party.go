// Package party defines the fixed, ordered set of participants in a head
// and the parameters frozen at Init.
package party

import (
	"time"

	"github.com/sideledger/headnode/common"
)

// Party is one participant: a verification key plus its index in the
// ordered party list. The index is stable for the lifetime of the head
// and is what leader() and signature bookkeeping key off.
type Party struct {
	Index int
	VKey  common.VerificationKey
}

func (p Party) String() string { return p.VKey.String() }

// Equal compares parties by verification key, not index, so that a Party
// value copied across messages still compares correctly.
func (p Party) Equal(o Party) bool {
	if len(p.VKey) != len(o.VKey) {
		return false
	}
	for i := range p.VKey {
		if p.VKey[i] != o.VKey[i] {
			return false
		}
	}
	return true
}

// Parameters is immutable for the lifetime of a head: frozen at Init,
// never mutated afterwards.
type Parameters struct {
	Parties            []Party
	ContestationPeriod time.Duration
}

// Leader returns the party responsible for proposing snapshot number n:
// leader(n) = parties[n mod |parties|].
func (ps Parameters) Leader(n uint64) Party {
	return ps.Parties[int(n)%len(ps.Parties)]
}

// IndexOf returns the index of vkey in the party list, or -1.
func (ps Parameters) IndexOf(vkey common.VerificationKey) int {
	for _, p := range ps.Parties {
		if p.VKey.String() == vkey.String() {
			return p.Index
		}
	}
	return -1
}

// N is the number of parties in the head.
func (ps Parameters) N() int { return len(ps.Parties) }
