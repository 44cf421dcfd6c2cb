package headlogic

import (
	"github.com/sideledger/headnode/crypto"
	"github.com/sideledger/headnode/party"
)

// Env carries the node-local, non-HeadState parameters Update needs:
// which party this node is and its signing key. Everything else
// Update needs comes from state, event, or the Ledger argument.
type Env struct {
	Self       party.Party
	SigningKey crypto.SigningKey

	// CurrentSlot is the chain follower's most recently observed slot,
	// used to bound the Close transaction's observation window.
	CurrentSlot uint64
}
