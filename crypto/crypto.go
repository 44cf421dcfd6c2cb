// Package crypto defines the sign/verify/hash/aggregate interface the
// head protocol core treats as a black box. The
// implementation here uses ed25519 for signatures and blake2b for UTxO
// hashing, both from golang.org/x/crypto.
package crypto

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"

	"github.com/sideledger/headnode/common"
	"github.com/sideledger/headnode/ledger"
)

// SigningKey is the private counterpart to a common.VerificationKey.
type SigningKey []byte

// GenerateKeyPair produces a fresh ed25519 key pair for a test party.
func GenerateKeyPair() (common.VerificationKey, SigningKey, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, nil, err
	}
	return common.VerificationKey(pub), SigningKey(priv), nil
}

// domainSeparate prefixes a message with the snapshot number and UTxO
// hash so a signature cannot be replayed across snapshots or protocols.
func domainSeparate(snapshotNumber uint64, utxoHash common.Hash32, body []byte) []byte {
	buf := make([]byte, 8+len(utxoHash)+len(body))
	binary.BigEndian.PutUint64(buf, snapshotNumber)
	copy(buf[8:], utxoHash[:])
	copy(buf[8+len(utxoHash):], body)
	return buf
}

// SignSnapshot signs a snapshot body under sk, domain-separated by number
// and UTxO hash.
func SignSnapshot(sk SigningKey, snapshotNumber uint64, utxoHash common.Hash32, body []byte) common.Signature {
	msg := domainSeparate(snapshotNumber, utxoHash, body)
	sig := ed25519.Sign(ed25519.PrivateKey(sk), msg)
	return common.Signature(sig)
}

// VerifySnapshot verifies a snapshot signature under the domain
// separation used by SignSnapshot.
func VerifySnapshot(vk common.VerificationKey, snapshotNumber uint64, utxoHash common.Hash32, body []byte, sig common.Signature) bool {
	msg := domainSeparate(snapshotNumber, utxoHash, body)
	if len(vk) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(vk), msg, []byte(sig))
}

// Sign signs an arbitrary message, used for non-snapshot protocol
// messages (e.g. transport-level authentication is out of scope, but
// ReqTx/AckTx bodies may still be signed by callers that need it).
func Sign(sk SigningKey, msg []byte) common.Signature {
	return common.Signature(ed25519.Sign(ed25519.PrivateKey(sk), msg))
}

// Verify checks a Sign-produced signature.
func Verify(vk common.VerificationKey, msg []byte, sig common.Signature) bool {
	if len(vk) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(vk), msg, []byte(sig))
}

// Aggregate concatenates per-party signatures in party order into a
// MultiSig. The base-ledger's multi-sig scheme is external;
// this core only needs a deterministic, order-preserving combination for
// constructing on-chain transactions that require every party's witness.
func Aggregate(sigs []common.Signature) common.MultiSig {
	out := make(common.MultiSig, len(sigs))
	copy(out, sigs)
	return out
}

// HashUTxO deterministically hashes a UTxO set via the simple ledger's
// canonical encoding. Non-Simple UTxO implementations must provide their
// own hashing through a different Crypto implementation; this one is
// wired to ledger.Simple to keep the core's test harness self-contained.
func HashUTxO(u ledger.UTxO) (common.Hash32, error) {
	st, ok := u.(ledger.SimpleUTxO)
	if !ok {
		return common.Hash32{}, fmt.Errorf("crypto: HashUTxO: unsupported UTxO type %T", u)
	}
	refs := make([]ledger.Ref, 0, len(st))
	for ref := range st {
		refs = append(refs, ref)
	}
	sortRefs(refs)

	h, err := blake2b.New256(nil)
	if err != nil {
		return common.Hash32{}, err
	}
	var buf [8]byte
	for _, ref := range refs {
		binary.BigEndian.PutUint64(buf[:], uint64(ref))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], uint64(st[ref]))
		h.Write(buf[:])
	}
	var out common.Hash32
	copy(out[:], h.Sum(nil))
	return out, nil
}

// HashBytes blake2b-hashes an arbitrary byte slice, used by callers that
// need a compact, collision-resistant key for content they don't
// otherwise have a domain-specific hash for (e.g. deduplicating
// redelivered network messages).
func HashBytes(b []byte) common.Hash32 {
	var out common.Hash32
	sum := blake2b.Sum256(b)
	copy(out[:], sum[:])
	return out
}

func sortRefs(refs []ledger.Ref) {
	for i := 1; i < len(refs); i++ {
		for j := i; j > 0 && refs[j-1] > refs[j]; j-- {
			refs[j-1], refs[j] = refs[j], refs[j-1]
		}
	}
}
