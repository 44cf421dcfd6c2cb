package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sideledger/headnode/ledger"
)

func TestSignSnapshot_VerifiesUnderMatchingKey(t *testing.T) {
	vk, sk, err := GenerateKeyPair()
	require.NoError(t, err)

	utxoHash := common32(t, 7)
	body := []byte("confirmed-tx-ids")

	sig := SignSnapshot(sk, 3, utxoHash, body)
	assert.True(t, VerifySnapshot(vk, 3, utxoHash, body, sig))
}

func TestVerifySnapshot_RejectsWrongKeySnapshotOrBody(t *testing.T) {
	vk, sk, err := GenerateKeyPair()
	require.NoError(t, err)
	otherVk, _, err := GenerateKeyPair()
	require.NoError(t, err)

	utxoHash := common32(t, 1)
	body := []byte("body")
	sig := SignSnapshot(sk, 5, utxoHash, body)

	assert.False(t, VerifySnapshot(otherVk, 5, utxoHash, body, sig), "wrong key")
	assert.False(t, VerifySnapshot(vk, 6, utxoHash, body, sig), "wrong snapshot number")
	assert.False(t, VerifySnapshot(vk, 5, utxoHash, []byte("different body"), sig), "wrong body")
}

func TestHashUTxO_DeterministicAcrossKeyInsertionOrder(t *testing.T) {
	a := ledger.SimpleUTxO{1: 10, 2: 20, 3: 30}
	b := ledger.SimpleUTxO{3: 30, 1: 10, 2: 20}

	ha, err := HashUTxO(a)
	require.NoError(t, err)
	hb, err := HashUTxO(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.False(t, ha.IsZero())
}

func TestHashUTxO_DifferentContentsDifferentHash(t *testing.T) {
	a := ledger.SimpleUTxO{1: 10}
	b := ledger.SimpleUTxO{1: 11}

	ha, err := HashUTxO(a)
	require.NoError(t, err)
	hb, err := HashUTxO(b)
	require.NoError(t, err)

	assert.NotEqual(t, ha, hb)
}

func TestHashUTxO_RejectsNonSimpleUTxO(t *testing.T) {
	_, err := HashUTxO(unsupportedUTxO{})
	require.Error(t, err)
}

func TestHashBytes_DeterministicAndSensitiveToInput(t *testing.T) {
	a := HashBytes([]byte("message-one"))
	b := HashBytes([]byte("message-one"))
	c := HashBytes([]byte("message-two"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

type unsupportedUTxO struct{}

func (unsupportedUTxO) Clone() ledger.UTxO { return unsupportedUTxO{} }

func common32(t *testing.T, seed byte) (h [32]byte) {
	t.Helper()
	for i := range h {
		h[i] = seed
	}
	return h
}
