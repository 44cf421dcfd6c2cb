package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sideledger/headnode/common"
)

func TestSimple_Apply_SpendsInputsAndAddsOutputs(t *testing.T) {
	s := NewSimple()
	u := SimpleUTxO{1: 10, 2: 20}

	tx := SimpleTx{TxId: common.TxID("tx1"), Inputs: []Ref{1}, Outputs: map[Ref]int{3: 10}}
	next, err := s.Apply(u, tx)
	require.NoError(t, err)

	su := next.(SimpleUTxO)
	assert.False(t, su.Has(1), "spent input must be gone")
	assert.True(t, su.Has(2), "untouched entry survives")
	assert.Equal(t, 10, su[3])
}

func TestSimple_Apply_RejectsMissingInput(t *testing.T) {
	s := NewSimple()
	u := SimpleUTxO{1: 10}

	tx := SimpleTx{TxId: common.TxID("tx1"), Inputs: []Ref{99}}
	_, err := s.Apply(u, tx)
	require.Error(t, err)
	var ledgerErr *Error
	assert.ErrorAs(t, err, &ledgerErr)
	assert.Equal(t, common.TxID("tx1"), ledgerErr.TxID)
}

func TestSimple_Apply_DoesNotMutateInputUTxO(t *testing.T) {
	s := NewSimple()
	u := SimpleUTxO{1: 10}

	_, err := s.Apply(u, SimpleTx{TxId: "tx1", Inputs: []Ref{1}, Outputs: map[Ref]int{2: 5}})
	require.NoError(t, err)

	assert.True(t, u.Has(1), "Apply must not mutate its input UTxO in place")
}

func TestSimpleUTxO_Clone_IsIndependentCopy(t *testing.T) {
	u := SimpleUTxO{1: 10}
	clone := u.Clone().(SimpleUTxO)
	clone[1] = 999
	clone[2] = 5

	assert.Equal(t, 10, u[1])
	assert.False(t, u.Has(2))
}
