package localchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sideledger/headnode/chain"
	"github.com/sideledger/headnode/common"
)

func pointAt(slot uint64) common.ChainPoint {
	return common.ChainPoint{Slot: slot, Hash: common.Hash32{byte(slot)}}
}

func TestLocalChainState_Current_IsIdleWhenEmpty(t *testing.T) {
	l := New(5)
	assert.Equal(t, chain.Idle(), l.Current())
}

func TestLocalChainState_Record_EvictsOldestPastWindow(t *testing.T) {
	l := New(2)
	l.Record(pointAt(1), chain.State{Phase: chain.PhaseInitial})
	l.Record(pointAt(2), chain.State{Phase: chain.PhaseOpen})
	l.Record(pointAt(3), chain.State{Phase: chain.PhaseClosed})

	require.Equal(t, 2, l.Len())
	assert.Equal(t, chain.PhaseClosed, l.Current().Phase)
}

func TestLocalChainState_Rollback_RestoresStateAtOrBeforeTarget(t *testing.T) {
	l := New(10)
	l.Record(pointAt(1), chain.State{Phase: chain.PhaseInitial})
	l.Record(pointAt(2), chain.State{Phase: chain.PhaseOpen})
	l.Record(pointAt(3), chain.State{Phase: chain.PhaseClosed})

	restored, err := l.Rollback(pointAt(2))
	require.NoError(t, err)
	assert.Equal(t, chain.PhaseOpen, restored.Phase)
	assert.Equal(t, 2, l.Len(), "rollback must discard points newer than the target")
}

func TestLocalChainState_Rollback_PastRetainedWindowIsUnrecoverable(t *testing.T) {
	l := New(2)
	l.Record(pointAt(5), chain.State{Phase: chain.PhaseInitial})
	l.Record(pointAt(6), chain.State{Phase: chain.PhaseOpen})

	_, err := l.Rollback(pointAt(1))
	require.Error(t, err)
	var unrecoverable *UnrecoverableRollback
	assert.ErrorAs(t, err, &unrecoverable)
}
