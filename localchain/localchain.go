// Package localchain maintains a short-lived, bounded history of chain
// observations so the node can roll back when the chain follower reports
// a reorg.
package localchain

import (
	"fmt"
	"sort"

	"github.com/sideledger/headnode/chain"
	"github.com/sideledger/headnode/common"
	"github.com/sideledger/headnode/log"
)

var logger = log.NewModuleLogger(log.ModuleChain)

// UnrecoverableRollback is returned when a rollback target is older than
// the retained window; the node must abort and resync from genesis.
type UnrecoverableRollback struct {
	Point common.ChainPoint
}

func (e *UnrecoverableRollback) Error() string {
	return fmt.Sprintf("localchain: rollback target %s predates retained window", e.Point)
}

// entry pairs a ChainPoint with the State observed there.
type entry struct {
	point common.ChainPoint
	state chain.State
}

// LocalChainState keeps the last K observed chain.State values, indexed
// by ChainPoint, to support Rollback. K is bounded by the base chain's
// security parameter.
type LocalChainState struct {
	k       int
	history []entry
}

// New builds a LocalChainState retaining at most k points.
func New(k int) *LocalChainState {
	return &LocalChainState{k: k}
}

// Record appends a newly observed state at point, evicting the oldest
// retained entry once the window is full.
func (l *LocalChainState) Record(point common.ChainPoint, state chain.State) {
	state.RecordedAt = point
	l.history = append(l.history, entry{point: point, state: state})
	if len(l.history) > l.k {
		l.history = l.history[len(l.history)-l.k:]
	}
}

// Current returns the most recently recorded state, or Idle if none.
func (l *LocalChainState) Current() chain.State {
	if len(l.history) == 0 {
		return chain.Idle()
	}
	return l.history[len(l.history)-1].state
}

// Rollback restores the newest retained state whose recordedAt point is
// <= target. Returns UnrecoverableRollback if target predates the
// retained window.
func (l *LocalChainState) Rollback(target common.ChainPoint) (chain.State, error) {
	idx := sort.Search(len(l.history), func(i int) bool {
		return l.history[i].point.Slot > target.Slot
	})
	// idx is now the first entry strictly after target; the restore point
	// is the one just before it.
	restoreIdx := idx - 1
	if restoreIdx < 0 {
		if len(l.history) > 0 && l.history[0].point.Slot > target.Slot {
			return chain.State{}, &UnrecoverableRollback{Point: target}
		}
		// Only an empty history reaches here: nothing has been recorded
		// yet, so the restored state is Idle.
		l.history = nil
		return chain.Idle(), nil
	}

	restored := l.history[restoreIdx].state
	l.history = l.history[:restoreIdx+1]
	logger.Info("rolled back local chain state", "target", target, "restoredSlot", restored.RecordedAt.Slot)
	return restored, nil
}

// Len reports how many points are currently retained; exposed for tests.
func (l *LocalChainState) Len() int { return len(l.history) }
