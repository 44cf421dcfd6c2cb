// Package headlogic implements Update, the pure event-driven state
// machine at the heart of the head protocol: a function
// from (state, event) to (state', effects) with no side effects of its
// own.
package headlogic

import (
	"fmt"

	"github.com/sideledger/headnode/event"
	"github.com/sideledger/headnode/headstate"
)

// OutcomeKind discriminates Update's three possible results.
type OutcomeKind int

const (
	OutcomeNewState OutcomeKind = iota
	OutcomeWait
	OutcomeError
)

// Outcome is Update's result: either a new state and effects to
// dispatch, a Wait (retry later), or an Error (protocol violation, state
// unchanged).
type Outcome struct {
	Kind    OutcomeKind
	State   headstate.State
	Effects []event.Effect
	Err     *LogicError
}

func NewState(s headstate.State, effects ...event.Effect) Outcome {
	return Outcome{Kind: OutcomeNewState, State: s, Effects: effects}
}

func Wait() Outcome { return Outcome{Kind: OutcomeWait} }

func Error(err *LogicError) Outcome { return Outcome{Kind: OutcomeError, Err: err} }

// LogicError is the protocol-error taxonomy: reported to the client and
// logged, never crashes the node.
type LogicError struct {
	Kind    LogicErrorKind
	Detail  string
}

func (e *LogicError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Detail) }

type LogicErrorKind string

const (
	ErrInvalidEvent      LogicErrorKind = "InvalidEvent"
	ErrLedgerRejection   LogicErrorKind = "LedgerRejection"
	ErrBadSignature      LogicErrorKind = "BadSignature"
	ErrOutOfOrderSnapshot LogicErrorKind = "OutOfOrderSnapshot"
)

func invalidEvent(detail string) Outcome {
	return Error(&LogicError{Kind: ErrInvalidEvent, Detail: detail})
}

func outOfOrderSnapshot(expected, got uint64) Outcome {
	return Error(&LogicError{Kind: ErrOutOfOrderSnapshot, Detail: fmt.Sprintf("expected %d, got %d", expected, got)})
}

func ledgerRejection(cause error) Outcome {
	return Error(&LogicError{Kind: ErrLedgerRejection, Detail: cause.Error()})
}
