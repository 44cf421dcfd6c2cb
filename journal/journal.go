// Package journal implements the append-only, at-most-once-delivery
// event log that makes HeadLogic recoverable across restarts.
package journal

import (
	"fmt"

	"github.com/sideledger/headnode/event"
)

// Codec (de)serialises Event payloads. The journal itself is agnostic to
// the concrete shapes inside an Event (ledger.Tx, network.Message, ...);
// callers supply a Codec that knows how to round-trip their concrete
// types, the same way the core treats Ledger and Crypto as black boxes.
type Codec interface {
	Marshal(event.Event) ([]byte, error)
	Unmarshal(version uint8, payload []byte) (event.Event, error)
}

// CurrentVersion is written by every Append call. VersionLegacy records
// are accepted and transparently lifted on read.
const (
	VersionLegacy uint8 = 1
	CurrentVersion uint8 = 2
)

// CorruptRecord reports a framing or checksum failure at a given byte
// offset (a record id for the LevelDB and Badger backends). LoadAll
// returns it instead of any events; a trailing partial record in a File
// journal is already truncated away by Open before any read.
type CorruptRecord struct {
	Offset int64
}

func (e *CorruptRecord) Error() string { return fmt.Sprintf("journal: corrupt record at offset %d", e.Offset) }

// IncorrectAccess is returned by Open when another writer already holds
// the journal's writer lock, so no second reader or writer can reach
// LoadAll or Append while a writer is live.
type IncorrectAccess struct {
	Path string
}

func (e *IncorrectAccess) Error() string { return fmt.Sprintf("journal: incorrect access to %s: another writer owns it", e.Path) }

// IoError wraps an underlying I/O failure.
type IoError struct {
	Cause error
}

func (e *IoError) Error() string { return fmt.Sprintf("journal: io error: %v", e.Cause) }
func (e *IoError) Unwrap() error { return e.Cause }

// EventJournal is the durable, at-most-once append log HeadLogic's Node
// replays on startup.
type EventJournal interface {
	// Append durably persists ev, assigning it the next dense,
	// monotonically increasing EventID. Either the whole record commits
	// or nothing does.
	Append(ev event.Event) (uint64, error)

	// LoadAll returns every previously appended event in append order.
	// No reordering, no deduplication.
	LoadAll() ([]event.Event, error)

	Close() error
}
