package journal

import (
	"encoding/binary"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"

	"github.com/sideledger/headnode/event"
)

// versionPrefixLen is the length of the version byte that prefixes
// every stored value, so LoadAll can tell a
// VersionLegacy record from a CurrentVersion one without a schema
// migration pass.
const versionPrefixLen = 1

// LevelDB is an EventJournal backed by goleveldb, keyed by the
// big-endian EventID so iteration returns append order for free, the
// same way a chain database keys blocks by number.
type LevelDB struct {
	db    *leveldb.DB
	codec Codec
	next  uint64
}

// OpenLevelDB opens (and recovers, if corrupted) the database at file:
// an open-then-RecoverFile sequence.
func OpenLevelDB(file string, codec Codec) (*LevelDB, error) {
	db, err := leveldb.OpenFile(file, nil)
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, &IoError{Cause: err}
	}

	j := &LevelDB{db: db, codec: codec}
	iter := db.NewIterator(nil, nil)
	for iter.Last(); iter.Valid(); {
		j.next = binary.BigEndian.Uint64(iter.Key()) + 1
		break
	}
	iter.Release()
	return j, nil
}

func (j *LevelDB) Append(ev event.Event) (uint64, error) {
	id := j.next
	ev.EventID = id

	payload, err := j.codec.Marshal(ev)
	if err != nil {
		return 0, &IoError{Cause: err}
	}
	value := make([]byte, versionPrefixLen+len(payload))
	value[0] = CurrentVersion
	copy(value[versionPrefixLen:], payload)

	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	if err := j.db.Put(key, value, nil); err != nil {
		return 0, &IoError{Cause: err}
	}

	j.next++
	return id, nil
}

func (j *LevelDB) LoadAll() ([]event.Event, error) {
	var out []event.Event
	iter := j.db.NewIterator(nil, nil)
	defer iter.Release()

	for iter.Next() {
		id := binary.BigEndian.Uint64(iter.Key())
		value := iter.Value()
		if len(value) < versionPrefixLen {
			return nil, &CorruptRecord{Offset: int64(id)}
		}
		version := value[0]
		ev, err := j.codec.Unmarshal(version, value[versionPrefixLen:])
		if err != nil {
			return nil, &CorruptRecord{Offset: int64(id)}
		}
		ev.EventID = id
		out = append(out, ev)
	}
	if err := iter.Error(); err != nil {
		return nil, &IoError{Cause: err}
	}
	return out, nil
}

func (j *LevelDB) Close() error {
	return j.db.Close()
}
