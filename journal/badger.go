package journal

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/dgraph-io/badger"

	"github.com/sideledger/headnode/event"
)

// Badger is an alternate EventJournal backend for deployments that
// already run badger for other storage; File is the default backend,
// LevelDB and Badger interchangeable alternatives, Badger creating its
// directory on open if it does not exist.
type Badger struct {
	db    *badger.DB
	codec Codec
	next  uint64
}

func OpenBadger(dir string, codec Codec) (*Badger, error) {
	if fi, err := os.Stat(dir); err == nil {
		if !fi.IsDir() {
			return nil, fmt.Errorf("journal: badger dir %s is not a directory", dir)
		}
	} else if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &IoError{Cause: err}
		}
	} else {
		return nil, &IoError{Cause: err}
	}

	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	db, err := badger.Open(opts)
	if err != nil {
		return nil, &IoError{Cause: err}
	}

	j := &Badger{db: db, codec: codec}
	if err := j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			id := binary.BigEndian.Uint64(key) + 1
			if id > j.next {
				j.next = id
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, &IoError{Cause: err}
	}
	return j, nil
}

func (j *Badger) Append(ev event.Event) (uint64, error) {
	id := j.next
	ev.EventID = id

	payload, err := j.codec.Marshal(ev)
	if err != nil {
		return 0, &IoError{Cause: err}
	}
	value := make([]byte, 1+len(payload))
	value[0] = CurrentVersion
	copy(value[1:], payload)

	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)

	if err := j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	}); err != nil {
		return 0, &IoError{Cause: err}
	}

	j.next++
	return id, nil
}

func (j *Badger) LoadAll() ([]event.Event, error) {
	var out []event.Event
	err := j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := binary.BigEndian.Uint64(item.Key())
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if len(value) < 1 {
				return &CorruptRecord{Offset: int64(id)}
			}
			ev, err := j.codec.Unmarshal(value[0], value[1:])
			if err != nil {
				return &CorruptRecord{Offset: int64(id)}
			}
			ev.EventID = id
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (j *Badger) Close() error {
	return j.db.Close()
}
