package journal

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"

	"github.com/sideledger/headnode/event"
	"github.com/sideledger/headnode/log"
)

var logger = log.NewModuleLogger(log.ModuleJournal)

// recordHeader is the fixed-size framing prefix written before every
// record: a version tag, the record's crc32 checksum, and its payload
// length. A crashed half-write is recoverable by truncating to the last
// offset whose header+payload were both fully written and whose
// checksum verifies.
//
//	version(1) | checksum(4) | length(4) | payload(length)
const headerSize = 1 + 4 + 4

// File is the primary EventJournal backend: one append-only file on
// disk, recoverable on a corrupted open the way a LevelDB store
// recovers via RecoverFile — here recovery is a truncating re-read
// instead of a library call, since the framing is bespoke to this log.
type File struct {
	mu     sync.Mutex
	path   string
	f      *os.File
	lock   *os.File
	nextID uint64
	codec  Codec
}

// Open opens (or creates) the journal at path, taking an exclusive
// writer lock. A second Open from another process/writer fails with
// IncorrectAccess.
func Open(path string, codec Codec) (*File, error) {
	lock, err := acquireWriterLock(path + ".lock")
	if err != nil {
		return nil, &IncorrectAccess{Path: path}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		lock.Close()
		return nil, &IoError{Cause: err}
	}

	j := &File{path: path, f: f, lock: lock, codec: codec}
	if err := j.recoverTail(); err != nil {
		f.Close()
		lock.Close()
		return nil, err
	}
	return j, nil
}

// recoverTail scans existing records to find nextID and truncate any
// trailing partial record.
func (j *File) recoverTail() error {
	if _, err := j.f.Seek(0, io.SeekStart); err != nil {
		return &IoError{Cause: err}
	}
	r := bufio.NewReader(j.f)

	var offset int64
	var count uint64
	for {
		header := make([]byte, headerSize)
		n, err := io.ReadFull(r, header)
		if err == io.EOF {
			break
		}
		if err != nil || n < headerSize {
			logger.Warn("truncating journal: partial header", "offset", offset)
			return j.truncateTo(offset)
		}

		version := header[0]
		checksum := binary.BigEndian.Uint32(header[1:5])
		length := binary.BigEndian.Uint32(header[5:9])

		payload := make([]byte, length)
		n, err = io.ReadFull(r, payload)
		if err != nil || uint32(n) != length {
			logger.Warn("truncating journal: partial payload", "offset", offset)
			return j.truncateTo(offset)
		}
		if crc32.ChecksumIEEE(payload) != checksum {
			logger.Warn("truncating journal: checksum mismatch", "offset", offset)
			return j.truncateTo(offset)
		}
		_ = version

		offset += headerSize + int64(length)
		count++
		j.nextID = count
	}
	j.nextID = count
	if _, err := j.f.Seek(offset, io.SeekStart); err != nil {
		return &IoError{Cause: err}
	}
	return nil
}

func (j *File) truncateTo(offset int64) error {
	if err := j.f.Truncate(offset); err != nil {
		return &IoError{Cause: err}
	}
	if _, err := j.f.Seek(offset, io.SeekStart); err != nil {
		return &IoError{Cause: err}
	}
	// nextID recomputed by the caller's earlier successful-record count;
	// recoverTail tracks it incrementally, so nothing further to do here.
	return nil
}

// Append writes ev as a single atomic record: version, checksum, length,
// payload, then fsyncs before returning so a caller's subsequent effect
// dispatch never outruns durability.
func (j *File) Append(ev event.Event) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	id := j.nextID
	ev.EventID = id

	payload, err := j.codec.Marshal(ev)
	if err != nil {
		return 0, &IoError{Cause: err}
	}

	header := make([]byte, headerSize)
	header[0] = CurrentVersion
	binary.BigEndian.PutUint32(header[1:5], crc32.ChecksumIEEE(payload))
	binary.BigEndian.PutUint32(header[5:9], uint32(len(payload)))

	if _, err := j.f.Write(header); err != nil {
		return 0, &IoError{Cause: err}
	}
	if _, err := j.f.Write(payload); err != nil {
		return 0, &IoError{Cause: err}
	}
	if err := j.f.Sync(); err != nil {
		return 0, &IoError{Cause: err}
	}

	j.nextID++
	return id, nil
}

// LoadAll replays every durable record in append order. Only the current
// writer may call this (enforced by the writer lock acquired in Open);
// it is intended to run once at startup before the worker begins
// draining the live queue.
func (j *File) LoadAll() ([]event.Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.f.Seek(0, io.SeekStart); err != nil {
		return nil, &IoError{Cause: err}
	}
	r := bufio.NewReader(j.f)

	var out []event.Event
	var id uint64
	var offset int64
	for {
		header := make([]byte, headerSize)
		n, err := io.ReadFull(r, header)
		if err == io.EOF {
			break
		}
		if err != nil || n < headerSize {
			return nil, &CorruptRecord{Offset: offset}
		}
		version := header[0]
		checksum := binary.BigEndian.Uint32(header[1:5])
		length := binary.BigEndian.Uint32(header[5:9])

		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, &CorruptRecord{Offset: offset}
		}
		if crc32.ChecksumIEEE(payload) != checksum {
			return nil, &CorruptRecord{Offset: offset}
		}

		ev, err := j.codec.Unmarshal(version, payload)
		if err != nil {
			return nil, fmt.Errorf("journal: decode record %d: %w", id, err)
		}
		ev.EventID = id
		out = append(out, ev)

		offset += headerSize + int64(length)
		id++
	}

	if _, err := j.f.Seek(0, io.SeekEnd); err != nil {
		return nil, &IoError{Cause: err}
	}
	return out, nil
}

func (j *File) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	err := j.f.Close()
	j.lock.Close()
	os.Remove(j.path + ".lock")
	return err
}
