package journal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io/ioutil"
	"os"
	"testing"
	"testing/quick"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sideledger/headnode/client"
	"github.com/sideledger/headnode/event"
)

func TestFile_AppendAndLoadAll_PreservesOrder(t *testing.T) {
	dir, err := ioutil.TempDir("", "headnode-journal")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := dir + "/events.log"
	j, err := Open(path, JSONCodec{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := j.Append(event.NewTick(time.Unix(int64(i), 0)))
		require.NoError(t, err)
	}
	require.NoError(t, j.Close())

	j2, err := Open(path, JSONCodec{})
	require.NoError(t, err)
	defer j2.Close()

	loaded, err := j2.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	for i, ev := range loaded {
		assert.Equal(t, uint64(i), ev.EventID)
		assert.Equal(t, event.KindTick, ev.Kind)
		assert.Equal(t, int64(i), ev.At.Unix())
	}
}

func TestFile_Open_SecondWriterRejected(t *testing.T) {
	dir, err := ioutil.TempDir("", "headnode-journal")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := dir + "/events.log"
	j, err := Open(path, JSONCodec{})
	require.NoError(t, err)
	defer j.Close()

	_, err = Open(path, JSONCodec{})
	require.Error(t, err)
	assert.IsType(t, &IncorrectAccess{}, err)
}

func TestFile_RecoverTail_TruncatesPartialRecord(t *testing.T) {
	dir, err := ioutil.TempDir("", "headnode-journal")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := dir + "/events.log"
	j, err := Open(path, JSONCodec{})
	require.NoError(t, err)
	id, err := j.Append(event.NewTick(time.Unix(1, 0)))
	require.NoError(t, err)
	require.Equal(t, uint64(0), id)
	require.NoError(t, j.Close())

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte{CurrentVersion, 0x00, 0x00, 0x00, 0x01, 0xff, 0xff}) // truncated length
	require.NoError(t, err)
	require.NoError(t, f.Close())

	j2, err := Open(path, JSONCodec{})
	require.NoError(t, err)
	defer j2.Close()

	loaded, err := j2.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	id2, err := j2.Append(event.NewTick(time.Unix(2, 0)))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id2)
}

// rawRecord hand-writes a single framed record the way File.Append does
// (version | checksum | length | payload), letting tests pick a version
// tag independently of the payload shape, the same raw-framing approach
// TestFile_RecoverTail_TruncatesPartialRecord uses above.
func rawRecord(f *os.File, version uint8, payload []byte) error {
	header := make([]byte, headerSize)
	header[0] = version
	binary.BigEndian.PutUint32(header[1:5], crc32.ChecksumIEEE(payload))
	binary.BigEndian.PutUint32(header[5:9], uint32(len(payload)))
	if _, err := f.Write(header); err != nil {
		return err
	}
	_, err := f.Write(payload)
	return err
}

// legacyInitPayload builds the JSON a VersionLegacy writer produced:
// CmdInit records from before ContestationPeriod/SeedInput existed on
// the wire at all, not merely zero-valued.
func legacyInitPayload() []byte {
	return []byte(`{"Kind":0,"Client":{"Kind":0}}`)
}

// TestJournal_LegacyAndCurrentVersionRecordsInterleaveOnRead is a
// property test (testing/quick, in the style of the corpus's
// core/state/statedb_fuzz_test.go) over the claim that legacy and
// current-version records can interleave in any order within a single
// log and still load back in append order, with legacy CmdInit records
// correctly defaulting their not-yet-invented fields to zero rather
// than corrupting the read.
func TestJournal_LegacyAndCurrentVersionRecordsInterleaveOnRead(t *testing.T) {
	property := func(legacyFlags []bool) bool {
		if len(legacyFlags) == 0 {
			return true
		}
		dir, err := ioutil.TempDir("", "headnode-journal-quick")
		if err != nil {
			return false
		}
		defer os.RemoveAll(dir)

		path := dir + "/events.log"
		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return false
		}

		codec := JSONCodec{}
		for i, legacy := range legacyFlags {
			if legacy {
				if err := rawRecord(f, VersionLegacy, legacyInitPayload()); err != nil {
					return false
				}
				continue
			}
			payload, err := codec.Marshal(event.NewClientRequest(client.Command{
				Kind:               client.CmdInit,
				ContestationPeriod: time.Duration(i+1) * time.Second,
				SeedInput:          fmt.Sprintf("seed-%d", i),
			}))
			if err != nil {
				return false
			}
			if err := rawRecord(f, CurrentVersion, payload); err != nil {
				return false
			}
		}
		if err := f.Close(); err != nil {
			return false
		}

		j, err := Open(path, codec)
		if err != nil {
			return false
		}
		defer j.Close()

		loaded, err := j.LoadAll()
		if err != nil || len(loaded) != len(legacyFlags) {
			return false
		}
		for i, legacy := range legacyFlags {
			ev := loaded[i]
			if ev.EventID != uint64(i) || ev.Client.Kind != client.CmdInit {
				return false
			}
			if legacy {
				if ev.Client.ContestationPeriod != 0 || ev.Client.SeedInput != "" {
					return false
				}
			} else {
				if ev.Client.ContestationPeriod != time.Duration(i+1)*time.Second {
					return false
				}
				if ev.Client.SeedInput != fmt.Sprintf("seed-%d", i) {
					return false
				}
			}
		}
		return true
	}

	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 50}))
}
