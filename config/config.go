// Package config loads the node's TOML configuration via a
// tomlSettings decoder that rejects unknown fields instead of silently
// ignoring typos.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"reflect"
	"time"
	"unicode"

	"github.com/naoina/toml"
	"github.com/pkg/errors"
)

// tomlSettings keeps TOML keys identical to Go struct field names and
// turns an unrecognised key into a hard decode error rather than a
// silently dropped setting.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) {
			link = fmt.Sprintf(", see %s#%s", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// Party is the TOML representation of one head participant: a
// hex-encoded verification key plus its fixed index.
type Party struct {
	Index int
	VKey  string // hex-encoded ed25519 public key
}

// Config is the full node configuration: head parameters, storage,
// network, and client-facing surface.
type Config struct {
	// Self is this node's own index into Parties.
	Self int
	// Parties is the fixed, ordered set of head participants.
	Parties []Party
	// ContestationPeriod bounds how long a party has to contest a Close.
	ContestationPeriod time.Duration
	// SeedInput names the on-chain output the Init transaction spends to
	// mint the head's initial state-machine token.
	SeedInput string

	Journal JournalConfig
	Network NetworkConfig
	Client  ClientConfig
}

// JournalConfig selects and configures the EventJournal backend.
type JournalConfig struct {
	// Backend is one of "file", "leveldb", "badger".
	Backend string
	Path    string
}

// NetworkConfig selects and configures the peer transport.
type NetworkConfig struct {
	// Backend is one of "kafka", "inmemory".
	Backend      string
	KafkaBrokers []string
	KafkaTopic   string
}

// ClientConfig configures the client-facing notification surface.
type ClientConfig struct {
	HTTPAddr  string
	RedisAddr string
}

// Default returns a Config with sane, non-networked defaults suitable
// for a single-process demo.
func Default() Config {
	return Config{
		ContestationPeriod: 10 * time.Minute,
		Journal:            JournalConfig{Backend: "file", Path: "headnode.journal"},
		Network:            NetworkConfig{Backend: "inmemory"},
		Client:             ClientConfig{HTTPAddr: ":8000"},
	}
}

// Load reads and decodes a TOML file at path into cfg, failing on any
// field the file sets that Config does not define.
func Load(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg); err != nil {
		return errors.Wrap(err, path)
	}
	return nil
}

// Dump renders cfg back to TOML, the round-trip the `dumpconfig`
// subcommand offers for inspecting effective configuration.
func Dump(w io.Writer, cfg Config) error {
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
