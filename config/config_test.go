package config

import (
	"bytes"
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DecodesKnownFields(t *testing.T) {
	f, err := ioutil.TempFile("", "headnode-config-*.toml")
	require.NoError(t, err)
	defer os.Remove(f.Name())

	_, err = f.WriteString(`
Self = 1
ContestationPeriod = "5m"

[Journal]
Backend = "badger"
Path = "/tmp/headnode"
`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	cfg := Default()
	require.NoError(t, Load(f.Name(), &cfg))

	assert.Equal(t, 1, cfg.Self)
	assert.Equal(t, 5*time.Minute, cfg.ContestationPeriod)
	assert.Equal(t, "badger", cfg.Journal.Backend)
	assert.Equal(t, "/tmp/headnode", cfg.Journal.Path)
	// Fields not present in the file keep Default's values.
	assert.Equal(t, "inmemory", cfg.Network.Backend)
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	f, err := ioutil.TempFile("", "headnode-config-*.toml")
	require.NoError(t, err)
	defer os.Remove(f.Name())

	_, err = f.WriteString("NotAField = true\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	cfg := Default()
	err = Load(f.Name(), &cfg)
	require.Error(t, err)
}

func TestLoad_WrapsUnderlyingErrorWithPath(t *testing.T) {
	cfg := Default()
	err := Load("/nonexistent/headnode.toml", &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nonexistent/headnode.toml")
}

func TestDump_RoundTripsDefaultConfig(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, Default()))
	assert.Contains(t, buf.String(), "inmemory")
}
