package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/gossipledger/src/config"
	"github.com/mosaicnetworks/gossipledger/src/crypto/keys"
	"github.com/mosaicnetworks/gossipledger/src/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeygen(t *testing.T) {
	dir := t.TempDir()
	priv := filepath.Join(dir, "keys", "priv_key")
	pub := filepath.Join(dir, "keys", "key.pub")

	var out bytes.Buffer
	cmd := NewKeygenCmd()
	cmd.SetOutput(&out)
	cmd.SetArgs([]string{"--priv", priv, "--pub", pub})
	require.NoError(t, cmd.Execute())

	key, err := keys.NewSimpleKeyfile(priv).ReadKey()
	require.NoError(t, err)

	pubHex, err := os.ReadFile(pub)
	require.NoError(t, err)
	assert.Equal(t, keys.PublicKeyHex(&key.PublicKey), string(pubHex))
	assert.Contains(t, out.String(), priv)

	// a second run must not overwrite the key
	cmd = NewKeygenCmd()
	cmd.SetOutput(&out)
	cmd.SetArgs([]string{"--priv", priv, "--pub", pub})
	assert.Error(t, cmd.Execute())
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	VersionCmd.SetOutput(&out)
	VersionCmd.Run(VersionCmd, nil)

	assert.Equal(t, version.Version, strings.TrimSpace(out.String()))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	toml := `
heartbeat = "50ms"
members = 4
initial-balance = 7
moniker = "alice"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultConfigName+".toml"), []byte(toml), 0600))

	cmd := NewRunCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--datadir", dir, "--log", "warn", "--max-pool", "5", "--max-frame-size", "1024"}))
	require.NoError(t, loadConfig(cmd, nil))

	conf := _config.Node
	assert.Equal(t, dir, conf.DataDir)
	assert.Equal(t, filepath.Join(dir, config.DefaultBadgerFile), conf.DatabaseDir)
	assert.Equal(t, 50*time.Millisecond, conf.HeartbeatTimeout)
	assert.Equal(t, config.DefaultConsensusInterval, conf.ConsensusInterval)
	assert.Equal(t, 4, conf.Members)
	assert.EqualValues(t, 7, conf.InitialBalance)
	assert.Equal(t, "alice", conf.Moniker)
	assert.Equal(t, 5, conf.MaxPool)
	assert.EqualValues(t, 1024, conf.MaxFrameSize)
}
