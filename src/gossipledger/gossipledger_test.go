package gossipledger

import (
	"crypto/ecdsa"
	"os"
	"path/filepath"
	"testing"

	"github.com/mosaicnetworks/gossipledger/src/config"
	"github.com/mosaicnetworks/gossipledger/src/crypto/keys"
	"github.com/mosaicnetworks/gossipledger/src/peers"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initDataDir writes a key and a peers.json listing that key and the given
// others into a new data directory.
func initDataDir(t *testing.T, others ...*ecdsa.PrivateKey) (string, *ecdsa.PrivateKey) {
	dir := t.TempDir()

	key, err := keys.GenerateECDSAKey()
	require.NoError(t, err)
	require.NoError(t, keys.NewSimpleKeyfile(filepath.Join(dir, config.DefaultKeyfile)).WriteKey(key))

	peerSlice := []*peers.Peer{
		peers.NewPeer(keys.PublicKeyHex(&key.PublicKey), "127.0.0.1:1337", "self"),
	}
	for _, o := range others {
		peerSlice = append(peerSlice, peers.NewPeer(keys.PublicKeyHex(&o.PublicKey), "127.0.0.1:1338", "other"))
	}
	require.NoError(t, peers.NewJSONPeerSet(dir).Write(peerSlice))

	return dir, key
}

func testConfig(t *testing.T, dir string) *config.Config {
	conf := config.NewTestConfig(t, logrus.WarnLevel)
	conf.SetDataDir(dir)
	conf.BindAddr = "127.0.0.1:0"
	conf.ServiceAddr = "127.0.0.1:0"
	return conf
}

func TestInit(t *testing.T) {
	other, err := keys.GenerateECDSAKey()
	require.NoError(t, err)

	dir, key := initDataDir(t, other)
	conf := testConfig(t, dir)
	conf.InitialBalance = 42

	g := NewGossipLedger(conf)
	require.NoError(t, g.Init())
	defer g.Shutdown()

	assert.Equal(t, key.D, conf.Key.D)
	assert.NotNil(t, g.Service)
	assert.NotNil(t, g.Node.GetLastEvent())
	assert.Equal(t, 2, g.Roster.Len())
	assert.Equal(t, g.Transport.AdvertiseAddr(), g.Roster.Self().NetAddr)
	assert.Equal(t, g.Peers.Hex(), g.Node.GetStats()["peer_set"])
	assert.NotEmpty(t, g.Peers.Hex())

	for _, pub := range []string{keys.PublicKeyHex(&key.PublicKey), keys.PublicKeyHex(&other.PublicKey)} {
		acc, err := g.Ledger.Account(pub)
		require.NoError(t, err)
		assert.EqualValues(t, 42, acc.Balance)
	}
}

func TestInitNoService(t *testing.T) {
	dir, _ := initDataDir(t)
	conf := testConfig(t, dir)
	conf.NoService = true

	g := NewGossipLedger(conf)
	require.NoError(t, g.Init())
	defer g.Shutdown()

	assert.Nil(t, g.Service)
}

func TestInitMissingSelf(t *testing.T) {
	dir, _ := initDataDir(t)

	stranger, err := keys.GenerateECDSAKey()
	require.NoError(t, err)

	conf := testConfig(t, dir)
	conf.Key = stranger

	g := NewGossipLedger(conf)
	err = g.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot find self")

	g.Transport.Close()
}

func TestInitMissingKey(t *testing.T) {
	dir := t.TempDir()

	g := NewGossipLedger(testConfig(t, dir))
	assert.Error(t, g.Init())
}

func TestInitStoreFreshDatabase(t *testing.T) {
	dir, _ := initDataDir(t)

	conf := testConfig(t, dir)
	conf.Store = true
	conf.NoService = true

	g := NewGossipLedger(conf)
	require.NoError(t, g.Init())
	g.Shutdown()

	conf2 := testConfig(t, dir)
	conf2.Store = true
	conf2.NoService = true

	g2 := NewGossipLedger(conf2)
	require.NoError(t, g2.Init())
	g2.Shutdown()

	// without bootstrap, the second run must not reuse the first databases
	for _, p := range []string{"badger_db(1)", "ledger_db(1)"} {
		_, err := os.Stat(filepath.Join(dir, p))
		assert.NoError(t, err, p)
	}
}

func TestFreshPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db")

	assert.Equal(t, path, freshPath(path))

	require.NoError(t, os.Mkdir(path, 0700))
	assert.Equal(t, path+"(1)", freshPath(path))

	require.NoError(t, os.Mkdir(path+"(1)", 0700))
	assert.Equal(t, path+"(2)", freshPath(path))
}
