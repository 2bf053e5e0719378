package config

import (
	"crypto/ecdsa"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/gossipledger/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the validator's
	// private key
	DefaultKeyfile = "priv_key"

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database of events
	DefaultBadgerFile = "badger_db"

	// DefaultLedgerFile is the default name of the folder containing the Badger
	// database of the ledger
	DefaultLedgerFile = "ledger_db"

	// DefaultConfigName is the name, without extension, of the optional
	// configuration file in the data directory
	DefaultConfigName = "gossipledger"
)

// Default configuration values.
const (
	DefaultLogLevel          = "debug"
	DefaultBindAddr          = "127.0.0.1:1337"
	DefaultServiceAddr       = "127.0.0.1:8000"
	DefaultHeartbeatTimeout  = 10 * time.Millisecond
	DefaultConsensusInterval = 100 * time.Millisecond
	DefaultTCPTimeout        = 1000 * time.Millisecond
	DefaultCacheSize         = 10000
	DefaultMaxPool           = 2
	DefaultMaxFrameSize      = 64 << 20
	DefaultStore             = false
	DefaultMembers           = 0
	DefaultInitialBalance    = 1000
)

// Config contains all the configuration properties of a node.
type Config struct {
	// DataDir is the top-level directory containing configuration and data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, receives a copy of every log line in JSON.
	LogFile string `mapstructure:"log-file"`

	// BindAddr is the local address:port where this node gossips with other
	// nodes. If it is not routable, set AdvertiseAddr to the address other
	// nodes should use.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr is used to change the address that we advertise to other
	// nodes.
	AdvertiseAddr string `mapstructure:"advertise"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the HTTP API service.
	ServiceAddr string `mapstructure:"service-listen"`

	// HeartbeatTimeout is the time between gossip ticks.
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat"`

	// ConsensusInterval is the time between consensus passes.
	ConsensusInterval time.Duration `mapstructure:"consensus-interval"`

	// MaxPool controls how many connections are pooled per target in the gossip
	// routines.
	MaxPool int `mapstructure:"max-pool"`

	// MaxFrameSize is the largest gossip request or response, in bytes, that
	// the node accepts from a connection.
	MaxFrameSize int64 `mapstructure:"max-frame-size"`

	// TCPTimeout is the timeout of gossip RPC connections.
	TCPTimeout time.Duration `mapstructure:"timeout"`

	// Store activates persistant storage.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// CacheSize is the max number of items in in-memory caches.
	CacheSize int `mapstructure:"cache-size"`

	// Bootstrap determines whether or not to load the node from an existing
	// database. Forces Store.
	Bootstrap bool `mapstructure:"bootstrap"`

	// Members is the number of participants used to compute super-majorities.
	// 0 means the number of peers in peers.json.
	Members int `mapstructure:"members"`

	// InitialBalance is credited to every member of the genesis peer set.
	InitialBalance uint64 `mapstructure:"initial-balance"`

	// Moniker defines the friendly name of this node
	Moniker string `mapstructure:"moniker"`

	// Key is the private key of the validator.
	Key *ecdsa.PrivateKey

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:           DefaultDataDir(),
		LogLevel:          DefaultLogLevel,
		BindAddr:          DefaultBindAddr,
		ServiceAddr:       DefaultServiceAddr,
		HeartbeatTimeout:  DefaultHeartbeatTimeout,
		ConsensusInterval: DefaultConsensusInterval,
		TCPTimeout:        DefaultTCPTimeout,
		CacheSize:         DefaultCacheSize,
		MaxPool:           DefaultMaxPool,
		MaxFrameSize:      DefaultMaxFrameSize,
		Store:             DefaultStore,
		DatabaseDir:       DefaultDatabaseDir(),
		Members:           DefaultMembers,
		InitialBalance:    DefaultInitialBalance,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t)
	config.logger.Level = level
	return config
}

// SetDataDir sets the top-level directory, and updates the database directory
// if it is currently set to the default value. If the database directory is
// not currently the default, it means the user has explicitely set it to
// something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// LedgerDir returns the directory of the ledger database. It sits next to the
// event database.
func (c *Config) LedgerDir() string {
	return filepath.Join(filepath.Dir(c.DatabaseDir), DefaultLedgerFile)
}

// Logger returns a formatted logrus Entry, with prefix set to "gossipledger".
// When LogFile is set, every level is also written to that file in JSON.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			pathMap := lfshook.PathMap{}
			for _, level := range logrus.AllLevels {
				pathMap[level] = c.LogFile
			}
			c.logger.Hooks.Add(lfshook.NewHook(pathMap, &logrus.JSONFormatter{}))
		}
	}
	return c.logger.WithField("prefix", "gossipledger")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level config based
// on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".GossipLedger")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "GossipLedger")
		} else {
			return filepath.Join(home, ".gossipledger")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
