package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/gossipledger/src/config"
	"github.com/mosaicnetworks/gossipledger/src/gossipledger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that starts a node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runGossipLedger,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runGossipLedger(cmd *cobra.Command, args []string) error {
	engine := gossipledger.NewGossipLedger(&_config.Node)

	if err := engine.Init(); err != nil {
		_config.Node.Logger().Error("Cannot initialize engine:", err)
		return err
	}

	//Relay SIGINT and SIGTERM to a clean shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		_config.Node.Logger().Info("Shutting down")
		engine.Shutdown()
	}()

	engine.Run()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.Node.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Node.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.Node.LogFile, "Also write logs to this file, in JSON")
	cmd.Flags().String("moniker", _config.Node.Moniker, "Optional name")

	// Network
	cmd.Flags().StringP("listen", "l", _config.Node.BindAddr, "Listen IP:Port for gossip")
	cmd.Flags().StringP("advertise", "a", _config.Node.AdvertiseAddr, "Advertise IP:Port for gossip")
	cmd.Flags().DurationP("timeout", "t", _config.Node.TCPTimeout, "TCP Timeout")
	cmd.Flags().Int("max-pool", _config.Node.MaxPool, "Connection pool size max")
	cmd.Flags().Int64("max-frame-size", _config.Node.MaxFrameSize, "Largest gossip message accepted, in bytes")

	// Service
	cmd.Flags().Bool("no-service", _config.Node.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.Node.ServiceAddr, "Listen IP:Port for HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.Node.Store, "Use badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.Node.DatabaseDir, "Dabatabase directory")
	cmd.Flags().Bool("bootstrap", _config.Node.Bootstrap, "Load from database")
	cmd.Flags().Int("cache-size", _config.Node.CacheSize, "Number of items in LRU caches")

	// Node configuration
	cmd.Flags().Duration("heartbeat", _config.Node.HeartbeatTimeout, "Time between gossips")
	cmd.Flags().Duration("consensus-interval", _config.Node.ConsensusInterval, "Time between consensus passes")
	cmd.Flags().Int("members", _config.Node.Members, "Number of participants counted in super-majorities (0: size of peers.json)")
	cmd.Flags().Uint64("initial-balance", _config.Node.InitialBalance, "Genesis balance of every participant")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Node.SetDataDir(_config.Node.DataDir)

	logFields := logrus.Fields{
		"DataDir":           _config.Node.DataDir,
		"BindAddr":          _config.Node.BindAddr,
		"AdvertiseAddr":     _config.Node.AdvertiseAddr,
		"NoService":         _config.Node.NoService,
		"ServiceAddr":       _config.Node.ServiceAddr,
		"MaxPool":           _config.Node.MaxPool,
		"MaxFrameSize":      _config.Node.MaxFrameSize,
		"Store":             _config.Node.Store,
		"LogLevel":          _config.Node.LogLevel,
		"Moniker":           _config.Node.Moniker,
		"HeartbeatTimeout":  _config.Node.HeartbeatTimeout,
		"ConsensusInterval": _config.Node.ConsensusInterval,
		"TCPTimeout":        _config.Node.TCPTimeout,
		"CacheSize":         _config.Node.CacheSize,
		"Members":           _config.Node.Members,
		"InitialBalance":    _config.Node.InitialBalance,
	}

	if _config.Node.Store {
		logFields["DatabaseDir"] = _config.Node.DatabaseDir
		logFields["Bootstrap"] = _config.Node.Bootstrap
	}

	_config.Node.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/gossipledger.toml (.json, .yaml also work)
	viper.SetConfigName(config.DefaultConfigName) // name of config file (without extension)
	viper.AddConfigPath(_config.Node.DataDir)     // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
