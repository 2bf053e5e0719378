package gossipledger

import (
	"fmt"
	"os"
	"time"

	"github.com/mosaicnetworks/gossipledger/src/config"
	"github.com/mosaicnetworks/gossipledger/src/crypto/keys"
	h "github.com/mosaicnetworks/gossipledger/src/hashgraph"
	"github.com/mosaicnetworks/gossipledger/src/ledger"
	"github.com/mosaicnetworks/gossipledger/src/net"
	"github.com/mosaicnetworks/gossipledger/src/node"
	"github.com/mosaicnetworks/gossipledger/src/peers"
	"github.com/mosaicnetworks/gossipledger/src/service"
	"github.com/sirupsen/logrus"
)

// GossipLedger is a struct containing the key parts of a node: the
// configuration, the peer set, the stores, the transport, the node itself and
// the optional HTTP service.
type GossipLedger struct {
	Config    *config.Config
	Node      *node.Node
	Transport net.Transport
	Store     h.Store
	Ledger    *ledger.Ledger
	Peers     *peers.PeerSet
	Roster    *peers.Roster
	Service   *service.Service

	logger *logrus.Entry
}

// NewGossipLedger is a factory method to produce a GossipLedger instance. Call
// Init before Run.
func NewGossipLedger(c *config.Config) *GossipLedger {
	return &GossipLedger{
		Config: c,
		logger: c.Logger(),
	}
}

// Init initialises the node from the configuration: it reads the key and the
// peers, opens the stores, binds the transport, and creates the node and the
// service.
func (g *GossipLedger) Init() error {
	if g.Config.Bootstrap {
		g.Config.Store = true
	}

	if err := g.initKey(); err != nil {
		return err
	}

	if err := g.initPeers(); err != nil {
		return err
	}

	if err := g.initStore(); err != nil {
		return err
	}

	if err := g.initLedger(); err != nil {
		return err
	}

	if err := g.initTransport(); err != nil {
		return err
	}

	if err := g.initNode(); err != nil {
		return err
	}

	g.initService()

	return nil
}

// Run starts the service, if any, and the node. It blocks until Shutdown is
// called.
func (g *GossipLedger) Run() {
	if g.Service != nil {
		go g.Service.Serve()
	}

	g.Node.Run()
}

// Shutdown stops the service and the node
func (g *GossipLedger) Shutdown() {
	if g.Service != nil {
		if err := g.Service.Shutdown(time.Second); err != nil {
			g.logger.WithError(err).Error("Stopping service")
		}
	}

	if g.Node != nil {
		g.Node.Shutdown()
	}
}

func (g *GossipLedger) initKey() error {
	if g.Config.Key != nil {
		return nil
	}

	simpleKeyfile := keys.NewSimpleKeyfile(g.Config.Keyfile())

	privKey, err := simpleKeyfile.ReadKey()
	if err != nil {
		return fmt.Errorf("reading private key from %s: %v", simpleKeyfile.Path(), err)
	}

	g.Config.Key = privKey

	return nil
}

func (g *GossipLedger) initPeers() error {
	peerSet, err := peers.NewJSONPeerSet(g.Config.DataDir).PeerSet()
	if err != nil {
		return err
	}

	if peerSet.Len() == 0 {
		return fmt.Errorf("peers.json should define at least one peer")
	}

	g.Peers = peerSet

	return nil
}

func (g *GossipLedger) initStore() error {
	if !g.Config.Store {
		g.logger.Debug("Creating InmemStore")
		g.Store = h.NewInmemStore(g.Config.CacheSize)
		return nil
	}

	dbPath := g.Config.DatabaseDir
	if !g.Config.Bootstrap {
		dbPath = freshPath(dbPath)
	}

	g.logger.WithField("path", dbPath).Debug("Opening BadgerStore")

	store, err := h.NewBadgerStore(g.Config.CacheSize, dbPath, g.logger.WithField("prefix", "badger"))
	if err != nil {
		return err
	}

	g.Store = store

	return nil
}

// initLedger opens the ledger and credits the genesis balance to every member
// of the peer set. Genesis is a no-op on a ledger that already has accounts.
func (g *GossipLedger) initLedger() error {
	var store ledger.Store

	if !g.Config.Store {
		store = ledger.NewInmemStore(g.Config.CacheSize)
	} else {
		ledgerPath := g.Config.LedgerDir()
		if !g.Config.Bootstrap {
			ledgerPath = freshPath(ledgerPath)
		}

		g.logger.WithField("path", ledgerPath).Debug("Opening ledger")

		var err error
		store, err = ledger.NewBadgerStore(ledgerPath, g.logger.WithField("prefix", "ledger"))
		if err != nil {
			return err
		}
	}

	g.Ledger = ledger.NewLedger(store, g.logger.WithField("prefix", "ledger"))

	return g.Ledger.Genesis(g.Peers.PubKeys(), g.Config.InitialBalance)
}

func (g *GossipLedger) initTransport() error {
	transport, err := net.NewTCPTransport(
		g.Config.BindAddr,
		g.Config.AdvertiseAddr,
		g.Config.MaxPool,
		g.Config.MaxFrameSize,
		g.Config.TCPTimeout,
		g.logger.WithField("prefix", "net"),
	)
	if err != nil {
		return err
	}

	g.Transport = transport

	return nil
}

func (g *GossipLedger) initNode() error {
	pubKey := keys.PublicKeyHex(&g.Config.Key.PublicKey)

	p, ok := g.Peers.ByPubKey[pubKey]
	if !ok {
		return fmt.Errorf("cannot find self pubkey in peers.json")
	}

	moniker := g.Config.Moniker
	if moniker == "" {
		moniker = p.Moniker
	}

	self := peers.NewPeer(pubKey, g.Transport.AdvertiseAddr(), moniker)

	var seeds []*peers.Peer
	for _, other := range g.Peers.Peers {
		if other.PubKeyString() != pubKey {
			seeds = append(seeds, peers.NewPeer(other.PubKeyHex, other.NetAddr, other.Moniker))
		}
	}

	g.Roster = peers.NewRoster(self, seeds)

	members := g.Config.Members
	if members == 0 {
		members = g.Peers.Len()
	}

	g.logger.WithFields(logrus.Fields{
		"peers":    g.Peers.Len(),
		"members":  members,
		"moniker":  moniker,
		"peer_set": g.Peers.Hex(),
	}).Debug("Creating node")

	n, err := node.NewNode(g.Config,
		node.NewValidator(g.Config.Key, moniker),
		g.Roster,
		members,
		g.Store,
		g.Ledger,
		g.Transport,
	)
	if err != nil {
		return err
	}

	n.SetPeerSet(g.Peers)

	if err := n.Init(); err != nil {
		return fmt.Errorf("failed to initialize node: %s", err)
	}

	g.Node = n

	return nil
}

func (g *GossipLedger) initService() {
	if !g.Config.NoService {
		g.Service = service.NewService(g.Config.ServiceAddr, g.Node, g.logger.WithField("prefix", "service"))
	}
}

// freshPath returns path if nothing exists there yet, or the first of
// path(1), path(2)... that is free. An existing database is only reused when
// bootstrapping.
func freshPath(path string) string {
	res := path
	for i := 1; ; i++ {
		if _, err := os.Stat(res); os.IsNotExist(err) {
			return res
		}
		res = fmt.Sprintf("%s(%d)", path, i)
	}
}
