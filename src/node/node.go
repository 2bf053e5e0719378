package node

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mosaicnetworks/gossipledger/src/config"
	"github.com/mosaicnetworks/gossipledger/src/gossip"
	hg "github.com/mosaicnetworks/gossipledger/src/hashgraph"
	"github.com/mosaicnetworks/gossipledger/src/ledger"
	"github.com/mosaicnetworks/gossipledger/src/net"
	"github.com/mosaicnetworks/gossipledger/src/peers"
	"github.com/sirupsen/logrus"
)

// ErrShutdown is returned when submitting transactions to a stopped node
var ErrShutdown = errors.New("node is shut down")

// Node defines a gossipledger node
type Node struct {
	state

	conf   *config.Config
	logger *logrus.Entry

	validator *Validator
	roster    *peers.Roster
	trans     net.Transport

	gossip    *gossip.Engine
	consensus *hg.ConsensusEngine
	store     hg.Store
	ledger    *ledger.Ledger
	pool      *TransactionPool
	metrics   *Metrics

	// peerSetHex identifies the genesis peer set in stats
	peerSetHex string

	// consensusLock serialises feeding and running the ConsensusEngine. fed is
	// the number of gossip events already inserted.
	consensusLock sync.Mutex
	fed           int

	gossipTimer    *ControlTimer
	consensusTimer *ControlTimer
	shutdownCh     chan struct{}

	start time.Time
}

// NewNode is a factory method that returns a Node instance. n is the number of
// participants used in super-majority computations.
func NewNode(conf *config.Config,
	validator *Validator,
	roster *peers.Roster,
	n int,
	store hg.Store,
	appLedger *ledger.Ledger,
	trans net.Transport,
) (*Node, error) {

	logger := conf.Logger().WithFields(logrus.Fields{
		"this_id": validator.ID(),
		"moniker": validator.Moniker,
	})

	consensus, err := hg.NewConsensusEngine(n, store, logger.WithField("prefix", "consensus"))
	if err != nil {
		return nil, err
	}

	// warm the validator's caches before it is shared between goroutines
	validator.PublicKeyBytes()
	validator.PublicKeyHex()

	node := &Node{
		conf:           conf,
		logger:         logger.WithField("prefix", "node"),
		validator:      validator,
		roster:         roster,
		trans:          trans,
		consensus:      consensus,
		store:          store,
		ledger:         appLedger,
		pool:           NewTransactionPool(),
		metrics:        NewMetrics(),
		gossipTimer:    NewRandomControlTimer(),
		consensusTimer: NewFixedControlTimer(),
		shutdownCh:     make(chan struct{}),
		start:          time.Now(),
	}

	node.gossip = gossip.NewEngine(validator.Key,
		roster,
		trans,
		ledger.PayloadValidator{},
		node.pool,
		gossip.Hooks{
			OnTick:     node.onTick,
			OnAccepted: node.onAccepted,
			OnError:    node.onError,
		},
		logger.WithField("prefix", "gossip"))

	node.metrics.RosterSize.Set(float64(roster.Len()))

	return node, nil
}

// Init bootstraps the node from its store if configured to, creates the
// genesis event unless one was recovered, and enters the Babbling state.
func (n *Node) Init() error {
	if n.conf.Bootstrap {
		n.logger.Debug("Bootstrap")
		if err := n.bootstrap(); err != nil {
			return err
		}
	}

	if err := n.gossip.Init(); err != nil {
		return err
	}

	n.setState(Babbling)

	return nil
}

func (n *Node) bootstrap() error {
	n.consensusLock.Lock()
	defer n.consensusLock.Unlock()

	events, err := n.store.TopologicalEvents()
	if err != nil {
		return err
	}

	n.gossip.Bootstrap(events)

	ordered, err := n.consensus.Bootstrap()
	if err != nil {
		return err
	}

	n.fed = n.gossip.Len()

	return n.commit(ordered)
}

// RunAsync calls Run in a separate goroutine
func (n *Node) RunAsync() {
	go n.Run()
}

// Run starts the gossip and consensus loops and blocks until Shutdown is
// called.
func (n *Node) Run() {
	go n.gossip.Run(n.shutdownCh)
	go n.gossipTimer.Run(n.conf.HeartbeatTimeout)
	go n.consensusTimer.Run(n.conf.ConsensusInterval)

	n.goFunc(n.babble)
	n.goFunc(n.doConsensus)

	<-n.shutdownCh
}

// babble ticks the gossip engine on every gossip timer expiry
func (n *Node) babble() {
	for {
		select {
		case <-n.gossipTimer.tickCh:
			if err := n.gossip.Tick(); err != nil {
				n.logger.WithError(err).Debug("Gossip")
			}
			n.gossipTimer.Reset(n.conf.HeartbeatTimeout)
		case <-n.shutdownCh:
			return
		}
	}
}

// doConsensus runs a consensus pass on every consensus timer expiry
func (n *Node) doConsensus() {
	for {
		select {
		case <-n.consensusTimer.tickCh:
			if err := n.RunConsensus(); err != nil {
				n.logger.WithError(err).Error("Consensus")
			}
			n.consensusTimer.Reset(n.conf.ConsensusInterval)
		case <-n.shutdownCh:
			return
		}
	}
}

/*******************************************************************************
Gossip hooks
*******************************************************************************/

func (n *Node) onTick() {
	n.metrics.GossipTicks.Inc()

	n.consensusLock.Lock()
	defer n.consensusLock.Unlock()

	n.feed()
}

func (n *Node) onAccepted(events []*hg.Event) {
	n.metrics.AcceptedEvents.Add(float64(len(events)))
}

func (n *Node) onError(kind gossip.ErrorKind, peer *peers.Peer, err error) {
	n.metrics.SyncErrors.WithLabelValues(string(kind)).Inc()

	if kind != gossip.ErrorRequest {
		return
	}

	if n.roster.Remove(peer.PubKeyString()) {
		n.logger.WithFields(logrus.Fields{
			"peer":  peer.NetAddr,
			"error": err,
		}).Info("Removed unreachable peer")
		n.metrics.RosterSize.Set(float64(n.roster.Len()))
	} else if peer.Seed {
		n.logger.WithField("peer", peer.NetAddr).Debug("Seed unreachable, will retry")
	}
}

/*******************************************************************************
Consensus
*******************************************************************************/

// feed inserts the gossip events accepted since the last call into the
// ConsensusEngine. It must be called with consensusLock held.
func (n *Node) feed() {
	events := n.gossip.Events(n.fed)

	for _, ev := range events {
		if err := n.consensus.Insert(ev); err != nil {
			n.logger.WithFields(logrus.Fields{
				"hash":  ev.Hex(),
				"error": err,
			}).Error("Inserting event into consensus")
		}
	}

	n.fed += len(events)
}

// RunConsensus feeds the ConsensusEngine, runs one consensus pass, and applies
// the newly ordered payloads to the ledger.
func (n *Node) RunConsensus() error {
	n.consensusLock.Lock()
	defer n.consensusLock.Unlock()

	n.feed()

	start := time.Now()
	ordered, err := n.consensus.Run()
	n.metrics.ConsensusDuration.Observe(time.Since(start).Seconds())

	n.metrics.UndecidedEvents.Set(float64(n.consensus.UndecidedCount()))

	// events persisted before a store failure are part of the order
	if cerr := n.commit(ordered); cerr != nil {
		return cerr
	}

	return err
}

// commit applies consensus events to the ledger. It must be called with
// consensusLock held.
func (n *Node) commit(events []*hg.Event) error {
	if len(events) == 0 {
		return nil
	}

	n.metrics.ConsensusEvents.Add(float64(len(events)))

	receipts, err := n.ledger.Apply(ledger.EntriesFromEvents(events))
	if err != nil {
		return fmt.Errorf("applying entries: %w", err)
	}

	for _, r := range receipts {
		n.metrics.Receipts.WithLabelValues(string(r.Status)).Inc()
	}

	n.logger.WithFields(logrus.Fields{
		"consensus_events": len(events),
		"receipts":         len(receipts),
		"last_applied":     n.ledger.LastApplied(),
	}).Debug("Commit")

	return nil
}

/*******************************************************************************
Transactions
*******************************************************************************/

// SubmitTransfer signs a transfer of amount from the node's account to the
// account at address to, and queues it for gossip
func (n *Node) SubmitTransfer(to string, amount uint64) (*ledger.Transaction, error) {
	if n.getState() == Shutdown {
		return nil, ErrShutdown
	}

	if amount == 0 {
		return nil, ledger.ErrZeroAmount
	}

	tx, err := ledger.NewTransaction(n.validator.PublicKeyHex(), to, amount)
	if err != nil {
		return nil, err
	}

	if err := tx.Sign(n.validator.Key); err != nil {
		return nil, err
	}

	payload, err := tx.Marshal()
	if err != nil {
		return nil, err
	}

	n.pool.Add(payload)
	n.metrics.TransactionPool.Set(float64(n.pool.Len()))

	n.logger.WithFields(logrus.Fields{
		"id":     tx.Body.ID,
		"to":     tx.Body.To,
		"amount": tx.Body.Amount,
	}).Debug("Submitted transfer")

	return tx, nil
}

/*******************************************************************************
Shutdown
*******************************************************************************/

// Shutdown stops the loops, the timers, and the transport, then closes the
// stores. Calling it more than once is harmless.
func (n *Node) Shutdown() {
	if n.getState() != Shutdown {
		n.logger.Debug("Shutdown")

		// Exit any non-shutdown state immediately
		n.setState(Shutdown)

		// Stop and wait for concurrent operations
		close(n.shutdownCh)

		n.waitRoutines()

		n.logStats()

		n.gossipTimer.Shutdown()
		n.consensusTimer.Shutdown()

		// transport and stores should only be closed once all concurrent
		// operations are finished
		n.trans.Close()

		if err := n.store.Close(); err != nil {
			n.logger.WithError(err).Error("Closing event store")
		}

		if err := n.ledger.Close(); err != nil {
			n.logger.WithError(err).Error("Closing ledger")
		}
	}
}

/*******************************************************************************
Getters
*******************************************************************************/

// GetState returns the state of the node
func (n *Node) GetState() State {
	return n.getState()
}

// GetID returns the numeric ID of the validator
func (n *Node) GetID() uint32 {
	return n.validator.ID()
}

// GetPubKey returns the validator's public key, which is also its ledger
// address
func (n *Node) GetPubKey() string {
	return n.validator.PublicKeyHex()
}

// GetPeers returns the current roster, self included
func (n *Node) GetPeers() []*peers.Peer {
	return n.roster.Peers()
}

// GetConsensusEvent returns the event at index in the total order
func (n *Node) GetConsensusEvent(index int) (*hg.Event, error) {
	return n.consensus.ConsensusEvent(index)
}

// GetLastEvent returns the last event created by this node
func (n *Node) GetLastEvent() *hg.Event {
	return n.gossip.LastEvent()
}

// GetAccount returns the ledger account at address
func (n *Node) GetAccount(address string) (ledger.Account, error) {
	return n.ledger.Account(address)
}

// GetAccounts returns all the ledger accounts
func (n *Node) GetAccounts() ([]ledger.Account, error) {
	return n.ledger.Accounts()
}

// GetReceipt returns the receipt of the entry at index in the total order
func (n *Node) GetReceipt(index int) (ledger.Receipt, error) {
	return n.ledger.Receipt(index)
}

// GetMetrics returns the node's Prometheus metrics
func (n *Node) GetMetrics() *Metrics {
	return n.metrics
}

// SetPeerSet records the peer set the node was created from. It must be
// called before the node runs.
func (n *Node) SetPeerSet(ps *peers.PeerSet) {
	n.peerSetHex = ps.Hex()
}

// GetStats returns stats
func (n *Node) GetStats() map[string]string {
	toString := func(i *int) string {
		if i == nil {
			return "nil"
		}

		return strconv.Itoa(*i)
	}

	timeElapsed := time.Since(n.start)

	consensusEvents := n.consensus.ConsensusCount()

	consensusEventsPerSecond := float64(consensusEvents) / timeElapsed.Seconds()

	lastConsensusRound := n.consensus.LastConsensusRound()

	var consensusRoundsPerSecond float64

	if lastConsensusRound != nil {
		consensusRoundsPerSecond = float64(*lastConsensusRound) / timeElapsed.Seconds()
	}

	_, _, rejected := n.gossip.Stats()

	s := map[string]string{
		"last_consensus_round": toString(lastConsensusRound),
		"last_round":           strconv.Itoa(n.consensus.LastRound()),
		"consensus_events":     strconv.Itoa(consensusEvents),
		"undetermined_events":  strconv.Itoa(n.consensus.UndecidedCount()),
		"known_events":         strconv.Itoa(n.gossip.Len()),
		"rejected_events":      strconv.Itoa(rejected),
		"last_applied":         strconv.Itoa(n.ledger.LastApplied()),
		"transaction_pool":     strconv.Itoa(n.pool.Len()),
		"num_peers":            strconv.Itoa(n.roster.Len()),
		"sync_rate":            strconv.FormatFloat(n.SyncRate(), 'f', 2, 64),
		"events_per_second":    strconv.FormatFloat(consensusEventsPerSecond, 'f', 2, 64),
		"rounds_per_second":    strconv.FormatFloat(consensusRoundsPerSecond, 'f', 2, 64),
		"id":                   fmt.Sprint(n.validator.ID()),
		"state":                n.getState().String(),
		"moniker":              n.validator.Moniker,
		"peer_set":             n.peerSetHex,
	}
	return s
}

func (n *Node) logStats() {
	stats := n.GetStats()

	n.logger.WithFields(logrus.Fields{
		"last_consensus_round": stats["last_consensus_round"],
		"consensus_events":     stats["consensus_events"],
		"undetermined_events":  stats["undetermined_events"],
		"known_events":         stats["known_events"],
		"last_applied":         stats["last_applied"],
		"transaction_pool":     stats["transaction_pool"],
		"num_peers":            stats["num_peers"],
		"sync_rate":            stats["sync_rate"],
		"events/s":             stats["events_per_second"],
		"rounds/s":             stats["rounds_per_second"],
		"state":                stats["state"],
	}).Debug("Stats")
}

// SyncRate returns the proportion of sync requests that succeeded
func (n *Node) SyncRate() float64 {
	syncRequests, syncErrors, _ := n.gossip.Stats()

	var syncErrorRate float64
	if syncRequests != 0 {
		syncErrorRate = float64(syncErrors) / float64(syncRequests)
	}

	return 1 - syncErrorRate
}
