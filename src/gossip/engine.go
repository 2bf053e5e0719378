package gossip

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync"

	"github.com/mosaicnetworks/gossipledger/src/crypto/keys"
	"github.com/mosaicnetworks/gossipledger/src/hashgraph"
	"github.com/mosaicnetworks/gossipledger/src/net"
	"github.com/mosaicnetworks/gossipledger/src/peers"
	"github.com/sirupsen/logrus"
)

// Engine holds the local set of events and runs the gossip protocol over a
// Transport. Ticks are serialised by tickLock; the event set is guarded by mu,
// which is also held while ingesting the items of incoming sync requests.
type Engine struct {
	key    *ecdsa.PrivateKey
	pubKey []byte
	self   *peers.Peer

	roster    *peers.Roster
	selector  PeerSelector
	trans     net.Transport
	validator Validator
	source    PayloadSource
	hooks     Hooks

	tickLock sync.Mutex

	mu     sync.RWMutex
	events []*hashgraph.Event
	byHash map[string]*hashgraph.Event
	ids    map[string]struct{}
	last   *hashgraph.Event

	syncRequests int
	syncErrors   int
	rejected     int

	logger *logrus.Entry
}

// NewEngine creates an Engine for the owner of key. The local peer is
// roster.Self(). validator and source may be nil, in which case every payload
// is accepted and new events carry no payload.
func NewEngine(key *ecdsa.PrivateKey,
	roster *peers.Roster,
	trans net.Transport,
	validator Validator,
	source PayloadSource,
	hooks Hooks,
	logger *logrus.Entry) *Engine {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &Engine{
		key:       key,
		pubKey:    keys.FromPublicKey(&key.PublicKey),
		self:      roster.Self(),
		roster:    roster,
		selector:  NewRandomPeerSelector(roster, nil),
		trans:     trans,
		validator: validator,
		source:    source,
		hooks:     hooks,
		byHash:    make(map[string]*hashgraph.Event),
		ids:       make(map[string]struct{}),
		logger:    logger,
	}
}

// SetPeerSelector replaces the default RandomPeerSelector. It must be called
// before the first Tick.
func (g *Engine) SetPeerSelector(selector PeerSelector) {
	g.selector = selector
}

// Init creates the genesis event unless the Engine already has a last event,
// which is the case after Bootstrap.
func (g *Engine) Init() error {
	g.mu.Lock()
	ev, err := g.initGenesis()
	g.mu.Unlock()

	if err != nil {
		return err
	}

	if ev != nil {
		g.logger.WithField("hash", ev.Hex()).Debug("Created genesis event")
		g.accepted([]*hashgraph.Event{ev})
	}

	return nil
}

func (g *Engine) initGenesis() (*hashgraph.Event, error) {
	if g.last != nil {
		return nil, nil
	}

	ev := hashgraph.NewEvent(nil, "", "", g.pubKey)
	if err := ev.Sign(g.key); err != nil {
		return nil, err
	}

	g.record(ev)
	g.last = ev

	return ev, nil
}

// Bootstrap loads events recovered from a store, in topological order. They
// are trusted and not validated again. The last event created by the local
// peer becomes the last event, so the next self-event extends the recovered
// chain.
func (g *Engine) Bootstrap(events []*hashgraph.Event) {
	g.mu.Lock()
	defer g.mu.Unlock()

	selfKey := g.self.PubKeyString()

	for _, e := range events {
		ev := e.Copy()
		if _, ok := g.byHash[ev.Hex()]; ok {
			continue
		}

		g.record(ev)

		if ev.Creator() == selfKey {
			g.last = ev
		}
	}

	g.logger.WithFields(logrus.Fields{
		"events": len(g.events),
		"last":   g.lastHex(),
	}).Debug("Bootstrap")
}

/*******************************************************************************
Tick
*******************************************************************************/

// Tick runs one gossip round: the OnTick hook, then one sync with a random
// peer. A Tick called while another one is running returns immediately. It
// returns the error of the sync, if any, after reporting it to OnError.
func (g *Engine) Tick() error {
	if !g.tickLock.TryLock() {
		g.logger.Debug("Tick already in progress")
		return nil
	}
	defer g.tickLock.Unlock()

	if g.hooks.OnTick != nil {
		g.hooks.OnTick()
	}

	peer := g.selector.Next()
	if peer == nil {
		return nil
	}

	return g.sync(peer)
}

func (g *Engine) sync(peer *peers.Peer) error {
	req, err := g.syncRequest()
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.syncRequests++
	g.mu.Unlock()

	var resp net.SyncResponse
	if err := g.trans.Sync(peer.NetAddr, req, &resp); err != nil {
		kind := ErrorRequest
		if net.IsResponseError(err) {
			kind = ErrorResponse
		}

		g.mu.Lock()
		g.syncErrors++
		g.mu.Unlock()

		g.logger.WithFields(logrus.Fields{
			"peer":  peer.NetAddr,
			"kind":  kind,
			"error": err,
		}).Debug("Sync failed")

		if g.hooks.OnError != nil {
			g.hooks.OnError(kind, peer, err)
		}

		return err
	}

	accepted, err := g.OnItems(resp.Items, resp.LastItem)

	g.logger.WithFields(logrus.Fields{
		"peer":     peer.NetAddr,
		"received": len(resp.Items),
		"accepted": len(accepted),
	}).Debug("Sync")

	return err
}

func (g *Engine) syncRequest() (*net.SyncRequest, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.last == nil {
		return nil, ErrNotInitialised
	}

	return &net.SyncRequest{
		FromAddr:   g.trans.AdvertiseAddr(),
		FromPubKey: g.self.PubKeyString(),
		Moniker:    g.self.Moniker,
		Items:      g.snapshot(0),
		LastItem:   g.last,
	}, nil
}

/*******************************************************************************
Incoming requests
*******************************************************************************/

// Run processes incoming RPCs until shutdownCh is closed
func (g *Engine) Run(shutdownCh <-chan struct{}) {
	consumer := g.trans.Consumer()
	for {
		select {
		case rpc := <-consumer:
			g.ProcessRPC(rpc)
		case <-shutdownCh:
			return
		}
	}
}

// ProcessRPC handles a single RPC and responds to it
func (g *Engine) ProcessRPC(rpc net.RPC) {
	switch cmd := rpc.Command.(type) {
	case *net.SyncRequest:
		resp, err := g.processSyncRequest(cmd)
		rpc.Respond(resp, err)
	default:
		g.logger.WithField("cmd", rpc.Command).Error("Unexpected RPC command")
		rpc.Respond(nil, fmt.Errorf("unexpected command"))
	}
}

func (g *Engine) processSyncRequest(cmd *net.SyncRequest) (*net.SyncResponse, error) {
	g.mu.RLock()
	initialised := g.last != nil
	g.mu.RUnlock()

	if !initialised {
		return nil, ErrNotInitialised
	}

	if cmd.FromPubKey != "" && cmd.FromAddr != "" {
		peer := peers.NewPeer(cmd.FromPubKey, cmd.FromAddr, cmd.Moniker)
		if g.roster.Add(peer) {
			g.logger.WithFields(logrus.Fields{
				"addr":    peer.NetAddr,
				"moniker": peer.Moniker,
			}).Info("Discovered peer")
		}
	}

	accepted, err := g.OnItems(cmd.Items, cmd.LastItem)
	if err != nil {
		return nil, err
	}

	g.logger.WithFields(logrus.Fields{
		"from":     cmd.FromAddr,
		"received": len(cmd.Items),
		"accepted": len(accepted),
	}).Debug("Processed SyncRequest")

	g.mu.RLock()
	defer g.mu.RUnlock()

	return &net.SyncResponse{
		Items:    g.snapshot(0),
		LastItem: g.last,
	}, nil
}

/*******************************************************************************
Ingestion
*******************************************************************************/

// OnItems ingests the items received from a peer along with the peer's last
// event, and returns the events that were accepted, in order. Invalid items
// are dropped. If at least one item was new and the peer's last event is
// known after ingestion, a new self-event commemorating the sync is created
// and returned last.
func (g *Engine) OnItems(items []*hashgraph.Event, peerLast *hashgraph.Event) ([]*hashgraph.Event, error) {
	g.mu.Lock()
	accepted, err := g.ingest(items, peerLast)
	g.mu.Unlock()

	g.accepted(accepted)

	return accepted, err
}

func (g *Engine) ingest(items []*hashgraph.Event, peerLast *hashgraph.Event) ([]*hashgraph.Event, error) {
	pending := make([]*hashgraph.Event, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, ev := range items {
		if ev == nil {
			continue
		}
		h := ev.Hex()
		if _, ok := g.byHash[h]; ok {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}

		if err := g.checkContent(ev); err != nil {
			g.reject(ev, err)
			continue
		}

		pending = append(pending, ev)
	}

	if len(seen) == 0 {
		return nil, nil
	}

	var accepted []*hashgraph.Event

	for progress := true; progress && len(pending) > 0; {
		progress = false
		waiting := pending[:0]

		for _, ev := range pending {
			err := g.checkParents(ev)
			switch {
			case err == nil:
				g.record(ev)
				accepted = append(accepted, ev)
				progress = true
			case errors.Is(err, hashgraph.ErrMissingParent):
				waiting = append(waiting, ev)
			default:
				g.reject(ev, err)
			}
		}

		pending = waiting
	}

	for _, ev := range pending {
		g.reject(ev, hashgraph.ErrMissingParent)
	}

	if peerLast == nil || g.last == nil {
		return accepted, nil
	}

	other, ok := g.byHash[peerLast.Hex()]
	if !ok || other.Creator() == g.self.PubKeyString() {
		return accepted, nil
	}

	ev, err := g.commemorate(other)
	if err != nil {
		return accepted, err
	}

	return append(accepted, ev), nil
}

// checkContent verifies what doesn't depend on the other items: the signature
// and the payload.
func (g *Engine) checkContent(ev *hashgraph.Event) error {
	ok, err := ev.Verify()
	if err != nil {
		return err
	}
	if !ok {
		return hashgraph.ErrInvalidSignature
	}

	if g.validator != nil {
		if err := g.validator.ValidatePayload(ev); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}

	return nil
}

// checkParents verifies an event against the accepted set. It returns
// hashgraph.ErrMissingParent if the event may become valid once more events
// are accepted.
func (g *Engine) checkParents(ev *hashgraph.Event) error {
	if _, ok := g.ids[ev.Body.ID]; ok {
		return ErrKnownID
	}

	sp, op := ev.SelfParent(), ev.OtherParent()

	if sp == "" && op == "" {
		return nil
	}

	if sp == "" || op == "" {
		return ErrMalformedParents
	}

	selfParent, ok := g.byHash[sp]
	if !ok {
		return hashgraph.ErrMissingParent
	}

	if _, ok := g.byHash[op]; !ok {
		return hashgraph.ErrMissingParent
	}

	if selfParent.Creator() != ev.Creator() {
		return hashgraph.ErrSelfParentCreator
	}

	return nil
}

func (g *Engine) commemorate(other *hashgraph.Event) (*hashgraph.Event, error) {
	var payload []byte
	if g.source != nil {
		if p, ok := g.source.Pop(); ok {
			payload = p
		}
	}

	ev := hashgraph.NewEvent(payload, g.last.Hex(), other.Hex(), g.pubKey)
	if err := ev.Sign(g.key); err != nil {
		return nil, err
	}

	g.record(ev)
	g.last = ev

	return ev, nil
}

func (g *Engine) record(ev *hashgraph.Event) {
	h := ev.Hex()
	g.events = append(g.events, ev)
	g.byHash[h] = ev
	g.ids[ev.Body.ID] = struct{}{}
}

func (g *Engine) reject(ev *hashgraph.Event, err error) {
	g.rejected++
	g.logger.WithFields(logrus.Fields{
		"hash":    ev.Hex(),
		"creator": ev.Creator(),
		"error":   err,
	}).Debug("Rejected event")
}

func (g *Engine) accepted(events []*hashgraph.Event) {
	if len(events) > 0 && g.hooks.OnAccepted != nil {
		g.hooks.OnAccepted(events)
	}
}

/*******************************************************************************
Getters
*******************************************************************************/

// snapshot must be called with mu held
func (g *Engine) snapshot(skip int) []*hashgraph.Event {
	if skip >= len(g.events) {
		return nil
	}
	res := make([]*hashgraph.Event, len(g.events)-skip)
	copy(res, g.events[skip:])
	return res
}

func (g *Engine) lastHex() string {
	if g.last == nil {
		return ""
	}
	return g.last.Hex()
}

// Events returns the accepted events, in acceptance order, skipping the first
// skip ones. The slice is a copy; the events themselves are shared and must
// not be modified.
func (g *Engine) Events(skip int) []*hashgraph.Event {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.snapshot(skip)
}

// Event returns an accepted event by hash
func (g *Engine) Event(hash string) (*hashgraph.Event, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ev, ok := g.byHash[hash]
	return ev, ok
}

// LastEvent returns the last event created by the local peer, or nil
func (g *Engine) LastEvent() *hashgraph.Event {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.last
}

// Len returns the number of accepted events
func (g *Engine) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.events)
}

// Stats returns the number of sync requests sent, the number of those that
// failed, and the number of rejected items.
func (g *Engine) Stats() (syncRequests, syncErrors, rejected int) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.syncRequests, g.syncErrors, g.rejected
}
