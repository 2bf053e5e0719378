package net

import (
	"fmt"
	"sync"
	"time"

	"github.com/mosaicnetworks/gossipledger/src/hashgraph"
	uuid "github.com/satori/go.uuid"
)

// NewInmemAddr returns a new in-memory addr with
// a randomly generate UUID as the ID.
func NewInmemAddr() string {
	return uuid.Must(uuid.NewV4()).String()
}

// InmemTransport Implements the Transport interface, to allow nodes to be
// tested in-memory without going over a network. Events are copied on the
// way in and out, as they would be by a network transport.
type InmemTransport struct {
	sync.RWMutex
	consumerCh chan RPC
	localAddr  string
	peers      map[string]*InmemTransport
	timeout    time.Duration
}

// NewInmemTransport is used to initialize a new transport
// and generates a random local address if none is specified
func NewInmemTransport(addr string, timeout time.Duration) (string, *InmemTransport) {
	if addr == "" {
		addr = NewInmemAddr()
	}
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}
	trans := &InmemTransport{
		consumerCh: make(chan RPC, 16),
		localAddr:  addr,
		peers:      make(map[string]*InmemTransport),
		timeout:    timeout,
	}
	return addr, trans
}

// Consumer implements the Transport interface.
func (i *InmemTransport) Consumer() <-chan RPC {
	return i.consumerCh
}

// LocalAddr implements the Transport interface.
func (i *InmemTransport) LocalAddr() string {
	return i.localAddr
}

// AdvertiseAddr implements the Transport interface.
func (i *InmemTransport) AdvertiseAddr() string {
	return i.localAddr
}

// Sync implements the Transport interface.
func (i *InmemTransport) Sync(target string, args *SyncRequest, resp *SyncResponse) error {
	req := *args
	req.Items = copyEvents(args.Items)
	req.LastItem = copyEvent(args.LastItem)

	rpcResp, err := i.makeRPC(target, &req, i.timeout)
	if err != nil {
		return err
	}

	// Copy the result back
	out := rpcResp.Response.(*SyncResponse)
	resp.Items = copyEvents(out.Items)
	resp.LastItem = copyEvent(out.LastItem)

	return nil
}

func (i *InmemTransport) makeRPC(target string, args interface{}, timeout time.Duration) (rpcResp RPCResponse, err error) {
	i.RLock()
	peer, ok := i.peers[target]
	i.RUnlock()

	if !ok {
		err = fmt.Errorf("failed to connect to peer: %v", target)
		return
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	// Send the RPC over
	respCh := make(chan RPCResponse, 1)
	select {
	case peer.consumerCh <- RPC{
		Command:  args,
		RespChan: respCh,
	}:
	case <-timer.C:
		err = fmt.Errorf("command timed out")
		return
	}

	// Wait for a response
	select {
	case rpcResp = <-respCh:
		if rpcResp.Error != nil {
			err = &ResponseError{Message: rpcResp.Error.Error()}
		}
	case <-timer.C:
		err = fmt.Errorf("command timed out")
	}
	return
}

// Connect is used to connect this transport to another transport for
// a given peer name. This allows for local routing.
func (i *InmemTransport) Connect(peer string, t Transport) {
	trans := t.(*InmemTransport)
	i.Lock()
	defer i.Unlock()
	i.peers[peer] = trans
}

// Disconnect is used to remove the ability to route to a given peer.
func (i *InmemTransport) Disconnect(peer string) {
	i.Lock()
	defer i.Unlock()
	delete(i.peers, peer)
}

// DisconnectAll is used to remove all routes to peers.
func (i *InmemTransport) DisconnectAll() {
	i.Lock()
	defer i.Unlock()
	i.peers = make(map[string]*InmemTransport)
}

// Close is used to permanently disable the transport
func (i *InmemTransport) Close() error {
	i.DisconnectAll()
	return nil
}

// Listen is an empty function as there is no need to defer
// initialisation of the InMem service
func (i *InmemTransport) Listen() {
}

func copyEvent(ev *hashgraph.Event) *hashgraph.Event {
	if ev == nil {
		return nil
	}
	return ev.Copy()
}

func copyEvents(events []*hashgraph.Event) []*hashgraph.Event {
	if events == nil {
		return nil
	}
	res := make([]*hashgraph.Event, len(events))
	for i, ev := range events {
		res[i] = ev.Copy()
	}
	return res
}
