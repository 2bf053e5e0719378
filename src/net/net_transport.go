package net

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	rpcSync uint8 = iota
)

// a sync carries the whole local DAG
const bufSize = math.MaxUint16

// wireRequest is the frame of every request sent on a connection
type wireRequest struct {
	Type uint8
	Sync *SyncRequest `json:",omitempty"`
}

// wireResponse is the frame of every response. Error is empty on success.
type wireResponse struct {
	Error string `json:",omitempty"`
	Sync  *SyncResponse
}

// NetworkTransport implements Transport on top of a StreamLayer. Requests and
// responses are single JSON frames; a connection carries one request at a
// time and is returned to a per-target pool once its response is read.
type NetworkTransport struct {
	stream   StreamLayer
	timeout  time.Duration
	maxFrame int64
	logger   *logrus.Entry

	poolLock sync.Mutex
	pool     map[string][]*wireConn
	maxPool  int

	consumeCh chan RPC

	shutdownLock sync.Mutex
	shutdownCh   chan struct{}
	shutdown     bool
}

// wireConn is one end of a connection with its JSON codec. Reads go through
// a LimitedReader whose budget is reset before every frame; a connection
// carries one request at a time, so nothing of the next frame is buffered
// when the budget is reset.
type wireConn struct {
	target   string
	conn     net.Conn
	w        *bufio.Writer
	enc      *json.Encoder
	limit    *io.LimitedReader
	maxFrame int64
	dec      *json.Decoder
}

func newWireConn(target string, conn net.Conn, maxFrame int64) *wireConn {
	w := bufio.NewWriterSize(conn, bufSize)
	limit := &io.LimitedReader{R: conn, N: maxFrame}
	return &wireConn{
		target:   target,
		conn:     conn,
		w:        w,
		enc:      json.NewEncoder(w),
		limit:    limit,
		maxFrame: maxFrame,
		dec:      json.NewDecoder(bufio.NewReaderSize(limit, bufSize)),
	}
}

func (c *wireConn) write(frame interface{}) error {
	if err := c.enc.Encode(frame); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *wireConn) read(frame interface{}) error {
	c.limit.N = c.maxFrame

	err := c.dec.Decode(frame)
	if err != nil && c.limit.N <= 0 {
		return ErrFrameTooLarge
	}
	return err
}

func (c *wireConn) Close() error {
	return c.conn.Close()
}

// NewNetworkTransport creates a transport over the given stream layer.
// maxPool is the number of idle connections kept per target; maxFrameSize
// caps the size of a single request or response read from a connection;
// timeout is the I/O deadline of a request.
func NewNetworkTransport(
	stream StreamLayer,
	maxPool int,
	maxFrameSize int64,
	timeout time.Duration,
	logger *logrus.Entry,
) *NetworkTransport {

	if maxFrameSize <= 0 {
		maxFrameSize = math.MaxInt64
	}

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &NetworkTransport{
		stream:     stream,
		timeout:    timeout,
		maxFrame:   maxFrameSize,
		logger:     logger,
		pool:       make(map[string][]*wireConn),
		maxPool:    maxPool,
		consumeCh:  make(chan RPC),
		shutdownCh: make(chan struct{}),
	}
}

// Close implements the Transport interface. It stops accepting connections
// and releases pooled ones.
func (n *NetworkTransport) Close() error {
	n.shutdownLock.Lock()
	defer n.shutdownLock.Unlock()

	if n.shutdown {
		return nil
	}

	n.shutdown = true
	close(n.shutdownCh)
	err := n.stream.Close()

	n.poolLock.Lock()
	for target, conns := range n.pool {
		for _, c := range conns {
			c.Close()
		}
		delete(n.pool, target)
	}
	n.poolLock.Unlock()

	return err
}

// Consumer implements the Transport interface.
func (n *NetworkTransport) Consumer() <-chan RPC {
	return n.consumeCh
}

// LocalAddr implements the Transport interface.
func (n *NetworkTransport) LocalAddr() string {
	if addr := n.stream.Addr(); addr != nil {
		return addr.String()
	}
	return ""
}

// AdvertiseAddr implements the Transport interface.
func (n *NetworkTransport) AdvertiseAddr() string {
	return n.stream.AdvertiseAddr()
}

// IsShutdown reports whether Close was called
func (n *NetworkTransport) IsShutdown() bool {
	select {
	case <-n.shutdownCh:
		return true
	default:
		return false
	}
}

/*******************************************************************************
Outbound
*******************************************************************************/

// take returns an idle connection to target, dialing one if the pool is empty
func (n *NetworkTransport) take(target string) (*wireConn, error) {
	n.poolLock.Lock()
	if conns := n.pool[target]; len(conns) > 0 {
		c := conns[len(conns)-1]
		n.pool[target] = conns[:len(conns)-1]
		n.poolLock.Unlock()
		return c, nil
	}
	n.poolLock.Unlock()

	conn, err := n.stream.Dial(target, n.timeout)
	if err != nil {
		return nil, err
	}

	return newWireConn(target, conn, n.maxFrame), nil
}

// put returns a healthy connection to the pool, or closes it if the pool is
// full or the transport is shut down
func (n *NetworkTransport) put(c *wireConn) {
	n.poolLock.Lock()
	defer n.poolLock.Unlock()

	if n.IsShutdown() || len(n.pool[c.target]) >= n.maxPool {
		c.Close()
		return
	}

	n.pool[c.target] = append(n.pool[c.target], c)
}

// Sync implements the Transport interface.
func (n *NetworkTransport) Sync(target string, args *SyncRequest, resp *SyncResponse) error {
	if n.IsShutdown() {
		return ErrTransportShutdown
	}

	c, err := n.take(target)
	if err != nil {
		return err
	}

	if n.timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(n.timeout))
	}

	if err := c.write(&wireRequest{Type: rpcSync, Sync: args}); err != nil {
		c.Close()
		return err
	}

	out := wireResponse{Sync: resp}
	if err := c.read(&out); err != nil {
		c.Close()
		return err
	}

	n.put(c)

	if out.Error != "" {
		return &ResponseError{Message: out.Error}
	}

	if out.Sync != nil && out.Sync != resp {
		*resp = *out.Sync
	}

	return nil
}

/*******************************************************************************
Inbound
*******************************************************************************/

// Listen implements the Transport interface. It accepts connections until the
// transport is closed.
func (n *NetworkTransport) Listen() {
	for {
		conn, err := n.stream.Accept()
		if err != nil {
			if n.IsShutdown() {
				return
			}
			n.logger.WithError(err).Error("Failed to accept connection")
			continue
		}

		n.logger.WithFields(logrus.Fields{
			"node": conn.LocalAddr(),
			"from": conn.RemoteAddr(),
		}).Debug("Accepted connection")

		go n.serve(conn)
	}
}

// serve answers the requests of one inbound connection, in order, until the
// remote end closes it
func (n *NetworkTransport) serve(conn net.Conn) {
	c := newWireConn(conn.RemoteAddr().String(), conn, n.maxFrame)
	defer c.Close()

	for {
		var req wireRequest
		if err := c.read(&req); err != nil {
			if errors.Is(err, ErrFrameTooLarge) {
				n.logger.WithField("from", conn.RemoteAddr()).Warn("Request exceeds the maximum frame size")
			} else if !errors.Is(err, io.EOF) && !n.IsShutdown() {
				n.logger.WithError(err).Debug("Failed to decode request")
			}
			return
		}

		resp, err := n.dispatch(&req)
		if err != nil {
			if err != ErrTransportShutdown {
				n.logger.WithError(err).Warn("Dropping connection")
			}
			return
		}

		if err := c.write(resp); err != nil {
			n.logger.WithError(err).Debug("Failed to write response")
			return
		}
	}
}

// dispatch hands a request to the consumer and waits for its response
func (n *NetworkTransport) dispatch(req *wireRequest) (*wireResponse, error) {
	var command interface{}

	switch req.Type {
	case rpcSync:
		if req.Sync == nil {
			return nil, fmt.Errorf("sync request without body")
		}
		command = req.Sync
	default:
		return nil, fmt.Errorf("unknown rpc type %d", req.Type)
	}

	respCh := make(chan RPCResponse, 1)

	select {
	case n.consumeCh <- RPC{Command: command, RespChan: respCh}:
	case <-n.shutdownCh:
		return nil, ErrTransportShutdown
	}

	select {
	case r := <-respCh:
		resp := &wireResponse{}
		if r.Error != nil {
			resp.Error = r.Error.Error()
		}
		if sync, ok := r.Response.(*SyncResponse); ok {
			resp.Sync = sync
		}
		return resp, nil
	case <-n.shutdownCh:
		return nil, ErrTransportShutdown
	}
}
