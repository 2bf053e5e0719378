package node

import "sync"

// TransactionPool is a FIFO queue of encoded transactions waiting to be
// included in a self-event. It implements gossip.PayloadSource.
type TransactionPool struct {
	sync.Mutex
	txs [][]byte
}

// NewTransactionPool creates an empty TransactionPool
func NewTransactionPool() *TransactionPool {
	return &TransactionPool{}
}

// Add appends a transaction to the queue
func (p *TransactionPool) Add(tx []byte) {
	p.Lock()
	defer p.Unlock()

	p.txs = append(p.txs, tx)
}

// Pop removes and returns the oldest transaction
func (p *TransactionPool) Pop() ([]byte, bool) {
	p.Lock()
	defer p.Unlock()

	if len(p.txs) == 0 {
		return nil, false
	}

	tx := p.txs[0]
	p.txs[0] = nil
	p.txs = p.txs[1:]

	return tx, true
}

// Len returns the number of queued transactions
func (p *TransactionPool) Len() int {
	p.Lock()
	defer p.Unlock()

	return len(p.txs)
}
