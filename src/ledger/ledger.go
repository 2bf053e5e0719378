package ledger

import (
	"fmt"
	"math"
	"sync"

	cm "github.com/mosaicnetworks/gossipledger/src/common"
	"github.com/sirupsen/logrus"
)

// Ledger applies the entries of the total order to a Store
type Ledger struct {
	mu     sync.Mutex
	store  Store
	logger *logrus.Entry
}

// NewLedger creates a Ledger backed by store
func NewLedger(store Store, logger *logrus.Entry) *Ledger {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &Ledger{
		store:  store,
		logger: logger,
	}
}

// Genesis credits balance to every address. It only has an effect on an
// empty ledger, so calling it again after a restart is harmless.
func (l *Ledger) Genesis(addresses []string, balance uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	accounts, err := l.store.Accounts()
	if err != nil {
		return err
	}

	if len(accounts) > 0 || l.store.LastApplied() >= 0 {
		return nil
	}

	for _, a := range addresses {
		addr, err := NormaliseAddress(a)
		if err != nil {
			return err
		}

		if err := l.store.SetAccount(Account{Address: addr, Balance: balance}); err != nil {
			return err
		}
	}

	l.logger.WithFields(logrus.Fields{
		"accounts": len(addresses),
		"balance":  balance,
	}).Info("Genesis")

	return nil
}

// Apply applies entries in ascending index order and returns the receipts of
// the entries it applied. Entries at or below the last applied index are
// skipped, so replaying the whole order after a restart applies nothing
// twice. Entries that fail validation still get a receipt and consume their
// index.
func (l *Ledger) Apply(entries []Entry) ([]Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var receipts []Receipt

	for _, e := range entries {
		if e.Index <= l.store.LastApplied() {
			continue
		}

		receipt, err := l.apply(e)
		if err != nil {
			return receipts, err
		}

		if err := l.store.AddReceipt(receipt); err != nil {
			return receipts, err
		}

		if err := l.store.SetLastApplied(e.Index); err != nil {
			return receipts, err
		}

		receipts = append(receipts, receipt)
	}

	if len(receipts) > 0 {
		l.logger.WithFields(logrus.Fields{
			"receipts":     len(receipts),
			"last_applied": l.store.LastApplied(),
		}).Debug("Apply")
	}

	return receipts, nil
}

func (l *Ledger) apply(e Entry) (Receipt, error) {
	receipt := Receipt{
		Index:     e.Index,
		EventHash: e.EventHash,
		Timestamp: e.Timestamp,
	}

	tx, err := decodeTransaction(e.Payload, e.Creator)
	if err != nil {
		receipt.Status = Invalid
		receipt.Error = err.Error()
		return receipt, nil
	}

	to, _ := NormaliseAddress(tx.Body.To)

	receipt.TxID = tx.Body.ID
	receipt.From = tx.Body.From
	receipt.To = to
	receipt.Amount = tx.Body.Amount

	// A signed transaction is processed once, whatever its outcome, even if
	// several events carry it. The entry that recorded it may be replayed
	// after a crash that happened before its index was saved.
	prev, err := l.store.GetTransaction(tx.Body.ID)
	if err != nil && !cm.IsStore(err, cm.KeyNotFound) {
		return receipt, err
	}
	if err == nil && prev != e.Index {
		receipt.Status = Duplicate
		receipt.Error = fmt.Sprintf("transaction already processed at index %d", prev)
		return receipt, nil
	}

	if err := l.store.AddTransaction(tx.Body.ID, e.Index); err != nil {
		return receipt, err
	}

	from, err := l.account(tx.Body.From)
	if err != nil {
		return receipt, err
	}

	if from.Balance < tx.Body.Amount {
		receipt.Status = InsufficientFunds
		return receipt, nil
	}

	if to == from.Address {
		receipt.Status = Applied
		return receipt, nil
	}

	recipient, err := l.account(to)
	if err != nil {
		return receipt, err
	}

	if recipient.Balance > math.MaxUint64-tx.Body.Amount {
		receipt.Status = Overflow
		return receipt, nil
	}

	receipt.Status = Applied

	from.Balance -= tx.Body.Amount
	recipient.Balance += tx.Body.Amount

	if err := l.store.SetAccount(from); err != nil {
		return receipt, err
	}

	if err := l.store.SetAccount(recipient); err != nil {
		return receipt, err
	}

	return receipt, nil
}

// account returns the account at address, or an empty one
func (l *Ledger) account(address string) (Account, error) {
	acc, err := l.store.GetAccount(address)
	if cm.IsStore(err, cm.KeyNotFound) {
		return Account{Address: address}, nil
	}
	return acc, err
}

// Account returns the account at address. Unknown addresses have a zero
// balance.
func (l *Ledger) Account(address string) (Account, error) {
	addr, err := NormaliseAddress(address)
	if err != nil {
		return Account{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.account(addr)
}

// Accounts returns every account with a history, sorted by address
func (l *Ledger) Accounts() ([]Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.store.Accounts()
}

// Receipt returns the receipt of the entry at index
func (l *Ledger) Receipt(index int) (Receipt, error) {
	return l.store.GetReceipt(index)
}

// LastApplied returns the index of the last applied entry, or -1
func (l *Ledger) LastApplied() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.store.LastApplied()
}

// Close closes the store
func (l *Ledger) Close() error {
	return l.store.Close()
}
