package ledger

// Store persists accounts, receipts, and the index of the last applied entry
type Store interface {
	// GetAccount returns the account at address, or a KeyNotFound StoreErr
	GetAccount(address string) (Account, error)
	// SetAccount creates or updates an account
	SetAccount(account Account) error
	// Accounts returns all the accounts sorted by address
	Accounts() ([]Account, error)
	// AddReceipt records a receipt under its index
	AddReceipt(receipt Receipt) error
	// GetReceipt returns the receipt of the entry at index
	GetReceipt(index int) (Receipt, error)
	// GetTransaction returns the index of the entry that processed the
	// transaction with the given ID, or a KeyNotFound StoreErr
	GetTransaction(id string) (int, error)
	// AddTransaction records that the entry at index processed the transaction
	AddTransaction(id string, index int) error
	// LastApplied returns the index of the last applied entry, or -1
	LastApplied() int
	// SetLastApplied records the index of the last applied entry
	SetLastApplied(index int) error
	// Close closes the underlying database
	Close() error
}
