package ledger

// Account is the state of an address
type Account struct {
	Address string
	Balance uint64
}

// ReceiptStatus is the outcome of applying an Entry
type ReceiptStatus string

const (
	// Applied means the transfer was carried out
	Applied ReceiptStatus = "applied"
	// InsufficientFunds means the sender could not cover the amount
	InsufficientFunds ReceiptStatus = "insufficient-funds"
	// Invalid means the payload was not a valid transaction from the creator
	Invalid ReceiptStatus = "invalid"
	// Duplicate means a transaction with the same ID was already processed
	Duplicate ReceiptStatus = "duplicate"
	// Overflow means the recipient's balance cannot hold the amount
	Overflow ReceiptStatus = "overflow"
)

// Receipt records what happened to the entry at Index in the total order
type Receipt struct {
	Index     int
	EventHash string
	TxID      string `json:",omitempty"`
	From      string `json:",omitempty"`
	To        string `json:",omitempty"`
	Amount    uint64
	Timestamp int64
	Status    ReceiptStatus
	Error     string `json:",omitempty"`
}
