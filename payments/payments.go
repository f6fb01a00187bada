package payments

import "time"

type Kind string

const (
	KindPurchase Kind = "purchase"
	KindRent     Kind = "rent"
)

type Method string

const (
	MethodCard         Method = "card"
	MethodBankTransfer Method = "bank_transfer"
	MethodCash         Method = "cash"
)

type Status string

const StatusCompleted Status = "completed"

type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

const (
	MaxRentMonths        = 36
	maxIdempotencyKeyLen = 128
)

// Transaction is one completed payment from a buyer to a property owner.
// Amount is in minor units of Currency.
type Transaction struct {
	ID             string    `json:"id"`
	IdempotencyKey string    `json:"idempotency_key"`
	BuyerID        string    `json:"buyer_id"`
	OwnerID        string    `json:"owner_id"`
	PropertyID     string    `json:"property_id"`
	Kind           Kind      `json:"kind"`
	Months         int       `json:"months,omitempty"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	Method         Method    `json:"method"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type LedgerEntry struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Direction     Direction `json:"direction"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
}

type PayRequest struct {
	PropertyID     string `json:"property_id"`
	Kind           Kind   `json:"kind"`
	Months         int    `json:"months"`
	Method         Method `json:"method"`
	IdempotencyKey string `json:"idempotency_key"`
}

type TransactionDetails struct {
	Transaction *Transaction  `json:"transaction"`
	Entries     []LedgerEntry `json:"entries"`
}

type ListResponse struct {
	Transactions []*Transaction `json:"transactions"`
	Total        int            `json:"total"`
	Offset       int            `json:"offset"`
	Limit        int            `json:"limit"`
}

type Totals struct {
	Debited  int64 `json:"debited"`
	Credited int64 `json:"credited"`
}

// Summary totals a user's ledger entries. TotalDebited and TotalCredited add every
// currency together; ByCurrency keeps them apart.
type Summary struct {
	UserID        string            `json:"user_id"`
	TotalDebited  int64             `json:"total_debited"`
	TotalCredited int64             `json:"total_credited"`
	ByCurrency    map[string]Totals `json:"by_currency"`
	EntryCount    int               `json:"entry_count"`
}

// LedgerBalance is the result of checking that a transaction's debits equal its credits
type LedgerBalance struct {
	TransactionID string `json:"transaction_id"`
	Debits        int64  `json:"debits"`
	Credits       int64  `json:"credits"`
	Entries       int    `json:"entries"`
	Balanced      bool   `json:"balanced"`
}
