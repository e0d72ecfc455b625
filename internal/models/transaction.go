package models

import "time"

// TransactionKind classifies a ledger entry.
type TransactionKind string

const (
	KindInvestment TransactionKind = "investment"
	KindSell       TransactionKind = "sell"
	KindRedemption TransactionKind = "redemption"
	KindBonus      TransactionKind = "bonus"
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
	KindFee        TransactionKind = "fee"
)

// TransactionStatus tracks the lifecycle of a ledger entry. Only external
// processes (e.g. shipment of a redemption) move an entry past completed.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusShipped   TransactionStatus = "shipped"
)

// Transaction is one immutable, append-only ledger entry owned by a single
// account. The rewards engine only reads these; it appends bonus entries
// when a claim grants gold or cash.
type Transaction struct {
	ID           int64             `json:"id" db:"id"`
	UserID       int64             `json:"user_id" db:"user_id"`
	Kind         TransactionKind   `json:"kind" db:"kind"`
	Amount       float64           `json:"amount" db:"amount"`
	Grams        float64           `json:"grams" db:"grams"`
	PricePerGram float64           `json:"price_per_gram,omitempty" db:"price_per_gram"`
	Status       TransactionStatus `json:"status" db:"status"`
	Reference    string            `json:"reference,omitempty" db:"reference"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}
