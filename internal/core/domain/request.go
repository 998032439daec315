package domain

import "github.com/shopspring/decimal"

// Request is a single-account balance change submitted to the processor.
type Request struct {
	AccountID        AccountID
	Amount           decimal.Decimal // signed delta
	Type             ChangeType
	Reason           string
	RelatedAccountID *AccountID
	IdempotencyKey   string // optional; empty disables replay protection
}

// Result is the outcome of an accepted single-account change.
type Result struct {
	AccountID     AccountID       `json:"account_id"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	TransactionID int64           `json:"transaction_id"`
	Replayed      bool            `json:"replayed"`
}

// TransferRequest moves Amount from From to To atomically.
type TransferRequest struct {
	From           AccountID
	To             AccountID
	Amount         decimal.Decimal
	Reason         string
	IdempotencyKey string
}

// TransferResult carries both post-transfer balances.
type TransferResult struct {
	From           AccountID       `json:"from_account_id"`
	To             AccountID       `json:"to_account_id"`
	FromNewBalance decimal.Decimal `json:"from_new_balance"`
	ToNewBalance   decimal.Decimal `json:"to_new_balance"`
	Replayed       bool            `json:"replayed"`
}

// PurchaseResult is a discounted marketplace purchase.
type PurchaseResult struct {
	Result
	ListPrice decimal.Decimal `json:"list_price"`
	Discount  decimal.Decimal `json:"discount"`
	Price     decimal.Decimal `json:"price"`
}

// SaleResult is a marketplace sale credited net of tax and fee.
type SaleResult struct {
	Result
	Gross decimal.Decimal `json:"gross"`
	Tax   decimal.Decimal `json:"tax"`
	Fee   decimal.Decimal `json:"fee"`
	Net   decimal.Decimal `json:"net"`
}
