package dto

// Amounts travel as decimal strings ("12.50") so no precision is lost in JSON.

// AmountRequest is the body of credit and debit calls.
type AmountRequest struct {
	Amount         string `json:"amount" binding:"required,money"`
	Reason         string `json:"reason" binding:"max=255"`
	IdempotencyKey string `json:"idempotency_key,omitempty" binding:"omitempty,max=100,safe_id"`
}

// SetBalanceRequest is the body of an administrative balance overwrite.
type SetBalanceRequest struct {
	Balance string `json:"balance" binding:"required,money_non_negative"`
	Reason  string `json:"reason" binding:"required,max=255"`
}

// ApplyRequest submits a signed change of any type.
type ApplyRequest struct {
	Amount           string `json:"amount" binding:"required,signed_money"`
	ChangeType       string `json:"change_type" binding:"required,change_type"`
	Reason           string `json:"reason" binding:"max=255"`
	RelatedAccountID *int64 `json:"related_account_id,omitempty" binding:"omitempty,gt=0"`
	IdempotencyKey   string `json:"idempotency_key,omitempty" binding:"omitempty,max=100,safe_id"`
}

// TransferRequest is the body of POST /transfers.
type TransferRequest struct {
	FromAccountID  int64  `json:"from_account_id" binding:"required,gt=0"`
	ToAccountID    int64  `json:"to_account_id" binding:"required,gt=0"`
	Amount         string `json:"amount" binding:"required,money"`
	Reason         string `json:"reason" binding:"max=255"`
	IdempotencyKey string `json:"idempotency_key,omitempty" binding:"omitempty,max=100,safe_id"`
}

// PurchaseRequest is a marketplace purchase at list price, discounted by tier.
type PurchaseRequest struct {
	ListPrice string `json:"list_price" binding:"required,money"`
	Tier      string `json:"tier" binding:"omitempty,max=50,safe_id"`
	Reason    string `json:"reason" binding:"max=255"`
}

// SaleRequest credits a seller for a marketplace sale.
type SaleRequest struct {
	Gross  string `json:"gross" binding:"required,money"`
	Reason string `json:"reason" binding:"max=255"`
}

// BalanceResponse is the response for balance queries.
type BalanceResponse struct {
	AccountID int64  `json:"account_id"`
	Balance   string `json:"balance"`
}

// HasBalanceResponse answers whether an account can cover an amount.
type HasBalanceResponse struct {
	AccountID  int64  `json:"account_id"`
	Amount     string `json:"amount"`
	Sufficient bool   `json:"sufficient"`
}

// AccountResponse describes an opened account.
type AccountResponse struct {
	AccountID int64  `json:"account_id"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"created_at"`
}

// ResultResponse is the outcome of a single-account change.
type ResultResponse struct {
	AccountID     int64  `json:"account_id"`
	NewBalance    string `json:"new_balance"`
	TransactionID int64  `json:"transaction_id"`
	Replayed      bool   `json:"replayed"`
}

// TransferResponse carries both post-transfer balances.
type TransferResponse struct {
	FromAccountID  int64  `json:"from_account_id"`
	ToAccountID    int64  `json:"to_account_id"`
	FromNewBalance string `json:"from_new_balance"`
	ToNewBalance   string `json:"to_new_balance"`
	Replayed       bool   `json:"replayed"`
}

// PurchaseResponse reports the charged price.
type PurchaseResponse struct {
	ResultResponse
	ListPrice string `json:"list_price"`
	Discount  string `json:"discount"`
	Price     string `json:"price"`
}

// SaleResponse reports the deductions applied to a sale.
type SaleResponse struct {
	ResultResponse
	Gross string `json:"gross"`
	Tax   string `json:"tax"`
	Fee   string `json:"fee"`
	Net   string `json:"net"`
}

// TransactionResponse is one audit entry.
type TransactionResponse struct {
	ID               int64  `json:"id"`
	AccountID        int64  `json:"account_id"`
	ChangeType       string `json:"change_type"`
	Amount           string `json:"amount"`
	BalanceBefore    string `json:"balance_before"`
	BalanceAfter     string `json:"balance_after"`
	Reason           string `json:"reason"`
	RelatedAccountID *int64 `json:"related_account_id,omitempty"`
	CreatedAt        string `json:"created_at"`
}

// TransactionListResponse wraps an account's recent history.
type TransactionListResponse struct {
	Items []TransactionResponse `json:"items"`
	Count int                   `json:"count"`
}
