package service

import (
	"context"

	"game-economy-ledger/internal/core/domain"
	"game-economy-ledger/internal/core/ports"

	"github.com/shopspring/decimal"
)

// AsyncLedger offers every ledger operation as a Future so a single-threaded
// caller never blocks on a store round trip.
type AsyncLedger struct {
	ledger ports.Ledger
	cached func(domain.AccountID) (decimal.Decimal, bool)
	bridge *Bridge
}

// NewAsyncLedger wraps svc. Balance reads that hit the cache resolve
// immediately without leaving the calling goroutine.
func NewAsyncLedger(svc *LedgerService, bridge *Bridge) *AsyncLedger {
	return &AsyncLedger{ledger: svc, cached: svc.balances.Cached, bridge: bridge}
}

func (a *AsyncLedger) GetBalanceAsync(ctx context.Context, id domain.AccountID) *Future[decimal.Decimal] {
	if b, ok := a.cached(id); ok {
		return Completed(b, nil)
	}
	return Submit(ctx, a.bridge, func(ctx context.Context) (decimal.Decimal, error) {
		return a.ledger.GetBalance(ctx, id)
	})
}

func (a *AsyncLedger) HasBalanceAsync(ctx context.Context, id domain.AccountID, amount decimal.Decimal) *Future[bool] {
	if b, ok := a.cached(id); ok && !amount.IsNegative() {
		return Completed(b.GreaterThanOrEqual(amount), nil)
	}
	return Submit(ctx, a.bridge, func(ctx context.Context) (bool, error) {
		return a.ledger.HasBalance(ctx, id, amount)
	})
}

func (a *AsyncLedger) OpenAccountAsync(ctx context.Context, id domain.AccountID) *Future[*domain.Account] {
	return Submit(ctx, a.bridge, func(ctx context.Context) (*domain.Account, error) {
		return a.ledger.OpenAccount(ctx, id)
	})
}

func (a *AsyncLedger) ApplyAsync(ctx context.Context, req domain.Request) *Future[*domain.Result] {
	return Submit(ctx, a.bridge, func(ctx context.Context) (*domain.Result, error) {
		return a.ledger.Apply(ctx, req)
	})
}

func (a *AsyncLedger) CreditAsync(ctx context.Context, id domain.AccountID, amount decimal.Decimal, reason string) *Future[*domain.Result] {
	return Submit(ctx, a.bridge, func(ctx context.Context) (*domain.Result, error) {
		return a.ledger.Credit(ctx, id, amount, reason)
	})
}

func (a *AsyncLedger) DebitAsync(ctx context.Context, id domain.AccountID, amount decimal.Decimal, reason string) *Future[*domain.Result] {
	return Submit(ctx, a.bridge, func(ctx context.Context) (*domain.Result, error) {
		return a.ledger.Debit(ctx, id, amount, reason)
	})
}

func (a *AsyncLedger) SetBalanceAsync(ctx context.Context, id domain.AccountID, amount decimal.Decimal, reason string) *Future[*domain.Result] {
	return Submit(ctx, a.bridge, func(ctx context.Context) (*domain.Result, error) {
		return a.ledger.SetBalance(ctx, id, amount, reason)
	})
}

func (a *AsyncLedger) TransferAsync(ctx context.Context, req domain.TransferRequest) *Future[*domain.TransferResult] {
	return Submit(ctx, a.bridge, func(ctx context.Context) (*domain.TransferResult, error) {
		return a.ledger.Transfer(ctx, req)
	})
}

func (a *AsyncLedger) ApplyDiscountedPurchaseAsync(ctx context.Context, id domain.AccountID, listPrice decimal.Decimal, tier, reason string) *Future[*domain.PurchaseResult] {
	return Submit(ctx, a.bridge, func(ctx context.Context) (*domain.PurchaseResult, error) {
		return a.ledger.ApplyDiscountedPurchase(ctx, id, listPrice, tier, reason)
	})
}

func (a *AsyncLedger) CreditMarketplaceSaleAsync(ctx context.Context, sellerID domain.AccountID, gross decimal.Decimal, reason string) *Future[*domain.SaleResult] {
	return Submit(ctx, a.bridge, func(ctx context.Context) (*domain.SaleResult, error) {
		return a.ledger.CreditMarketplaceSale(ctx, sellerID, gross, reason)
	})
}

func (a *AsyncLedger) HistoryAsync(ctx context.Context, id domain.AccountID, limit int) *Future[[]domain.Transaction] {
	return Submit(ctx, a.bridge, func(ctx context.Context) ([]domain.Transaction, error) {
		return a.ledger.History(ctx, id, limit)
	})
}
