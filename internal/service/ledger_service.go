package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"game-economy-ledger/config"
	"game-economy-ledger/internal/core/domain"
	"game-economy-ledger/internal/core/ports"
	"game-economy-ledger/internal/monitoring"
	"game-economy-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// maxStoredBalance is the first value a NUMERIC(15,2) column cannot hold.
var maxStoredBalance = decimal.New(1, 13)

// LedgerDeps are the collaborators a LedgerService is built from.
// IdempotencyCache and Discounts may be nil.
type LedgerDeps struct {
	Accounts         ports.AccountRepository
	Transactions     ports.TransactionRepository
	Idempotency      ports.IdempotencyRepository
	IdempotencyCache ports.IdempotencyCache
	Transactor       ports.DBTransactor
	DailyCounter     ports.DailyCounter
	Discounts        ports.DiscountProvider
	Metrics          *monitoring.Metrics
	Location         *time.Location
}

// LedgerService implements ports.Ledger. It owns the lock registry, balance
// cache, limits guard and audit log; construct one per process and share it.
type LedgerService struct {
	accounts   ports.AccountRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	discounts  ports.DiscountProvider

	locks    *LockRegistry
	cache    *BalanceCache
	balances *BalanceStore
	guard    *LimitsGuard
	audit    *AuditLog

	cfg     config.EconomyConfig
	log     zerolog.Logger
	metrics *monitoring.Metrics
	now     func() time.Time
}

// NewLedgerService wires a LedgerService.
func NewLedgerService(deps LedgerDeps, cfg config.EconomyConfig, log zerolog.Logger) *LedgerService {
	locks := NewLockRegistry(deps.Metrics)
	cache := NewBalanceCache(cfg.BalanceCacheSize, cfg.BalanceCacheTTL, deps.Metrics)
	return &LedgerService{
		accounts:   deps.Accounts,
		idempRepo:  deps.Idempotency,
		idempCache: deps.IdempotencyCache,
		transactor: deps.Transactor,
		discounts:  deps.Discounts,
		locks:      locks,
		cache:      cache,
		balances:   NewBalanceStore(deps.Accounts, cache, locks, cfg.InitialBalance, log),
		guard:      NewLimitsGuard(cfg, deps.DailyCounter, deps.Location, log, deps.Metrics),
		audit:      NewAuditLog(deps.Transactions),
		cfg:        cfg,
		log:        log,
		metrics:    deps.Metrics,
		now:        time.Now,
	}
}

// Cache exposes the balance cache shared by every operation.
func (s *LedgerService) Cache() *BalanceCache { return s.cache }

// Locks exposes the per-account lock registry.
func (s *LedgerService) Locks() *LockRegistry { return s.locks }

// Guard exposes the limits guard, used by the daily counter sweeper.
func (s *LedgerService) Guard() *LimitsGuard { return s.guard }

// Close releases the balance cache's background worker.
func (s *LedgerService) Close() { s.cache.Stop() }

// GetBalance returns the balance through the cache. Unknown accounts read as
// the configured initial balance.
func (s *LedgerService) GetBalance(ctx context.Context, id domain.AccountID) (decimal.Decimal, error) {
	if id <= 0 {
		return decimal.Zero, apperror.Validation("account id must be positive")
	}
	b, err := s.balances.Get(ctx, id)
	if err != nil {
		return decimal.Zero, s.fail("get_balance", id, decimal.Zero, err)
	}
	return b, nil
}

// HasBalance reports whether the account holds at least amount.
func (s *LedgerService) HasBalance(ctx context.Context, id domain.AccountID, amount decimal.Decimal) (bool, error) {
	if amount.IsNegative() {
		return false, apperror.ErrInvalidAmount()
	}
	b, err := s.GetBalance(ctx, id)
	if err != nil {
		return false, err
	}
	return b.GreaterThanOrEqual(amount), nil
}

// OpenAccount creates the account with the initial balance, or returns the
// existing one. It ignores auto_create_accounts.
func (s *LedgerService) OpenAccount(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	if id <= 0 {
		return nil, apperror.Validation("account id must be positive")
	}

	release, err := s.locks.Acquire(ctx, id)
	if err != nil {
		return nil, s.fail("open_account", id, decimal.Zero, fmt.Errorf("acquire account lock: %w", err))
	}
	defer release()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, s.fail("open_account", id, decimal.Zero, err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.lockRow(ctx, dbTx, id, true)
	if err != nil {
		return nil, s.fail("open_account", id, decimal.Zero, err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		s.balances.discard(id)
		return nil, s.fail("open_account", id, decimal.Zero, fmt.Errorf("commit tx: %w", err))
	}
	s.balances.committed(id, account.Balance)
	return account, nil
}

// Apply validates and applies a single signed balance change.
func (s *LedgerService) Apply(ctx context.Context, req domain.Request) (*domain.Result, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	if !req.Type.Applicable() {
		return nil, apperror.Validation(fmt.Sprintf("change type %s is written only by its own operation", req.Type))
	}
	if sign := req.Type.Sign(); sign != 0 && req.Amount.Sign() != sign {
		s.rejected(string(req.Type), req.AccountID, apperror.ErrInvalidAmount())
		return nil, apperror.ErrInvalidAmount()
	}
	if err := s.guard.CheckAmount(req.Amount); err != nil {
		s.rejected(string(req.Type), req.AccountID, err)
		return nil, err
	}
	delta := req.Amount
	return s.apply(ctx, req, func(decimal.Decimal) decimal.Decimal { return delta })
}

// Credit adds a positive amount.
func (s *LedgerService) Credit(ctx context.Context, id domain.AccountID, amount decimal.Decimal, reason string) (*domain.Result, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	return s.Apply(ctx, domain.Request{AccountID: id, Amount: amount, Type: domain.ChangeCredit, Reason: reason})
}

// Debit removes a positive amount.
func (s *LedgerService) Debit(ctx context.Context, id domain.AccountID, amount decimal.Decimal, reason string) (*domain.Result, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	return s.Apply(ctx, domain.Request{AccountID: id, Amount: amount.Neg(), Type: domain.ChangeDebit, Reason: reason})
}

// SetBalance overwrites the balance as an ADMIN_SET change. The audited amount
// is the difference to the previous balance. Amount bounds and the daily
// ceiling do not apply.
func (s *LedgerService) SetBalance(ctx context.Context, id domain.AccountID, amount decimal.Decimal, reason string) (*domain.Result, error) {
	if amount.IsNegative() || !amount.Equal(domain.RoundMoney(amount)) || amount.GreaterThanOrEqual(maxStoredBalance) {
		return nil, apperror.ErrInvalidAmount()
	}
	req := domain.Request{AccountID: id, Type: domain.ChangeAdminSet, Reason: reason}
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	return s.apply(ctx, req, func(current decimal.Decimal) decimal.Decimal { return amount.Sub(current) })
}

// ApplyDiscountedPurchase debits listPrice reduced by the tier's discount,
// never below min_price.
func (s *LedgerService) ApplyDiscountedPurchase(ctx context.Context, id domain.AccountID, listPrice decimal.Decimal, tier, reason string) (*domain.PurchaseResult, error) {
	if !listPrice.IsPositive() || !listPrice.Equal(domain.RoundMoney(listPrice)) {
		return nil, apperror.ErrInvalidAmount()
	}

	discount := decimal.Zero
	if s.discounts != nil {
		discount = clampUnit(s.discounts.DiscountFor(tier))
	}
	price := domain.RoundMoney(listPrice.Mul(decimal.NewFromInt(1).Sub(discount)))
	if price.LessThan(s.cfg.MinPrice) {
		price = s.cfg.MinPrice
	}

	out := &domain.PurchaseResult{ListPrice: listPrice, Discount: discount, Price: price}
	if price.IsZero() {
		b, err := s.GetBalance(ctx, id)
		if err != nil {
			return nil, err
		}
		out.Result = domain.Result{AccountID: id, NewBalance: b}
		return out, nil
	}

	res, err := s.Apply(ctx, domain.Request{
		AccountID: id,
		Amount:    price.Neg(),
		Type:      domain.ChangeMarketplacePurchase,
		Reason:    reason,
	})
	if err != nil {
		return nil, err
	}
	out.Result = *res
	return out, nil
}

// CreditMarketplaceSale credits the seller with gross minus market tax and
// transaction fee.
func (s *LedgerService) CreditMarketplaceSale(ctx context.Context, sellerID domain.AccountID, gross decimal.Decimal, reason string) (*domain.SaleResult, error) {
	if !gross.IsPositive() || !gross.Equal(domain.RoundMoney(gross)) {
		return nil, apperror.ErrInvalidAmount()
	}
	tax := domain.RoundMoney(gross.Mul(s.cfg.MarketTaxRate))
	fee := domain.RoundMoney(gross.Mul(s.cfg.TransactionFeeRate))
	net := gross.Sub(tax).Sub(fee)
	if !net.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	res, err := s.Apply(ctx, domain.Request{
		AccountID: sellerID,
		Amount:    net,
		Type:      domain.ChangeMarketplaceSale,
		Reason:    reason,
	})
	if err != nil {
		return nil, err
	}
	return &domain.SaleResult{Result: *res, Gross: gross, Tax: tax, Fee: fee, Net: net}, nil
}

// History returns the newest audit entries of an account.
func (s *LedgerService) History(ctx context.Context, id domain.AccountID, limit int) ([]domain.Transaction, error) {
	if id <= 0 {
		return nil, apperror.Validation("account id must be positive")
	}
	txs, err := s.audit.History(ctx, id, limit)
	if err != nil {
		return nil, s.fail("history", id, decimal.Zero, err)
	}
	return txs, nil
}

// apply runs a single-account change under the account lock. delta maps the
// current balance to the signed amount to apply.
func (s *LedgerService) apply(ctx context.Context, req domain.Request, delta func(current decimal.Decimal) decimal.Decimal) (res *domain.Result, err error) {
	start := time.Now()
	id := req.AccountID
	op := string(req.Type)
	defer func() { s.observe(op, start, res != nil && res.Replayed, err) }()

	release, err := s.locks.Acquire(ctx, id)
	if err != nil {
		return nil, s.fail(op, id, req.Amount, fmt.Errorf("acquire account lock: %w", err))
	}
	defer release()

	var idemKey string
	if req.IdempotencyKey != "" {
		idemKey = domain.BuildIdempotencyKey(id, req.IdempotencyKey)
		var prior domain.Result
		found, err := s.lookupReplay(ctx, idemKey, &prior)
		if err != nil {
			return nil, s.fail(op, id, req.Amount, err)
		}
		if found {
			prior.Replayed = true
			return &prior, nil
		}
	}

	if req.Type.CountsTowardDailyLimit() {
		if err := s.guard.CheckDaily(ctx, id); err != nil {
			s.rejected(op, id, err)
			return nil, err
		}
	}

	current, exists, err := s.balances.getLocked(ctx, id)
	if err != nil {
		return nil, s.fail(op, id, req.Amount, err)
	}
	if !exists && !s.cfg.AutoCreateAccounts {
		s.rejected(op, id, apperror.ErrAccountNotFound())
		return nil, apperror.ErrAccountNotFound()
	}
	if current.Add(delta(current)).IsNegative() {
		s.rejected(op, id, apperror.ErrInsufficientFunds())
		return nil, apperror.ErrInsufficientFunds()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, s.fail(op, id, req.Amount, err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.lockRow(ctx, dbTx, id, s.cfg.AutoCreateAccounts)
	if err != nil {
		return nil, s.fail(op, id, req.Amount, err)
	}
	before := account.Balance
	if !before.Equal(current) {
		s.log.Warn().
			Int64("account_id", int64(id)).
			Str("cached", domain.FormatMoney(current)).
			Str("stored", domain.FormatMoney(before)).
			Msg("balance cache diverged from store, using stored value")
	}
	amount := delta(before)
	after := before.Add(amount)
	if after.IsNegative() {
		s.balances.committed(id, before)
		s.rejected(op, id, apperror.ErrInsufficientFunds())
		return nil, apperror.ErrInsufficientFunds()
	}
	if after.GreaterThanOrEqual(maxStoredBalance) {
		s.balances.committed(id, before)
		s.rejected(op, id, apperror.ErrInvalidAmount())
		return nil, apperror.ErrInvalidAmount()
	}

	if err := s.accounts.UpdateBalance(ctx, dbTx, id, after); err != nil {
		return nil, s.fail(op, id, amount, fmt.Errorf("update balance: %w", err))
	}

	rec := &domain.Transaction{
		AccountID:        id,
		Type:             req.Type,
		Amount:           amount,
		BalanceBefore:    before,
		BalanceAfter:     after,
		Reason:           req.Reason,
		RelatedAccountID: req.RelatedAccountID,
	}
	if err := s.audit.Record(ctx, dbTx, rec); err != nil {
		return nil, s.fail(op, id, amount, err)
	}

	result := &domain.Result{AccountID: id, NewBalance: after, TransactionID: rec.ID}

	var respJSON []byte
	if idemKey != "" {
		respJSON, err = s.saveReplay(ctx, dbTx, idemKey, id, result)
		if err != nil {
			return nil, s.fail(op, id, amount, err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		s.balances.discard(id)
		return nil, s.fail(op, id, amount, fmt.Errorf("commit tx: %w", err))
	}

	s.balances.committed(id, after)
	if req.Type.CountsTowardDailyLimit() {
		s.guard.RecordAccepted(ctx, id)
	}
	if idemKey != "" {
		s.cacheReplay(ctx, idemKey, respJSON)
	}
	s.accepted(rec)

	return result, nil
}

// lockRow locks the account row inside tx, creating it with the initial
// balance when create is set and no row exists yet.
func (s *LedgerService) lockRow(ctx context.Context, tx pgx.Tx, id domain.AccountID, create bool) (*domain.Account, error) {
	account, err := s.accounts.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("lock account: %w", err)
	}
	if account != nil {
		return account, nil
	}
	if !create {
		return nil, apperror.ErrAccountNotFound()
	}

	now := s.now().UTC()
	account = &domain.Account{ID: id, Balance: s.cfg.InitialBalance, CreatedAt: now, UpdatedAt: now}
	inserted, err := s.accounts.Create(ctx, tx, account)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	if inserted {
		return account, nil
	}

	// Someone else inserted it between the two statements.
	account, err = s.accounts.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("lock account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s vanished after concurrent create", id)
	}
	return account, nil
}

// lookupReplay fills out with a stored response for key. The Redis layer is
// best-effort; the durable record decides.
func (s *LedgerService) lookupReplay(ctx context.Context, key string, out any) (bool, error) {
	if s.idempCache != nil {
		cached, err := s.idempCache.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached != nil {
			if err := json.Unmarshal(cached, out); err == nil {
				return true, nil
			}
			s.log.Warn().Str("key", key).Msg("discarding undecodable cached idempotency response")
		}
	}

	rec, err := s.idempRepo.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("db idempotency check: %w", err)
	}
	if rec == nil {
		return false, nil
	}
	if err := json.Unmarshal(rec.ResponseJSON, out); err != nil {
		return false, fmt.Errorf("decode idempotency record: %w", err)
	}
	return true, nil
}

func (s *LedgerService) saveReplay(ctx context.Context, tx pgx.Tx, key string, id domain.AccountID, result any) ([]byte, error) {
	respJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	rec := &domain.IdempotencyRecord{
		Key:          key,
		AccountID:    id,
		ResponseJSON: respJSON,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.idempRepo.Create(ctx, tx, rec); err != nil {
		return nil, fmt.Errorf("save idempotency record: %w", err)
	}
	return respJSON, nil
}

func (s *LedgerService) cacheReplay(ctx context.Context, key string, respJSON []byte) {
	if s.idempCache == nil {
		return
	}
	if err := s.idempCache.Set(ctx, key, respJSON, s.cfg.IdempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency in redis")
	}
}

// accepted handles observability for one committed audit entry.
func (s *LedgerService) accepted(rec *domain.Transaction) {
	if s.guard.IsSuspicious(rec.Amount) {
		s.guard.Flag(rec.AccountID, rec.Type, rec.Amount)
	}
	if !s.cfg.EnableTransactionLogs {
		return
	}
	ev := s.log.Info().
		Int64("tx_id", rec.ID).
		Int64("account_id", int64(rec.AccountID)).
		Str("type", string(rec.Type)).
		Str("amount", domain.FormatMoney(rec.Amount)).
		Str("balance_before", domain.FormatMoney(rec.BalanceBefore)).
		Str("balance_after", domain.FormatMoney(rec.BalanceAfter)).
		Str("reason", rec.Reason)
	if rec.RelatedAccountID != nil {
		ev = ev.Int64("related_account_id", int64(*rec.RelatedAccountID))
	}
	ev.Msg("balance changed")
}

func (s *LedgerService) rejected(op string, id domain.AccountID, err error) {
	s.log.Debug().
		Str("op", op).
		Int64("account_id", int64(id)).
		Str("code", apperror.CodeOf(err)).
		Msg("transaction rejected")
}

// fail passes typed errors through and turns anything else into a
// PersistenceFailure, logged with full context.
func (s *LedgerService) fail(op string, id domain.AccountID, amount decimal.Decimal, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	s.log.Error().
		Err(err).
		Str("op", op).
		Int64("account_id", int64(id)).
		Str("amount", domain.FormatMoney(amount)).
		Msg("ledger persistence failure")
	return apperror.ErrPersistenceFailure(err)
}

func (s *LedgerService) observe(op string, start time.Time, replayed bool, err error) {
	outcome := monitoring.OutcomeAccepted
	switch {
	case err != nil:
		outcome = apperror.CodeOf(err)
	case replayed:
		outcome = monitoring.OutcomeReplayed
	}
	s.metrics.RecordTransaction(op, outcome, time.Since(start))
}

func checkRequest(req domain.Request) error {
	if req.AccountID <= 0 {
		return apperror.Validation("account id must be positive")
	}
	if !req.Type.Valid() {
		return apperror.Validation(fmt.Sprintf("unknown change type %q", req.Type))
	}
	if req.RelatedAccountID != nil && *req.RelatedAccountID <= 0 {
		return apperror.Validation("related account id must be positive")
	}
	if !req.Amount.Equal(domain.RoundMoney(req.Amount)) {
		return apperror.ErrInvalidAmount()
	}
	return nil
}

func clampUnit(d decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	switch {
	case d.IsNegative():
		return decimal.Zero
	case d.GreaterThan(one):
		return one
	}
	return d
}
