package service

import (
	"context"
	"fmt"
	"time"

	"game-economy-ledger/internal/core/domain"
	"game-economy-ledger/pkg/apperror"
)

const transferOp = "TRANSFER"

// Transfer moves req.Amount from req.From to req.To in one durable
// transaction. Both account locks are taken in ascending id order and given
// back in descending order; both balances are re-read from the store under
// those locks.
func (s *LedgerService) Transfer(ctx context.Context, req domain.TransferRequest) (res *domain.TransferResult, err error) {
	if req.From <= 0 || req.To <= 0 {
		return nil, apperror.Validation("account id must be positive")
	}
	if req.From == req.To {
		return nil, apperror.ErrInvalidTransfer("sender and receiver are the same account")
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidTransfer("amount must be positive")
	}
	if !req.Amount.Equal(domain.RoundMoney(req.Amount)) {
		return nil, apperror.ErrInvalidAmount()
	}
	if err := s.guard.CheckAmount(req.Amount); err != nil {
		s.rejected(transferOp, req.From, err)
		return nil, err
	}

	start := time.Now()
	defer func() { s.observe(transferOp, start, res != nil && res.Replayed, err) }()

	release, err := s.locks.AcquireOrdered(ctx, req.From, req.To)
	if err != nil {
		return nil, s.fail(transferOp, req.From, req.Amount, fmt.Errorf("acquire account locks: %w", err))
	}
	defer release()

	var idemKey string
	if req.IdempotencyKey != "" {
		idemKey = domain.BuildTransferIdempotencyKey(req.From, req.IdempotencyKey)
		var prior domain.TransferResult
		found, err := s.lookupReplay(ctx, idemKey, &prior)
		if err != nil {
			return nil, s.fail(transferOp, req.From, req.Amount, err)
		}
		if found {
			prior.Replayed = true
			return &prior, nil
		}
	}

	if err := s.guard.CheckDaily(ctx, req.From); err != nil {
		s.rejected(transferOp, req.From, err)
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, s.fail(transferOp, req.From, req.Amount, err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Row locks follow the same ascending order as the account locks.
	before := make(map[domain.AccountID]*domain.Account, 2)
	for _, id := range uniqueSorted([]domain.AccountID{req.From, req.To}) {
		account, err := s.lockRow(ctx, dbTx, id, s.cfg.AutoCreateAccounts)
		if err != nil {
			return nil, s.fail(transferOp, id, req.Amount, err)
		}
		before[id] = account
	}
	fromBefore := before[req.From].Balance
	toBefore := before[req.To].Balance

	if fromBefore.LessThan(req.Amount) {
		s.balances.committed(req.From, fromBefore)
		s.rejected(transferOp, req.From, apperror.ErrInsufficientFunds())
		return nil, apperror.ErrInsufficientFunds()
	}
	fromAfter := fromBefore.Sub(req.Amount)
	toAfter := toBefore.Add(req.Amount)
	if toAfter.GreaterThanOrEqual(maxStoredBalance) {
		s.balances.committed(req.From, fromBefore)
		s.balances.committed(req.To, toBefore)
		s.rejected(transferOp, req.To, apperror.ErrInvalidAmount())
		return nil, apperror.ErrInvalidAmount()
	}

	if err := s.accounts.UpdateBalance(ctx, dbTx, req.From, fromAfter); err != nil {
		return nil, s.fail(transferOp, req.From, req.Amount, fmt.Errorf("update sender balance: %w", err))
	}
	if err := s.accounts.UpdateBalance(ctx, dbTx, req.To, toAfter); err != nil {
		return nil, s.fail(transferOp, req.To, req.Amount, fmt.Errorf("update receiver balance: %w", err))
	}

	from, to := req.From, req.To
	out := &domain.Transaction{
		AccountID:        from,
		Type:             domain.ChangePeerTransferOut,
		Amount:           req.Amount.Neg(),
		BalanceBefore:    fromBefore,
		BalanceAfter:     fromAfter,
		Reason:           req.Reason,
		RelatedAccountID: &to,
	}
	in := &domain.Transaction{
		AccountID:        to,
		Type:             domain.ChangePeerTransferIn,
		Amount:           req.Amount,
		BalanceBefore:    toBefore,
		BalanceAfter:     toAfter,
		Reason:           req.Reason,
		RelatedAccountID: &from,
	}
	for _, rec := range []*domain.Transaction{out, in} {
		if err := s.audit.Record(ctx, dbTx, rec); err != nil {
			return nil, s.fail(transferOp, rec.AccountID, req.Amount, err)
		}
	}

	result := &domain.TransferResult{
		From:           from,
		To:             to,
		FromNewBalance: fromAfter,
		ToNewBalance:   toAfter,
	}

	var respJSON []byte
	if idemKey != "" {
		respJSON, err = s.saveReplay(ctx, dbTx, idemKey, from, result)
		if err != nil {
			return nil, s.fail(transferOp, from, req.Amount, err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		s.balances.discard(from)
		s.balances.discard(to)
		return nil, s.fail(transferOp, from, req.Amount, fmt.Errorf("commit tx: %w", err))
	}

	s.balances.committed(from, fromAfter)
	s.balances.committed(to, toAfter)
	s.guard.RecordAccepted(ctx, from)
	s.guard.RecordAccepted(ctx, to)
	if idemKey != "" {
		s.cacheReplay(ctx, idemKey, respJSON)
	}
	s.accepted(out)
	s.accepted(in)

	return result, nil
}
