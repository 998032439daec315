package handler

import (
	"strconv"
	"time"

	"game-economy-ledger/internal/adapter/http/dto"
	"game-economy-ledger/internal/core/domain"
	"game-economy-ledger/internal/core/ports"
	"game-economy-ledger/pkg/apperror"
	"game-economy-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// LedgerHandler exposes the ledger to other game modules over HTTP.
type LedgerHandler struct {
	ledger   ports.Ledger
	resolver ports.AccountResolver
}

// NewLedgerHandler creates a new LedgerHandler. resolver may be nil, in which
// case player lookups answer 404.
func NewLedgerHandler(ledger ports.Ledger, resolver ports.AccountResolver) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, resolver: resolver}
}

// GetBalance handles GET /api/v1/accounts/:id/balance.
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	id, ok := accountParam(c)
	if !ok {
		return
	}

	balance, err := h.ledger.GetBalance(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.BalanceResponse{AccountID: int64(id), Balance: domain.FormatMoney(balance)})
}

// GetPlayerBalance handles GET /api/v1/players/:identity/balance.
func (h *LedgerHandler) GetPlayerBalance(c *gin.Context) {
	if h.resolver == nil {
		response.Error(c, apperror.ErrAccountNotFound())
		return
	}
	id, err := h.resolver.Resolve(c.Request.Context(), c.Param("identity"))
	if err != nil {
		response.Error(c, err)
		return
	}

	balance, err := h.ledger.GetBalance(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.BalanceResponse{AccountID: int64(id), Balance: domain.FormatMoney(balance)})
}

// HasBalance handles GET /api/v1/accounts/:id/has-balance?amount=.
func (h *LedgerHandler) HasBalance(c *gin.Context) {
	id, ok := accountParam(c)
	if !ok {
		return
	}
	amount, err := domain.ParseAmount(c.Query("amount"))
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	sufficient, err := h.ledger.HasBalance(c.Request.Context(), id, amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.HasBalanceResponse{
		AccountID:  int64(id),
		Amount:     domain.FormatMoney(amount),
		Sufficient: sufficient,
	})
}

// OpenAccount handles POST /api/v1/accounts/:id/open.
func (h *LedgerHandler) OpenAccount(c *gin.Context) {
	id, ok := accountParam(c)
	if !ok {
		return
	}

	account, err := h.ledger.OpenAccount(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.AccountResponse{
		AccountID: int64(account.ID),
		Balance:   domain.FormatMoney(account.Balance),
		CreatedAt: account.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// Credit handles POST /api/v1/accounts/:id/credit.
func (h *LedgerHandler) Credit(c *gin.Context) {
	h.amountChange(c, domain.ChangeCredit)
}

// Debit handles POST /api/v1/accounts/:id/debit.
func (h *LedgerHandler) Debit(c *gin.Context) {
	h.amountChange(c, domain.ChangeDebit)
}

func (h *LedgerHandler) amountChange(c *gin.Context, changeType domain.ChangeType) {
	id, ok := accountParam(c)
	if !ok {
		return
	}
	var req dto.AmountRequest
	if !bind(c, &req) {
		return
	}
	amount, _ := domain.ParseAmount(req.Amount)
	ctx := c.Request.Context()

	var (
		result *domain.Result
		err    error
	)
	switch {
	case req.IdempotencyKey != "":
		delta := amount
		if changeType == domain.ChangeDebit {
			delta = amount.Neg()
		}
		result, err = h.ledger.Apply(ctx, domain.Request{
			AccountID:      id,
			Amount:         delta,
			Type:           changeType,
			Reason:         req.Reason,
			IdempotencyKey: req.IdempotencyKey,
		})
	case changeType == domain.ChangeDebit:
		result, err = h.ledger.Debit(ctx, id, amount, req.Reason)
	default:
		result, err = h.ledger.Credit(ctx, id, amount, req.Reason)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toResultResponse(result))
}

// SetBalance handles POST /api/v1/accounts/:id/set-balance.
func (h *LedgerHandler) SetBalance(c *gin.Context) {
	id, ok := accountParam(c)
	if !ok {
		return
	}
	var req dto.SetBalanceRequest
	if !bind(c, &req) {
		return
	}
	balance, _ := domain.ParseAmount(req.Balance)

	result, err := h.ledger.SetBalance(c.Request.Context(), id, balance, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toResultResponse(result))
}

// Apply handles POST /api/v1/accounts/:id/transactions.
func (h *LedgerHandler) Apply(c *gin.Context) {
	id, ok := accountParam(c)
	if !ok {
		return
	}
	var req dto.ApplyRequest
	if !bind(c, &req) {
		return
	}
	amount, _ := domain.ParseAmount(req.Amount)

	change := domain.Request{
		AccountID:      id,
		Amount:         amount,
		Type:           domain.ChangeType(req.ChangeType),
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
	}
	if req.RelatedAccountID != nil {
		related := domain.AccountID(*req.RelatedAccountID)
		change.RelatedAccountID = &related
	}

	result, err := h.ledger.Apply(c.Request.Context(), change)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toResultResponse(result))
}

// Purchase handles POST /api/v1/accounts/:id/purchase.
func (h *LedgerHandler) Purchase(c *gin.Context) {
	id, ok := accountParam(c)
	if !ok {
		return
	}
	var req dto.PurchaseRequest
	if !bind(c, &req) {
		return
	}
	listPrice, _ := domain.ParseAmount(req.ListPrice)

	result, err := h.ledger.ApplyDiscountedPurchase(c.Request.Context(), id, listPrice, req.Tier, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.PurchaseResponse{
		ResultResponse: toResultResponse(&result.Result),
		ListPrice:      domain.FormatMoney(result.ListPrice),
		Discount:       result.Discount.String(),
		Price:          domain.FormatMoney(result.Price),
	})
}

// Sale handles POST /api/v1/accounts/:id/sales.
func (h *LedgerHandler) Sale(c *gin.Context) {
	id, ok := accountParam(c)
	if !ok {
		return
	}
	var req dto.SaleRequest
	if !bind(c, &req) {
		return
	}
	gross, _ := domain.ParseAmount(req.Gross)

	result, err := h.ledger.CreditMarketplaceSale(c.Request.Context(), id, gross, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.SaleResponse{
		ResultResponse: toResultResponse(&result.Result),
		Gross:          domain.FormatMoney(result.Gross),
		Tax:            domain.FormatMoney(result.Tax),
		Fee:            domain.FormatMoney(result.Fee),
		Net:            domain.FormatMoney(result.Net),
	})
}

// Transfer handles POST /api/v1/transfers.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if !bind(c, &req) {
		return
	}
	amount, _ := domain.ParseAmount(req.Amount)

	result, err := h.ledger.Transfer(c.Request.Context(), domain.TransferRequest{
		From:           domain.AccountID(req.FromAccountID),
		To:             domain.AccountID(req.ToAccountID),
		Amount:         amount,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.TransferResponse{
		FromAccountID:  int64(result.From),
		ToAccountID:    int64(result.To),
		FromNewBalance: domain.FormatMoney(result.FromNewBalance),
		ToNewBalance:   domain.FormatMoney(result.ToNewBalance),
		Replayed:       result.Replayed,
	})
}

// History handles GET /api/v1/accounts/:id/transactions?limit=.
func (h *LedgerHandler) History(c *gin.Context) {
	id, ok := accountParam(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(c, apperror.Validation("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	records, err := h.ledger.History(c.Request.Context(), id, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]dto.TransactionResponse, 0, len(records))
	for i := range records {
		items = append(items, toTransactionResponse(&records[i]))
	}
	response.OK(c, dto.TransactionListResponse{Items: items, Count: len(items)})
}

func accountParam(c *gin.Context) (domain.AccountID, bool) {
	id, err := domain.ParseAccountID(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return 0, false
	}
	return id, true
}

// bind decodes and validates the JSON body, answering 400 on failure.
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	dto.SanitizeStruct(req)
	return true
}

func toResultResponse(r *domain.Result) dto.ResultResponse {
	return dto.ResultResponse{
		AccountID:     int64(r.AccountID),
		NewBalance:    domain.FormatMoney(r.NewBalance),
		TransactionID: r.TransactionID,
		Replayed:      r.Replayed,
	}
}

func toTransactionResponse(t *domain.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:            t.ID,
		AccountID:     int64(t.AccountID),
		ChangeType:    string(t.Type),
		Amount:        signedMoney(t.Amount),
		BalanceBefore: domain.FormatMoney(t.BalanceBefore),
		BalanceAfter:  domain.FormatMoney(t.BalanceAfter),
		Reason:        t.Reason,
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.RelatedAccountID != nil {
		related := int64(*t.RelatedAccountID)
		resp.RelatedAccountID = &related
	}
	return resp
}

func signedMoney(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + domain.FormatMoney(d)
	}
	return domain.FormatMoney(d)
}
