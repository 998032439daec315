package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"game-economy-ledger/internal/core/domain"
	"game-economy-ledger/internal/core/ports/mocks"
	"game-economy-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestLimitsGuard_CheckAmount(t *testing.T) {
	g := NewLimitsGuard(testEconomy(), nil, nil, zerolog.Nop(), nil)

	tests := []struct {
		amount string
		ok     bool
	}{
		{"0.01", true},
		{"-0.01", true},
		{"10000.00", true},
		{"-10000.00", true},
		{"0", false},
		{"0.001", false},
		{"10000.01", false},
		{"-10000.01", false},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := g.CheckAmount(dec(tt.amount))
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperror.Is(err, apperror.CodeInvalidAmount))
		})
	}
}

func TestLimitsGuard_IsSuspicious(t *testing.T) {
	g := NewLimitsGuard(testEconomy(), nil, nil, zerolog.Nop(), nil)
	assert.False(t, g.IsSuspicious(dec("5000.00")))
	assert.True(t, g.IsSuspicious(dec("5000.01")))
	assert.True(t, g.IsSuspicious(dec("-6000")))

	cfg := testEconomy()
	cfg.SuspiciousAmountThreshold = dec("0")
	off := NewLimitsGuard(cfg, nil, nil, zerolog.Nop(), nil)
	assert.False(t, off.IsSuspicious(dec("9999")))
}

func TestLimitsGuard_TodayUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	g := NewLimitsGuard(testEconomy(), nil, tokyo, zerolog.Nop(), nil)
	g.now = func() time.Time { return time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC) }

	assert.Equal(t, "2026-03-02", g.Today())
}

func TestLimitsGuard_CheckDaily(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	counter := mocks.NewMockDailyCounter(ctrl)
	cfg := testEconomy()
	cfg.MaxDailyTransactions = 3
	g := NewLimitsGuard(cfg, counter, nil, zerolog.Nop(), nil)
	g.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	counter.EXPECT().Count(ctx, domain.AccountID(1), "2026-03-01").Return(int64(2), nil)
	assert.NoError(t, g.CheckDaily(ctx, 1))

	counter.EXPECT().Count(ctx, domain.AccountID(1), "2026-03-01").Return(int64(3), nil)
	assert.True(t, apperror.Is(g.CheckDaily(ctx, 1), apperror.CodeDailyLimitExceeded))

	counter.EXPECT().Count(ctx, domain.AccountID(1), "2026-03-01").Return(int64(0), errors.New("down"))
	assert.NoError(t, g.CheckDaily(ctx, 1))
}

func TestLimitsGuard_CounterOutageLoggedAtError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	counter := mocks.NewMockDailyCounter(ctrl)
	cfg := testEconomy()
	cfg.MaxDailyTransactions = 3
	var buf bytes.Buffer
	g := NewLimitsGuard(cfg, counter, nil, zerolog.New(&buf), nil)
	ctx := context.Background()

	counter.EXPECT().Count(ctx, domain.AccountID(5), gomock.Any()).Return(int64(0), errors.New("redis down"))
	assert.NoError(t, g.CheckDaily(ctx, 5))
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "daily counter unavailable")

	buf.Reset()
	counter.EXPECT().Increment(ctx, domain.AccountID(5), gomock.Any()).Return(int64(0), errors.New("redis down"))
	g.RecordAccepted(ctx, 5)
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "failed to increment daily counter")
}

func TestLimitsGuard_ZeroCeilingIsUnlimited(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	// No counter calls expected.
	g := NewLimitsGuard(testEconomy(), mocks.NewMockDailyCounter(ctrl), nil, zerolog.Nop(), nil)
	assert.NoError(t, g.CheckDaily(context.Background(), 1))
}

func TestDailyCounterSweeper_Sweep(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	counter := mocks.NewMockDailyCounter(ctrl)
	g := NewLimitsGuard(testEconomy(), counter, nil, zerolog.Nop(), nil)
	g.now = func() time.Time { return time.Date(2026, 3, 2, 0, 0, 1, 0, time.UTC) }

	s, err := NewDailyCounterSweeper(counter, g, "0 0 * * *", nil, zerolog.Nop(), nil)
	require.NoError(t, err)

	counter.EXPECT().Prune(gomock.Any(), "2026-03-02").Return(4, nil)
	assert.Equal(t, 4, s.Sweep(context.Background()))

	counter.EXPECT().Prune(gomock.Any(), "2026-03-02").Return(0, errors.New("scan failed"))
	assert.Equal(t, 0, s.Sweep(context.Background()))
}

func TestDailyCounterSweeper_RejectsBadSchedule(t *testing.T) {
	g := NewLimitsGuard(testEconomy(), nil, nil, zerolog.Nop(), nil)
	_, err := NewDailyCounterSweeper(nil, g, "every day", nil, zerolog.Nop(), nil)
	require.Error(t, err)
}

func TestDailyCounterSweeper_StartStop(t *testing.T) {
	g := NewLimitsGuard(testEconomy(), nil, nil, zerolog.Nop(), nil)
	s, err := NewDailyCounterSweeper(nil, g, "0 0 * * *", nil, zerolog.Nop(), nil)
	require.NoError(t, err)
	s.Start()
	s.Stop()
}

func TestTierDiscounts(t *testing.T) {
	d := TierDiscounts{"vip": dec("0.10")}
	assert.True(t, dec("0.10").Equal(d.DiscountFor("vip")))
	assert.True(t, d.DiscountFor("nobody").IsZero())
}

func TestAuditLog_RejectsInconsistentRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	a := NewAuditLog(mocks.NewMockTransactionRepository(ctrl))

	err := a.Record(context.Background(), &mockTx{}, &domain.Transaction{
		AccountID:     1,
		Type:          domain.ChangeCredit,
		Amount:        dec("5"),
		BalanceBefore: dec("10"),
		BalanceAfter:  dec("16"),
	})
	require.Error(t, err)
}

func TestAuditLog_HistoryClampsLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mocks.NewMockTransactionRepository(ctrl)
	a := NewAuditLog(repo)
	ctx := context.Background()

	repo.EXPECT().ListByAccount(ctx, domain.AccountID(1), 50).Return(nil, nil)
	repo.EXPECT().ListByAccount(ctx, domain.AccountID(1), 500).Return(nil, nil)
	repo.EXPECT().ListByAccount(ctx, domain.AccountID(1), 20).Return(nil, nil)

	_, _ = a.History(ctx, 1, 0)
	_, _ = a.History(ctx, 1, 10000)
	_, _ = a.History(ctx, 1, 20)
}
