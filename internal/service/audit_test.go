package service

import (
	"context"
	"testing"
	"time"

	"game-economy-ledger/internal/core/domain"
	"game-economy-ledger/internal/core/ports/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuditLog_RecordStampsTime(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockTransactionRepository(ctrl)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	audit := &AuditLog{repo: repo, now: func() time.Time { return fixed }}

	rec := &domain.Transaction{
		AccountID:     4,
		Type:          domain.ChangeCredit,
		Amount:        dec("10"),
		BalanceBefore: dec("100"),
		BalanceAfter:  dec("110"),
	}
	repo.EXPECT().Append(gomock.Any(), nil, rec).Return(nil)

	require.NoError(t, audit.Record(context.Background(), nil, rec))
	assert.Equal(t, fixed, rec.CreatedAt)
}

func TestAuditLog_RecordRejectsBadEntries(t *testing.T) {
	ctrl := gomock.NewController(t)
	audit := NewAuditLog(mocks.NewMockTransactionRepository(ctrl))

	err := audit.Record(context.Background(), nil, &domain.Transaction{
		Type: domain.ChangeType("bribe"), Amount: dec("1"), BalanceBefore: dec("0"), BalanceAfter: dec("1"),
	})
	assert.ErrorContains(t, err, "unknown change type")

	err = audit.Record(context.Background(), nil, &domain.Transaction{
		Type: domain.ChangeDebit, Amount: dec("-5"), BalanceBefore: dec("20"), BalanceAfter: dec("16"),
	})
	assert.ErrorContains(t, err, "balance_after")
}

func TestAuditLog_HistoryLimits(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"default", 0, defaultHistoryLimit},
		{"explicit", 20, 20},
		{"capped", 10_000, maxHistoryLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockTransactionRepository(ctrl)
			repo.EXPECT().ListByAccount(gomock.Any(), domain.AccountID(3), tt.want).Return(nil, nil)

			_, err := NewAuditLog(repo).History(context.Background(), 3, tt.limit)
			assert.NoError(t, err)
		})
	}
}
