package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeType_Valid(t *testing.T) {
	tests := []struct {
		ct   ChangeType
		want bool
	}{
		{ChangeCredit, true},
		{ChangeDebit, true},
		{ChangeAdminSet, true},
		{ChangePeerTransferOut, true},
		{ChangeOther, true},
		{ChangeType("REFUND"), false},
		{ChangeType(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.ct), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ct.Valid())
		})
	}
}

func TestChangeType_CountsTowardDailyLimit(t *testing.T) {
	assert.True(t, ChangeCredit.CountsTowardDailyLimit())
	assert.True(t, ChangePeerTransferIn.CountsTowardDailyLimit())
	assert.False(t, ChangeAdminSet.CountsTowardDailyLimit())
}

func TestTransaction_Consistent(t *testing.T) {
	tx := &Transaction{
		Amount:        decimal.RequireFromString("-30.00"),
		BalanceBefore: decimal.RequireFromString("100.00"),
		BalanceAfter:  decimal.RequireFromString("70.00"),
	}
	assert.True(t, tx.Consistent())

	tx.BalanceAfter = decimal.RequireFromString("70.01")
	assert.False(t, tx.Consistent())
}

func TestParseAccountID(t *testing.T) {
	id, err := ParseAccountID("42")
	require.NoError(t, err)
	assert.Equal(t, AccountID(42), id)
	assert.Equal(t, "42", id.String())

	for _, bad := range []string{"", "abc", "0", "-5", "1.5"} {
		_, err := ParseAccountID(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"30", "30.00", false},
		{"30.5", "30.50", false},
		{"0.01", "0.01", false},
		{"-12.34", "-12.34", false},
		{"1.500", "1.50", false},
		{"1.005", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, FormatMoney(got))
		})
	}
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, "8.45", FormatMoney(RoundMoney(decimal.RequireFromString("8.445"))))
	assert.Equal(t, "-8.45", FormatMoney(RoundMoney(decimal.RequireFromString("-8.445"))))
}

func TestBuildIdempotencyKey(t *testing.T) {
	assert.Equal(t, "apply:7:ORD-001", BuildIdempotencyKey(7, "ORD-001"))
	assert.Equal(t, "transfer:7:ORD-001", BuildTransferIdempotencyKey(7, "ORD-001"))
}

func TestChangeType_ApplicableAndSign(t *testing.T) {
	assert.True(t, ChangeCredit.Applicable())
	assert.True(t, ChangeOther.Applicable())
	assert.False(t, ChangeAdminSet.Applicable())
	assert.False(t, ChangePeerTransferIn.Applicable())
	assert.False(t, ChangePeerTransferOut.Applicable())
	assert.False(t, ChangeType("BRIBE").Applicable())

	assert.Equal(t, 1, ChangeSystemReward.Sign())
	assert.Equal(t, -1, ChangeMarketplacePurchase.Sign())
	assert.Equal(t, 0, ChangeOther.Sign())
}
