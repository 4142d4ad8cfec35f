package billing

import (
	"testing"

	"moneytrace/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestApplyPaymentPartialThenFull(t *testing.T) {
	now := core.NewDate(2024, 3, 1)
	b := core.Bill{
		ID: 1, PaymentFrequency: core.Monthly, PaymentDay: 1,
		NextDueDate: core.NewDate(2024, 3, 1), NextDueAmount: amt("100.00"),
	}

	b, p, err := ApplyPayment(b, amt("60.00"), core.NewDate(2024, 2, 20), now)
	require.NoError(t, err)
	assert.False(t, p.FullyPaid)
	assert.Equal(t, "40.00", core.FormatAmount(b.NextDueAmount))
	assert.Equal(t, core.NewDate(2024, 3, 1), b.NextDueDate)
	assert.Equal(t, core.NewDate(2024, 2, 20), *b.LastPaidDate)

	b, p, err = ApplyPayment(b, amt("40.00"), core.NewDate(2024, 2, 25), now)
	require.NoError(t, err)
	assert.True(t, p.FullyPaid)
	assert.Equal(t, "0.00", core.FormatAmount(b.NextDueAmount))
	assert.Equal(t, core.NewDate(2024, 4, 1), b.NextDueDate)
	assert.Equal(t, "40.00", core.FormatAmount(b.LastPaidAmount))
	assert.Equal(t, core.NewDate(2024, 3, 1), p.PreviousDue)
}

func TestApplyPaymentOverpayAdvances(t *testing.T) {
	b := core.Bill{PaymentFrequency: core.BiMonthly, PaymentDay: 10, NextDueDate: core.NewDate(2024, 1, 10), NextDueAmount: amt("50")}

	got, _, err := ApplyPayment(b, amt("80"), core.NewDate(2024, 1, 9), core.NewDate(2024, 1, 9))
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 3, 10), got.NextDueDate)
	assert.True(t, got.NextDueAmount.IsZero())
}

func TestApplyPaymentRejects(t *testing.T) {
	b := core.Bill{PaymentFrequency: core.Monthly, PaymentDay: 1, NextDueDate: core.NewDate(2024, 3, 1), NextDueAmount: amt("10")}
	now := core.NewDate(2024, 2, 1)

	tests := []struct {
		name   string
		amount string
		date   int
	}{
		{"zero amount", "0", 1},
		{"negative amount", "-5", 1},
		{"future date", "5", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := ApplyPayment(b, amt(tt.amount), core.NewDate(2024, 2, tt.date), now)
			require.ErrorIs(t, err, core.ErrValidation)
			assert.Equal(t, b, got, "bill must be unchanged")
		})
	}
}

func TestOverdue(t *testing.T) {
	b := core.Bill{NextDueDate: core.NewDate(2024, 3, 1), NextDueAmount: amt("10")}
	assert.False(t, Overdue(b, core.NewDate(2024, 3, 1)))
	assert.True(t, Overdue(b, core.NewDate(2024, 3, 2)))

	b.NextDueAmount = decimal.Zero
	assert.False(t, Overdue(b, core.NewDate(2024, 3, 2)))
}
