package memory

import (
	"context"
	"testing"

	"moneytrace/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadReport(t *testing.T) {
	s := New()
	ctx := context.Background()
	r := core.BudgetReport{
		UserID: 1, BudgetID: 3, BudgetName: "March",
		StartDate: core.NewDate(2024, 3, 1), EndDate: core.NewDate(2024, 3, 31),
		Categories: []core.BudgetCategoryReport{{CategoryID: 1, BudgetedAmount: decimal.NewFromInt(300), SpentAmount: decimal.NewFromInt(75)}},
	}

	ref, err := s.WriteReport(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "mem:budget:3", ref)

	r.Categories[0].SpentAmount = decimal.NewFromInt(100)
	got, found, err := s.ReadReport(ctx, 2024, 3)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "75", got.Categories[0].SpentAmount.String(), "stored copy is independent")

	_, found, err = s.ReadReport(ctx, 2023, 3)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.WriteReport(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Writes())
	assert.Len(t, s.Reports(), 1)
}

func TestWriteReportRequiresBudget(t *testing.T) {
	_, err := New().WriteReport(context.Background(), core.BudgetReport{})
	assert.Error(t, err)
}
