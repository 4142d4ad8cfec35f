package ledger

import (
	"time"

	"moneytrace/internal/core"

	"github.com/shopspring/decimal"
)

// Overrides replaces template defaults when building an operation. Nil fields
// keep the template (or default) value.
type Overrides struct {
	Date        *time.Time
	Title       *string
	TotalAmount *decimal.Decimal
	Comments    *string
}

// Materialize builds an unsaved operation from a template. Date defaults to
// today and comments to empty. An overridden total rescales the allocation so
// it still sums to the new total.
func Materialize(t core.Template, o Overrides, now time.Time) core.Operation {
	op := core.Operation{
		UserID:       t.UserID,
		Date:         core.DateOnly(now),
		Title:        t.Title,
		Type:         t.Type,
		VendorID:     copyID(t.VendorID),
		AccountID:    t.AccountID,
		TotalAmount:  t.TotalAmount,
		CategoryType: t.CategoryType,
		Allocation:   core.CloneAllocation(t.Allocation),
	}
	if t.Type == core.Transfer {
		op.DestinationAccountID = copyID(t.DestinationAccountID)
		op.CategoryType = ""
		op.Allocation = nil
	}

	if o.Date != nil {
		op.Date = core.DateOnly(*o.Date)
	}
	if o.Title != nil {
		op.Title = *o.Title
	}
	if o.Comments != nil {
		op.Comments = *o.Comments
	}
	if o.TotalAmount != nil && !o.TotalAmount.Equal(t.TotalAmount) {
		op.TotalAmount = *o.TotalAmount
		op.Allocation = Rescale(op.Allocation, t.TotalAmount, *o.TotalAmount)
	}
	return op
}

// Rescale scales every entry by newTotal/oldTotal, truncated to currency
// precision, and puts the remainder on the last entry. The result always sums
// to newTotal and no entry goes negative for positive inputs.
func Rescale(allocation []core.Allocation, oldTotal, newTotal decimal.Decimal) []core.Allocation {
	n := len(allocation)
	if n == 0 {
		return allocation
	}
	out := core.CloneAllocation(allocation)
	if n == 1 {
		out[0].Amount = newTotal
		return out
	}

	assigned := decimal.Zero
	for i := 0; i < n-1; i++ {
		amount := decimal.Zero
		if !oldTotal.IsZero() {
			amount = out[i].Amount.Mul(newTotal).Div(oldTotal).Truncate(core.CurrencyPlaces)
		}
		out[i].Amount = amount
		assigned = assigned.Add(amount)
	}
	out[n-1].Amount = newTotal.Sub(assigned)
	return out
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
