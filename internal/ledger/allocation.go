// Package ledger holds the pure rules of the ledger: allocation validation,
// balance adjustment resolution and template materialization. Nothing here
// touches storage.
package ledger

import (
	"fmt"

	"moneytrace/internal/core"

	"github.com/shopspring/decimal"
)

// Draft is the part of an operation or template the allocation rules look at.
type Draft struct {
	Type                 core.OperationType
	AccountID            int64
	DestinationAccountID *int64
	TotalAmount          decimal.Decimal
	CategoryType         core.CategoryType
	Allocation           []core.Allocation
}

func DraftOf(op core.Operation) Draft {
	return Draft{
		Type:                 op.Type,
		AccountID:            op.AccountID,
		DestinationAccountID: op.DestinationAccountID,
		TotalAmount:          op.TotalAmount,
		CategoryType:         op.CategoryType,
		Allocation:           op.Allocation,
	}
}

func DraftOfTemplate(t core.Template) Draft {
	return Draft{
		Type:                 t.Type,
		AccountID:            t.AccountID,
		DestinationAccountID: t.DestinationAccountID,
		TotalAmount:          t.TotalAmount,
		CategoryType:         t.CategoryType,
		Allocation:           t.Allocation,
	}
}

// CategoryTypes resolves the type of each category referenced by an allocation.
type CategoryTypes map[int64]core.CategoryType

// Violations is the full list of rule failures for one draft.
type Violations []string

// Err returns nil for an empty list, otherwise a Validation error carrying
// every violation as a detail.
func (v Violations) Err() error {
	if len(v) == 0 {
		return nil
	}
	return core.Validation("invalid allocation", v...)
}

type pair struct{ category, sub int64 }

// ValidateAllocation checks every allocation rule and reports all failures.
// It never stops at the first one.
func ValidateAllocation(d Draft, types CategoryTypes) Violations {
	var v Violations

	switch d.Type {
	case core.Simple:
		if len(d.Allocation) == 0 {
			v = append(v, "a simple operation needs at least one allocation entry")
		}
	case core.Transfer:
		switch {
		case d.DestinationAccountID == nil || *d.DestinationAccountID <= 0:
			v = append(v, "a transfer needs a destination account")
		case *d.DestinationAccountID == d.AccountID:
			v = append(v, "destination account must differ from the source account")
		}
		if len(d.Allocation) > 0 {
			v = append(v, "a transfer cannot carry a category allocation")
		}
	default:
		v = append(v, fmt.Sprintf("unknown operation type %q", d.Type))
	}

	seen := make(map[pair]struct{}, len(d.Allocation))
	for _, a := range d.Allocation {
		k := pair{a.CategoryID, a.SubCategoryID}
		if _, dup := seen[k]; dup {
			v = append(v, fmt.Sprintf("category %d / subcategory %d is allocated more than once", a.CategoryID, a.SubCategoryID))
			continue
		}
		seen[k] = struct{}{}
	}

	if len(d.Allocation) > 0 || d.Type == core.Simple {
		if sum := core.Sum(d.Allocation); !sum.Equal(d.TotalAmount) {
			v = append(v, fmt.Sprintf("allocation sum %s does not match total %s",
				core.FormatAmount(sum), core.FormatAmount(d.TotalAmount)))
		}
	}

	want := d.CategoryType
	for i, a := range d.Allocation {
		ct, ok := types[a.CategoryID]
		if !ok {
			v = append(v, fmt.Sprintf("entry %d: category %d not found", i, a.CategoryID))
			continue
		}
		if want == "" {
			want = ct
			continue
		}
		if ct != want {
			v = append(v, fmt.Sprintf("entry %d: category %d is %s, expected %s", i, a.CategoryID, ct, want))
		}
	}

	return v
}

// ResolveCategoryType returns the shared category type of an allocation, or
// "" when the allocation is empty or a category is unknown.
func ResolveCategoryType(allocation []core.Allocation, types CategoryTypes) core.CategoryType {
	if len(allocation) == 0 {
		return ""
	}
	return types[allocation[0].CategoryID]
}
