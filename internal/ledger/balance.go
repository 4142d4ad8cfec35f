package ledger

import (
	"errors"
	"fmt"

	"moneytrace/internal/core"

	"github.com/shopspring/decimal"
)

// Adjustment is a signed change to one account's balance.
type Adjustment struct {
	AccountID int64
	Delta     decimal.Decimal
}

var (
	minusOne = decimal.NewFromInt(-1)
	plusOne  = decimal.NewFromInt(1)
)

var ErrUnresolvable = errors.New("cannot resolve balance adjustment")

// Sign returns the multiplier applied to a simple operation's total.
//
//	          Expense  Income
//	Debit       -1       +1
//	Credit      +1       -1
func Sign(account core.AccountType, category core.CategoryType) (decimal.Decimal, error) {
	switch {
	case account == core.Debit && category == core.Expense:
		return minusOne, nil
	case account == core.Debit && category == core.Income:
		return plusOne, nil
	case account == core.Credit && category == core.Expense:
		return plusOne, nil
	case account == core.Credit && category == core.Income:
		return minusOne, nil
	}
	return decimal.Zero, fmt.Errorf("%w: account type %q, category type %q", ErrUnresolvable, account, category)
}

// Resolve computes the adjustments a committed operation causes. sourceType is
// the type of op.AccountID and is ignored for transfers, which always move
// money out of the source and into the destination.
func Resolve(op core.Operation, sourceType core.AccountType) ([]Adjustment, error) {
	switch op.Type {
	case core.Transfer:
		if op.DestinationAccountID == nil {
			return nil, fmt.Errorf("%w: transfer %d has no destination", ErrUnresolvable, op.ID)
		}
		return []Adjustment{
			{AccountID: op.AccountID, Delta: op.TotalAmount.Neg()},
			{AccountID: *op.DestinationAccountID, Delta: op.TotalAmount},
		}, nil
	case core.Simple:
		sign, err := Sign(sourceType, op.CategoryType)
		if err != nil {
			return nil, err
		}
		return []Adjustment{{AccountID: op.AccountID, Delta: op.TotalAmount.Mul(sign)}}, nil
	}
	return nil, fmt.Errorf("%w: operation type %q", ErrUnresolvable, op.Type)
}

// Reverse negates every adjustment so that applying it undoes the original.
func Reverse(adjs []Adjustment) []Adjustment {
	out := make([]Adjustment, len(adjs))
	for i, a := range adjs {
		out[i] = Adjustment{AccountID: a.AccountID, Delta: a.Delta.Neg()}
	}
	return out
}

// Net merges adjustments per account, dropping those that cancel out.
// Order follows the first appearance of each account.
func Net(adjs []Adjustment) []Adjustment {
	idx := make(map[int64]int, len(adjs))
	var out []Adjustment
	for _, a := range adjs {
		if i, ok := idx[a.AccountID]; ok {
			out[i].Delta = out[i].Delta.Add(a.Delta)
			continue
		}
		idx[a.AccountID] = len(out)
		out = append(out, a)
	}
	kept := out[:0]
	for _, a := range out {
		if !a.Delta.IsZero() {
			kept = append(kept, a)
		}
	}
	return kept
}

// PostingKey identifies one leg of one delivery so that redelivery of the
// same event adjusts an account at most once.
func PostingKey(eventID string, leg int, accountID int64) string {
	return fmt.Sprintf("%s/%d/%d", eventID, leg, accountID)
}
