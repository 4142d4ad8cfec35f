package billing

import (
	"errors"
	"fmt"
	"time"

	"moneytrace/internal/core"

	"github.com/shopspring/decimal"
)

var (
	ErrNonPositivePayment = errors.New("payment amount must be greater than 0")
	ErrFuturePayment      = errors.New("payment date cannot be in the future")
)

// Payment describes how a payment changed a bill.
type Payment struct {
	Amount      decimal.Decimal
	Date        time.Time
	FullyPaid   bool
	PreviousDue time.Time
}

// ApplyPayment returns the bill after paying amount on paymentDate. A payment
// that covers NextDueAmount advances the schedule by one period and resets the
// due amount to zero. A smaller payment only lowers the due amount. The input
// bill is not modified.
func ApplyPayment(b core.Bill, amount decimal.Decimal, paymentDate, now time.Time) (core.Bill, Payment, error) {
	if !amount.IsPositive() {
		return b, Payment{}, core.Validation("invalid payment", ErrNonPositivePayment.Error())
	}
	paymentDate = core.DateOnly(paymentDate)
	if paymentDate.After(core.DateOnly(now)) {
		return b, Payment{}, core.Validation("invalid payment", ErrFuturePayment.Error())
	}

	p := Payment{Amount: amount, Date: paymentDate, PreviousDue: b.NextDueDate}

	if amount.GreaterThanOrEqual(b.NextDueAmount) {
		next, err := NextDueDate(b, b.NextDueDate)
		if err != nil {
			return b, Payment{}, fmt.Errorf("advance bill %d: %w", b.ID, err)
		}
		b.NextDueDate = next
		b.NextDueAmount = decimal.Zero
		p.FullyPaid = true
	} else {
		b.NextDueAmount = b.NextDueAmount.Sub(amount)
	}

	b.LastPaidDate = &paymentDate
	b.LastPaidAmount = amount
	return b, p, nil
}

// Overdue reports whether the bill still owes money past its due date.
func Overdue(b core.Bill, now time.Time) bool {
	return b.NextDueAmount.IsPositive() && core.DateOnly(now).After(core.DateOnly(b.NextDueDate))
}
