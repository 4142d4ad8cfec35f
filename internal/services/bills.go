package services

import (
	"context"
	"time"

	"moneytrace/internal/billing"
	"moneytrace/internal/core"
	"moneytrace/internal/events"
	"moneytrace/internal/ledger"
	"moneytrace/internal/log"
	"moneytrace/internal/storage"

	"github.com/shopspring/decimal"
)

// CreateBill stores a bill. A zero NextDueDate is set to the first due date
// on or after today.
func (s *Service) CreateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	b.NextDueAmount = core.Round(b.NextDueAmount)
	if err := b.Validate(); err != nil {
		return b, validation("bill", err)
	}
	if _, err := s.store().FindTemplate(ctx, b.UserID, b.TemplateID); err != nil {
		return b, err
	}
	if b.NextDueDate.IsZero() {
		due, err := billing.FirstDueDate(b, s.today())
		if err != nil {
			return b, validation("bill", err)
		}
		b.NextDueDate = due
	}
	b.NextDueDate = core.DateOnly(b.NextDueDate)
	b.IsEnabled = true

	created, err := s.store().AddBill(ctx, b)
	if err != nil {
		return b, err
	}
	s.logger.InfoContext(ctx, "Bill created",
		log.FieldUserID, created.UserID, log.FieldBillID, created.ID,
		"next_due", created.NextDueDate.Format(time.DateOnly))
	return created, nil
}

// PayBill records a payment: it materializes the bill's template into an
// operation for amount on paymentDate, stores it and advances the bill, all in
// one transaction. OperationCreated and BillPaid are dispatched after commit.
func (s *Service) PayBill(ctx context.Context, userID, billID int64, paymentDate time.Time, amount decimal.Decimal, comments string) (core.Bill, core.Operation, error) {
	if !core.HasCurrencyPrecision(amount) {
		return core.Bill{}, core.Operation{}, validation("payment", core.ErrAmountPrecision)
	}
	now := s.now()

	var (
		bill core.Bill
		op   core.Operation
	)
	err := s.uow.Execute(ctx, func(st *storage.Store) ([]events.Event, error) {
		b, err := st.FindBill(ctx, userID, billID)
		if err != nil {
			return nil, err
		}
		t, err := st.FindTemplate(ctx, userID, b.TemplateID)
		if err != nil {
			return nil, err
		}

		paid, payment, err := billing.ApplyPayment(b, amount, paymentDate, now)
		if err != nil {
			return nil, err
		}

		title := "Payment for " + b.Name
		draft := ledger.Materialize(t, ledger.Overrides{
			Date:        &payment.Date,
			Title:       &title,
			TotalAmount: &amount,
			Comments:    &comments,
		}, now)
		if draft, err = s.checkOperation(ctx, st, true, draft); err != nil {
			return nil, err
		}
		if op, err = st.AddOperation(ctx, draft); err != nil {
			return nil, err
		}
		if err := st.UpdateBill(ctx, paid); err != nil {
			return nil, err
		}
		bill = paid

		return []events.Event{
			events.OperationCreated{Operation: op},
			events.BillPaid{Bill: paid, OperationID: op.ID, Amount: amount, FullyPaid: payment.FullyPaid},
		}, nil
	})
	if err != nil {
		return bill, op, err
	}

	s.logger.InfoContext(ctx, "Bill paid",
		log.FieldUserID, userID, log.FieldBillID, billID, log.FieldID, op.ID,
		log.FieldAmount, core.FormatAmount(amount),
		"next_due", bill.NextDueDate.Format(time.DateOnly))
	return bill, op, nil
}

func (s *Service) GetBill(ctx context.Context, userID, id int64) (core.Bill, error) {
	return s.store().FindBill(ctx, userID, id)
}

// ListBills returns the user's bills, only those due by dueBy when set.
func (s *Service) ListBills(ctx context.Context, userID int64, dueBy *time.Time) ([]core.Bill, error) {
	return s.store().QueryBills(ctx, userID, dueBy)
}

func (s *Service) DeleteBill(ctx context.Context, userID, id int64) error {
	return s.store().RemoveBill(ctx, userID, id)
}
