package services

import (
	"context"
	"fmt"
	"time"

	"moneytrace/internal/billing"
	"moneytrace/internal/core"
	"moneytrace/internal/log"
)

// OverdueBill is a bill that still owes money past its due date.
type OverdueBill struct {
	Bill        core.Bill
	DaysOverdue int
}

// ProcessOverdueBills finds every overdue bill across users and logs a
// warning for each one. It returns them ordered by user and due date.
func (s *Service) ProcessOverdueBills(ctx context.Context) ([]OverdueBill, error) {
	now := s.now()
	bills, err := s.store().QueryOverdueBills(ctx, core.DateOnly(now))
	if err != nil {
		return nil, fmt.Errorf("query overdue bills: %w", err)
	}

	out := make([]OverdueBill, 0, len(bills))
	for _, b := range bills {
		if !billing.Overdue(b, now) {
			continue
		}
		days := int(core.DateOnly(now).Sub(core.DateOnly(b.NextDueDate)).Hours() / 24)
		out = append(out, OverdueBill{Bill: b, DaysOverdue: days})

		s.logger.WarnContext(ctx, "Bill overdue",
			log.FieldUserID, b.UserID,
			log.FieldBillID, b.ID,
			"name", b.Name,
			"due", b.NextDueDate.Format(time.DateOnly),
			log.FieldAmount, core.FormatAmount(b.NextDueAmount),
			"days_overdue", days)
	}

	s.logger.InfoContext(ctx, "Overdue bills checked",
		"processing_date", now.Format(time.DateOnly),
		"overdue", len(out))
	return out, nil
}
