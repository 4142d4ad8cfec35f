package storage

import (
	"context"
	"database/sql"
	"time"

	"moneytrace/internal/core"
)

const billColumns = `id, user_id, name, template_id, payment_frequency, next_due_date, next_due_amount,
	last_paid_date, last_paid_amount, payment_day, payment_month, is_enabled`

func scanBill(row interface{ Scan(...any) error }) (core.Bill, error) {
	var (
		b        core.Bill
		freq     string
		due      string
		lastPaid sql.NullString
		month    sql.NullInt64
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.TemplateID, &freq, &due, &b.NextDueAmount,
		&lastPaid, &b.LastPaidAmount, &b.PaymentDay, &month, &b.IsEnabled); err != nil {
		return b, err
	}
	b.PaymentFrequency = core.Frequency(freq)
	d, err := parseDate(due)
	if err != nil {
		return b, err
	}
	b.NextDueDate = d
	if lastPaid.Valid {
		lp, err := parseDate(lastPaid.String)
		if err != nil {
			return b, err
		}
		b.LastPaidDate = &lp
	}
	if month.Valid {
		m := int(month.Int64)
		b.PaymentMonth = &m
	}
	return b, nil
}

func billArgs(b core.Bill) []any {
	var lastPaid sql.NullString
	if b.LastPaidDate != nil {
		lastPaid = sql.NullString{String: fmtDate(*b.LastPaidDate), Valid: true}
	}
	var month sql.NullInt64
	if b.PaymentMonth != nil {
		month = sql.NullInt64{Int64: int64(*b.PaymentMonth), Valid: true}
	}
	return []any{b.Name, b.TemplateID, string(b.PaymentFrequency), fmtDate(b.NextDueDate), b.NextDueAmount,
		lastPaid, b.LastPaidAmount, b.PaymentDay, month, b.IsEnabled}
}

func (s *Store) AddBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	args := append([]any{b.UserID}, billArgs(b)...)
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO bills (user_id, name, template_id, payment_frequency, next_due_date, next_due_amount,
		 last_paid_date, last_paid_amount, payment_day, payment_month, is_enabled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return b, mapErr(err, "bill")
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return b, core.Failure("bill id", err)
	}
	return b, nil
}

func (s *Store) FindBill(ctx context.Context, userID, id int64) (core.Bill, error) {
	b, err := scanBill(s.q.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = ? AND user_id = ?`, id, userID))
	return b, mapErr(err, "bill")
}

// QueryBills returns the user's bills ordered by next due date. A non-nil
// dueBy keeps only bills due on or before that date.
func (s *Store) QueryBills(ctx context.Context, userID int64, dueBy *time.Time) ([]core.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE user_id = ?`
	args := []any{userID}
	if dueBy != nil {
		query += ` AND next_due_date <= ?`
		args = append(args, fmtDate(*dueBy))
	}
	return s.queryBills(ctx, query+` ORDER BY next_due_date, id`, args...)
}

// QueryOverdueBills returns, across all users, enabled bills that still owe
// money and were due before date.
func (s *Store) QueryOverdueBills(ctx context.Context, date time.Time) ([]core.Bill, error) {
	return s.queryBills(ctx,
		`SELECT `+billColumns+` FROM bills
		 WHERE is_enabled = 1 AND next_due_date < ? AND CAST(next_due_amount AS REAL) > 0
		 ORDER BY user_id, next_due_date`, fmtDate(date))
}

func (s *Store) queryBills(ctx context.Context, query string, args ...any) ([]core.Bill, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, "bills")
	}
	defer rows.Close()

	var out []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, mapErr(err, "bills")
		}
		out = append(out, b)
	}
	return out, mapErr(rows.Err(), "bills")
}

func (s *Store) UpdateBill(ctx context.Context, b core.Bill) error {
	args := append(billArgs(b), b.ID, b.UserID)
	res, err := s.q.ExecContext(ctx,
		`UPDATE bills SET name = ?, template_id = ?, payment_frequency = ?, next_due_date = ?, next_due_amount = ?,
		 last_paid_date = ?, last_paid_amount = ?, payment_day = ?, payment_month = ?, is_enabled = ?
		 WHERE id = ? AND user_id = ?`, args...)
	if err != nil {
		return mapErr(err, "bill")
	}
	return requireRow(res, "bill")
}

func (s *Store) RemoveBill(ctx context.Context, userID, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM bills WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return mapErr(err, "bill")
	}
	return requireRow(res, "bill")
}
