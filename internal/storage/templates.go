package storage

import (
	"context"
	"database/sql"

	"moneytrace/internal/core"
)

const templateColumns = `id, user_id, title, type, vendor_id, account_id, destination_account_id, total_amount, category_type, is_enabled`

func scanTemplate(row interface{ Scan(...any) error }) (core.Template, error) {
	var (
		t            core.Template
		typ, catType string
		vendor, dest sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &typ, &vendor, &t.AccountID, &dest, &t.TotalAmount, &catType, &t.IsEnabled)
	t.Type = core.OperationType(typ)
	t.CategoryType = core.CategoryType(catType)
	t.VendorID = idPtr(vendor)
	t.DestinationAccountID = idPtr(dest)
	return t, err
}

func (s *Store) AddTemplate(ctx context.Context, t core.Template) (core.Template, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO templates (user_id, title, type, vendor_id, account_id, destination_account_id, total_amount, category_type, is_enabled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Title, string(t.Type), nullID(t.VendorID), t.AccountID, nullID(t.DestinationAccountID),
		t.TotalAmount, string(t.CategoryType), t.IsEnabled)
	if err != nil {
		return t, mapErr(err, "template")
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return t, core.Failure("template id", err)
	}
	t.Allocation = core.CloneAllocation(t.Allocation)
	return t, s.insertAllocation(ctx, "template_allocations", "template_id", t.ID, t.Allocation)
}

func (s *Store) FindTemplate(ctx context.Context, userID, id int64) (core.Template, error) {
	t, err := scanTemplate(s.q.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return t, mapErr(err, "template")
	}
	allocs, err := s.loadAllocations(ctx, "template_allocations", "template_id", []int64{t.ID})
	t.Allocation = allocs[t.ID]
	return t, err
}

func (s *Store) QueryTemplates(ctx context.Context, userID int64, enabledOnly bool) ([]core.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE user_id = ?`
	if enabledOnly {
		query += ` AND is_enabled = 1`
	}
	rows, err := s.q.QueryContext(ctx, query+` ORDER BY title`, userID)
	if err != nil {
		return nil, mapErr(err, "templates")
	}
	var (
		out []core.Template
		ids []int64
	)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			rows.Close()
			return nil, mapErr(err, "templates")
		}
		out = append(out, t)
		ids = append(ids, t.ID)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, mapErr(err, "templates")
	}

	allocs, err := s.loadAllocations(ctx, "template_allocations", "template_id", ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Allocation = allocs[out[i].ID]
	}
	return out, nil
}

func (s *Store) UpdateTemplate(ctx context.Context, t core.Template) (core.Template, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE templates SET title = ?, type = ?, vendor_id = ?, account_id = ?, destination_account_id = ?,
		 total_amount = ?, category_type = ?, is_enabled = ? WHERE id = ? AND user_id = ?`,
		t.Title, string(t.Type), nullID(t.VendorID), t.AccountID, nullID(t.DestinationAccountID),
		t.TotalAmount, string(t.CategoryType), t.IsEnabled, t.ID, t.UserID)
	if err != nil {
		return t, mapErr(err, "template")
	}
	if err := requireRow(res, "template"); err != nil {
		return t, err
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM template_allocations WHERE template_id = ?`, t.ID); err != nil {
		return t, mapErr(err, "template allocation")
	}
	t.Allocation = core.CloneAllocation(t.Allocation)
	return t, s.insertAllocation(ctx, "template_allocations", "template_id", t.ID, t.Allocation)
}

func (s *Store) RemoveTemplate(ctx context.Context, userID, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM templates WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return mapErr(err, "template")
	}
	return requireRow(res, "template")
}
