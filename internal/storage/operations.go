package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"moneytrace/internal/core"
)

// OperationFilter narrows QueryOperations. Zero fields match everything.
type OperationFilter struct {
	From       *time.Time
	To         *time.Time
	AccountID  int64 // source or destination
	CategoryID int64
	VendorID   int64
	Type       core.OperationType
}

const operationColumns = `id, user_id, date, title, type, vendor_id, account_id, destination_account_id, total_amount, category_type, comments`

func scanOperation(row interface{ Scan(...any) error }) (core.Operation, error) {
	var (
		op           core.Operation
		date, typ    string
		catType      string
		vendor, dest sql.NullInt64
	)
	if err := row.Scan(&op.ID, &op.UserID, &date, &op.Title, &typ, &vendor, &op.AccountID, &dest,
		&op.TotalAmount, &catType, &op.Comments); err != nil {
		return op, err
	}
	d, err := parseDate(date)
	if err != nil {
		return op, err
	}
	op.Date = d
	op.Type = core.OperationType(typ)
	op.CategoryType = core.CategoryType(catType)
	op.VendorID = idPtr(vendor)
	op.DestinationAccountID = idPtr(dest)
	return op, nil
}

func (s *Store) AddOperation(ctx context.Context, op core.Operation) (core.Operation, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO operations (user_id, date, title, type, vendor_id, account_id, destination_account_id, total_amount, category_type, comments)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.UserID, fmtDate(op.Date), op.Title, string(op.Type), nullID(op.VendorID), op.AccountID,
		nullID(op.DestinationAccountID), op.TotalAmount, string(op.CategoryType), op.Comments)
	if err != nil {
		return op, mapErr(err, "operation")
	}
	if op.ID, err = res.LastInsertId(); err != nil {
		return op, core.Failure("operation id", err)
	}
	op.Allocation = core.CloneAllocation(op.Allocation)
	return op, s.insertAllocation(ctx, "operation_allocations", "operation_id", op.ID, op.Allocation)
}

func (s *Store) FindOperation(ctx context.Context, userID, id int64) (core.Operation, error) {
	op, err := scanOperation(s.q.QueryRowContext(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return op, mapErr(err, "operation")
	}
	allocs, err := s.loadAllocations(ctx, "operation_allocations", "operation_id", []int64{op.ID})
	op.Allocation = allocs[op.ID]
	return op, err
}

// QueryOperations returns the user's operations matching f, oldest first.
func (s *Store) QueryOperations(ctx context.Context, userID int64, f OperationFilter) ([]core.Operation, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if f.From != nil {
		where = append(where, "date >= ?")
		args = append(args, fmtDate(*f.From))
	}
	if f.To != nil {
		where = append(where, "date <= ?")
		args = append(args, fmtDate(*f.To))
	}
	if f.AccountID > 0 {
		where = append(where, "(account_id = ? OR destination_account_id = ?)")
		args = append(args, f.AccountID, f.AccountID)
	}
	if f.VendorID > 0 {
		where = append(where, "vendor_id = ?")
		args = append(args, f.VendorID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.CategoryID > 0 {
		where = append(where, "EXISTS (SELECT 1 FROM operation_allocations a WHERE a.operation_id = operations.id AND a.category_id = ?)")
		args = append(args, f.CategoryID)
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE `+strings.Join(where, " AND ")+` ORDER BY date, id`, args...)
	if err != nil {
		return nil, mapErr(err, "operations")
	}
	var (
		ops []core.Operation
		ids []int64
	)
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			rows.Close()
			return nil, mapErr(err, "operations")
		}
		ops = append(ops, op)
		ids = append(ids, op.ID)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, mapErr(err, "operations")
	}

	allocs, err := s.loadAllocations(ctx, "operation_allocations", "operation_id", ids)
	if err != nil {
		return nil, err
	}
	for i := range ops {
		ops[i].Allocation = allocs[ops[i].ID]
	}
	return ops, nil
}

// UpdateOperation rewrites the operation and replaces its whole allocation.
func (s *Store) UpdateOperation(ctx context.Context, op core.Operation) (core.Operation, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE operations SET date = ?, title = ?, type = ?, vendor_id = ?, account_id = ?, destination_account_id = ?,
		 total_amount = ?, category_type = ?, comments = ? WHERE id = ? AND user_id = ?`,
		fmtDate(op.Date), op.Title, string(op.Type), nullID(op.VendorID), op.AccountID, nullID(op.DestinationAccountID),
		op.TotalAmount, string(op.CategoryType), op.Comments, op.ID, op.UserID)
	if err != nil {
		return op, mapErr(err, "operation")
	}
	if err := requireRow(res, "operation"); err != nil {
		return op, err
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM operation_allocations WHERE operation_id = ?`, op.ID); err != nil {
		return op, mapErr(err, "operation allocation")
	}
	op.Allocation = core.CloneAllocation(op.Allocation)
	return op, s.insertAllocation(ctx, "operation_allocations", "operation_id", op.ID, op.Allocation)
}

func (s *Store) RemoveOperation(ctx context.Context, userID, id int64) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM operation_allocations WHERE operation_id = ?`, id); err != nil {
		return mapErr(err, "operation allocation")
	}
	res, err := s.q.ExecContext(ctx, `DELETE FROM operations WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return mapErr(err, "operation")
	}
	return requireRow(res, "operation")
}

func (s *Store) insertAllocation(ctx context.Context, table, owner string, ownerID int64, allocs []core.Allocation) error {
	for _, a := range allocs {
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO `+table+` (`+owner+`, ord, category_id, sub_category_id, amount) VALUES (?, ?, ?, ?, ?)`,
			ownerID, a.Order, a.CategoryID, a.SubCategoryID, a.Amount); err != nil {
			return mapErr(err, "allocation")
		}
	}
	return nil
}

func (s *Store) loadAllocations(ctx context.Context, table, owner string, ownerIDs []int64) (map[int64][]core.Allocation, error) {
	out := make(map[int64][]core.Allocation, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return out, nil
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+owner+`, ord, category_id, sub_category_id, amount FROM `+table+
			` WHERE `+owner+` IN (`+placeholders(len(ownerIDs))+`) ORDER BY `+owner+`, ord`,
		int64Args(ownerIDs)...)
	if err != nil {
		return nil, mapErr(err, "allocation")
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var a core.Allocation
		if err := rows.Scan(&id, &a.Order, &a.CategoryID, &a.SubCategoryID, &a.Amount); err != nil {
			return nil, mapErr(err, "allocation")
		}
		out[id] = append(out[id], a)
	}
	return out, mapErr(rows.Err(), "allocation")
}
