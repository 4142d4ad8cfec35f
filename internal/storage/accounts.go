package storage

import (
	"context"
	"fmt"

	"moneytrace/internal/core"

	"github.com/shopspring/decimal"
)

const accountColumns = `id, user_id, name, description, type, balance, is_enabled, version`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var a core.Account
	var typ string
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Description, &typ, &a.Balance, &a.IsEnabled, &a.Version)
	a.Type = core.AccountType(typ)
	return a, err
}

func (s *Store) AddAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO accounts (user_id, name, description, type, balance, is_enabled) VALUES (?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Name, a.Description, string(a.Type), a.Balance, a.IsEnabled)
	if err != nil {
		return a, mapErr(err, "account")
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return a, core.Failure("account id", err)
	}
	a.Version = 0
	return a, nil
}

// FindAccount returns the user's account; other users' accounts are NotFound.
func (s *Store) FindAccount(ctx context.Context, userID, id int64) (core.Account, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanAccount(row)
	return a, mapErr(err, "account")
}

// findAccountByID ignores ownership; balance postings come from events that
// were already authorised.
func (s *Store) findAccountByID(ctx context.Context, id int64) (core.Account, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	return a, mapErr(err, "account")
}

func (s *Store) QueryAccounts(ctx context.Context, userID int64, enabledOnly bool) ([]core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = ?`
	if enabledOnly {
		query += ` AND is_enabled = 1`
	}
	rows, err := s.q.QueryContext(ctx, query+` ORDER BY name`, userID)
	if err != nil {
		return nil, mapErr(err, "accounts")
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, mapErr(err, "accounts")
		}
		out = append(out, a)
	}
	return out, mapErr(rows.Err(), "accounts")
}

// UpdateAccount writes the descriptive fields. Balance is never written here.
func (s *Store) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE accounts SET name = ?, description = ?, type = ?, is_enabled = ? WHERE id = ? AND user_id = ?`,
		a.Name, a.Description, string(a.Type), a.IsEnabled, a.ID, a.UserID)
	if err != nil {
		return mapErr(err, "account")
	}
	return requireRow(res, "account")
}

func (s *Store) RemoveAccount(ctx context.Context, userID, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return mapErr(err, "account")
	}
	return requireRow(res, "account")
}

// AddToBalance is the only path that changes an account balance. The posting
// key is recorded first; a key seen before makes the call a no-op and returns
// false. The balance itself moves through a version compare-and-swap and
// returns ErrConcurrentUpdate when the row changed under us. It must run
// inside InTx so the posting and the balance commit together.
func (s *Store) AddToBalance(ctx context.Context, accountID int64, delta decimal.Decimal, postingKey string) (bool, error) {
	if !s.inTx {
		return false, fmt.Errorf("add to balance of account %d: requires a transaction", accountID)
	}

	res, err := s.q.ExecContext(ctx,
		`INSERT INTO balance_postings (posting_key, account_id, delta) VALUES (?, ?, ?) ON CONFLICT(posting_key) DO NOTHING`,
		postingKey, accountID, delta)
	if err != nil {
		return false, mapErr(err, "balance posting")
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, core.Failure("balance posting", err)
	} else if n == 0 {
		return false, nil
	}

	a, err := s.findAccountByID(ctx, accountID)
	if err != nil {
		return false, err
	}

	res, err = s.q.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, version = version + 1 WHERE id = ? AND version = ?`,
		a.Balance.Add(delta), a.ID, a.Version)
	if err != nil {
		return false, mapErr(err, "account")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, core.Failure("account", err)
	}
	if n == 0 {
		return false, ErrConcurrentUpdate
	}
	return true, nil
}

func (s *Store) AddUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO users (name, email, is_enabled, date_format, time_zone) VALUES (?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.IsEnabled, u.DateFormat, u.TimeZone)
	if err != nil {
		return u, mapErr(err, "user")
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return u, core.Failure("user id", err)
	}
	return u, nil
}

func (s *Store) FindUser(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name, email, is_enabled, date_format, time_zone FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.IsEnabled, &u.DateFormat, &u.TimeZone)
	return u, mapErr(err, "user")
}

func (s *Store) AddVendor(ctx context.Context, v core.Vendor) (core.Vendor, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO vendors (user_id, name, is_enabled) VALUES (?, ?, ?)`, v.UserID, v.Name, v.IsEnabled)
	if err != nil {
		return v, mapErr(err, "vendor")
	}
	if v.ID, err = res.LastInsertId(); err != nil {
		return v, core.Failure("vendor id", err)
	}
	return v, nil
}

func (s *Store) FindVendor(ctx context.Context, userID, id int64) (core.Vendor, error) {
	var v core.Vendor
	err := s.q.QueryRowContext(ctx,
		`SELECT id, user_id, name, is_enabled FROM vendors WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&v.ID, &v.UserID, &v.Name, &v.IsEnabled)
	return v, mapErr(err, "vendor")
}

func (s *Store) QueryVendors(ctx context.Context, userID int64) ([]core.Vendor, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, user_id, name, is_enabled FROM vendors WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, mapErr(err, "vendors")
	}
	defer rows.Close()

	var out []core.Vendor
	for rows.Next() {
		var v core.Vendor
		if err := rows.Scan(&v.ID, &v.UserID, &v.Name, &v.IsEnabled); err != nil {
			return nil, mapErr(err, "vendors")
		}
		out = append(out, v)
	}
	return out, mapErr(rows.Err(), "vendors")
}
