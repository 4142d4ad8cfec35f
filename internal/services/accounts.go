package services

import (
	"context"
	"fmt"

	"moneytrace/internal/core"
	"moneytrace/internal/log"
	"moneytrace/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateAccount stores an account with its opening balance.
func (s *Service) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return a, validation("account", err)
	}
	if _, err := s.store().FindUser(ctx, a.UserID); err != nil {
		return a, err
	}
	a.Balance = a.Balance.Round(core.CurrencyPlaces)
	created, err := s.store().AddAccount(ctx, a)
	if err != nil {
		return a, err
	}
	s.logger.InfoContext(ctx, "Account created",
		log.FieldUserID, created.UserID, log.FieldAccountID, created.ID, "type", created.Type)
	return created, nil
}

// UpdateAccount writes the descriptive fields of a and moves the balance to
// a.Balance. The balance moves through the add-delta primitive by
// target minus current.
func (s *Service) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return a, validation("account", err)
	}
	target := a.Balance.Round(core.CurrencyPlaces)
	key := "account-update/" + uuid.NewString()

	var updated core.Account
	err := WithRetry(ctx, s.logger, func() error {
		return s.repo.InTx(ctx, func(st *storage.Store) error {
			current, err := st.FindAccount(ctx, a.UserID, a.ID)
			if err != nil {
				return err
			}
			if err := st.UpdateAccount(ctx, a); err != nil {
				return err
			}
			if delta := target.Sub(current.Balance); !delta.IsZero() {
				if _, err := st.AddToBalance(ctx, a.ID, delta, key); err != nil {
					return err
				}
			}
			updated, err = st.FindAccount(ctx, a.UserID, a.ID)
			return err
		})
	}, s.retry)
	if err != nil {
		return a, err
	}
	return updated, nil
}

// AdjustBalance adds delta to the account balance.
func (s *Service) AdjustBalance(ctx context.Context, userID, accountID int64, delta decimal.Decimal) (core.Account, error) {
	if delta.IsZero() {
		return core.Account{}, core.Validation("invalid adjustment", "delta must be different than 0")
	}
	delta = delta.Round(core.CurrencyPlaces)
	key := "adjust/" + uuid.NewString()

	var out core.Account
	err := WithRetry(ctx, s.logger, func() error {
		return s.repo.InTx(ctx, func(st *storage.Store) error {
			if _, err := st.FindAccount(ctx, userID, accountID); err != nil {
				return err
			}
			if _, err := st.AddToBalance(ctx, accountID, delta, key); err != nil {
				return err
			}
			var err error
			out, err = st.FindAccount(ctx, userID, accountID)
			return err
		})
	}, s.retry)
	if err != nil {
		return out, fmt.Errorf("adjust balance of account %d: %w", accountID, err)
	}
	s.logger.InfoContext(ctx, "Balance adjusted",
		log.NewFields().WithUser(userID).WithAdjustment(accountID, delta, key).ToSlice()...)
	return out, nil
}

func (s *Service) GetAccount(ctx context.Context, userID, id int64) (core.Account, error) {
	return s.store().FindAccount(ctx, userID, id)
}

func (s *Service) ListAccounts(ctx context.Context, userID int64, enabledOnly bool) ([]core.Account, error) {
	return s.store().QueryAccounts(ctx, userID, enabledOnly)
}

func (s *Service) DeleteAccount(ctx context.Context, userID, id int64) error {
	return s.store().RemoveAccount(ctx, userID, id)
}
