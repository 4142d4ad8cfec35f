package services

import (
	"context"
	"errors"
	"fmt"

	"moneytrace/internal/core"
	"moneytrace/internal/events"
	"moneytrace/internal/ledger"
	"moneytrace/internal/log"
	"moneytrace/internal/storage"
)

// BalanceHandler applies the balance effect of committed operations. Every
// event is applied in its own transaction through the add-delta primitive,
// keyed by event id and leg so a redelivered event changes nothing.
type BalanceHandler struct {
	repo   *storage.SQLiteRepository
	retry  RetryOptions
	logger *log.Logger
}

func (h *BalanceHandler) OnOperationCreated(ctx context.Context, env *events.Envelope, e events.OperationCreated) error {
	return h.apply(ctx, env, func(st *storage.Store) ([]ledger.Adjustment, error) {
		return h.resolve(ctx, st, e.Operation)
	})
}

// OnOperationUpdated undoes the previous version's effect and applies the
// current one, netted per account so an unchanged leg writes nothing.
func (h *BalanceHandler) OnOperationUpdated(ctx context.Context, env *events.Envelope, e events.OperationUpdated) error {
	return h.apply(ctx, env, func(st *storage.Store) ([]ledger.Adjustment, error) {
		prev, err := h.resolve(ctx, st, e.Previous)
		if err != nil {
			return nil, err
		}
		curr, err := h.resolve(ctx, st, e.Current)
		if err != nil {
			return nil, err
		}
		return ledger.Net(append(ledger.Reverse(prev), curr...)), nil
	})
}

func (h *BalanceHandler) OnOperationDeleted(ctx context.Context, env *events.Envelope, e events.OperationDeleted) error {
	return h.apply(ctx, env, func(st *storage.Store) ([]ledger.Adjustment, error) {
		adjs, err := h.resolve(ctx, st, e.Operation)
		if err != nil {
			return nil, err
		}
		return ledger.Reverse(adjs), nil
	})
}

// apply runs plan and posts its adjustments in one transaction, retried on
// concurrent updates.
func (h *BalanceHandler) apply(ctx context.Context, env *events.Envelope, plan func(st *storage.Store) ([]ledger.Adjustment, error)) error {
	return WithRetry(ctx, h.logger, func() error {
		return h.repo.InTx(ctx, func(st *storage.Store) error {
			adjs, err := plan(st)
			if err != nil {
				return err
			}
			for leg, a := range adjs {
				key := ledger.PostingKey(env.ID, leg, a.AccountID)
				applied, err := st.AddToBalance(ctx, a.AccountID, a.Delta, key)
				if err != nil {
					return fmt.Errorf("adjust account %d: %w", a.AccountID, err)
				}
				if !applied {
					h.logger.DebugContext(ctx, "Posting already applied",
						log.NewFields().WithEvent(env.ID, env.Name).WithAdjustment(a.AccountID, a.Delta, key).ToSlice()...)
					continue
				}
				h.logger.DebugContext(ctx, "Balance adjusted",
					log.NewFields().WithEvent(env.ID, env.Name).WithAdjustment(a.AccountID, a.Delta, key).ToSlice()...)
			}
			return nil
		})
	}, h.retry)
}

// resolve computes op's adjustments. Legs whose account no longer exists are
// skipped with a warning.
func (h *BalanceHandler) resolve(ctx context.Context, st *storage.Store, op core.Operation) ([]ledger.Adjustment, error) {
	source, err := st.FindAccount(ctx, op.UserID, op.AccountID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	sourceMissing := err != nil

	if op.Type == core.Simple && sourceMissing {
		h.logger.WarnContext(ctx, "Account not found, skipping adjustment",
			log.FieldAccountID, op.AccountID, log.FieldID, op.ID)
		return nil, nil
	}

	adjs, err := ledger.Resolve(op, source.Type)
	if err != nil {
		return nil, err
	}

	kept := adjs[:0]
	for _, a := range adjs {
		if a.AccountID == op.AccountID && sourceMissing {
			h.logger.WarnContext(ctx, "Account not found, skipping adjustment",
				log.FieldAccountID, a.AccountID, log.FieldID, op.ID)
			continue
		}
		if a.AccountID != op.AccountID {
			if _, err := st.FindAccount(ctx, op.UserID, a.AccountID); errors.Is(err, core.ErrNotFound) {
				h.logger.WarnContext(ctx, "Account not found, skipping adjustment",
					log.FieldAccountID, a.AccountID, log.FieldID, op.ID)
				continue
			} else if err != nil {
				return nil, err
			}
		}
		kept = append(kept, a)
	}
	return kept, nil
}
