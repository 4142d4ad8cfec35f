package services

import (
	"context"

	"moneytrace/internal/events"
	"moneytrace/internal/storage"
)

// UnitOfWork runs a command's writes in one transaction and dispatches the
// events it raised once the transaction committed. A failed command raises
// nothing.
type UnitOfWork struct {
	repo       *storage.SQLiteRepository
	dispatcher *events.Dispatcher
}

func NewUnitOfWork(repo *storage.SQLiteRepository, dispatcher *events.Dispatcher) *UnitOfWork {
	return &UnitOfWork{repo: repo, dispatcher: dispatcher}
}

// Execute commits fn's writes, then dispatches its events in raise order.
// Dispatch happens after commit and handler failures never reach the caller.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(st *storage.Store) ([]events.Event, error)) error {
	var raised []events.Event
	err := u.repo.InTx(ctx, func(st *storage.Store) error {
		var err error
		raised, err = fn(st)
		return err
	})
	if err != nil {
		return err
	}
	if u.dispatcher != nil && len(raised) > 0 {
		u.dispatcher.Dispatch(ctx, events.Wrap(raised))
	}
	return nil
}
