// Package events carries domain events from a committed unit of work to the
// handlers that react to them.
//
// Command handlers return the events they raise next to the entity they
// persisted. The unit of work wraps them in envelopes and dispatches them only
// after the write committed. Handlers are registered per event name in a typed
// table built at startup.
package events

import (
	"time"

	"moneytrace/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event names, also used as AMQP routing keys.
const (
	NameOperationCreated = "operation.created"
	NameOperationUpdated = "operation.updated"
	NameOperationDeleted = "operation.deleted"
	NameUserCreated      = "user.created"
	NameBillPaid         = "bill.paid"
	NameBudgetCreated    = "budget.created"
)

// Event is an immutable fact raised by a command.
type Event interface {
	EventName() string
}

type OperationCreated struct {
	Operation core.Operation
}

// OperationUpdated carries both versions so handlers can undo the old effect.
type OperationUpdated struct {
	Previous core.Operation
	Current  core.Operation
}

type OperationDeleted struct {
	Operation core.Operation
}

type UserCreated struct {
	User core.User
}

type BillPaid struct {
	Bill        core.Bill
	OperationID int64
	Amount      decimal.Decimal
	FullyPaid   bool
}

type BudgetCreated struct {
	Budget core.Budget
}

func (OperationCreated) EventName() string { return NameOperationCreated }
func (OperationUpdated) EventName() string { return NameOperationUpdated }
func (OperationDeleted) EventName() string { return NameOperationDeleted }
func (UserCreated) EventName() string      { return NameUserCreated }
func (BillPaid) EventName() string         { return NameBillPaid }
func (BudgetCreated) EventName() string    { return NameBudgetCreated }

// Envelope wraps a raised event with its identity and delivery state.
type Envelope struct {
	ID        string
	Name      string
	RaisedAt  time.Time
	Event     Event
	Published bool
}

// Wrap assigns identities to raised events, keeping their order.
func Wrap(raised []Event) []*Envelope {
	out := make([]*Envelope, 0, len(raised))
	now := time.Now().UTC()
	for _, e := range raised {
		if e == nil {
			continue
		}
		out = append(out, &Envelope{
			ID:       uuid.NewString(),
			Name:     e.EventName(),
			RaisedAt: now,
			Event:    e,
		})
	}
	return out
}

// UserID returns the owner of the entity an event is about, or 0.
func UserID(e Event) int64 {
	switch ev := e.(type) {
	case OperationCreated:
		return ev.Operation.UserID
	case OperationUpdated:
		return ev.Current.UserID
	case OperationDeleted:
		return ev.Operation.UserID
	case UserCreated:
		return ev.User.ID
	case BillPaid:
		return ev.Bill.UserID
	case BudgetCreated:
		return ev.Budget.UserID
	}
	return 0
}
