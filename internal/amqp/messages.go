package amqp

import (
	"encoding/json"
	"time"

	"moneytrace/internal/core"
	"moneytrace/internal/events"
)

// LedgerEventMessage is the wire form of a committed domain event. It carries
// identifiers only; consumers read current state from the database.
type LedgerEventMessage struct {
	EventID  string `json:"event_id"`
	Name     string `json:"name"`
	UserID   int64  `json:"user_id"`
	EntityID int64  `json:"entity_id"`
	// Dates lists the calendar days the event touched (YYYY-MM-DD), so a
	// consumer can find the budgets to refresh.
	Dates     []string  `json:"dates,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage converts a dispatched envelope to its wire form.
func NewLedgerEventMessage(env *events.Envelope) *LedgerEventMessage {
	msg := &LedgerEventMessage{
		EventID:   env.ID,
		Name:      env.Name,
		UserID:    events.UserID(env.Event),
		Timestamp: env.RaisedAt,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	switch e := env.Event.(type) {
	case events.OperationCreated:
		msg.EntityID = e.Operation.ID
		msg.Dates = dates(e.Operation.Date)
	case events.OperationUpdated:
		msg.EntityID = e.Current.ID
		msg.Dates = dates(e.Previous.Date, e.Current.Date)
	case events.OperationDeleted:
		msg.EntityID = e.Operation.ID
		msg.Dates = dates(e.Operation.Date)
	case events.UserCreated:
		msg.EntityID = e.User.ID
	case events.BillPaid:
		msg.EntityID = e.Bill.ID
	case events.BudgetCreated:
		msg.EntityID = e.Budget.ID
		msg.Dates = dates(e.Budget.StartDate)
	}
	return msg
}

func dates(ts ...time.Time) []string {
	var out []string
	seen := make(map[string]struct{}, len(ts))
	for _, t := range ts {
		if t.IsZero() {
			continue
		}
		d := core.DateOnly(t).Format(time.DateOnly)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// ParsedDates returns Dates as times, skipping malformed entries.
func (m *LedgerEventMessage) ParsedDates() []time.Time {
	out := make([]time.Time, 0, len(m.Dates))
	for _, s := range m.Dates {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
