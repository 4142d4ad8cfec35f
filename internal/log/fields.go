package log

import (
	"github.com/shopspring/decimal"
)

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldID         = "id"
	FieldUserID     = "user_id"
	FieldAccountID  = "account_id"
	FieldBillID     = "bill_id"
	FieldBudgetID   = "budget_id"
	FieldEventID    = "event_id"
	FieldEventName  = "event"
	FieldHandler    = "handler"
	FieldAmount     = "amount"
	FieldDelta      = "delta"
	FieldPostingKey = "posting_key"
	FieldAttempt    = "attempt"
	FieldDuration   = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentStorage   = "storage"
	ComponentEvents    = "events"
	ComponentBalance   = "balance"
	ComponentBilling   = "billing"
	ComponentBudget    = "budget"
	ComponentOperation = "operation"
	ComponentProvision = "provision"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpAppend   = "append"
	OpDispatch = "dispatch"
	OpPublish  = "publish"
	OpAdjust   = "adjust"
	OpPay      = "pay"
	OpRollover = "rollover"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds the error message; a nil error is ignored.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithUser(userID int64) LogFields {
	f[FieldUserID] = userID
	return f
}

func (f LogFields) WithEvent(id, name string) LogFields {
	f[FieldEventID] = id
	f[FieldEventName] = name
	return f
}

// WithAdjustment adds the account, signed delta and posting key of a balance change.
func (f LogFields) WithAdjustment(accountID int64, delta decimal.Decimal, postingKey string) LogFields {
	f[FieldAccountID] = accountID
	f[FieldDelta] = delta.StringFixed(2)
	f[FieldPostingKey] = postingKey
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
