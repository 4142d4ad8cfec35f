// Package billing computes bill due dates and applies payments.
//
// Each payment frequency has its own Scheduler so that the step between two
// due dates lives in one place per frequency.
package billing

import (
	"fmt"
	"time"

	"moneytrace/internal/core"
)

// Scheduler is the strategy for one payment frequency.
type Scheduler interface {
	// Advance returns the due date one period after due.
	Advance(due time.Time, b core.Bill) time.Time
	// First returns the earliest due date on or after from.
	First(from time.Time, b core.Bill) time.Time
}

// DayStep schedules every N days on a fixed ISO weekday (1 = Monday).
type DayStep struct{ Days int }

func (s DayStep) Advance(due time.Time, _ core.Bill) time.Time {
	return core.DateOnly(due).AddDate(0, 0, s.Days)
}

func (DayStep) First(from time.Time, b core.Bill) time.Time {
	from = core.DateOnly(from)
	want := time.Weekday(b.PaymentDay % 7) // ISO 7 = Sunday
	diff := (int(want) - int(from.Weekday()) + 7) % 7
	return from.AddDate(0, 0, diff)
}

// MonthStep schedules every N months, clamped to month end. Advancing keeps
// the day of the current due date; PaymentDay only picks the first one.
type MonthStep struct{ Months int }

func (s MonthStep) Advance(due time.Time, b core.Bill) time.Time {
	due = core.DateOnly(due)
	return core.AddMonthsClamped(due, s.Months, stepDay(due, b))
}

func (MonthStep) First(from time.Time, b core.Bill) time.Time {
	from = core.DateOnly(from)
	candidate := core.AddMonthsClamped(from, 0, b.PaymentDay)
	if candidate.Before(from) {
		candidate = core.AddMonthsClamped(from, 1, b.PaymentDay)
	}
	return candidate
}

// YearStep schedules once a year on PaymentMonth/PaymentDay.
type YearStep struct{}

func (YearStep) Advance(due time.Time, b core.Bill) time.Time {
	due = core.DateOnly(due)
	return core.AddMonthsClamped(due, 12, stepDay(due, b))
}

func (YearStep) First(from time.Time, b core.Bill) time.Time {
	from = core.DateOnly(from)
	month := int(from.Month())
	if b.PaymentMonth != nil {
		month = *b.PaymentMonth
	}
	anchor := core.NewDate(from.Year(), month, 1)
	candidate := core.AddMonthsClamped(anchor, 0, b.PaymentDay)
	if candidate.Before(from) {
		candidate = core.AddMonthsClamped(anchor, 12, b.PaymentDay)
	}
	return candidate
}

// stepDay is the day of month the next due date lands on: due's own day,
// or PaymentDay when due sits on a month end that PaymentDay was clamped to.
func stepDay(due time.Time, b core.Bill) int {
	if day := due.Day(); b.PaymentDay > day && day == core.LastDayOfMonth(due.Year(), due.Month()) {
		return b.PaymentDay
	}
	return due.Day()
}

// BiMonthly means every two months.
var schedulers = map[core.Frequency]Scheduler{
	core.Weekly:    DayStep{Days: 7},
	core.BiWeekly:  DayStep{Days: 14},
	core.Monthly:   MonthStep{Months: 1},
	core.BiMonthly: MonthStep{Months: 2},
	core.Yearly:    YearStep{},
}

// SchedulerFor returns the scheduler of a payment frequency.
func SchedulerFor(f core.Frequency) (Scheduler, error) {
	s, ok := schedulers[f]
	if !ok {
		return nil, fmt.Errorf("unknown payment frequency: %s", f)
	}
	return s, nil
}

// NextDueDate returns the due date one period after due.
func NextDueDate(b core.Bill, due time.Time) (time.Time, error) {
	s, err := SchedulerFor(b.PaymentFrequency)
	if err != nil {
		return time.Time{}, err
	}
	return s.Advance(due, b), nil
}

// FirstDueDate returns the first due date on or after from, for bills created
// without an explicit due date.
func FirstDueDate(b core.Bill, from time.Time) (time.Time, error) {
	s, err := SchedulerFor(b.PaymentFrequency)
	if err != nil {
		return time.Time{}, err
	}
	return s.First(from, b), nil
}
