package billing

import (
	"testing"
	"time"

	"moneytrace/internal/core"
)

func month(m int) *int { return &m }

func TestNextDueDate(t *testing.T) {
	tests := []struct {
		name string
		bill core.Bill
		due  time.Time
		want time.Time
	}{
		{"weekly", core.Bill{PaymentFrequency: core.Weekly, PaymentDay: 5}, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 8)},
		{"biweekly", core.Bill{PaymentFrequency: core.BiWeekly, PaymentDay: 5}, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 15)},
		{"monthly", core.Bill{PaymentFrequency: core.Monthly, PaymentDay: 1}, core.NewDate(2024, 3, 1), core.NewDate(2024, 4, 1)},
		{"monthly end of month clamps", core.Bill{PaymentFrequency: core.Monthly, PaymentDay: 31}, core.NewDate(2024, 1, 31), core.NewDate(2024, 2, 29)},
		{"monthly re-anchors after clamp", core.Bill{PaymentFrequency: core.Monthly, PaymentDay: 31}, core.NewDate(2024, 2, 29), core.NewDate(2024, 3, 31)},
		{"monthly keeps the due date's own day", core.Bill{PaymentFrequency: core.Monthly, PaymentDay: 15}, core.NewDate(2024, 3, 1), core.NewDate(2024, 4, 1)},
		{"monthly month end below payment day re-anchors", core.Bill{PaymentFrequency: core.Monthly, PaymentDay: 30}, core.NewDate(2024, 2, 29), core.NewDate(2024, 3, 30)},
		{"monthly day past payment day is kept", core.Bill{PaymentFrequency: core.Monthly, PaymentDay: 5}, core.NewDate(2024, 4, 30), core.NewDate(2024, 5, 30)},
		{"bimonthly keeps the due date's own day", core.Bill{PaymentFrequency: core.BiMonthly, PaymentDay: 20}, core.NewDate(2024, 1, 10), core.NewDate(2024, 3, 10)},
		{"yearly", core.Bill{PaymentFrequency: core.Yearly, PaymentDay: 29, PaymentMonth: month(2)}, core.NewDate(2024, 2, 29), core.NewDate(2025, 2, 28)},
		{"yearly re-anchors after clamp", core.Bill{PaymentFrequency: core.Yearly, PaymentDay: 29, PaymentMonth: month(2)}, core.NewDate(2027, 2, 28), core.NewDate(2028, 2, 29)},
		{"yearly keeps the due date's own day", core.Bill{PaymentFrequency: core.Yearly, PaymentDay: 15, PaymentMonth: month(3)}, core.NewDate(2024, 3, 1), core.NewDate(2025, 3, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextDueDate(tt.bill, tt.due)
			if err != nil {
				t.Fatalf("NextDueDate() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextDueDate() = %s, want %s", got.Format(time.DateOnly), tt.want.Format(time.DateOnly))
			}
		})
	}
}

// BiMonthly bills advance by two months, not one.
func TestNextDueDateBiMonthlyIsTwoMonths(t *testing.T) {
	b := core.Bill{PaymentFrequency: core.BiMonthly, PaymentDay: 15}
	got, err := NextDueDate(b, core.NewDate(2024, 11, 15))
	if err != nil {
		t.Fatal(err)
	}
	if want := core.NewDate(2025, 1, 15); !got.Equal(want) {
		t.Fatalf("BiMonthly advance = %s, want %s", got.Format(time.DateOnly), want.Format(time.DateOnly))
	}
}

func TestFirstDueDate(t *testing.T) {
	from := core.NewDate(2024, 3, 13) // Wednesday
	tests := []struct {
		name string
		bill core.Bill
		want time.Time
	}{
		{"weekly same day", core.Bill{PaymentFrequency: core.Weekly, PaymentDay: 3}, core.NewDate(2024, 3, 13)},
		{"weekly later in week", core.Bill{PaymentFrequency: core.Weekly, PaymentDay: 5}, core.NewDate(2024, 3, 15)},
		{"weekly sunday", core.Bill{PaymentFrequency: core.BiWeekly, PaymentDay: 7}, core.NewDate(2024, 3, 17)},
		{"weekly wraps", core.Bill{PaymentFrequency: core.Weekly, PaymentDay: 1}, core.NewDate(2024, 3, 18)},
		{"monthly this month", core.Bill{PaymentFrequency: core.Monthly, PaymentDay: 20}, core.NewDate(2024, 3, 20)},
		{"monthly next month", core.Bill{PaymentFrequency: core.Monthly, PaymentDay: 1}, core.NewDate(2024, 4, 1)},
		{"yearly this year", core.Bill{PaymentFrequency: core.Yearly, PaymentDay: 1, PaymentMonth: month(6)}, core.NewDate(2024, 6, 1)},
		{"yearly next year", core.Bill{PaymentFrequency: core.Yearly, PaymentDay: 1, PaymentMonth: month(1)}, core.NewDate(2025, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FirstDueDate(tt.bill, from)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("FirstDueDate() = %s, want %s", got.Format(time.DateOnly), tt.want.Format(time.DateOnly))
			}
		})
	}
}

func TestSchedulerForUnknown(t *testing.T) {
	if _, err := SchedulerFor("daily"); err == nil {
		t.Fatal("expected error for unknown frequency")
	}
}
