package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Debit  AccountType = "debit"
	Credit AccountType = "credit"

	Expense CategoryType = "expense"
	Income  CategoryType = "income"

	Simple   OperationType = "simple"
	Transfer OperationType = "transfer"

	Weekly    Frequency = "weekly"
	BiWeekly  Frequency = "biweekly"
	Monthly   Frequency = "monthly"
	BiMonthly Frequency = "bimonthly"
	Yearly    Frequency = "yearly"
)

type (
	AccountType   string
	CategoryType  string
	OperationType string
	Frequency     string

	User struct {
		ID         int64
		Name       string `validate:"required,max=100"`
		Email      string `validate:"required,email,max=254"`
		IsEnabled  bool
		DateFormat string
		TimeZone   string `validate:"omitempty,timezone"`
	}

	// Account is a wallet. Debit accounts hold assets (cash, checking),
	// Credit accounts hold liabilities (cards, loans).
	Account struct {
		ID          int64
		UserID      int64
		Name        string
		Description string
		Type        AccountType
		Balance     decimal.Decimal
		IsEnabled   bool
		Version     int64
	}

	Category struct {
		ID            int64
		UserID        int64
		Name          string
		Type          CategoryType
		IsEnabled     bool
		SubCategories []SubCategory
	}

	// SubCategory inherits type and owner from its parent category.
	SubCategory struct {
		ID         int64
		CategoryID int64
		Name       string
		IsEnabled  bool
	}

	Vendor struct {
		ID        int64
		UserID    int64
		Name      string
		IsEnabled bool
	}

	// Allocation is one category/subcategory bucket of an operation total.
	Allocation struct {
		CategoryID    int64
		SubCategoryID int64
		Amount        decimal.Decimal
		Order         int
	}

	Operation struct {
		ID                   int64
		UserID               int64
		Date                 time.Time
		Title                string
		Type                 OperationType
		VendorID             *int64
		AccountID            int64
		DestinationAccountID *int64
		TotalAmount          decimal.Decimal
		CategoryType         CategoryType
		Comments             string
		Allocation           []Allocation
	}

	// Template is an operation blueprint without date and comments.
	Template struct {
		ID                   int64
		UserID               int64
		Title                string
		Type                 OperationType
		VendorID             *int64
		AccountID            int64
		DestinationAccountID *int64
		TotalAmount          decimal.Decimal
		CategoryType         CategoryType
		Allocation           []Allocation
		IsEnabled            bool
	}

	Bill struct {
		ID               int64
		UserID           int64
		Name             string
		TemplateID       int64
		PaymentFrequency Frequency
		NextDueDate      time.Time
		NextDueAmount    decimal.Decimal
		LastPaidDate     *time.Time
		LastPaidAmount   decimal.Decimal
		PaymentDay       int // day of month, or ISO weekday for weekly/biweekly
		PaymentMonth     *int
		IsEnabled        bool
	}

	BudgetCategory struct {
		CategoryID int64
		Amount     decimal.Decimal
	}

	Budget struct {
		ID         int64
		UserID     int64
		Name       string
		Amount     decimal.Decimal
		StartDate  time.Time
		EndDate    time.Time
		Frequency  Frequency
		Categories []BudgetCategory
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyTitle        = errors.New("empty title")
	ErrNameTooLong       = errors.New("name too long (max 100 characters)")
	ErrCommentsTooLong   = errors.New("comments too long (max 500 characters)")
	ErrInvalidAccountRef = errors.New("account not identified")
	ErrAmountPrecision   = errors.New("amounts cannot have more than 2 decimal places")
)

func (t AccountType) Valid() bool   { return t == Debit || t == Credit }
func (t CategoryType) Valid() bool  { return t == Expense || t == Income }
func (t OperationType) Valid() bool { return t == Simple || t == Transfer }

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, BiWeekly, Monthly, BiMonthly, Yearly:
		return true
	}
	return false
}

// Sum returns the total of all allocation amounts.
func Sum(allocation []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocation {
		total = total.Add(a.Amount)
	}
	return total
}

// CloneAllocation returns a copy with Order renumbered from zero.
func CloneAllocation(in []Allocation) []Allocation {
	if in == nil {
		return nil
	}
	out := make([]Allocation, len(in))
	for i, a := range in {
		a.Order = i
		out[i] = a
	}
	return out
}

// Validate performs the coarse field checks that run before domain rules.
func (o Operation) Validate() error {
	if o.UserID <= 0 {
		return errors.New("user not identified")
	}
	if strings.TrimSpace(o.Title) == "" {
		return ErrEmptyTitle
	}
	if len(o.Title) > 100 {
		return errors.New("title too long (max 100 characters)")
	}
	if len(o.Comments) > 500 {
		return ErrCommentsTooLong
	}
	if o.AccountID <= 0 {
		return ErrInvalidAccountRef
	}
	if !o.Type.Valid() {
		return errors.New("invalid operation type")
	}
	if o.TotalAmount.IsZero() {
		return errors.New("total amount must be different than 0")
	}
	if err := checkPrecision(o.TotalAmount, o.Allocation); err != nil {
		return err
	}
	if o.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (t Template) Validate() error {
	if t.UserID <= 0 {
		return errors.New("user not identified")
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if len(t.Title) > 100 {
		return errors.New("title too long (max 100 characters)")
	}
	if t.AccountID <= 0 {
		return ErrInvalidAccountRef
	}
	if !t.Type.Valid() {
		return errors.New("invalid operation type")
	}
	if !t.TotalAmount.IsPositive() {
		return errors.New("total amount must be greater than 0")
	}
	return checkPrecision(t.TotalAmount, t.Allocation)
}

func checkPrecision(total decimal.Decimal, allocation []Allocation) error {
	if !HasCurrencyPrecision(total) {
		return ErrAmountPrecision
	}
	for _, a := range allocation {
		if !HasCurrencyPrecision(a.Amount) {
			return ErrAmountPrecision
		}
	}
	return nil
}

func (a Account) Validate() error {
	if err := validateName(a.Name); err != nil {
		return err
	}
	if len(a.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	if !a.Type.Valid() {
		return errors.New("invalid account type")
	}
	return nil
}

func (c Category) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	if !c.Type.Valid() {
		return errors.New("invalid category type")
	}
	for _, s := range c.SubCategories {
		if err := validateName(s.Name); err != nil {
			return errors.New("invalid subcategory: " + err.Error())
		}
	}
	return nil
}

func (b Bill) Validate() error {
	if err := validateName(b.Name); err != nil {
		return err
	}
	if b.TemplateID <= 0 {
		return errors.New("template ID must be greater than 0")
	}
	if !b.PaymentFrequency.Valid() {
		return errors.New("invalid payment frequency")
	}
	if b.NextDueAmount.IsNegative() {
		return errors.New("next due amount must be non-negative")
	}
	switch b.PaymentFrequency {
	case Weekly, BiWeekly:
		if b.PaymentDay < 1 || b.PaymentDay > 7 {
			return errors.New("payment day must be between 1 and 7 for weekly and biweekly payments")
		}
	default:
		if b.PaymentDay < 1 || b.PaymentDay > 31 {
			return errors.New("payment day must be between 1 and 31")
		}
	}
	if b.PaymentFrequency == Yearly && (b.PaymentMonth == nil || *b.PaymentMonth < 1 || *b.PaymentMonth > 12) {
		return errors.New("payment month must be between 1 and 12 for yearly payments")
	}
	return nil
}

func (b Budget) Validate() error {
	if err := validateName(b.Name); err != nil {
		return err
	}
	if !b.Amount.IsPositive() {
		return errors.New("amount must be greater than zero")
	}
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return errors.New("start and end dates are required")
	}
	if b.StartDate.After(b.EndDate) {
		return errors.New("start date must be before or equal to end date")
	}
	if len(b.Categories) == 0 {
		return errors.New("at least one budget category is required")
	}
	for _, c := range b.Categories {
		if c.CategoryID <= 0 {
			return errors.New("category ID must be greater than 0")
		}
		if !c.Amount.IsPositive() {
			return errors.New("category amount must be greater than 0")
		}
	}
	return nil
}

// Covers reports whether d falls inside the budget window, inclusive.
func (b Budget) Covers(d time.Time) bool {
	d = DateOnly(d)
	return !d.Before(DateOnly(b.StartDate)) && !d.After(DateOnly(b.EndDate))
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return ErrNameTooLong
	}
	return nil
}
