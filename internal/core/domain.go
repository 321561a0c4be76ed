package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

const dateLayout = "2006-01-02"

type (
	Kind string

	Date struct {
		time.Time
	}

	// Transaction is a single income or expense record owned by one user.
	Transaction struct {
		ID          int64
		OwnerID     int64 // immutable after creation
		Kind        Kind
		Amount      decimal.Decimal
		Category    string
		OccurredOn  Date
		Description string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	User struct {
		ID             int64
		Name           string
		Email          string
		PasswordHash   string
		ProfilePicture string
		CreatedAt      time.Time
	}

	// Window is an inclusive date range used to filter transactions.
	Window struct {
		Start Date
		End   Date
	}
)

var (
	ErrValidation      = errors.New("validation error")
	ErrInvalidKind     = errors.New("kind must be income or expense")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyCategory   = errors.New("empty category")
	ErrMissingOwner    = errors.New("missing owner")
	ErrInvalidWindow   = errors.New("window start is after window end")
	ErrDescriptionLong = errors.New("description too long (max 500 characters)")
	ErrCategoryTooLong = errors.New("category too long (max 50 characters)")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrRequired        = errors.New("required")
)

// ValidationError reports a malformed record or window. It matches both
// ErrValidation and the underlying reason with errors.Is.
type ValidationError struct {
	ID    int64
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("transaction %d: %s: %v", e.ID, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// NewValidationError reports a problem with one input field.
func NewValidationError(field string, err error) error {
	return invalid(0, field, err)
}

func invalid(id int64, field string, err error) error {
	return &ValidationError{ID: id, Field: field, Err: err}
}

// ParseKind accepts "income" or "expense" in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

func (k Kind) Validate() error {
	switch k {
	case KindIncome, KindExpense:
		return nil
	default:
		return invalid(0, "kind", ErrInvalidKind)
	}
}

// Title returns the kind with an upper-case first letter ("Income").
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// FirstDate and LastDate bound an open-ended window. 0001-01-01 is the zero
// time and reads as unset, so the earliest usable date is the day after.
var (
	FirstDate = NewDate(1, 1, 2)
	LastDate  = NewDate(9999, 12, 31)
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts YYYY-MM-DD or an RFC3339 timestamp (a trailing Z is fine).
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, invalid(0, "date", ErrInvalidDate)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return invalid(0, "date", ErrInvalidDate)
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Before reports whether d is an earlier calendar date than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

// YearMonth returns the calendar month d falls in.
func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

// Validate checks the transaction invariants. Ownership is checked by the
// store, not here.
func (t Transaction) Validate() error {
	if err := t.Kind.Validate(); err != nil {
		return invalid(t.ID, "kind", ErrInvalidKind)
	}
	if !t.Amount.IsPositive() {
		return invalid(t.ID, "amount", ErrInvalidAmount)
	}
	category := strings.TrimSpace(t.Category)
	if category == "" {
		return invalid(t.ID, "category", ErrEmptyCategory)
	}
	if len(category) > 50 {
		return invalid(t.ID, "category", ErrCategoryTooLong)
	}
	if t.OccurredOn.IsZero() {
		return invalid(t.ID, "date", ErrInvalidDate)
	}
	if len(t.Description) > 500 {
		return invalid(t.ID, "description", ErrDescriptionLong)
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return invalid(0, "name", ErrEmptyName)
	}
	email := strings.TrimSpace(u.Email)
	if at := strings.Index(email, "@"); at < 1 || at == len(email)-1 {
		return invalid(0, "email", ErrInvalidEmail)
	}
	return nil
}

// NormalizeEmail trims and lower-cases an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewWindow builds a validated inclusive window.
func NewWindow(start, end Date) (Window, error) {
	w := Window{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return invalid(0, "window", ErrInvalidDate)
	}
	if w.End.Before(w.Start) {
		return invalid(0, "window", ErrInvalidWindow)
	}
	return nil
}

// Contains reports whether d lies within the window, bounds included.
func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start) && !w.End.Before(d)
}

func (w Window) String() string {
	return w.Start.String() + " to " + w.End.String()
}
