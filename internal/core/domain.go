package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO-8601 calendar date layout accepted and echoed by the API.
const DateLayout = "2006-01-02"

// Amounts carry at most MaxAmountScale decimal places and stay below
// 10^MaxAmountIntegerDigits.
const (
	MaxAmountScale         = 10
	MaxAmountIntegerDigits = 15
)

var maxAmount = decimal.New(1, MaxAmountIntegerDigits)

const (
	TypeExpense TransactionType = "expense"
	TypeIncome  TransactionType = "income"
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	// DateRange is the caller supplied period. It is echoed back and never
	// used to filter transactions.
	DateRange struct {
		Start Date
		End   Date
	}

	Transaction struct {
		Category string
		Type     string
		Amount   decimal.Decimal
	}

	ChartRequest struct {
		Transactions []Transaction
		Period       DateRange
	}
)

var (
	ErrMissingField      = errors.New("missing field")
	ErrNonPositiveAmount = errors.New("amount must be > 0")
	ErrAmountOutOfRange  = fmt.Errorf("amount out of range (max %d integer digits, %d decimal places)", MaxAmountIntegerDigits, MaxAmountScale)
	ErrInvalidDate       = errors.New("invalid date")
	ErrUnrecognizedType  = errors.New("unrecognized type")
	ErrFieldTooLong      = errors.New("too long (max 100 characters)")
	ErrMalformedBody     = errors.New("malformed request body")
	ErrInvalidValue      = errors.New("invalid value")
)

// ValidationError reports the offending field of a rejected payload.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String formats the date back to ISO-8601.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// Kind classifies the transaction. Anything that is not an expense counts
// as income.
func (t Transaction) Kind() TransactionType {
	if t.IsExpense() {
		return TypeExpense
	}
	return TypeIncome
}

func (t Transaction) IsExpense() bool {
	return strings.EqualFold(t.Type, string(TypeExpense))
}

// HasKnownType reports whether the type is one of expense or income.
func (t Transaction) HasKnownType() bool {
	return t.IsExpense() || strings.EqualFold(t.Type, string(TypeIncome))
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Category) == "" {
		return invalid("category", ErrMissingField)
	}
	if len([]rune(t.Category)) > 100 {
		return invalid("category", ErrFieldTooLong)
	}
	if strings.TrimSpace(t.Type) == "" {
		return invalid("type", ErrMissingField)
	}
	if !t.Amount.IsPositive() {
		return invalid("value", ErrNonPositiveAmount)
	}
	return validateAmountRange(t.Amount)
}

// validateAmountRange checks the exponent before comparing so that
// extreme exponents are rejected without rescaling.
func validateAmountRange(d decimal.Decimal) error {
	exp := d.Exponent()
	if exp < -MaxAmountScale || exp >= MaxAmountIntegerDigits {
		return invalid("value", ErrAmountOutOfRange)
	}
	if d.Cmp(maxAmount) >= 0 {
		return invalid("value", ErrAmountOutOfRange)
	}
	return nil
}
