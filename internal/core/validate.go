package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionPayload is one raw item of the "data" list.
type TransactionPayload struct {
	Category string           `json:"category"`
	Type     string           `json:"type"`
	Value    *decimal.Decimal `json:"value"`
}

// ChartPayload is the raw generate-chart request body.
type ChartPayload struct {
	Data      []TransactionPayload `json:"data"`
	StartDate *string              `json:"start_date"`
	EndDate   *string              `json:"end_date"`
}

// Validator turns a raw payload into a ChartRequest.
//
// With StrictTypes unset any type other than "expense" is accepted and later
// counted as income. With StrictTypes set, only "expense" and "income" pass.
type Validator struct {
	StrictTypes bool
}

// Validate checks the payload and returns the first offending field as a
// *ValidationError.
func (v Validator) Validate(p ChartPayload) (ChartRequest, error) {
	if p.Data == nil {
		return ChartRequest{}, invalid("data", ErrMissingField)
	}

	txs := make([]Transaction, 0, len(p.Data))
	for i, raw := range p.Data {
		tx, err := v.transaction(raw)
		if err != nil {
			if ve, ok := err.(*ValidationError); ok {
				ve.Field = fmt.Sprintf("data[%d].%s", i, ve.Field)
			}
			return ChartRequest{}, err
		}
		txs = append(txs, tx)
	}

	start, err := dateField("start_date", p.StartDate)
	if err != nil {
		return ChartRequest{}, err
	}
	end, err := dateField("end_date", p.EndDate)
	if err != nil {
		return ChartRequest{}, err
	}

	return ChartRequest{
		Transactions: txs,
		Period:       DateRange{Start: start, End: end},
	}, nil
}

func (v Validator) transaction(raw TransactionPayload) (Transaction, error) {
	if raw.Value == nil {
		return Transaction{}, invalid("value", ErrMissingField)
	}
	tx := Transaction{
		Category: sanitizeInput(raw.Category),
		Type:     sanitizeInput(raw.Type),
		Amount:   *raw.Value,
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	if v.StrictTypes && !tx.HasKnownType() {
		return Transaction{}, invalid("type", ErrUnrecognizedType)
	}
	return tx, nil
}

func dateField(name string, raw *string) (Date, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return Date{}, invalid(name, ErrMissingField)
	}
	d, err := ParseDate(*raw)
	if err != nil {
		return Date{}, invalid(name, err)
	}
	return d, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
