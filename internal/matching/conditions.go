package matching

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Operators.
const (
	OpEquals     = "equals"
	OpContains   = "contains"
	OpStartsWith = "starts_with"
)

// Fields a condition can test.
const (
	FieldCounterpartName = "counterpart_name"
	FieldCounterpartIBAN = "counterpart_iban"
	FieldPurpose         = "purpose"
	FieldBookingText     = "booking_text"
	FieldCurrency        = "currency"
	FieldAmount          = "amount"
	FieldAmountCents     = "amount_cents"
)

var knownFields = map[string]bool{
	FieldCounterpartName: true,
	FieldCounterpartIBAN: true,
	FieldPurpose:         true,
	FieldBookingText:     true,
	FieldCurrency:        true,
	FieldAmount:          true,
	FieldAmountCents:     true,
}

// Condition tests one transaction field.
type Condition struct {
	Field    string `json:"field" validate:"required"`
	Operator string `json:"operator" validate:"required,oneof=equals contains starts_with"`
	Value    string `json:"value"`
}

// Validate rejects unknown fields and operators.
func (c Condition) Validate() error {
	if !knownFields[c.Field] {
		return fmt.Errorf("condition: unknown field %q", c.Field)
	}
	switch c.Operator {
	case OpEquals, OpContains, OpStartsWith:
	default:
		return fmt.Errorf("condition: unknown operator %q", c.Operator)
	}
	return nil
}

// Matches evaluates the condition case-insensitively. Unknown fields or
// operators never match.
func (c Condition) Matches(tx Transaction) bool {
	value, ok := tx.field(c.Field)
	if !ok {
		return false
	}
	value = strings.ToLower(value)
	want := strings.ToLower(c.Value)
	switch c.Operator {
	case OpEquals:
		return value == want
	case OpContains:
		return strings.Contains(value, want)
	case OpStartsWith:
		return strings.HasPrefix(value, want)
	}
	return false
}

// EncodeConditions serializes conditions for storage.
func EncodeConditions(conds []Condition) (string, error) {
	if conds == nil {
		conds = []Condition{}
	}
	b, err := json.Marshal(conds)
	if err != nil {
		return "", fmt.Errorf("encode conditions: %w", err)
	}
	return string(b), nil
}

// DecodeConditions parses stored conditions.
func DecodeConditions(raw string) ([]Condition, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var conds []Condition
	if err := json.Unmarshal([]byte(raw), &conds); err != nil {
		return nil, fmt.Errorf("decode conditions: %w", err)
	}
	return conds, nil
}

func (tx Transaction) field(name string) (string, bool) {
	switch name {
	case FieldCounterpartName:
		return tx.CounterpartName, true
	case FieldCounterpartIBAN:
		return tx.CounterpartIBAN, true
	case FieldPurpose:
		return tx.Purpose, true
	case FieldBookingText:
		return tx.BookingText, true
	case FieldCurrency:
		return tx.Currency, true
	case FieldAmount:
		return decimal.New(tx.AmountCents, -2).StringFixed(2), true
	case FieldAmountCents:
		return strconv.FormatInt(tx.AmountCents, 10), true
	}
	return "", false
}
