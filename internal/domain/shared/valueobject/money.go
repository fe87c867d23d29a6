// Package valueobject holds immutable value types shared across domains.
package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 currency code.
type Currency string

const (
	COP Currency = "COP" // Colombian Peso
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
)

// DefaultCurrency applies wherever an amount arrives without a currency.
// Billing runs in Colombian pesos.
const DefaultCurrency = COP

// Money pairs an exact decimal amount with its currency. Values are
// immutable; every operation returns a new Money.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney builds a Money in the given currency.
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromString parses the amount from its decimal string form.
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// NewMoneyFromFloat converts a float64 amount. Prefer the string and
// decimal constructors where exactness matters.
func NewMoneyFromFloat(amount float64, currency Currency) (Money, error) {
	return NewMoney(decimal.NewFromFloat(amount), currency)
}

// NewMoneyCOP builds a peso amount.
func NewMoneyCOP(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: COP}
}

// NewMoneyCOPFromString parses a peso amount from its decimal string form.
func NewMoneyCOPFromString(amount string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoneyCOP(d), nil
}

// NewMoneyCOPFromFloat converts a float64 peso amount.
func NewMoneyCOPFromFloat(amount float64) Money {
	return NewMoneyCOP(decimal.NewFromFloat(amount))
}

// Zero returns a zero amount in the given currency.
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// ZeroCOP returns zero pesos.
func ZeroCOP() Money {
	return Zero(COP)
}

// Amount returns the decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency code.
func (m Money) Currency() Currency { return m.currency }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// IsNegative reports whether the amount is less than zero.
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// sameCurrency guards against mixed-currency arithmetic.
func (m Money) sameCurrency(op string, other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("cannot %s %s and %s amounts", op, m.currency, other.currency)
	}
	return nil
}

// Add returns the sum of both amounts. Currencies must match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency("add", other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns the difference of both amounts. Currencies must match.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency("subtract", other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Multiply scales the amount by the given factor.
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.currency}
}

// Round returns the amount rounded to the given decimal places.
func (m Money) Round(places int32) Money {
	return Money{amount: m.amount.Round(places), currency: m.currency}
}

// Compare orders two amounts of the same currency: -1 when m is smaller,
// 0 when equal, 1 when larger.
func (m Money) Compare(other Money) (int, error) {
	if err := m.sameCurrency("compare", other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

// Equals reports whether both values have the same currency and amount.
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// LessThan reports whether m is smaller than other. Currencies must match.
func (m Money) LessThan(other Money) (bool, error) {
	c, err := m.Compare(other)
	return c < 0, err
}

// GreaterThan reports whether m is larger than other. Currencies must match.
func (m Money) GreaterThan(other Money) (bool, error) {
	c, err := m.Compare(other)
	return c > 0, err
}

// String renders the amount with two decimals and the currency code.
func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + string(m.currency)
}

// StringFixed renders the bare amount with the given decimal places.
func (m Money) StringFixed(places int32) string {
	return m.amount.StringFixed(places)
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

// MarshalJSON renders the amount as a string to keep exactness on the wire.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.String(), Currency: m.currency})
}

// UnmarshalJSON parses the wire form produced by MarshalJSON.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	m.amount = amount
	m.currency = v.Currency
	return nil
}

// Value implements driver.Valuer. Only the amount is stored; the column's
// currency is fixed by the schema.
func (m Money) Value() (driver.Value, error) {
	return m.amount.String(), nil
}

// Scan implements sql.Scanner. The currency defaults to DefaultCurrency
// unless the receiver already carries one.
func (m *Money) Scan(value any) error {
	if value == nil {
		m.amount = decimal.Zero
		m.currency = DefaultCurrency
		return nil
	}

	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid decimal value: %w", err)
	}
	m.amount = amount
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	return nil
}
