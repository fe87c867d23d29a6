package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cop(t *testing.T, amount string) Money {
	t.Helper()
	m, err := NewMoneyCOPFromString(amount)
	require.NoError(t, err)
	return m
}

func TestNewMoney(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		m, err := NewMoney(decimal.RequireFromString("1500.50"), COP)
		require.NoError(t, err)
		assert.Equal(t, COP, m.Currency())
		assert.Equal(t, "1500.5", m.Amount().String())
	})

	t.Run("empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.Zero, "")
		assert.Error(t, err)
	})

	t.Run("from string", func(t *testing.T) {
		m, err := NewMoneyFromString("42.99", USD)
		require.NoError(t, err)
		assert.Equal(t, USD, m.Currency())
		assert.Equal(t, "42.99", m.Amount().String())
	})

	t.Run("from invalid string", func(t *testing.T) {
		_, err := NewMoneyFromString("not-a-number", EUR)
		assert.Error(t, err)
	})

	t.Run("from float", func(t *testing.T) {
		m, err := NewMoneyFromFloat(19.99, USD)
		require.NoError(t, err)
		assert.Equal(t, "19.99", m.Amount().String())
	})
}

func TestMoneyCOPShortcuts(t *testing.T) {
	t.Run("from decimal", func(t *testing.T) {
		m := NewMoneyCOP(decimal.RequireFromString("100"))
		assert.Equal(t, COP, m.Currency())
	})

	t.Run("from string", func(t *testing.T) {
		m := cop(t, "2500.00")
		assert.Equal(t, COP, m.Currency())
		assert.Equal(t, "2500.00", m.StringFixed(2))
	})

	t.Run("from invalid string", func(t *testing.T) {
		_, err := NewMoneyCOPFromString("12,50")
		assert.Error(t, err)
	})

	t.Run("from float", func(t *testing.T) {
		m := NewMoneyCOPFromFloat(99.5)
		assert.Equal(t, COP, m.Currency())
		assert.Equal(t, "99.50", m.StringFixed(2))
	})

	t.Run("zero", func(t *testing.T) {
		assert.True(t, ZeroCOP().IsZero())
		assert.Equal(t, USD, Zero(USD).Currency())
	})
}

func TestMoneyPredicates(t *testing.T) {
	assert.True(t, cop(t, "0").IsZero())
	assert.True(t, cop(t, "10").IsPositive())
	assert.True(t, cop(t, "-10").IsNegative())
	assert.False(t, cop(t, "10").IsNegative())
	assert.False(t, cop(t, "-10").IsPositive())
}

func TestMoneyArithmetic(t *testing.T) {
	t.Run("add", func(t *testing.T) {
		sum, err := cop(t, "100.50").Add(cop(t, "49.50"))
		require.NoError(t, err)
		assert.Equal(t, "150.00", sum.StringFixed(2))
	})

	t.Run("add mixed currencies", func(t *testing.T) {
		usd, err := NewMoneyFromString("10", USD)
		require.NoError(t, err)
		_, err = cop(t, "10").Add(usd)
		assert.ErrorContains(t, err, "cannot add")
	})

	t.Run("subtract", func(t *testing.T) {
		diff, err := cop(t, "100").Subtract(cop(t, "30"))
		require.NoError(t, err)
		assert.Equal(t, "70.00", diff.StringFixed(2))
	})

	t.Run("subtract mixed currencies", func(t *testing.T) {
		eur, err := NewMoneyFromString("1", EUR)
		require.NoError(t, err)
		_, err = cop(t, "10").Subtract(eur)
		assert.ErrorContains(t, err, "cannot subtract")
	})

	t.Run("multiply", func(t *testing.T) {
		m := cop(t, "19.99").Multiply(decimal.NewFromInt(3))
		assert.Equal(t, "59.97", m.StringFixed(2))
	})

	t.Run("round", func(t *testing.T) {
		m := cop(t, "10.005").Round(2)
		assert.Equal(t, "10.01", m.StringFixed(2))
	})

	t.Run("operations do not mutate the receiver", func(t *testing.T) {
		m := cop(t, "10")
		_ = m.Multiply(decimal.NewFromInt(5))
		assert.Equal(t, "10.00", m.StringFixed(2))
	})
}

func TestMoneyComparison(t *testing.T) {
	t.Run("compare", func(t *testing.T) {
		c, err := cop(t, "5").Compare(cop(t, "10"))
		require.NoError(t, err)
		assert.Equal(t, -1, c)

		c, err = cop(t, "10").Compare(cop(t, "10"))
		require.NoError(t, err)
		assert.Equal(t, 0, c)

		c, err = cop(t, "15").Compare(cop(t, "10"))
		require.NoError(t, err)
		assert.Equal(t, 1, c)
	})

	t.Run("compare mixed currencies", func(t *testing.T) {
		usd, err := NewMoneyFromString("5", USD)
		require.NoError(t, err)
		_, err = cop(t, "5").Compare(usd)
		assert.ErrorContains(t, err, "cannot compare")
	})

	t.Run("less and greater", func(t *testing.T) {
		less, err := cop(t, "5").LessThan(cop(t, "10"))
		require.NoError(t, err)
		assert.True(t, less)

		greater, err := cop(t, "5").GreaterThan(cop(t, "10"))
		require.NoError(t, err)
		assert.False(t, greater)
	})

	t.Run("equals", func(t *testing.T) {
		assert.True(t, cop(t, "10").Equals(cop(t, "10.00")))
		assert.False(t, cop(t, "10").Equals(cop(t, "10.01")))

		usd, err := NewMoneyFromString("10", USD)
		require.NoError(t, err)
		assert.False(t, cop(t, "10").Equals(usd))
	})
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "1500.50 COP", cop(t, "1500.5").String())
	assert.Equal(t, "1500.500", cop(t, "1500.5").StringFixed(3))
}

func TestMoneyJSON(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		data, err := json.Marshal(cop(t, "2500.75"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"amount":"2500.75","currency":"COP"}`, string(data))

		var decoded Money
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.True(t, decoded.Equals(cop(t, "2500.75")))
	})

	t.Run("invalid amount", func(t *testing.T) {
		var m Money
		err := json.Unmarshal([]byte(`{"amount":"abc","currency":"COP"}`), &m)
		assert.Error(t, err)
	})
}

func TestMoneySQL(t *testing.T) {
	t.Run("value stores the bare amount", func(t *testing.T) {
		v, err := cop(t, "199.99").Value()
		require.NoError(t, err)
		assert.Equal(t, "199.99", v)
	})

	t.Run("scan string", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan("42.50"))
		assert.Equal(t, DefaultCurrency, m.Currency())
		assert.Equal(t, "42.50", m.StringFixed(2))
	})

	t.Run("scan bytes", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan([]byte("7.25")))
		assert.Equal(t, "7.25", m.StringFixed(2))
	})

	t.Run("scan nil resets to zero", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan(nil))
		assert.True(t, m.IsZero())
		assert.Equal(t, DefaultCurrency, m.Currency())
	})

	t.Run("scan preserves an existing currency", func(t *testing.T) {
		m, err := NewMoneyFromString("1", USD)
		require.NoError(t, err)
		require.NoError(t, m.Scan("2.00"))
		assert.Equal(t, USD, m.Currency())
	})

	t.Run("scan rejects unsupported types", func(t *testing.T) {
		var m Money
		assert.Error(t, m.Scan(123))
		assert.Error(t, m.Scan("not-a-decimal"))
	})
}
