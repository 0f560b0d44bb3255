package entities

import (
	"errors"
	"fmt"
	"math"
)

// MaxQuantity bounds line and batch quantities to the ledger's INTEGER columns
const MaxQuantity = math.MaxInt32

// ErrMoneyOverflow reports an amount that does not fit in Money
var ErrMoneyOverflow = errors.New("amount overflows")

// Money is an amount in minor currency units (paise, cents). Integer units
// keep bill totals exactly equal to the sum of their lines.
type Money int64

// MoneyFromMajor converts a major-unit amount such as 49.99 to Money
func MoneyFromMajor(amount float64) Money {
	return Money(math.Round(amount * 100))
}

// Times multiplies a unit price by a quantity
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// CheckedTimes is Times that reports false instead of wrapping
func (m Money) CheckedTimes(qty int) (Money, bool) {
	if m == 0 || qty == 0 {
		return 0, true
	}
	if m == math.MinInt64 && qty == -1 {
		return 0, false
	}
	p := m * Money(qty)
	if p/Money(qty) != m {
		return 0, false
	}
	return p, true
}

// CheckedAdd is m + o that reports false instead of wrapping
func (m Money) CheckedAdd(o Money) (Money, bool) {
	sum := m + o
	if (o > 0 && sum < m) || (o < 0 && sum > m) {
		return 0, false
	}
	return sum, true
}

// String renders the amount with two decimals
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
