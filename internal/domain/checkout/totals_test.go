package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type CalculatorSuite struct {
	suite.Suite
	calc *Calculator
}

func TestCalculator(t *testing.T) {
	suite.Run(t, new(CalculatorSuite))
}

func (s *CalculatorSuite) SetupTest() {
	s.calc = NewCalculator(decimal.RequireFromString("0.06"))
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func (s *CalculatorSuite) TestNoDiscount() {
	items := []LineItem{
		{ProductID: "candle-lavender", Price: d("25.00"), Quantity: 2},
		{ProductID: "candle-cedar", Price: d("50.00"), Quantity: 1},
	}

	got := s.calc.Compute(items, d("5.99"), decimal.Zero)

	s.True(got.Subtotal.Equal(d("100.00")))
	s.True(got.TaxableAmount.Equal(d("100.00")))
	s.True(got.Tax.Equal(d("6.00")))
	s.True(got.Total.Equal(d("111.99")), "total %s", got.Total)
	s.Equal(int64(3), got.ItemCount)
}

func (s *CalculatorSuite) TestDiscountReducesTaxBase() {
	items := []LineItem{{ProductID: "p1", Price: d("50.00"), Quantity: 1}}

	got := s.calc.Compute(items, d("4.00"), d("5.00"))

	s.True(got.TaxableAmount.Equal(d("45.00")))
	s.True(got.Tax.Equal(d("2.70")))
	s.True(got.Total.Equal(d("51.70")))
}

func (s *CalculatorSuite) TestTaxRoundsHalfAwayFromZero() {
	// 0.75 * 0.06 = 0.045
	items := []LineItem{{ProductID: "p1", Price: d("0.75"), Quantity: 1}}

	got := s.calc.Compute(items, decimal.Zero, decimal.Zero)

	s.True(got.Tax.Equal(d("0.05")), "tax %s", got.Tax)
}

func (s *CalculatorSuite) TestTotalClampsAtZero() {
	items := []LineItem{{ProductID: "p1", Price: d("3.00"), Quantity: 1}}

	got := s.calc.Compute(items, d("1.00"), d("20.00"))

	s.True(got.TaxableAmount.IsZero())
	s.True(got.Tax.IsZero())
	s.True(got.Total.IsZero())
}

func (s *CalculatorSuite) TestEmptyCart() {
	got := s.calc.Compute(nil, d("5.99"), decimal.Zero)

	s.True(got.Subtotal.IsZero())
	s.True(got.Total.Equal(d("5.99")))
	s.Equal(int64(0), got.ItemCount)
}

func TestCompute_TotalNeverNegative(t *testing.T) {
	calc := NewCalculator(d("0.06"))
	amounts := []string{"0", "0.01", "3", "9.99", "100", "2500.50"}

	for _, sub := range amounts {
		for _, ship := range amounts {
			for _, disc := range amounts {
				items := []LineItem{{ProductID: "p", Price: d(sub), Quantity: 1}}
				got := calc.Compute(items, d(ship), d(disc))
				assert.False(t, got.Total.IsNegative(), "sub=%s ship=%s disc=%s", sub, ship, disc)
				assert.False(t, got.TaxableAmount.IsNegative())
			}
		}
	}
}
