// Package discount resolves discount codes to pricing policies. Resolution
// never fails: codes that do not match any pattern, or that carry a malformed
// numeric suffix, simply resolve to no policy and the caller charges the
// undiscounted subtotal.
package discount

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/quickbasket/orderflow/internal/orders"
)

// Policy adjusts an order subtotal. Items give quantity/price context to
// policies that need more than a scalar subtotal.
type Policy interface {
	Kind() string
	Apply(subtotal decimal.Decimal, items []orders.LineItem) decimal.Decimal
}

// Resolve maps a code to a Policy. The boolean is false when no discount
// applies; callers then use the subtotal unchanged.
func Resolve(code string) (Policy, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	switch {
	case code == "":
		return nil, false
	case code == "TENOFF":
		return TenPercentOff{}, true
	case code == "10PERCENT":
		return PercentageDiscount{Percent: decimal.NewFromInt(10)}, true
	case strings.HasPrefix(code, "PERCENT"):
		n, err := parseAmount(code[len("PERCENT"):])
		if err != nil {
			return nil, false
		}
		return PercentageDiscount{Percent: n}, true
	case strings.HasPrefix(code, "FLAT"):
		n, err := parseAmount(code[len("FLAT"):])
		if err != nil {
			return nil, false
		}
		return FlatDiscount{Amount: n}, true
	case strings.HasPrefix(code, "BUY") && strings.Contains(code, "GET"):
		rest := code[len("BUY"):]
		idx := strings.Index(rest, "GET")
		x, errX := strconv.Atoi(rest[:idx])
		y, errY := strconv.Atoi(rest[idx+len("GET"):])
		if errX != nil || errY != nil || x <= 0 || y <= 0 {
			return nil, false
		}
		return BuyXGetYDiscount{BuyX: x, GetY: y, DiscountPercent: decimal.NewFromInt(100)}, true
	default:
		return nil, false
	}
}

func parseAmount(s string) (decimal.Decimal, error) {
	n, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if n.IsNegative() {
		return decimal.Zero, strconv.ErrRange
	}
	return n, nil
}

// TenPercentOff is the fixed ten-percent promotion.
type TenPercentOff struct{}

func (TenPercentOff) Kind() string { return "ten_percent_off" }

func (TenPercentOff) Apply(subtotal decimal.Decimal, _ []orders.LineItem) decimal.Decimal {
	return subtotal.Mul(decimal.NewFromFloat(0.9))
}

// PercentageDiscount takes Percent off the subtotal, never below zero.
type PercentageDiscount struct {
	Percent decimal.Decimal
}

func (PercentageDiscount) Kind() string { return "percentage" }

func (p PercentageDiscount) Apply(subtotal decimal.Decimal, _ []orders.LineItem) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(p.Percent.Div(decimal.NewFromInt(100)))
	out := subtotal.Mul(factor)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// FlatDiscount subtracts a fixed amount, floored at zero.
type FlatDiscount struct {
	Amount decimal.Decimal
}

func (FlatDiscount) Kind() string { return "flat" }

func (f FlatDiscount) Apply(subtotal decimal.Decimal, _ []orders.LineItem) decimal.Decimal {
	out := subtotal.Sub(f.Amount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// BuyXGetYDiscount discounts the cheapest Y units in every group of X+Y
// units purchased, scaled by DiscountPercent.
type BuyXGetYDiscount struct {
	BuyX            int
	GetY            int
	DiscountPercent decimal.Decimal
}

func (BuyXGetYDiscount) Kind() string { return "buy_x_get_y" }

func (b BuyXGetYDiscount) Apply(subtotal decimal.Decimal, items []orders.LineItem) decimal.Decimal {
	if len(items) == 0 {
		return subtotal
	}

	var units []decimal.Decimal
	for _, it := range items {
		price := decimal.NewFromFloat(it.UnitPrice)
		for i := 0; i < it.Quantity; i++ {
			units = append(units, price)
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].LessThan(units[j]) })

	free := (len(units) / (b.BuyX + b.GetY)) * b.GetY
	if free > len(units) {
		free = len(units)
	}

	off := decimal.Zero
	for i := 0; i < free; i++ {
		off = off.Add(units[i])
	}
	off = off.Mul(b.DiscountPercent).Div(decimal.NewFromInt(100))

	out := subtotal.Sub(off)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}
