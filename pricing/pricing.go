// Package pricing computes order totals. It is pure: no I/O, no clock, no
// randomness, so the same cart always prices to the same cent.
package pricing

import "github.com/shopspring/decimal"

// Flat shipping fees by method. Orders over the free-shipping threshold
// (pre-discount subtotal, exclusive boundary) ship free regardless of method.
var (
	freeShippingThreshold = decimal.NewFromInt(10000)

	shippingFees = map[string]decimal.Decimal{
		MethodStandard:  decimal.NewFromInt(150),
		MethodExpress:   decimal.NewFromInt(250),
		MethodOvernight: decimal.NewFromInt(500),
	}

	taxRate = decimal.New(8, -2) // 8% on the post-discount subtotal
)

const (
	MethodStandard  = "standard"
	MethodExpress   = "express"
	MethodOvernight = "overnight"
)

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
}

// Calculate prices a cart. Every component is rounded to cents before the
// total is formed, so Total == Subtotal - Discount + Shipping + Tax holds
// exactly. An unknown shipping method prices as standard.
func Calculate(lines []Line, discountRate decimal.Decimal, shippingMethod string) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = subtotal.Round(2)

	discount := subtotal.Mul(discountRate).Round(2)

	shipping := decimal.Zero
	if !subtotal.GreaterThan(freeShippingThreshold) {
		fee, ok := shippingFees[shippingMethod]
		if !ok {
			fee = shippingFees[MethodStandard]
		}
		shipping = fee
	}

	tax := subtotal.Sub(discount).Mul(taxRate).Round(2)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		ShippingAmount: shipping,
		TaxAmount:      tax,
		TotalAmount:    subtotal.Sub(discount).Add(shipping).Add(tax),
	}
}
