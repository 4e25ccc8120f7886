package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculate_ExampleScenario(t *testing.T) {
	// One 15000 watch, standard shipping, no discount: over the free-shipping
	// threshold, 8% tax on the full subtotal.
	totals := Calculate([]Line{{UnitPrice: d("15000"), Quantity: 1}}, decimal.Zero, MethodStandard)

	if !totals.Subtotal.Equal(d("15000")) {
		t.Errorf("Expected subtotal 15000, got %s", totals.Subtotal)
	}
	if !totals.ShippingAmount.Equal(decimal.Zero) {
		t.Errorf("Expected free shipping, got %s", totals.ShippingAmount)
	}
	if !totals.TaxAmount.Equal(d("1200")) {
		t.Errorf("Expected tax 1200, got %s", totals.TaxAmount)
	}
	if !totals.TotalAmount.Equal(d("16200")) {
		t.Errorf("Expected total 16200, got %s", totals.TotalAmount)
	}
}

func TestCalculate_FreeShippingBoundary(t *testing.T) {
	// The threshold is exclusive: exactly 10000 still pays the flat fee.
	atThreshold := Calculate([]Line{{UnitPrice: d("10000.00"), Quantity: 1}}, decimal.Zero, MethodExpress)
	if !atThreshold.ShippingAmount.Equal(d("250")) {
		t.Errorf("Expected express fee 250 at threshold, got %s", atThreshold.ShippingAmount)
	}

	overThreshold := Calculate([]Line{{UnitPrice: d("10000.01"), Quantity: 1}}, decimal.Zero, MethodExpress)
	if !overThreshold.ShippingAmount.Equal(decimal.Zero) {
		t.Errorf("Expected free shipping over threshold, got %s", overThreshold.ShippingAmount)
	}
}

func TestCalculate_ShippingFees(t *testing.T) {
	tests := []struct {
		method string
		fee    string
	}{
		{MethodStandard, "150"},
		{MethodExpress, "250"},
		{MethodOvernight, "500"},
		{"", "150"}, // unknown methods price as standard
	}

	for _, tt := range tests {
		totals := Calculate([]Line{{UnitPrice: d("100"), Quantity: 1}}, decimal.Zero, tt.method)
		if !totals.ShippingAmount.Equal(d(tt.fee)) {
			t.Errorf("Method %q: expected shipping %s, got %s", tt.method, tt.fee, totals.ShippingAmount)
		}
	}
}

func TestCalculate_Discount(t *testing.T) {
	// 10% off 1000: discount 100, tax on the discounted 900, threshold check
	// still uses the pre-discount subtotal.
	totals := Calculate([]Line{{UnitPrice: d("500"), Quantity: 2}}, d("0.10"), MethodStandard)

	if !totals.DiscountAmount.Equal(d("100")) {
		t.Errorf("Expected discount 100, got %s", totals.DiscountAmount)
	}
	if !totals.TaxAmount.Equal(d("72")) {
		t.Errorf("Expected tax 72, got %s", totals.TaxAmount)
	}
	if !totals.TotalAmount.Equal(d("1122")) {
		t.Errorf("Expected total 1122, got %s", totals.TotalAmount)
	}
}

func TestCalculate_TotalIdentity(t *testing.T) {
	carts := []struct {
		name     string
		lines    []Line
		rate     decimal.Decimal
		method   string
	}{
		{"single line", []Line{{d("1234.56"), 1}}, decimal.Zero, MethodStandard},
		{"multi line", []Line{{d("99.99"), 3}, {d("4500"), 2}, {d("0.01"), 7}}, decimal.Zero, MethodOvernight},
		{"discounted", []Line{{d("333.33"), 3}}, d("0.15"), MethodExpress},
		{"over threshold discounted", []Line{{d("20000"), 1}}, d("0.05"), MethodStandard},
	}

	for _, tt := range carts {
		totals := Calculate(tt.lines, tt.rate, tt.method)

		want := totals.Subtotal.Sub(totals.DiscountAmount).Add(totals.ShippingAmount).Add(totals.TaxAmount)
		if !totals.TotalAmount.Equal(want) {
			t.Errorf("%s: total %s does not equal subtotal - discount + shipping + tax = %s",
				tt.name, totals.TotalAmount, want)
		}

		subtotal := decimal.Zero
		for _, l := range tt.lines {
			subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
		if !totals.Subtotal.Equal(subtotal.Round(2)) {
			t.Errorf("%s: subtotal %s does not equal sum of lines %s", tt.name, totals.Subtotal, subtotal)
		}
	}
}

func TestCalculate_EmptyCart(t *testing.T) {
	totals := Calculate(nil, decimal.Zero, MethodStandard)
	if !totals.Subtotal.Equal(decimal.Zero) {
		t.Errorf("Expected zero subtotal for empty cart, got %s", totals.Subtotal)
	}
	// An empty cart is rejected before pricing in the checkout flow; here it
	// just prices to the flat fee plus nothing.
	if !totals.TotalAmount.Equal(d("150")) {
		t.Errorf("Expected total 150 for empty cart, got %s", totals.TotalAmount)
	}
}
