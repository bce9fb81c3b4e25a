package documents

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Amounts is the monetary breakdown printed on a document.
type Amounts struct {
	Subtotal  decimal.Decimal
	VATRate   decimal.Decimal
	VATAmount decimal.Decimal
	Total     decimal.Decimal
}

// roundHalfUp rounds to two decimal places, half away from zero, matching
// tax-authority rounding for THB amounts.
func roundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PlainAmounts is the quotation/receipt breakdown: no VAT extraction, the
// total stands as the subtotal.
func PlainAmounts(total decimal.Decimal) Amounts {
	return Amounts{
		Subtotal:  total,
		VATRate:   decimal.Zero,
		VATAmount: decimal.Zero,
		Total:     total,
	}
}

// VATInclusiveAmounts splits a VAT-inclusive total into subtotal and VAT.
// The subtotal is rounded half-up to 2 decimals and the VAT amount is the
// exact remainder, so the two always add back to the total.
func VATInclusiveAmounts(total, vatRate decimal.Decimal) Amounts {
	divisor := decimal.NewFromInt(1).Add(vatRate.Div(hundred))
	subtotal := roundHalfUp(total.Div(divisor))
	return Amounts{
		Subtotal:  subtotal,
		VATRate:   vatRate,
		VATAmount: total.Sub(subtotal),
		Total:     total,
	}
}

// UnitPrice derives the single line's unit price from the subtotal, with a
// quantity floor of 1 to avoid division by zero.
func UnitPrice(subtotal decimal.Decimal, quantity int) decimal.Decimal {
	if quantity < 1 {
		quantity = 1
	}
	return roundHalfUp(subtotal.Div(decimal.NewFromInt(int64(quantity))))
}
