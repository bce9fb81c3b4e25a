package db

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// NumericToDecimal converts a scanned pgtype.Numeric into a decimal.Decimal.
// NULL maps to zero.
func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

// NumericToDecimalPtr converts a nullable numeric, returning nil for NULL.
func NumericToDecimalPtr(n pgtype.Numeric) *decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return nil
	}
	d := decimal.NewFromBigInt(n.Int, n.Exp)
	return &d
}

// DecimalToNumeric converts a decimal.Decimal into a pgtype.Numeric for binding.
func DecimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

// DecimalPtrToNumeric converts an optional decimal, nil binding as NULL.
func DecimalPtrToNumeric(d *decimal.Decimal) pgtype.Numeric {
	if d == nil {
		return pgtype.Numeric{}
	}
	return DecimalToNumeric(*d)
}

// ScanDecimal scans an arbitrary numeric driver value into a decimal.
// Used by in-memory fakes and row mappers that receive interface values.
func ScanDecimal(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case pgtype.Numeric:
		return NumericToDecimal(val), nil
	case string:
		return decimal.NewFromString(val)
	case float64:
		return decimal.NewFromFloat(val), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case nil:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("platform/db: cannot scan %T into decimal", v)
	}
}
