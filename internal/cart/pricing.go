package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Pricing recomputes cart totals from lines. The tax rate is injected from
// configuration so deployments can carry jurisdiction-specific rates.
type Pricing struct {
	taxRate decimal.Decimal
}

// NewPricing parses the configured decimal tax rate ("0.08" means 8%).
func NewPricing(rate string) (*Pricing, error) {
	parsed, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("parsing tax rate %q: %w", rate, err)
	}
	if parsed.IsNegative() {
		return nil, fmt.Errorf("tax rate must be non-negative, got %s", rate)
	}
	return &Pricing{taxRate: parsed}, nil
}

// Totals derives subtotal, tax, and total cents from the line set. Totals are
// never stored independently of lines; callers persist exactly these values.
func (p *Pricing) Totals(lines []Line) (subtotal, tax, total int) {
	for _, line := range lines {
		subtotal += line.LineTotalCents
	}
	tax = int(decimal.NewFromInt(int64(subtotal)).Mul(p.taxRate).Round(0).IntPart())
	total = subtotal + tax
	return subtotal, tax, total
}
