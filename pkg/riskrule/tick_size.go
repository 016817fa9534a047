package riskrule

import (
	"fmt"

	"github.com/joripage/miniexchange/pkg/orderbook"
	"github.com/shopspring/decimal"
)

// TickSizeRule requires prices to be a multiple of the symbol's tick size.
// Comparison is done in decimal so 0.1-style ticks are not lost to float
// rounding.
type TickSizeRule struct {
	ticks map[string]decimal.Decimal
}

func NewTickSizeRule(cfg *Config) *TickSizeRule {
	r := &TickSizeRule{ticks: make(map[string]decimal.Decimal)}
	for symbol, sc := range cfg.Symbols {
		if sc.TickSize <= 0 {
			continue
		}
		r.ticks[symbol] = decimal.NewFromFloat(sc.TickSize)
	}
	return r
}

func (r *TickSizeRule) Check(order orderbook.Order) error {
	tick, ok := r.ticks[order.Symbol]
	if !ok { // no config -> no rule
		return nil
	}

	price := decimal.NewFromFloat(order.Price)
	if !price.Mod(tick).IsZero() {
		return fmt.Errorf("%w: price %s is not a multiple of tick %s for %s",
			ErrRiskViolation, price, tick, order.Symbol)
	}
	return nil
}
