package riskrule

import (
	"fmt"

	"github.com/joripage/miniexchange/pkg/orderbook"
)

type limitPrice struct {
	ceil  float64
	floor float64
}

// LimitPriceRule rejects prices outside a per-symbol [floor, ceil] band.
type LimitPriceRule struct {
	prices map[string]*limitPrice
}

func NewLimitPriceRule(cfg *Config) *LimitPriceRule {
	r := &LimitPriceRule{prices: make(map[string]*limitPrice)}
	for symbol, sc := range cfg.Symbols {
		if sc.Floor == 0 && sc.Ceil == 0 {
			continue
		}
		r.prices[symbol] = &limitPrice{ceil: sc.Ceil, floor: sc.Floor}
	}
	return r
}

func (r *LimitPriceRule) Check(order orderbook.Order) error {
	limit, ok := r.prices[order.Symbol]
	if !ok {
		return nil
	}
	if (limit.ceil > 0 && order.Price > limit.ceil) || order.Price < limit.floor {
		return fmt.Errorf("%w: price %v outside [%v, %v] for %s",
			ErrRiskViolation, order.Price, limit.floor, limit.ceil, order.Symbol)
	}
	return nil
}
