package riskrule

import (
	"errors"

	"github.com/joripage/miniexchange/pkg/orderbook"
)

var ErrRiskViolation = errors.New("risk rule violation")

type RiskRule interface {
	Check(order orderbook.Order) error
}

// SymbolConfig holds the per-symbol limits. Zero disables a limit.
type SymbolConfig struct {
	Floor    float64 `yaml:"floor"`
	Ceil     float64 `yaml:"ceil"`
	TickSize float64 `yaml:"tick_size"`
}

type Config struct {
	Symbols map[string]SymbolConfig `yaml:"symbols"`
}

// Chain runs rules in order and stops at the first violation.
type Chain []RiskRule

func (c Chain) Check(order orderbook.Order) error {
	for _, r := range c {
		if err := r.Check(order); err != nil {
			return err
		}
	}
	return nil
}

// NewChain builds the price band and tick size rules from cfg.
func NewChain(cfg *Config) Chain {
	if cfg == nil || len(cfg.Symbols) == 0 {
		return nil
	}
	return Chain{
		NewLimitPriceRule(cfg),
		NewTickSizeRule(cfg),
	}
}
