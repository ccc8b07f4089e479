package seating

import (
	"fmt"
	"sync"
)

type RuleName string

const (
	RuleMaxTables          RuleName = "max_tables"
	RuleMinPlayersPerTable RuleName = "min_players_per_table"
	RuleMaxPlayersPerTable RuleName = "max_players_per_table"
	RuleBalanceThreshold   RuleName = "balance_threshold"
)

type Rule struct {
	Name  RuleName `json:"name"`
	Value int      `json:"value"`
}

type Rules struct {
	MaxTables          int `json:"max_tables" yaml:"max_tables"`
	MinPlayersPerTable int `json:"min_players_per_table" yaml:"min_players_per_table"`
	MaxPlayersPerTable int `json:"max_players_per_table" yaml:"max_players_per_table"`
	BalanceThreshold   int `json:"balance_threshold" yaml:"balance_threshold"`
}

func DefaultRules() Rules {
	return Rules{
		MaxTables:          100,
		MinPlayersPerTable: 6,
		MaxPlayersPerTable: 9,
		BalanceThreshold:   1,
	}
}

func (r Rules) Validate() error {
	switch {
	case r.MaxTables < 1:
		return fmt.Errorf("%w: %s must be at least 1", ErrInvalidRule, RuleMaxTables)
	case r.MinPlayersPerTable < 1:
		return fmt.Errorf("%w: %s must be at least 1", ErrInvalidRule, RuleMinPlayersPerTable)
	case r.MaxPlayersPerTable < r.MinPlayersPerTable:
		return fmt.Errorf("%w: %s below %s", ErrInvalidRule, RuleMaxPlayersPerTable, RuleMinPlayersPerTable)
	case r.MaxPlayersPerTable > TypeTenMax.Size():
		return fmt.Errorf("%w: %s above largest table size %d", ErrInvalidRule, RuleMaxPlayersPerTable, TypeTenMax.Size())
	case r.BalanceThreshold < 0:
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidRule, RuleBalanceThreshold)
	}
	return nil
}

// With returns r with the named rules overwritten. The result is validated
// as a whole.
func (r Rules) With(rules ...Rule) (Rules, error) {
	for _, rule := range rules {
		switch rule.Name {
		case RuleMaxTables:
			r.MaxTables = rule.Value
		case RuleMinPlayersPerTable:
			r.MinPlayersPerTable = rule.Value
		case RuleMaxPlayersPerTable:
			r.MaxPlayersPerTable = rule.Value
		case RuleBalanceThreshold:
			r.BalanceThreshold = rule.Value
		default:
			return Rules{}, fmt.Errorf("%w: unknown rule %q", ErrInvalidRule, rule.Name)
		}
	}
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

func (r Rules) List() []Rule {
	return []Rule{
		{Name: RuleMaxTables, Value: r.MaxTables},
		{Name: RuleMinPlayersPerTable, Value: r.MinPlayersPerTable},
		{Name: RuleMaxPlayersPerTable, Value: r.MaxPlayersPerTable},
		{Name: RuleBalanceThreshold, Value: r.BalanceThreshold},
	}
}

// RuleBook is the process-wide, operator-mutable rule set. Readers call
// Current on every decision.
type RuleBook struct {
	mu    sync.RWMutex
	rules Rules
}

func NewRuleBook(initial Rules) (*RuleBook, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &RuleBook{rules: initial}, nil
}

func (b *RuleBook) Current() Rules {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rules
}

func (b *RuleBook) Update(rules ...Rule) (Rules, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next, err := b.rules.With(rules...)
	if err != nil {
		return b.rules, err
	}
	b.rules = next
	return next, nil
}
