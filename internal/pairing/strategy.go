// Package pairing matches closing trades against the opening trades that funded them.
package pairing

import (
	"fmt"
	"sort"
	"strings"
)

// Order is the sequence in which eligible lots are consumed.
type Order int

const (
	OldestFirst Order = iota
	NewestFirst
	LowestCostFirst
	HighestCostFirst
	// Proportional consumes every eligible lot at once, weighted by its
	// remaining quantity.
	Proportional
)

// Phase is one pass over the open lots for a closing trade.
type Phase struct {
	Order Order
	// ExemptOnly restricts the pass to lots held past the exemption period.
	ExemptOnly bool
}

// Strategy defines a lot-selection strategy.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Phases returns the passes applied, in order, to every closing trade.
	Phases() []Phase
}

var strategies = map[string]Strategy{}

func register(s Strategy) {
	strategies[strings.ToLower(s.Name())] = s
}

// StrategyByName looks a strategy up case-insensitively. There is no default:
// an unknown name is an error.
func StrategyByName(name string) (Strategy, error) {
	s, ok := strategies[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return s, nil
}

// StrategyNames lists the registered strategies.
func StrategyNames() []string {
	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.Name())
	}
	sort.Strings(names)
	return names
}
