package ratelimit

import (
	"errors"
	"fmt"
	"slices"
)

// Registry is the static tier-to-rule mapping, loaded once at startup.
// It is read-only after construction and safe for concurrent use.
type Registry struct {
	rules map[string]Rule
}

// NewRegistry validates and indexes the given rules. Registering two rules
// for the same tier is a configuration mistake and fails construction.
func NewRegistry(rules ...Rule) (*Registry, error) {
	indexed := make(map[string]Rule, len(rules))
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		if _, exists := indexed[rule.Tier]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, rule.Tier)
		}
		indexed[rule.Tier] = rule
	}
	return &Registry{rules: indexed}, nil
}

// Rule returns the rule registered for tier.
func (r *Registry) Rule(tier string) (Rule, error) {
	rule, ok := r.rules[tier]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, tier)
	}
	return rule, nil
}

// MustRule returns the rule for tier or panics. Middleware wiring happens at
// startup, so an unknown tier should stop the process rather than limp along
// with an unguarded route group.
func (r *Registry) MustRule(tier string) Rule {
	rule, err := r.Rule(tier)
	if err != nil {
		panic(fmt.Sprintf("ratelimit: %v", err))
	}
	return rule
}

// Tiers returns the registered tier names in sorted order.
func (r *Registry) Tiers() []string {
	tiers := make([]string, 0, len(r.rules))
	for tier := range r.rules {
		tiers = append(tiers, tier)
	}
	slices.Sort(tiers)
	return tiers
}

// IsRuleNotFound reports whether err signals a missing tier rule.
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}
