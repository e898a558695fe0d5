package rollchain

import "strings"

// RollRule is one predicate of the roll classifier. Rules are evaluated in
// slice order and the first match decides.
type RollRule struct {
	Name  string
	Match func(Order) bool
}

const (
	RuleFormSource      = "form_source"
	RuleStrategyLabel   = "strategy_label"
	RulePositionEffects = "position_effects"
	RuleRollReference   = "roll_reference"
)

func DefaultRollRules() []RollRule {
	return []RollRule{
		{Name: RuleFormSource, Match: matchFormSource},
		{Name: RuleStrategyLabel, Match: matchStrategyLabel},
		{Name: RulePositionEffects, Match: matchPositionEffects},
		{Name: RuleRollReference, Match: matchRollReference},
	}
}

type Classification struct {
	IsRoll bool
	Rule   string
}

func Classify(rules []RollRule, o Order) Classification {
	for _, rule := range rules {
		if rule.Match != nil && rule.Match(o) {
			return Classification{IsRoll: true, Rule: rule.Name}
		}
	}
	return Classification{}
}

func matchFormSource(o Order) bool {
	return o.FormSource == "strategy_roll"
}

func matchStrategyLabel(o Order) bool {
	s := strings.ToLower(o.Strategy)
	return strings.Contains(s, "roll") || strings.Contains(s, "calendar_spread")
}

func matchPositionEffects(o Order) bool {
	if len(o.Legs) < 2 {
		return false
	}
	return len(o.Opens()) > 0 && len(o.Closes()) > 0
}

func matchRollReference(o Order) bool {
	return o.RolledFrom != "" || o.RolledTo != ""
}
