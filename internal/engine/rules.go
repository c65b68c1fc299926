package engine

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/tabletoplab/gamescout/pkg/types"
)

// Polarity is the direction of a facet constraint a rule applies.
type Polarity string

const (
	// PolaritySimilar sets a jaccard_min on the rule's facets.
	PolaritySimilar Polarity = "similar"

	// PolarityDifferent sets a jaccard_max on the rule's facets.
	PolarityDifferent Polarity = "different"
)

// Rule maps a trigger pattern in the user's message to a mutation of
// the query spec. Rules are evaluated in table order; for any given
// field (intent, scope, a facet's constraint) the first matching rule
// wins, so more specific phrasings must precede general ones.
type Rule struct {
	// Name identifies the rule for auditing and tests.
	Name string `yaml:"name"`

	// Pattern is a case-insensitive regular expression matched against
	// the whole message.
	Pattern string `yaml:"pattern"`

	// Intent, when non-empty, is the intent label this rule assigns.
	Intent string `yaml:"intent,omitempty"`

	// Scope, when non-empty, forces the candidate scope.
	Scope string `yaml:"scope,omitempty"`

	// Facets are the dimensions the polarity constraint applies to.
	Facets []string `yaml:"facets,omitempty"`

	// Polarity selects similarity (jaccard_min) or dissimilarity
	// (jaccard_max) for the listed facets.
	Polarity Polarity `yaml:"polarity,omitempty"`

	// Strict applies the tightened threshold (StrictJaccardMin or
	// StrictJaccardMax) instead of the default one.
	Strict bool `yaml:"strict,omitempty"`
}

// RuleTable is an ordered list of interpretation rules with their
// compiled patterns. Build one with NewRuleTable or LoadRuleTable.
type RuleTable struct {
	rules    []Rule
	patterns []*regexp.Regexp
}

// defaultRulesYAML is the built-in rule table. It ships as YAML so the
// embedded defaults and any on-disk override go through the exact same
// parsing and validation path.
const defaultRulesYAML = `
rules:
  - name: completely_different
    pattern: '(completely|totally|entirely|radically) (different|unlike)'
    intent: different
    polarity: different
    strict: true
    facets: [mechanics, categories]

  - name: different_theme
    pattern: '(different|another|new|other) (theme|setting|world)|themat\w* different'
    intent: different_theme
    polarity: different
    facets: [categories, families]

  - name: avoid
    pattern: '\b(avoid|not like|nothing like|anything but)\b'
    intent: different
    polarity: different
    facets: [mechanics, categories]

  - name: different
    pattern: '\b(different|unlike|dissimilar)\b'
    intent: different
    polarity: different
    facets: [categories]

  - name: very_similar
    pattern: '(very|really|extremely) similar|just like|almost identical'
    intent: similar
    polarity: similar
    strict: true
    facets: [mechanics]

  - name: similar
    pattern: '\b(similar|same|closest?|comparable)\b|\blike\b'
    intent: similar
    polarity: similar
    facets: [mechanics]

  - name: do_i_need
    pattern: 'do i (need|want)|already (own|have)|worth (buying|getting|adding)'
    intent: do_i_need
    scope: user_collection

  - name: collection_scope
    pattern: 'in my collection|my collection|i own|my shelf|my library|games i have'
    scope: user_collection
`

// ruleFile is the YAML document shape for rule tables.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// NewRuleTable compiles the given rules, preserving order.
func NewRuleTable(rules []Rule) (*RuleTable, error) {
	t := &RuleTable{
		rules:    rules,
		patterns: make([]*regexp.Regexp, len(rules)),
	}
	for i, r := range rules {
		if r.Name == "" {
			return nil, fmt.Errorf("rule %d: name is required", i)
		}
		if r.Pattern == "" {
			return nil, fmt.Errorf("rule %q: pattern is required", r.Name)
		}
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: invalid pattern: %w", r.Name, err)
		}
		if r.Polarity != "" && r.Polarity != PolaritySimilar && r.Polarity != PolarityDifferent {
			return nil, fmt.Errorf("rule %q: invalid polarity %q", r.Name, r.Polarity)
		}
		if r.Polarity != "" && len(r.Facets) == 0 {
			return nil, fmt.Errorf("rule %q: polarity without facets", r.Name)
		}
		for _, f := range r.Facets {
			if !types.ValidFacet(types.Facet(f)) {
				return nil, fmt.Errorf("rule %q: unknown facet %q", r.Name, f)
			}
		}
		if r.Scope != "" && r.Scope != string(types.ScopeGlobal) && r.Scope != string(types.ScopeCollection) {
			return nil, fmt.Errorf("rule %q: invalid scope %q", r.Name, r.Scope)
		}
		t.patterns[i] = re
	}
	return t, nil
}

// DefaultRuleTable returns the built-in rule table.
func DefaultRuleTable() *RuleTable {
	t, err := parseRuleTable([]byte(defaultRulesYAML))
	if err != nil {
		// The embedded table is validated by tests; a parse failure here
		// is a programming error.
		panic(fmt.Sprintf("engine: embedded rule table invalid: %v", err))
	}
	return t
}

// LoadRuleTable reads a rule table from a YAML file, replacing the
// built-in defaults entirely.
func LoadRuleTable(path string) (*RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("engine: read rule table %s: %w", path, err)
	}
	t, err := parseRuleTable(data)
	if err != nil {
		return nil, fmt.Errorf("engine: parse rule table %s: %w", path, err)
	}
	return t, nil
}

func parseRuleTable(data []byte) (*RuleTable, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rule table contains no rules")
	}
	return NewRuleTable(f.Rules)
}

// Len returns the number of rules in the table.
func (t *RuleTable) Len() int { return len(t.rules) }

// match applies the table to the message in order and returns the
// accumulated mutation. First match wins per field.
func (t *RuleTable) match(message string, cfg *Config) ruleMatch {
	m := ruleMatch{constraints: make(map[types.Facet]types.FacetConstraint)}

	for i, r := range t.rules {
		if !t.patterns[i].MatchString(message) {
			continue
		}
		m.matched = append(m.matched, r.Name)

		if r.Intent != "" && m.intent == "" {
			m.intent = types.Intent(r.Intent)
		}
		if r.Scope != "" && m.scope == "" {
			m.scope = types.Scope(r.Scope)
		}
		for _, name := range r.Facets {
			facet := types.Facet(name)
			if _, taken := m.constraints[facet]; taken {
				continue
			}
			var c types.FacetConstraint
			switch r.Polarity {
			case PolaritySimilar:
				v := cfg.DefaultJaccardMin
				if r.Strict {
					v = cfg.StrictJaccardMin
				}
				c.JaccardMin = &v
			case PolarityDifferent:
				v := cfg.DefaultJaccardMax
				if r.Strict {
					v = cfg.StrictJaccardMax
				}
				c.JaccardMax = &v
			}
			if !c.IsZero() {
				m.constraints[facet] = c
			}
		}
	}
	return m
}

// ruleMatch is the accumulated spec mutation from one table pass.
type ruleMatch struct {
	intent      types.Intent
	scope       types.Scope
	constraints map[types.Facet]types.FacetConstraint
	matched     []string
}
