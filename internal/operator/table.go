package operator

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleTable holds the number-prefix rules per operator. Prefix ranges are
// reassigned by the regulator over time, so the table is deliberately
// configuration, not code: deployments can override it with a YAML file.
type RuleTable struct {
	MTN    []string `yaml:"mtn"`
	Orange []string `yaml:"orange"`
}

// DefaultTable returns the ART numbering plan as currently assigned:
// MTN holds 67X plus the 650-654 and 680-684 blocks, Orange holds 69X plus
// the 655-659 and 685-689 blocks.
func DefaultTable() RuleTable {
	return RuleTable{
		MTN: []string{
			"67",
			"650", "651", "652", "653", "654",
			"680", "681", "682", "683", "684",
		},
		Orange: []string{
			"69",
			"655", "656", "657", "658", "659",
			"685", "686", "687", "688", "689",
		},
	}
}

// LoadTable reads a rule table from a YAML file.
func LoadTable(path string) (RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleTable{}, fmt.Errorf("operator: read rule table: %w", err)
	}
	var table RuleTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return RuleTable{}, fmt.Errorf("operator: parse rule table: %w", err)
	}
	return table, nil
}

// Validate rejects empty or overlapping rule sets. The two sets must stay
// disjoint so that no number ever matches both operators.
func (t RuleTable) Validate() error {
	if len(t.MTN) == 0 || len(t.Orange) == 0 {
		return fmt.Errorf("operator: rule table must list prefixes for both operators")
	}
	for _, set := range [][]string{t.MTN, t.Orange} {
		for _, p := range set {
			if p == "" || strings.Trim(p, "0123456789") != "" {
				return fmt.Errorf("operator: invalid prefix %q", p)
			}
		}
	}
	for _, a := range t.MTN {
		for _, b := range t.Orange {
			if strings.HasPrefix(a, b) || strings.HasPrefix(b, a) {
				return fmt.Errorf("operator: prefixes %q and %q overlap", a, b)
			}
		}
	}
	return nil
}
