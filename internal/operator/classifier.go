// Package operator maps a subscriber number to its mobile-money network
// using the regulator's prefix assignments.
package operator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/phone"
)

// ErrUnsupportedOperator is returned when a number matches neither rule set.
// Callers must treat this as a validation failure; there is no default route.
var ErrUnsupportedOperator = errors.New("operator: number matches no supported operator")

// Classifier resolves phone numbers to operators against one rule table.
type Classifier struct {
	table RuleTable
}

// NewClassifier builds a classifier, rejecting invalid or overlapping tables.
func NewClassifier(table RuleTable) (*Classifier, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{table: table}, nil
}

// NewDefaultClassifier builds a classifier over the built-in table.
func NewDefaultClassifier() *Classifier {
	c, err := NewClassifier(DefaultTable())
	if err != nil {
		// The built-in table is validated by tests; reaching this is a bug.
		panic(err)
	}
	return c
}

// Classify normalizes the number and matches it against the two prefix sets.
func (c *Classifier) Classify(number string) (payment.Operator, error) {
	national, err := phone.Normalize(number)
	if err != nil {
		return "", fmt.Errorf("operator: %w", err)
	}
	if matchesAny(national, c.table.MTN) {
		return payment.OperatorMTN, nil
	}
	if matchesAny(national, c.table.Orange) {
		return payment.OperatorOrange, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedOperator, national[:3])
}

func matchesAny(national string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(national, p) {
			return true
		}
	}
	return false
}
