package fsm

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/oshokin/keypad-controller/internal/domain/device"
)

var (
	// ErrTableFrozen is returned when a rule is appended after the engine started.
	ErrTableFrozen = errors.New("rule table is frozen")
	// ErrInvalidRule is returned for a rule that can never be valid.
	ErrInvalidRule = errors.New("invalid rule")
	// ErrUnreachableRule is returned by Validate for a rule shadowed by earlier ones.
	ErrUnreachableRule = errors.New("unreachable rule")
)

// Table is the ordered rule list. It is built once and read-only while an
// engine runs.
type Table struct {
	rules  []Rule
	frozen atomic.Bool
}

// Overlap describes signals of a rule that an earlier rule already captures.
type Overlap struct {
	// Rule is the index of the partially shadowed rule.
	Rule int
	// ShadowedBy is the index of the earlier rule.
	ShadowedBy int
	// Signals are the signals that never reach Rule in its source state.
	Signals device.SignalSet
}

// NewTable creates a table from rules in priority order.
func NewTable(rules ...Rule) (*Table, error) {
	t := &Table{
		rules: make([]Rule, 0, len(rules)),
	}

	for _, rule := range rules {
		if err := t.Append(rule); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Append adds a rule with the lowest priority.
func (t *Table) Append(rule Rule) error {
	if t.frozen.Load() {
		return ErrTableFrozen
	}

	if err := checkRule(rule); err != nil {
		return fmt.Errorf("rule %d (%s): %w", len(t.rules), rule.Name, err)
	}

	t.rules = append(t.rules, rule)

	return nil
}

// Len returns the number of rules.
func (t *Table) Len() int {
	return len(t.rules)
}

// Rules returns a copy of the rules in priority order.
func (t *Table) Rules() []Rule {
	return append([]Rule(nil), t.rules...)
}

// Match returns the index of the first rule matching the state and signal.
func (t *Table) Match(state device.State, sig device.Signal) (int, bool) {
	for i := range t.rules {
		if t.rules[i].Matches(state, sig) {
			return i, true
		}
	}

	return -1, false
}

// Validate reports rules that can never fire because earlier rules with the
// same source state already cover all of their signals.
func (t *Table) Validate() error {
	var errs []error

	for i, rule := range t.rules {
		if t.remaining(i, rule).IsEmpty() {
			errs = append(errs, fmt.Errorf("rule %d (%s %s on %s): %w",
				i, rule.Name, rule.From, rule.On, ErrUnreachableRule))
		}
	}

	return errors.Join(errs...)
}

// Overlaps lists every pair of rules where an earlier rule takes some of a
// later rule's signals. Overlaps are legal; only full shadowing is an error.
func (t *Table) Overlaps() []Overlap {
	var result []Overlap

	for i, rule := range t.rules {
		for j := range i {
			earlier := t.rules[j]
			if earlier.From != rule.From {
				continue
			}

			if shared := earlier.On.Intersect(rule.On); !shared.IsEmpty() {
				result = append(result, Overlap{
					Rule:       i,
					ShadowedBy: j,
					Signals:    shared,
				})
			}
		}
	}

	return result
}

// Format writes a human-readable listing of the table.
func (t *Table) Format(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%-3s %-15s %-22s %-15s %s\n", "#", "FROM", "ON", "TO", "ACTION")

	for i, rule := range t.rules {
		fmt.Fprintf(&b, "%-3d %-15s %-22s %-15s %s\n", i, rule.From, rule.On, rule.To, rule.Name)
	}

	for _, overlap := range t.Overlaps() {
		fmt.Fprintf(&b, "rule %d takes %s from rule %d\n", overlap.ShadowedBy, overlap.Signals, overlap.Rule)
	}

	_, err := io.WriteString(w, b.String())

	return err
}

// freeze makes the table read-only.
func (t *Table) freeze() {
	t.frozen.Store(true)
}

// remaining returns the signals of rule i that no earlier rule captures.
func (t *Table) remaining(i int, rule Rule) device.SignalSet {
	left := rule.On

	for j := range i {
		if t.rules[j].From == rule.From {
			left = left.Without(t.rules[j].On)
		}
	}

	return left
}

func checkRule(rule Rule) error {
	switch {
	case rule.Action == nil:
		return fmt.Errorf("%w: action is required", ErrInvalidRule)
	case rule.On.IsEmpty():
		return fmt.Errorf("%w: trigger set is empty", ErrInvalidRule)
	case !rule.On.SubsetOf(device.Alphabet):
		return fmt.Errorf("%w: trigger set is outside the alphabet", ErrInvalidRule)
	case !rule.From.IsValid():
		return fmt.Errorf("%w: unknown source state %q", ErrInvalidRule, rule.From)
	case !rule.To.IsValid():
		return fmt.Errorf("%w: unknown target state %q", ErrInvalidRule, rule.To)
	default:
		return nil
	}
}
