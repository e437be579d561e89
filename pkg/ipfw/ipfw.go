// Package ipfw installs and removes ipfw classification rules by executing
// the `ipfw` binary. Add()ed rules are remembered so a partial installation
// can be rolled back rule by rule.
package ipfw

import (
	"errors"
	"strconv"
	"strings"

	"github.com/netshaper/netshaper/pkg/runtime"
)

// Rule is a single ipfw rule.
type Rule struct {
	// Number is the ipfw rule number. Deterministic numbering lets a
	// partially installed rule set be removed without querying the engine.
	Number int
	// Set is the ipfw rule set the rule belongs to. Keeping all rules in
	// one dedicated set makes activation a single command and teardown a
	// whole-set flush.
	Set int
	// Body is the rest of the rule: the action followed by the match
	// predicate, e.g. "pipe 1 tcp from any to any 80-8080".
	Body string
}

func (r Rule) addArgs() []string {
	args := []string{"-q", "add", strconv.Itoa(r.Number), "set", strconv.Itoa(r.Set)}
	return append(args, strings.Fields(r.Body)...)
}

func (r Rule) deleteArgs() []string {
	return []string{"-q", "delete", strconv.Itoa(r.Number)}
}

// Ipfw executes ipfw rules through a runtime.Executor.
type Ipfw struct {
	executor runtime.Executor

	rules []Rule
}

// New returns a new Ipfw ready to use.
func New(executor runtime.Executor) *Ipfw {
	return &Ipfw{
		executor: executor,
	}
}

// Add installs a rule. Added rules are remembered so they can be removed
// later by RollbackAdded.
func (i *Ipfw) Add(r Rule) error {
	if err := i.exec(r.addArgs()...); err != nil {
		return err
	}

	i.rules = append(i.rules, r)

	return nil
}

// RollbackAdded removes all rules added so far, in reverse order. If a
// deletion fails, RollbackAdded continues with the remaining rules and
// returns the joined errors. Rules that could not be removed stay
// remembered so a retry can pick them up.
func (i *Ipfw) RollbackAdded() error {
	var errs []error

	var remaining []Rule
	for idx := len(i.rules) - 1; idx >= 0; idx-- {
		rule := i.rules[idx]
		if err := i.exec(rule.deleteArgs()...); err != nil {
			errs = append(errs, err)
			remaining = append(remaining, rule)
		}
	}

	i.rules = remaining

	return errors.Join(errs...)
}

// EnableSet activates the given rule set. Rules written to a disabled set
// only start matching traffic once the set is enabled, so activation is
// atomic with respect to the rules.
func (i *Ipfw) EnableSet(set int) error {
	return i.exec("-q", "set", "enable", strconv.Itoa(set))
}

// DisableSet deactivates the given rule set.
func (i *Ipfw) DisableSet(set int) error {
	return i.exec("-q", "set", "disable", strconv.Itoa(set))
}

// DeleteSet removes every rule in the given set, tracked or not. Remembered
// rules belonging to the set are forgotten even when the command fails:
// once a teardown has been attempted, the rule numbers may be reused by a
// later installation, and a rollback must never delete another round's
// rules.
func (i *Ipfw) DeleteSet(set int) error {
	var remaining []Rule
	for _, rule := range i.rules {
		if rule.Set != set {
			remaining = append(remaining, rule)
		}
	}
	i.rules = remaining

	return i.exec("-q", "delete", "set", strconv.Itoa(set))
}

func (i *Ipfw) exec(args ...string) error {
	out, err := i.executor.Exec("ipfw", args...)
	if err != nil {
		return runtime.NewCommandError("ipfw", args, out, err)
	}

	return nil
}
