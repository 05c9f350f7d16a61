package synth

import (
	"fmt"
	"slices"
)

// PredicateError describes a malformed predicate set.
type PredicateError struct {
	Query  int   // query position
	Group  int64 // offending identifier, 0 if not applicable
	Groups int   // valid range is 1..Groups
	Reason string
}

func (e *PredicateError) Error() string {
	if e.Group != 0 {
		return fmt.Sprintf("query %d: invalid predicate: %s (group %d, valid range 1..%d)", e.Query, e.Reason, e.Group, e.Groups)
	}
	return fmt.Sprintf("query %d: invalid predicate: %s", e.Query, e.Reason)
}

// Unwrap makes every PredicateError match ErrInvalidParams.
func (e *PredicateError) Unwrap() error { return ErrInvalidParams }

// ValidatePredicate checks that predicate is non-empty, has at most
// MaxPredicateSize entries, has no duplicates and only uses identifiers in
// 1..groups.
func ValidatePredicate(predicate []int64, groups int) error {
	if len(predicate) == 0 {
		return &PredicateError{Groups: groups, Reason: "empty set"}
	}
	if len(predicate) > MaxPredicateSize {
		return &PredicateError{Groups: groups, Reason: fmt.Sprintf("%d identifiers, at most %d allowed", len(predicate), MaxPredicateSize)}
	}

	sorted := slices.Clone(predicate)
	slices.Sort(sorted)
	for i, g := range sorted {
		if g < 1 || g > int64(groups) {
			return &PredicateError{Group: g, Groups: groups, Reason: "identifier out of range"}
		}
		if i > 0 && sorted[i-1] == g {
			return &PredicateError{Group: g, Groups: groups, Reason: "duplicate identifier"}
		}
	}
	return nil
}

// ValidatePredicates validates the predicate of every query against 1..groups
// and stops at the first failure.
func ValidatePredicates(queries []Query, groups int) error {
	for i, q := range queries {
		if err := ValidatePredicate(q.Predicate, groups); err != nil {
			pe := err.(*PredicateError)
			pe.Query = i
			return pe
		}
	}
	return nil
}
