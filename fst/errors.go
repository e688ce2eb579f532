package fst

import "errors"

var (
	// ErrUnknownState indicates a state id not present in the automaton.
	ErrUnknownState = errors.New("fst: unknown state")

	// ErrDeleteStart indicates an attempt to delete the start state.
	ErrDeleteStart = errors.New("fst: cannot delete start state")

	// ErrNoStart indicates an automaton without a start state.
	ErrNoStart = errors.New("fst: no start state")

	// ErrUndefinedWeight indicates a weight outside the semiring's domain.
	ErrUndefinedWeight = errors.New("fst: weight is not a semiring member")

	// ErrSemiringMismatch indicates a serialized model over another semiring.
	ErrSemiringMismatch = errors.New("fst: semiring mismatch")

	// ErrFormat indicates malformed serialized input.
	ErrFormat = errors.New("fst: malformed input")
)
