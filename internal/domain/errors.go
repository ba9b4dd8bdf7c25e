package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// StateTransitionError reports an illegal move against the match state
// machine, naming the violated precondition.
type StateTransitionError struct {
	From   MatchStatus
	To     MatchStatus
	Reason string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s: %s", e.From, e.To, e.Reason)
}

// RosterCapacityError reports a team or pool size violation.
type RosterCapacityError struct {
	Reason string
}

func (e *RosterCapacityError) Error() string {
	return "roster capacity: " + e.Reason
}

// TurnOrderError reports a pick/ban action out of turn or on an
// unavailable map.
type TurnOrderError struct {
	Reason string
}

func (e *TurnOrderError) Error() string {
	return "pick/ban: " + e.Reason
}

// ReconciliationAmbiguityError carries the identity hints that could
// not be matched to any roster member. The rows are surfaced to a
// reviewer, never guessed.
type ReconciliationAmbiguityError struct {
	Hints []string
}

func (e *ReconciliationAmbiguityError) Error() string {
	return fmt.Sprintf("unmatched identities: %s", strings.Join(e.Hints, ", "))
}

// SubmissionConflictError reports an attempt to confirm a submission
// for a map that already has a confirmed one.
type SubmissionConflictError struct {
	MapName string
}

func (e *SubmissionConflictError) Error() string {
	return fmt.Sprintf("map %s already has a confirmed submission", e.MapName)
}

// SeriesIncompleteError reports a finalize attempt before the required
// map-win count was reached.
type SeriesIncompleteError struct {
	Required int
	Played   int
}

func (e *SeriesIncompleteError) Error() string {
	return fmt.Sprintf("series not decided: %d map wins required, %d maps played", e.Required, e.Played)
}
