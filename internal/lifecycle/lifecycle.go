// Package lifecycle implements the match state machine as an explicit
// transition table with per-edge preconditions, so illegal moves are
// rejected in one place instead of scattered caller checks.
package lifecycle

import (
	"customs-league/internal/domain"
)

// View is the snapshot of roster and map state a transition is judged
// against.
type View struct {
	Status        domain.MatchStatus
	SeriesType    domain.SeriesType
	PoolSize      int
	AlphaSize     int
	BravoSize     int
	AlphaCaptain  bool
	BravoCaptain  bool
	PickBanDone   bool
	PlayedMaps    int
	WinnerDecided bool
}

// MinPoolSize is the pool headcount required to start captain voting.
const MinPoolSize = 2 * domain.TeamSize

type edge struct {
	from domain.MatchStatus
	to   domain.MatchStatus
}

// guards return "" when the precondition holds, otherwise the reason
// that blocks the edge.
var guards = map[edge]func(View) string{
	{domain.StatusDraft, domain.StatusCaptainVoting}: func(v View) string {
		if v.PoolSize < MinPoolSize {
			return "player pool not full"
		}
		return ""
	},
	{domain.StatusCaptainVoting, domain.StatusTeamSelection}: func(v View) string {
		if !v.AlphaCaptain || !v.BravoCaptain {
			return "both captains must be selected"
		}
		return ""
	},
	{domain.StatusTeamSelection, domain.StatusMapPickBan}: func(v View) string {
		if v.AlphaSize != domain.TeamSize || v.BravoSize != domain.TeamSize {
			return "team not full"
		}
		return ""
	},
	{domain.StatusMapPickBan, domain.StatusInProgress}: func(v View) string {
		if !v.PickBanDone {
			return "pick/ban sequence not finished"
		}
		return ""
	},
	{domain.StatusInProgress, domain.StatusVoting}: func(v View) string {
		return playedEnough(v)
	},
	{domain.StatusInProgress, domain.StatusCompleted}: func(v View) string {
		if reason := playedEnough(v); reason != "" {
			return reason
		}
		if !v.WinnerDecided {
			return "series winner not determined"
		}
		return ""
	},
	{domain.StatusVoting, domain.StatusCompleted}: func(v View) string {
		if !v.WinnerDecided {
			return "series winner not determined"
		}
		return ""
	},
}

func playedEnough(v View) string {
	if v.PlayedMaps < v.SeriesType.RequiredWins() {
		return "required maps not played"
	}
	return ""
}

// next is the natural successor used when the caller does not name an
// intended state.
var next = map[domain.MatchStatus]domain.MatchStatus{
	domain.StatusDraft:         domain.StatusCaptainVoting,
	domain.StatusCaptainVoting: domain.StatusTeamSelection,
	domain.StatusTeamSelection: domain.StatusMapPickBan,
	domain.StatusMapPickBan:    domain.StatusInProgress,
	domain.StatusInProgress:    domain.StatusVoting,
	domain.StatusVoting:        domain.StatusCompleted,
}

// Next returns the natural successor of the current state.
func Next(from domain.MatchStatus) (domain.MatchStatus, bool) {
	to, ok := next[from]
	return to, ok
}

// Advance validates the transition from v.Status to the intended state
// and returns the state to apply. It never mutates anything itself; the
// caller applies the result atomically.
func Advance(v View, to domain.MatchStatus) (domain.MatchStatus, error) {
	if v.Status.Terminal() {
		return "", &domain.StateTransitionError{From: v.Status, To: to, Reason: "match is terminal"}
	}
	if to == domain.StatusCancelled {
		// Cancellation is reachable from any non-terminal state.
		return to, nil
	}
	guard, ok := guards[edge{v.Status, to}]
	if !ok {
		return "", &domain.StateTransitionError{From: v.Status, To: to, Reason: "no such transition"}
	}
	if reason := guard(v); reason != "" {
		return "", &domain.StateTransitionError{From: v.Status, To: to, Reason: reason}
	}
	return to, nil
}

// ViewOf derives a transition view from a loaded match.
func ViewOf(m *domain.Match) View {
	return View{
		Status:        m.Status,
		SeriesType:    m.SeriesType,
		PoolSize:      len(m.Pool().Members),
		AlphaSize:     len(m.Alpha().Members),
		BravoSize:     len(m.Bravo().Members),
		AlphaCaptain:  m.Alpha().CaptainID != nil,
		BravoCaptain:  m.Bravo().CaptainID != nil,
		PickBanDone:   pickBanDone(m),
		PlayedMaps:    m.PlayedMaps(),
		WinnerDecided: m.WinnerTeamID != nil,
	}
}

func pickBanDone(m *domain.Match) bool {
	picks := 0
	for _, sel := range m.Selections {
		if sel.Action != domain.ActionBan {
			picks++
		}
	}
	return picks >= m.SeriesType.MapCount()
}

// CheckInvariants enforces the data invariants that even privileged
// admin overrides must preserve: team size, captain membership and
// unique map names.
func CheckInvariants(m *domain.Match) error {
	for i := range m.Teams {
		t := &m.Teams[i]
		if t.Kind != domain.TeamPool && len(t.Members) > domain.TeamSize {
			return &domain.RosterCapacityError{Reason: "team " + string(t.Kind) + " exceeds 5 members"}
		}
		if t.CaptainID != nil && !t.HasMember(*t.CaptainID) {
			return &domain.RosterCapacityError{Reason: "captain of team " + string(t.Kind) + " is not a member"}
		}
	}
	seenUser := map[string]bool{}
	for i := range m.Teams {
		for _, mem := range m.Teams[i].Members {
			if seenUser[mem.UserID] {
				return &domain.RosterCapacityError{Reason: "user " + mem.UserID + " appears on two teams"}
			}
			seenUser[mem.UserID] = true
		}
	}
	seenMap := map[string]bool{}
	seenOrder := map[int]bool{}
	for _, sel := range m.Selections {
		if seenMap[sel.MapName] {
			return &domain.TurnOrderError{Reason: "map " + sel.MapName + " selected twice"}
		}
		if seenOrder[sel.Order] {
			return &domain.TurnOrderError{Reason: "duplicate selection order"}
		}
		seenMap[sel.MapName] = true
		seenOrder[sel.Order] = true
	}
	return nil
}
