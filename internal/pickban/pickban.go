// Package pickban implements the alternating map pick/ban protocol.
// The engine is pure: turn state is reconstructed by replaying the
// persisted selections, so there is no cursor to keep in sync with the
// database.
package pickban

import (
	"fmt"

	"customs-league/internal/domain"
)

// DefaultPool is the standard seven-map competitive pool.
var DefaultPool = []string{"Ascent", "Bind", "Haven", "Split", "Icebox", "Breeze", "Lotus"}

type phase struct {
	action domain.MapAction
	count  int
}

// Canonical phase order per series length. With a seven-map pool the
// second BO5 ban phase can never execute legally: executing it would
// leave fewer maps than remaining required picks, so Sequence drops it.
var phases = map[domain.SeriesType][]phase{
	domain.SeriesBO1: {{domain.ActionBan, 6}, {domain.ActionPick, 1}},
	domain.SeriesBO3: {{domain.ActionBan, 2}, {domain.ActionPick, 2}, {domain.ActionBan, 2}, {domain.ActionPick, 1}},
	domain.SeriesBO5: {{domain.ActionBan, 2}, {domain.ActionPick, 3}, {domain.ActionBan, 2}, {domain.ActionPick, 2}},
}

// Sequence builds the effective slot list for a series over a pool of
// the given size. A prescribed ban is skipped when it would leave the
// pool smaller than the number of picks still required, and the final
// pick becomes DECIDER when it lands on the last remaining map.
func Sequence(st domain.SeriesType, poolSize int) []domain.MapAction {
	remaining := poolSize
	picksLeft := st.MapCount()
	var seq []domain.MapAction
	for _, ph := range phases[st] {
		for i := 0; i < ph.count; i++ {
			switch ph.action {
			case domain.ActionBan:
				if remaining-1 < picksLeft {
					continue
				}
				seq = append(seq, domain.ActionBan)
				remaining--
			case domain.ActionPick:
				if remaining == 1 && picksLeft == 1 {
					seq = append(seq, domain.ActionDecider)
				} else {
					seq = append(seq, domain.ActionPick)
				}
				remaining--
				picksLeft--
			}
		}
	}
	return seq
}

// Turn describes whose move it is and what the slot prescribes.
type Turn struct {
	Index  int
	Team   domain.TeamKind
	Action domain.MapAction
	Done   bool
}

// teamAt derives turn ownership from index parity: firstPick acts on
// even indexes, the other team on odd ones.
func teamAt(index int, firstPick domain.TeamKind) domain.TeamKind {
	other := domain.TeamBravo
	if firstPick == domain.TeamBravo {
		other = domain.TeamAlpha
	}
	if index%2 == 0 {
		return firstPick
	}
	return other
}

// ComputeTurn replays the recorded selections against the sequence:
// the turn index is simply the count of recorded selections.
func ComputeTurn(selections []domain.MapSelection, st domain.SeriesType, firstPick domain.TeamKind, poolSize int) Turn {
	seq := Sequence(st, poolSize)
	idx := len(selections)
	if idx >= len(seq) {
		return Turn{Index: idx, Done: true}
	}
	t := Turn{Index: idx, Action: seq[idx]}
	if t.Action != domain.ActionDecider {
		t.Team = teamAt(idx, firstPick)
	}
	return t
}

// Available returns the pool maps not yet consumed by a selection.
func Available(pool []string, selections []domain.MapSelection) []string {
	used := make(map[string]bool, len(selections))
	for _, sel := range selections {
		used[sel.MapName] = true
	}
	var out []string
	for _, m := range pool {
		if !used[m] {
			out = append(out, m)
		}
	}
	return out
}

// Apply validates one captain action against the current turn and
// returns the selections to append: the acted slot, plus the decider
// auto-designated when the action leaves exactly the final required
// map in the pool.
func Apply(selections []domain.MapSelection, st domain.SeriesType, firstPick domain.TeamKind, pool []string, acting domain.TeamKind, mapName string, action domain.MapAction) ([]domain.MapSelection, error) {
	turn := ComputeTurn(selections, st, firstPick, len(pool))
	if turn.Done {
		return nil, &domain.TurnOrderError{Reason: "pick/ban sequence already finished"}
	}
	if turn.Action == domain.ActionDecider {
		return nil, &domain.TurnOrderError{Reason: "decider is designated automatically"}
	}
	if acting != turn.Team {
		return nil, &domain.TurnOrderError{Reason: "not your turn"}
	}
	if action != turn.Action {
		return nil, &domain.TurnOrderError{Reason: fmt.Sprintf("turn %d expects %s", turn.Index, turn.Action)}
	}
	avail := Available(pool, selections)
	if !contains(avail, mapName) {
		return nil, &domain.TurnOrderError{Reason: "map " + mapName + " is not available"}
	}

	out := []domain.MapSelection{{
		Order:   turn.Index,
		MapName: mapName,
		Action:  action,
	}}

	// Auto-designate the decider once only one map and one pick remain.
	rest := remove(avail, mapName)
	nextTurn := ComputeTurn(append(selections, out[0]), st, firstPick, len(pool))
	if !nextTurn.Done && nextTurn.Action == domain.ActionDecider && len(rest) == 1 {
		out = append(out, domain.MapSelection{
			Order:   nextTurn.Index,
			MapName: rest[0],
			Action:  domain.ActionDecider,
		})
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	var out []string
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
