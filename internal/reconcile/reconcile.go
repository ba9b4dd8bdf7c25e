// Package reconcile maps raw display names extracted by OCR or tracker
// export onto roster members. One implementation serves both sources.
package reconcile

import (
	"strings"
)

// Candidate is a roster member eligible to claim an extracted row.
type Candidate struct {
	UserID string
	Name   string
	Tag    string
}

func (c Candidate) display() string {
	if c.Tag == "" {
		return c.Name
	}
	return c.Name + "#" + c.Tag
}

// Normalize collapses whitespace, unifies the @/# tag separators and
// case-folds, so "Player One @EU" and "playerone#eu" compare equal.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "@", "#")
	return strings.Join(strings.Fields(s), "")
}

// base is the part of a normalized name before the tag separator.
func base(s string) string {
	if i := strings.Index(s, "#"); i >= 0 {
		return s[:i]
	}
	return s
}

// Resolve matches the extracted hint against the team-scoped candidate
// set, falling back to the full roster when the team set yields
// nothing. Ties and misses are reported as not-ok; the caller surfaces
// them to a reviewer instead of guessing.
func Resolve(hint string, team []Candidate, roster []Candidate) (string, bool) {
	if id, ok := match(hint, team); ok {
		return id, true
	}
	return match(hint, roster)
}

func match(hint string, candidates []Candidate) (string, bool) {
	norm := Normalize(hint)
	if norm == "" {
		return "", false
	}

	// Exact normalized match.
	for _, c := range candidates {
		if Normalize(c.display()) == norm {
			return c.UserID, true
		}
	}

	// Base name before the tag separator.
	hintBase := base(norm)
	for _, c := range candidates {
		if base(Normalize(c.display())) == hintBase {
			return c.UserID, true
		}
	}

	// Substring fallback, in either direction. Refuse on ambiguity.
	var found string
	for _, c := range candidates {
		cb := base(Normalize(c.display()))
		if cb == "" {
			continue
		}
		if strings.Contains(cb, hintBase) || strings.Contains(hintBase, cb) {
			if found != "" && found != c.UserID {
				return "", false
			}
			found = c.UserID
		}
	}
	if found != "" {
		return found, true
	}
	return "", false
}
