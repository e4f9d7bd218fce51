// Package targeting computes and validates target selections for
// interactive script actions.
package targeting

import (
	"fmt"

	"github.com/optcgsim/match-server-go/internal/game/script"
)

// Candidate describes one card a filter may match. Candidates are built by
// the engine from the zone a filter names; the owner side is resolved
// before candidates reach this package.
type Candidate struct {
	InstanceID string
	CardNumber string
	Name       string
	Type       string
	Cost       int
	Power      int
	Rested     bool
}

// Matches reports whether a candidate satisfies the filter's card
// constraints. Zone and side are the caller's responsibility.
func Matches(c Candidate, f *script.Filter) bool {
	if f == nil {
		return true
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if t == c.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.MaxCost > 0 && c.Cost > f.MaxCost {
		return false
	}
	if f.MaxPower > 0 && c.Power > f.MaxPower {
		return false
	}
	if f.Rested != nil && c.Rested != *f.Rested {
		return false
	}
	return true
}

// LegalSet filters candidates down to those the filter accepts.
func LegalSet(candidates []Candidate, f *script.Filter) []Candidate {
	var legal []Candidate
	for _, c := range candidates {
		if Matches(c, f) {
			legal = append(legal, c)
		}
	}
	return legal
}

// ValidateSelection checks a player's chosen instance IDs against the legal
// set and the selection bounds. Duplicates are rejected.
func ValidateSelection(legal []Candidate, chosen []string, min, max int) error {
	if len(chosen) < min {
		return fmt.Errorf("targeting: selected %d, need at least %d", len(chosen), min)
	}
	if len(chosen) > max {
		return fmt.Errorf("targeting: selected %d, need at most %d", len(chosen), max)
	}

	legalIDs := make(map[string]bool, len(legal))
	for _, c := range legal {
		legalIDs[c.InstanceID] = true
	}

	seen := make(map[string]bool, len(chosen))
	for _, id := range chosen {
		if seen[id] {
			return fmt.Errorf("targeting: duplicate selection %s", id)
		}
		seen[id] = true
		if !legalIDs[id] {
			return fmt.Errorf("targeting: %s is not a legal target", id)
		}
	}
	return nil
}
