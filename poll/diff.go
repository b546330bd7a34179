package poll

import (
	"slices"

	"github.com/kibsywow/recruit-bot/pkg/lfg"
)

// tailSize is how many entries at the bottom of the roster are never announced.
const tailSize = 5

// NewListings returns the listings in all that should be considered new, in
// roster order. With an empty prev everything is new and the tail rule is not
// applied. Duplicate listings in all are kept.
func NewListings(all []lfg.Listing, prev []string) []lfg.Listing {
	if len(prev) == 0 {
		return slices.Clone(all)
	}

	known := make(map[string]bool, len(prev))
	for _, id := range prev {
		known[id] = true
	}

	tail := make(map[string]bool, tailSize)
	for _, l := range all[max(0, len(all)-tailSize):] {
		tail[l.ID()] = true
	}

	var out []lfg.Listing
	for _, l := range all {
		id := l.ID()
		if known[id] || tail[id] {
			continue
		}
		out = append(out, l)
	}
	return out
}

// nextState is every id in all, in first-occurrence order, minus failed.
func nextState(all []lfg.Listing, failed map[string]bool) []string {
	seen := make(map[string]bool, len(all))
	state := make([]string, 0, len(all))
	for _, l := range all {
		id := l.ID()
		if seen[id] || failed[id] {
			continue
		}
		seen[id] = true
		state = append(state, id)
	}
	return state
}
