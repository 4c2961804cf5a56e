package game

import (
	"math/rand/v2"

	"github.com/hashicorp/go-set/v3"
)

// SelectNext picks the next challenge from pool, skipping challenges that
// are incompatible with the game mode and challenges already used unless
// they are flagged reusable. The pick is uniform among eligible candidates.
// Returns nil when no eligible challenge remains; the caller ends the game.
//
// SelectNext has no side effects: the caller is responsible for marking the
// returned challenge as used.
func SelectNext(pool []Challenge, used *set.Set[string], mode Mode) *Challenge {
	eligible := make([]Challenge, 0, len(pool))
	for _, c := range pool {
		if !compatible(c.Type, mode) {
			continue
		}
		if used != nil && used.Contains(c.ID) && !c.CanReuse {
			continue
		}
		eligible = append(eligible, c)
	}

	if len(eligible) == 0 {
		return nil
	}

	pick := eligible[rand.IntN(len(eligible))]
	return &pick
}

// compatible reports whether a challenge type can be played under the given
// mode. Team-only challenges need standing teams; oneOnOne and allVsAll
// group participants ad hoc and work in either mode.
func compatible(t ChallengeType, mode Mode) bool {
	if t == TeamBased {
		return mode == Teams
	}
	return true
}
