package game

import (
	"testing"

	"github.com/hashicorp/go-set/v3"
)

func TestSelectNextFiltersByModeAndReuse(t *testing.T) {
	pool := []Challenge{
		{ID: "solo", Type: Individual},
		{ID: "duo", Type: OneOnOne},
		{ID: "squad", Type: TeamBased},
		{ID: "brawl", Type: AllVsAll},
	}

	tests := []struct {
		name    string
		mode    Mode
		used    []string
		allowed map[string]bool
	}{
		{
			name:    "free for all excludes team challenges",
			mode:    FreeForAll,
			allowed: map[string]bool{"solo": true, "duo": true, "brawl": true},
		},
		{
			name:    "team mode allows everything",
			mode:    Teams,
			allowed: map[string]bool{"solo": true, "duo": true, "squad": true, "brawl": true},
		},
		{
			name:    "used challenges are excluded",
			mode:    Teams,
			used:    []string{"solo", "duo", "squad"},
			allowed: map[string]bool{"brawl": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			used := set.From(tt.used)
			// Selection is random, so sample until every allowed candidate
			// has shown up and no disallowed one ever does.
			for i := 0; i < 200; i++ {
				c := SelectNext(pool, used, tt.mode)
				if c == nil {
					t.Fatal("SelectNext() = nil with eligible candidates remaining")
				}
				if !tt.allowed[c.ID] {
					t.Fatalf("SelectNext() picked ineligible challenge %q", c.ID)
				}
			}
		})
	}
}

func TestSelectNextReusableChallengeSurvivesUse(t *testing.T) {
	pool := []Challenge{{ID: "evergreen", Type: Individual, CanReuse: true}}
	used := set.From([]string{"evergreen"})

	c := SelectNext(pool, used, FreeForAll)
	if c == nil || c.ID != "evergreen" {
		t.Fatalf("SelectNext() = %v, want the reusable challenge", c)
	}
}

func TestSelectNextExhaustionReturnsNil(t *testing.T) {
	pool := []Challenge{
		{ID: "a", Type: Individual},
		{ID: "b", Type: TeamBased},
	}

	if c := SelectNext(nil, set.New[string](0), FreeForAll); c != nil {
		t.Fatalf("empty pool: SelectNext() = %v, want nil", c)
	}

	used := set.From([]string{"a"})
	if c := SelectNext(pool, used, FreeForAll); c != nil {
		t.Fatalf("exhausted pool: SelectNext() = %v, want nil", c)
	}
}

func TestSelectNextNeverRepeatsNonReusable(t *testing.T) {
	pool := make([]Challenge, 10)
	for i := range pool {
		pool[i] = Challenge{ID: string(rune('a' + i)), Type: Individual}
	}

	used := set.New[string](len(pool))
	picked := map[string]bool{}
	for {
		c := SelectNext(pool, used, FreeForAll)
		if c == nil {
			break
		}
		if picked[c.ID] {
			t.Fatalf("challenge %q selected twice", c.ID)
		}
		picked[c.ID] = true
		used.Insert(c.ID)
	}

	if len(picked) != len(pool) {
		t.Fatalf("selected %d distinct challenges, want %d", len(picked), len(pool))
	}
}
