package game

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-set/v3"
)

// teamPalette provides colors for randomized teams.
var teamPalette = []string{"#e63946", "#457b9d", "#2a9d8f", "#f4a261", "#9b5de5", "#f15bb5"}

// Game is the authoritative in-memory state for one session: players, teams,
// the challenge pool, the turn cursor, and the append-only results list.
// All mutations are synchronous and total: invalid actions are no-ops rather
// than errors, so callers never have to unwind partial state.
type Game struct {
	mu sync.RWMutex

	id       string
	mode     Mode
	duration Duration

	players []Player
	teams   []Team

	builtin []Challenge
	custom  []Challenge
	used    *set.Set[string]

	results []ChallengeResult

	currentRound int
	currentTurn  int
	finished     bool
}

func New(id string, mode Mode, duration Duration, builtin []Challenge) *Game {
	return &Game{
		id:           id,
		mode:         mode,
		duration:     duration,
		builtin:      builtin,
		used:         set.New[string](len(builtin)),
		currentRound: 1,
	}
}

func (g *Game) ID() string { return g.id }

func (g *Game) Mode() Mode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mode
}

func (g *Game) Duration() Duration {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.duration
}

func (g *Game) SetMode(mode Mode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if mode != FreeForAll && mode != Teams {
		return
	}
	g.mode = mode
	g.currentTurn = 0
}

func (g *Game) SetDuration(d Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if d.Kind != ByChallenges && d.Kind != ByTime {
		return
	}
	if d.Value < 1 {
		return
	}
	g.duration = d
}

// AddPlayer creates a player with a fresh ID and zero score.
func (g *Game) AddPlayer(name, color, image string) Player {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := Player{
		ID:    uuid.NewString(),
		Name:  name,
		Color: color,
		Image: image,
	}
	g.players = append(g.players, p)
	return p
}

// RemovePlayer drops a player and pulls them out of any team. Removing an
// unknown ID is a no-op. The turn cursor is clamped so it stays a valid
// index into the roster.
func (g *Game) RemovePlayer(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	dst := g.players[:0]
	found := false
	for _, p := range g.players {
		if p.ID == id {
			found = true
			continue
		}
		dst = append(dst, p)
	}
	if !found {
		return
	}
	g.players = dst

	for i := range g.teams {
		ids := g.teams[i].PlayerIDs[:0]
		for _, pid := range g.teams[i].PlayerIDs {
			if pid == id {
				continue
			}
			ids = append(ids, pid)
		}
		g.teams[i].PlayerIDs = ids
	}

	g.clampTurnLocked()
}

// CreateTeam builds a team from the given player IDs. Unknown IDs are
// dropped; players already on another team are moved, so a player belongs
// to at most one team at a time.
func (g *Game) CreateTeam(name, color string, playerIDs []string) Team {
	g.mu.Lock()
	defer g.mu.Unlock()

	members := make([]string, 0, len(playerIDs))
	for _, pid := range playerIDs {
		if g.playerLocked(pid) == nil {
			continue
		}
		members = append(members, pid)
	}

	for i := range g.teams {
		ids := g.teams[i].PlayerIDs[:0]
		for _, pid := range g.teams[i].PlayerIDs {
			if contains(members, pid) {
				continue
			}
			ids = append(ids, pid)
		}
		g.teams[i].PlayerIDs = ids
	}

	t := Team{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     color,
		PlayerIDs: members,
	}
	g.teams = append(g.teams, t)
	return t
}

// RandomizeTeams discards any existing teams and deals the current players
// into count teams in shuffled order. Asking for fewer than two teams, or
// more teams than players, is a no-op.
func (g *Game) RandomizeTeams(count int) []Team {
	g.mu.Lock()
	defer g.mu.Unlock()

	if count < 2 || count > len(g.players) {
		return nil
	}

	ids := make([]string, 0, len(g.players))
	for _, p := range g.players {
		ids = append(ids, p.ID)
	}

	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	g.teams = make([]Team, count)
	for i := range g.teams {
		g.teams[i] = Team{
			ID:    uuid.NewString(),
			Name:  fmt.Sprintf("Team %d", i+1),
			Color: teamPalette[i%len(teamPalette)],
		}
	}
	for i, pid := range ids {
		t := &g.teams[i%count]
		t.PlayerIDs = append(t.PlayerIDs, pid)
	}

	g.currentTurn = 0
	return append([]Team(nil), g.teams...)
}

// AddCustomChallenge registers a user-created challenge, assigning an ID if
// the caller did not provide one.
func (g *Game) AddCustomChallenge(c Challenge) Challenge {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	g.custom = append(g.custom, c)
	return c
}

func (g *Game) UpdateCustomChallenge(id string, c Challenge) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := range g.custom {
		if g.custom[i].ID == id {
			c.ID = id
			g.custom[i] = c
			return
		}
	}
}

func (g *Game) RemoveCustomChallenge(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	dst := g.custom[:0]
	for _, c := range g.custom {
		if c.ID == id {
			continue
		}
		dst = append(dst, c)
	}
	g.custom = dst
}

// Pool returns the full candidate pool, built-in plus custom.
func (g *Game) Pool() []Challenge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	pool := make([]Challenge, 0, len(g.builtin)+len(g.custom))
	pool = append(pool, g.builtin...)
	pool = append(pool, g.custom...)
	return pool
}

// MarkUsed records that a challenge has been handed out. The selector never
// returns a used challenge again unless it is flagged reusable.
func (g *Game) MarkUsed(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.used.Insert(id)
}

func (g *Game) UsedIDs() *set.Set[string] {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.used.Copy()
}

// Participants resolves the turn roster for the current mode into tagged
// variants: players in free-for-all, teams in team mode.
func (g *Game) Participants() []Participant {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.participantsLocked()
}

func (g *Game) participantsLocked() []Participant {
	if g.mode == Teams {
		out := make([]Participant, 0, len(g.teams))
		for i := range g.teams {
			t := g.teams[i]
			out = append(out, Participant{Kind: KindTeam, Team: &t})
		}
		return out
	}
	out := make([]Participant, 0, len(g.players))
	for i := range g.players {
		p := g.players[i]
		out = append(out, Participant{Kind: KindPlayer, Player: &p})
	}
	return out
}

// CurrentParticipant returns the participant whose turn it is, or a zero
// Participant when the roster is empty.
func (g *Game) CurrentParticipant() Participant {
	g.mu.RLock()
	defer g.mu.RUnlock()

	roster := g.participantsLocked()
	if len(roster) == 0 {
		return Participant{}
	}
	return roster[g.currentTurn%len(roster)]
}

// AdvanceTurn moves the cursor to the next participant, bumping the round
// counter on wraparound. No-op once the game is finished or the roster is
// empty.
func (g *Game) AdvanceTurn() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.finished {
		return
	}
	n := len(g.players)
	if g.mode == Teams {
		n = len(g.teams)
	}
	if n == 0 {
		return
	}
	g.currentTurn = (g.currentTurn + 1) % n
	if g.currentTurn == 0 {
		g.currentRound++
	}
}

func (g *Game) SetRound(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n < 1 {
		return
	}
	g.currentRound = n
}

func (g *Game) Round() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.currentRound
}

func (g *Game) TurnIndex() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.currentTurn
}

func (g *Game) EndGame() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.finished = true
}

func (g *Game) Finished() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.finished
}

// Reset returns the session to a blank setup: roster, teams, results, used
// set, and cursors are all cleared. Custom challenges survive a reset so the
// group can play again with the same deck.
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.players = nil
	g.teams = nil
	g.results = nil
	g.used = set.New[string](len(g.builtin))
	g.currentRound = 1
	g.currentTurn = 0
	g.finished = false
}

func (g *Game) Players() []Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Player(nil), g.players...)
}

func (g *Game) Teams() []Team {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Team, len(g.teams))
	for i, t := range g.teams {
		t.PlayerIDs = append([]string(nil), t.PlayerIDs...)
		out[i] = t
	}
	return out
}

func (g *Game) Results() []ChallengeResult {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]ChallengeResult(nil), g.results...)
}

func (g *Game) playerLocked(id string) *Player {
	for i := range g.players {
		if g.players[i].ID == id {
			return &g.players[i]
		}
	}
	return nil
}

func (g *Game) teamLocked(id string) *Team {
	for i := range g.teams {
		if g.teams[i].ID == id {
			return &g.teams[i]
		}
	}
	return nil
}

func (g *Game) clampTurnLocked() {
	n := len(g.players)
	if g.mode == Teams {
		n = len(g.teams)
	}
	if n == 0 {
		g.currentTurn = 0
		return
	}
	if g.currentTurn >= n {
		g.currentTurn = 0
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
