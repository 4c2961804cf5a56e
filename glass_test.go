/*
Copyright © 2026 Bendik Nordeng
*/

package main

import (
	"testing"
	"time"

	"github.com/bendiknordeng/glass-sub003/game"
)

// stubClock drives the hub's sequencer synchronously so no real timer is
// involved. Stale callbacks are discarded by the sequencer's own generation
// guard.
type stubClock struct {
	now     time.Time
	pending []func()
}

type stubTimer struct{}

func (stubTimer) Stop() bool { return true }

func (c *stubClock) Now() time.Time { return c.now }

func (c *stubClock) AfterFunc(d time.Duration, f func()) game.Timer {
	c.pending = append(c.pending, f)
	return stubTimer{}
}

func (c *stubClock) fire() {
	if len(c.pending) == 0 {
		return
	}
	f := c.pending[0]
	c.pending = c.pending[1:]
	f()
}

func newTestHub(t *testing.T) (*Hub, *Client, *stubClock, *Config) {
	t.Helper()

	cfg := &Config{
		revealDuration: time.Minute,
		resultDuration: time.Minute,
		playerTimeout:  time.Minute,
	}
	d := &deps{builtin: []game.Challenge{
		{ID: "c1", Title: "Chug", Type: game.Individual, Points: 5},
		{ID: "c2", Title: "Toast", Type: game.Individual, Points: 5},
	}}

	h := newHub(cfg, d, "testgame")

	clock := &stubClock{now: time.Unix(1700000000, 0)}
	h.seq = game.NewSequencer(h.game, clock, game.SequencerConfig{
		RevealDuration:  cfg.revealDuration,
		ResultDuration:  cfg.resultDuration,
		SkipFirstReveal: true,
	}, h.sequencerEvent)

	host := &Client{send: make(chan any, 64), playerID: "host-cookie"}
	h.clients[host] = true
	h.hostPlayerID = host.playerID

	return h, host, clock, cfg
}

func TestRemovePlayerRefusedWhileTurnInFlight(t *testing.T) {
	h, host, clock, cfg := newTestHub(t)

	p1 := h.game.AddPlayer("p1", "#f00", "")
	h.game.AddPlayer("p2", "#0f0", "")

	if err := h.seq.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	clock.fire() // challenge reveal elapses
	if got := h.seq.State(); got != game.StateChallengeActive {
		t.Fatalf("state = %s, want %s", got, game.StateChallengeActive)
	}

	h.handleHostCommand(cfg, hostCommand{
		client: host,
		msg:    ClientMessage{Type: "remove_player", TargetID: p1.ID},
	})

	if got := len(h.game.Players()); got != 2 {
		t.Fatalf("players = %d, want 2 (removal must be refused mid-game)", got)
	}

	// The in-flight turn can still record its result: every participant it
	// references is still on the roster.
	if err := h.seq.Complete(true, ""); err != nil {
		t.Fatalf("Complete() after refused removal = %v", err)
	}
}

func TestRemovePlayerAllowedWhileIdle(t *testing.T) {
	h, host, _, cfg := newTestHub(t)

	p1 := h.game.AddPlayer("p1", "#f00", "")
	h.game.AddPlayer("p2", "#0f0", "")

	h.handleHostCommand(cfg, hostCommand{
		client: host,
		msg:    ClientMessage{Type: "remove_player", TargetID: p1.ID},
	})

	players := h.game.Players()
	if len(players) != 1 || players[0].Name != "p2" {
		t.Fatalf("players = %+v, want only p2", players)
	}
}
