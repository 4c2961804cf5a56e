package game

import (
	"errors"
	"testing"
)

func TestRecordAwardsWinnerOnly(t *testing.T) {
	pool := []Challenge{{ID: "ch1", Title: "Chug", Type: Individual, Points: 10}}
	g := New("test", FreeForAll, Duration{Kind: ByChallenges, Value: 5}, pool)
	p1 := g.AddPlayer("p1", "#f00", "")
	p2 := g.AddPlayer("p2", "#0f0", "")

	result, err := g.Record("ch1", []string{p1.ID, p2.ID}, true, p1.ID)
	if err != nil {
		t.Fatalf("Record() = %v", err)
	}
	if !result.Completed || result.WinnerID != p1.ID {
		t.Fatalf("result = %+v", result)
	}

	players := g.Players()
	scores := map[string]int{}
	for _, p := range players {
		scores[p.Name] = p.Score
	}
	if scores["p1"] != 10 {
		t.Errorf("winner score = %d, want 10", scores["p1"])
	}
	if scores["p2"] != 0 {
		t.Errorf("loser score = %d, want 0", scores["p2"])
	}
}

func TestRecordCooperativeAwardsAllParticipants(t *testing.T) {
	pool := []Challenge{{ID: "ch1", Title: "Group toast", Type: AllVsAll, Points: 5}}
	g := New("test", FreeForAll, Duration{Kind: ByChallenges, Value: 5}, pool)
	p1 := g.AddPlayer("p1", "#f00", "")
	p2 := g.AddPlayer("p2", "#0f0", "")

	if _, err := g.Record("ch1", []string{p1.ID, p2.ID}, true, ""); err != nil {
		t.Fatalf("Record() = %v", err)
	}

	for _, p := range g.Players() {
		if p.Score != 5 {
			t.Errorf("%s score = %d, want 5", p.Name, p.Score)
		}
	}
}

func TestRecordNotCompletedKeepsScoresAndHistory(t *testing.T) {
	pool := []Challenge{{ID: "ch1", Title: "Chug", Type: Individual, Points: 10}}
	g := New("test", FreeForAll, Duration{Kind: ByChallenges, Value: 5}, pool)
	p1 := g.AddPlayer("p1", "#f00", "")

	result, err := g.Record("ch1", []string{p1.ID}, false, "")
	if err != nil {
		t.Fatalf("Record() = %v", err)
	}
	if result.Completed {
		t.Fatal("result marked completed")
	}

	if got := g.Players()[0].Score; got != 0 {
		t.Errorf("score = %d, want 0", got)
	}
	history := g.Results()
	if len(history) != 1 || history[0].Completed {
		t.Fatalf("history = %+v, want one non-completed entry", history)
	}
}

func TestRecordAwardsTeamScore(t *testing.T) {
	pool := []Challenge{{ID: "ch1", Title: "Relay", Type: TeamBased, Points: 15}}
	g := New("test", Teams, Duration{Kind: ByChallenges, Value: 5}, pool)
	p1 := g.AddPlayer("p1", "#f00", "")
	p2 := g.AddPlayer("p2", "#0f0", "")
	t1 := g.CreateTeam("Red", "#f00", []string{p1.ID})
	t2 := g.CreateTeam("Green", "#0f0", []string{p2.ID})

	if _, err := g.Record("ch1", []string{t1.ID, t2.ID}, true, t1.ID); err != nil {
		t.Fatalf("Record() = %v", err)
	}

	for _, team := range g.Teams() {
		want := 0
		if team.ID == t1.ID {
			want = 15
		}
		if team.Score != want {
			t.Errorf("%s score = %d, want %d", team.Name, team.Score, want)
		}
	}
}

func TestRecordValidation(t *testing.T) {
	pool := []Challenge{{ID: "ch1", Title: "Chug", Type: Individual, Points: 10}}
	g := New("test", FreeForAll, Duration{Kind: ByChallenges, Value: 5}, pool)
	p1 := g.AddPlayer("p1", "#f00", "")

	tests := []struct {
		name         string
		challengeID  string
		participants []string
		winnerID     string
		wantErr      error
	}{
		{
			name:         "unknown challenge",
			challengeID:  "nope",
			participants: []string{p1.ID},
			wantErr:      ErrUnknownChallenge,
		},
		{
			name:         "unknown participant",
			challengeID:  "ch1",
			participants: []string{"ghost"},
			wantErr:      ErrUnknownParticipant,
		},
		{
			name:        "no participants",
			challengeID: "ch1",
			wantErr:     ErrNoParticipants,
		},
		{
			name:         "winner not participating",
			challengeID:  "ch1",
			participants: []string{p1.ID},
			winnerID:     "ghost",
			wantErr:      ErrWinnerNotParticipating,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Record(tt.challengeID, tt.participants, true, tt.winnerID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Record() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Failed records must leave no trace.
	if len(g.Results()) != 0 {
		t.Fatalf("results = %d, want 0 after rejected records", len(g.Results()))
	}
	if got := g.Players()[0].Score; got != 0 {
		t.Fatalf("score = %d, want 0 after rejected records", got)
	}
}

func TestAwardDeltasMatchRecordedPoints(t *testing.T) {
	pool := []Challenge{
		{ID: "a", Type: Individual, Points: 10},
		{ID: "b", Type: Individual, Points: 20},
	}
	g := New("test", FreeForAll, Duration{Kind: ByChallenges, Value: 5}, pool)
	p1 := g.AddPlayer("p1", "#f00", "")

	if _, err := g.Record("a", []string{p1.ID}, true, p1.ID); err != nil {
		t.Fatalf("Record() = %v", err)
	}
	if _, err := g.Record("b", []string{p1.ID}, true, p1.ID); err != nil {
		t.Fatalf("Record() = %v", err)
	}

	sum := 0
	for _, r := range g.Results() {
		if r.Completed {
			sum += r.Points
		}
	}
	if got := g.Players()[0].Score; got != sum {
		t.Fatalf("score = %d, recorded awards = %d", got, sum)
	}
}
