package game

import (
	"encoding/json"
	"time"
)

// ChallengeType determines who takes part in a challenge and how points
// are awarded when it completes.
type ChallengeType string

const (
	Individual ChallengeType = "individual"
	OneOnOne   ChallengeType = "oneOnOne"
	TeamBased  ChallengeType = "team"
	AllVsAll   ChallengeType = "allVsAll"
)

// Mode selects whether turns rotate over individual players or teams.
type Mode string

const (
	FreeForAll Mode = "freeForAll"
	Teams      Mode = "teams"
)

// DurationKind selects how a game ends: after a fixed number of completed
// challenges, or after a wall-clock limit.
type DurationKind string

const (
	ByChallenges DurationKind = "challenges"
	ByTime       DurationKind = "time"
)

// Duration is the configured end condition for a game. Value is a challenge
// count for ByChallenges and a number of minutes for ByTime.
type Duration struct {
	Kind  DurationKind `json:"kind"`
	Value int          `json:"value"`
}

// Limit returns the wall-clock limit for ByTime durations, zero otherwise.
func (d Duration) Limit() time.Duration {
	if d.Kind != ByTime {
		return 0
	}
	return time.Duration(d.Value) * time.Minute
}

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
	Color string `json:"color"`
	Score int    `json:"score"`
}

type Team struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Color     string   `json:"color"`
	PlayerIDs []string `json:"player_ids"`
	Score     int      `json:"score"`
}

// Challenge is a task assigned to one or more participants during a turn.
// Prebuilt challenges (the music quiz) carry an opaque settings blob that is
// consumed by the client-side player, not by the core.
type Challenge struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Type        ChallengeType   `json:"type"`
	Points      int             `json:"points"`
	CanReuse    bool            `json:"can_reuse"`
	Punishment  string          `json:"punishment,omitempty"`
	Prebuilt    json.RawMessage `json:"prebuilt,omitempty"`
}

// ChallengeResult is one entry in the append-only per-game audit trail.
type ChallengeResult struct {
	ChallengeID    string    `json:"challenge_id"`
	ParticipantIDs []string  `json:"participant_ids"`
	WinnerID       string    `json:"winner_id,omitempty"`
	Points         int       `json:"points"`
	Completed      bool      `json:"completed"`
	Timestamp      time.Time `json:"timestamp"`
}

// ParticipantKind tags the Participant variant.
type ParticipantKind string

const (
	KindPlayer ParticipantKind = "player"
	KindTeam   ParticipantKind = "team"
)

// Participant is a tagged variant over players and teams, resolved once at
// selection time so downstream code never type-switches on a union.
type Participant struct {
	Kind   ParticipantKind `json:"kind"`
	Player *Player         `json:"player,omitempty"`
	Team   *Team           `json:"team,omitempty"`
}

func (p Participant) ID() string {
	switch p.Kind {
	case KindPlayer:
		return p.Player.ID
	case KindTeam:
		return p.Team.ID
	}
	return ""
}

func (p Participant) Name() string {
	switch p.Kind {
	case KindPlayer:
		return p.Player.Name
	case KindTeam:
		return p.Team.Name
	}
	return ""
}
