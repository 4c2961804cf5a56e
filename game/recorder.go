package game

import (
	"errors"
	"time"
)

var (
	// ErrUnknownChallenge is returned when a result references a challenge
	// that is in neither the built-in nor the custom pool.
	ErrUnknownChallenge = errors.New("game: unknown challenge")

	// ErrUnknownParticipant is returned when a result references an ID that
	// resolves to no live player or team. Nothing is recorded in that case,
	// so scores can never drift against the audit trail.
	ErrUnknownParticipant = errors.New("game: unknown participant")

	// ErrNoParticipants is returned when a result names nobody.
	ErrNoParticipants = errors.New("game: result has no participants")

	// ErrWinnerNotParticipating is returned when the winner is not one of
	// the named participants.
	ErrWinnerNotParticipating = errors.New("game: winner is not a participant")
)

// Record appends one ChallengeResult to the game's history and applies the
// score delta it implies. Prior entries are never mutated.
//
// When completed is true the challenge's points go to the winner if one is
// named, or to every participant for cooperative outcomes with no single
// winner. When completed is false no score changes, but the entry is still
// recorded so completion-rate statistics stay honest.
//
// Every referenced ID is validated against live players and teams before
// anything is written; a bad reference fails the whole record.
func (g *Game) Record(challengeID string, participantIDs []string, completed bool, winnerID string) (ChallengeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var challenge *Challenge
	for i := range g.builtin {
		if g.builtin[i].ID == challengeID {
			challenge = &g.builtin[i]
			break
		}
	}
	if challenge == nil {
		for i := range g.custom {
			if g.custom[i].ID == challengeID {
				challenge = &g.custom[i]
				break
			}
		}
	}
	if challenge == nil {
		return ChallengeResult{}, ErrUnknownChallenge
	}

	if len(participantIDs) == 0 {
		return ChallengeResult{}, ErrNoParticipants
	}
	for _, id := range participantIDs {
		if g.playerLocked(id) == nil && g.teamLocked(id) == nil {
			return ChallengeResult{}, ErrUnknownParticipant
		}
	}
	if winnerID != "" && !contains(participantIDs, winnerID) {
		return ChallengeResult{}, ErrWinnerNotParticipating
	}

	if completed {
		recipients := participantIDs
		if winnerID != "" {
			recipients = []string{winnerID}
		}
		for _, id := range recipients {
			if p := g.playerLocked(id); p != nil {
				p.Score += challenge.Points
				continue
			}
			if t := g.teamLocked(id); t != nil {
				t.Score += challenge.Points
			}
		}
	}

	result := ChallengeResult{
		ChallengeID:    challengeID,
		ParticipantIDs: append([]string(nil), participantIDs...),
		WinnerID:       winnerID,
		Points:         challenge.Points,
		Completed:      completed,
		Timestamp:      time.Now(),
	}
	g.results = append(g.results, result)
	return result, nil
}
