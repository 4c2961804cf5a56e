package game

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"
)

// State is the sequencer's position in the turn cycle.
type State string

const (
	StateIdle                 State = "idle"
	StateSelectingParticipant State = "selecting_participant"
	StateRevealingParticipant State = "revealing_participant"
	StateRevealingChallenge   State = "revealing_challenge"
	StateChallengeActive      State = "challenge_active"
	StateShowingResult        State = "showing_result"
	StateGameFinished         State = "game_finished"
)

// Stage is one time-boxed reveal step shown to players before a challenge
// becomes active.
type Stage string

const (
	StageParticipantReveal      Stage = "participant_reveal"
	StageMultiParticipantReveal Stage = "multi_participant_reveal"
	StageTeamReveal             Stage = "team_reveal"
	StageChallengeReveal        Stage = "challenge_reveal"
)

// Scheduler abstracts wall-clock time and one-shot timers so tests can drive
// stage transitions synchronously instead of sleeping through real reveals.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// WallClock is the Scheduler used in production, backed by the time package.
type WallClock struct{}

func (WallClock) Now() time.Time { return time.Now() }

func (WallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Turn bundles everything the presentation layer needs for one turn: the
// challenge, the resolved participants, and the full reveal plan.
type Turn struct {
	Number       int           `json:"number"`
	Challenge    Challenge     `json:"challenge"`
	Participants []Participant `json:"participants"`
	Stages       []Stage       `json:"stages"`
}

// Event is delivered to the notify callback on every externally visible
// transition. Stage is set while revealing; Result is set once a turn's
// outcome has been recorded.
type Event struct {
	State  State            `json:"state"`
	Stage  Stage            `json:"stage,omitempty"`
	Turn   *Turn            `json:"turn,omitempty"`
	Result *ChallengeResult `json:"result,omitempty"`
}

// SequencerConfig carries the fixed stage durations and the one-shot
// first-turn flag. SkipFirstReveal makes the very first turn of a fresh game
// jump straight to the challenge reveal; the flag is consumed exactly once.
type SequencerConfig struct {
	RevealDuration  time.Duration
	ResultDuration  time.Duration
	SkipFirstReveal bool
}

var (
	ErrAlreadyStarted = errors.New("game: sequencer already started")
	ErrNotActive      = errors.New("game: no challenge is active")
)

// Sequencer drives the turn cycle as an explicit state machine:
//
//	Idle → SelectingParticipant → Revealing… → ChallengeActive →
//	ShowingResult → (SelectingParticipant | GameFinished)
//
// Reveal stages always run their full fixed duration; there is no early
// skip. Timer callbacks from a previous generation are discarded, so a
// pending reveal can never touch state after a reset or teardown.
//
// The notify callback fires with the sequencer lock held and must not call
// back into the Sequencer.
type Sequencer struct {
	mu     sync.Mutex
	game   *Game
	clock  Scheduler
	notify func(Event)

	revealFor       time.Duration
	resultFor       time.Duration
	initialSkip     bool
	skipFirstReveal bool

	state        State
	turn         *Turn
	stageIdx     int
	timer        Timer
	gen          int
	startedAt    time.Time
	turnsStarted int
	turnsPlayed  int
}

func NewSequencer(g *Game, clock Scheduler, cfg SequencerConfig, notify func(Event)) *Sequencer {
	return &Sequencer{
		game:            g,
		clock:           clock,
		notify:          notify,
		revealFor:       cfg.RevealDuration,
		resultFor:       cfg.ResultDuration,
		initialSkip:     cfg.SkipFirstReveal,
		skipFirstReveal: cfg.SkipFirstReveal,
		state:           StateIdle,
	}
}

func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Turn returns the in-flight turn, or nil between turns.
func (s *Sequencer) Turn() *Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turn
}

// Start begins the first turn. Only valid from Idle.
func (s *Sequencer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrAlreadyStarted
	}
	s.startedAt = s.clock.Now()
	s.beginTurnLocked()
	return nil
}

// Complete records the outcome of the active challenge and moves to
// ShowingResult. Validation failures from the recorder are returned without
// any transition, so the challenge stays active and can be re-submitted.
func (s *Sequencer) Complete(completed bool, winnerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateChallengeActive || s.turn == nil {
		return ErrNotActive
	}

	ids := make([]string, 0, len(s.turn.Participants))
	for _, p := range s.turn.Participants {
		ids = append(ids, p.ID())
	}

	result, err := s.game.Record(s.turn.Challenge.ID, ids, completed, winnerID)
	if err != nil {
		return err
	}

	s.turnsPlayed++
	s.state = StateShowingResult
	s.emitLocked(Event{State: s.state, Turn: s.turn, Result: &result})

	gen := s.gen
	s.timer = s.clock.AfterFunc(s.resultFor, func() { s.resultShown(gen) })
	return nil
}

// Reset cancels any pending stage timer and returns the sequencer to Idle,
// re-arming the one-shot first-turn skip for the next fresh game. This is
// the only exit from GameFinished. The Game itself is reset by the caller.
func (s *Sequencer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.state = StateIdle
	s.turn = nil
	s.stageIdx = 0
	s.turnsStarted = 0
	s.turnsPlayed = 0
	s.skipFirstReveal = s.initialSkip
}

// Stop cancels any pending timer without changing state. Used on session
// teardown so a late reveal callback cannot fire into freed state.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
}

func (s *Sequencer) stopTimerLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Sequencer) beginTurnLocked() {
	s.state = StateSelectingParticipant
	s.emitLocked(Event{State: s.state})

	challenge := SelectNext(s.game.Pool(), s.game.UsedIDs(), s.game.Mode())
	if challenge == nil {
		// Exhaustion is a normal terminal condition, not an error.
		s.finishLocked()
		return
	}
	s.game.MarkUsed(challenge.ID)

	participants := s.resolveParticipantsLocked(*challenge)
	if len(participants) == 0 {
		s.finishLocked()
		return
	}

	stages := stagePlan(challenge.Type, s.game.Mode(), s.skipFirstReveal)
	s.skipFirstReveal = false

	s.turnsStarted++
	s.turn = &Turn{
		Number:       s.turnsStarted,
		Challenge:    *challenge,
		Participants: participants,
		Stages:       stages,
	}
	s.stageIdx = 0
	s.enterStageLocked()
}

func (s *Sequencer) enterStageLocked() {
	stage := s.turn.Stages[s.stageIdx]
	if stage == StageChallengeReveal {
		s.state = StateRevealingChallenge
	} else {
		s.state = StateRevealingParticipant
	}
	s.emitLocked(Event{State: s.state, Stage: stage, Turn: s.turn})

	gen := s.gen
	s.timer = s.clock.AfterFunc(s.revealFor, func() { s.stageElapsed(gen) })
}

func (s *Sequencer) stageElapsed(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}
	s.timer = nil

	s.stageIdx++
	if s.stageIdx < len(s.turn.Stages) {
		s.enterStageLocked()
		return
	}

	s.state = StateChallengeActive
	s.emitLocked(Event{State: s.state, Turn: s.turn})
}

func (s *Sequencer) resultShown(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}
	s.timer = nil

	if s.endConditionLocked() {
		s.finishLocked()
		return
	}

	s.game.AdvanceTurn()
	s.beginTurnLocked()
}

func (s *Sequencer) endConditionLocked() bool {
	d := s.game.Duration()
	switch d.Kind {
	case ByChallenges:
		return s.turnsPlayed >= d.Value
	case ByTime:
		return s.clock.Now().Sub(s.startedAt) >= d.Limit()
	}
	return false
}

func (s *Sequencer) finishLocked() {
	s.stopTimerLocked()
	s.state = StateGameFinished
	s.turn = nil
	s.game.EndGame()
	s.emitLocked(Event{State: s.state})
}

// resolveParticipantsLocked turns the challenge type into a concrete set of
// participants for this turn, anchored on whoever's turn it is.
func (s *Sequencer) resolveParticipantsLocked(c Challenge) []Participant {
	roster := s.game.Participants()
	if len(roster) == 0 {
		return nil
	}
	current := s.game.CurrentParticipant()

	switch c.Type {
	case AllVsAll, TeamBased:
		return roster
	case OneOnOne:
		others := make([]Participant, 0, len(roster)-1)
		for _, p := range roster {
			if p.ID() == current.ID() {
				continue
			}
			others = append(others, p)
		}
		if len(others) == 0 {
			return []Participant{current}
		}
		opponent := others[rand.IntN(len(others))]
		return []Participant{current, opponent}
	default:
		return []Participant{current}
	}
}

// stagePlan decides which reveal variant precedes the challenge reveal.
// The one-shot skip drops the participant reveal entirely.
func stagePlan(t ChallengeType, mode Mode, skip bool) []Stage {
	if skip {
		return []Stage{StageChallengeReveal}
	}

	var reveal Stage
	switch {
	case t == TeamBased && mode == Teams:
		reveal = StageTeamReveal
	case t == OneOnOne || t == AllVsAll:
		reveal = StageMultiParticipantReveal
	default:
		reveal = StageParticipantReveal
	}
	return []Stage{reveal, StageChallengeReveal}
}

func (s *Sequencer) emitLocked(ev Event) {
	if s.notify != nil {
		s.notify(ev)
	}
}
