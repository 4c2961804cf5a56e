// Glass party game
//
// A group gathers around one or more screens, joins a session, and takes
// turns completing randomly drawn challenges. Scores accumulate per player
// (free-for-all) or per team, and a scoreboard is shown when the game ends.
//
// Features:
// - WebSockets per game ID: /glass/:gameid and /glass/:gameid/ws
// - First connection to a session becomes the host
// - Host configures mode and duration, manages players/teams/challenges
// - Players identified by cookie (playerID); reconnects keep their seat
// - Turn sequencing (participant reveal → challenge reveal → play → result)
//   runs server-side on fixed timers; clients just render the stage events
// - Custom challenges are saved per host cookie via the sqlite store
// - The prebuilt music quiz pulls playlist tracks through the Spotify client
// - Sessions auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/bendiknordeng/glass-sub003/game"
	"github.com/bendiknordeng/glass-sub003/spotify"
)

// Messages coming from clients
type ClientMessage struct {
	Type string `json:"type"` // "join", host commands, "complete_challenge", "quiz_tracks"

	// join / add_player
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
	Image string `json:"image,omitempty"`

	// configure
	Mode          string `json:"mode,omitempty"`
	DurationKind  string `json:"duration_kind,omitempty"`
	DurationValue int    `json:"duration_value,omitempty"`

	// remove_player / kick
	TargetID string `json:"target_id,omitempty"`

	// create_team / randomize_teams
	TeamName  string   `json:"team_name,omitempty"`
	TeamColor string   `json:"team_color,omitempty"`
	TeamCount int      `json:"team_count,omitempty"`
	PlayerIDs []string `json:"player_ids,omitempty"`

	// add_challenge / update_challenge / remove_challenge
	Challenge   *game.Challenge `json:"challenge,omitempty"`
	ChallengeID string          `json:"challenge_id,omitempty"`

	// complete_challenge
	Completed *bool  `json:"completed,omitempty"`
	WinnerID  string `json:"winner_id,omitempty"`

	// quiz_tracks
	PlaylistID string `json:"playlist_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// SessionInfoMessage is sent immediately on connect so the client knows
// what role this cookie has and whether the music quiz is available.
type SessionInfoMessage struct {
	Type           string `json:"type"` // "session_info"
	GameID         string `json:"game_id"`
	IsExisting     bool   `json:"is_existing"` // true if this cookie already has a seat
	IsHost         bool   `json:"is_host"`
	Name           string `json:"name,omitempty"` // known name for this cookie, if any
	SpotifyEnabled bool   `json:"spotify_enabled"`
}

// RosterMessage broadcasts the current setup: mode, duration, players, teams.
type RosterMessage struct {
	Type     string        `json:"type"` // "roster"
	Mode     game.Mode     `json:"mode"`
	Duration game.Duration `json:"duration"`
	Players  []game.Player `json:"players"`
	Teams    []game.Team   `json:"teams,omitempty"`
}

// SequenceMessage mirrors one sequencer event to every client. The clients
// render whatever stage the server says is running; they own no game state.
type SequenceMessage struct {
	Type   string                `json:"type"` // "sequence"
	State  game.State            `json:"state"`
	Stage  game.Stage            `json:"stage,omitempty"`
	Turn   *game.Turn            `json:"turn,omitempty"`
	Result *game.ChallengeResult `json:"result,omitempty"`
}

// ScoreboardMessage is sent when the game finishes.
type ScoreboardMessage struct {
	Type    string                 `json:"type"` // "scoreboard"
	Players []game.Player          `json:"players"`
	Teams   []game.Team            `json:"teams,omitempty"`
	Results []game.ChallengeResult `json:"results"`
}

// HostViewMessage is sent only to the host: the full challenge pool plus
// session metadata.
type HostViewMessage struct {
	Type       string           `json:"type"` // "host_view"
	Challenges []game.Challenge `json:"challenges"`
	CreatedAt  time.Time        `json:"created_at"`
	LastActive time.Time        `json:"last_active"`
}

// TrackListMessage carries the fetched playlist tracks for the music quiz.
type TrackListMessage struct {
	Type   string          `json:"type"` // "quiz_tracks"
	Tracks []spotify.Track `json:"tracks"`
}

// SimpleMessage is for generic notifications ("kicked", "not_host", etc.)
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Sent to a single client when their chosen name is taken
type CollisionMessage struct {
	Type    string `json:"type"`    // "collision"
	Field   string `json:"field"`   // "name"
	Message string `json:"message"` // user-facing text
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type joinRequest struct {
	client *Client
	msg    ClientMessage
}

type hostCommand struct {
	client *Client
	msg    ClientMessage
}

type playRequest struct {
	client *Client
	msg    ClientMessage
}

// Hub owns one game session. The run goroutine serializes all client
// traffic; the game and sequencer carry their own locks.
//
// Lock order: never call into the Game or Sequencer while holding h.mu.
// Sequencer events arrive on timer goroutines and broadcast under h.mu, so
// the reverse order would deadlock.
type Hub struct {
	id   string
	deps *deps

	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	joins    chan joinRequest
	cmds     chan hostCommand
	plays    chan playRequest

	mu sync.RWMutex

	createdAt    time.Time
	lastActive   time.Time
	hostPlayerID string // cookie/playerID of the host
	// seats maps a playerID cookie to the game player it controls.
	seats map[string]string

	game *game.Game
	seq  *game.Sequencer
}

func newHub(cfg *Config, d *deps, gameID string) *Hub {
	now := time.Now()

	h := &Hub{
		id:         gameID,
		deps:       d,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		joins:      make(chan joinRequest),
		cmds:       make(chan hostCommand),
		plays:      make(chan playRequest),
		createdAt:  now,
		lastActive: now,
		seats:      make(map[string]string),
	}

	h.game = game.New(gameID, game.FreeForAll, game.Duration{Kind: game.ByChallenges, Value: 15}, d.builtin)
	h.seq = game.NewSequencer(h.game, game.WallClock{}, game.SequencerConfig{
		RevealDuration: cfg.revealDuration,
		ResultDuration: cfg.resultDuration,
		// The starting lineup is already on screen when the host presses
		// start, so the very first turn goes straight to the challenge.
		SkipFirstReveal: true,
	}, h.sequencerEvent)

	return h
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.handleRegister(cfg, c)

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			playerID := c.playerID
			isHost := (playerID == h.hostPlayerID)
			h.mu.Unlock()

			// The host "leaving" does not erase the session.
			if playerID != "" && !isHost {
				go h.scheduleRemoval(cfg, playerID, cfg.playerTimeout)
			}

		case jr := <-h.joins:
			h.handleJoin(cfg, jr)

		case cmd := <-h.cmds:
			h.handleHostCommand(cfg, cmd)

		case pr := <-h.plays:
			h.handlePlay(cfg, pr)
		}
	}
}

func (h *Hub) handleRegister(cfg *Config, c *Client) {
	h.mu.Lock()
	h.lastActive = time.Now()

	// First connection becomes host
	if h.hostPlayerID == "" {
		h.hostPlayerID = c.playerID
	}
	isHost := (h.hostPlayerID == c.playerID)

	seatID, isExisting := h.seats[c.playerID]
	h.clients[c] = true
	h.mu.Unlock()

	name := ""
	if isExisting {
		for _, p := range h.game.Players() {
			if p.ID == seatID {
				name = p.Name
				break
			}
		}
	}

	h.sendTo(c, SessionInfoMessage{
		Type:           "session_info",
		GameID:         h.id,
		IsExisting:     isExisting,
		IsHost:         isHost,
		Name:           name,
		SpotifyEnabled: h.deps.spotify != nil && h.deps.store != nil,
	})
	h.sendTo(c, h.rosterMessage())

	if isHost {
		h.sendHostView()
		// Pull this host's saved challenges into the pool, best-effort.
		if !isExisting && h.deps.store != nil {
			go h.loadSavedChallenges(cfg, c.playerID)
		}
	}
}

// rosterMessage snapshots the current setup for broadcast.
func (h *Hub) rosterMessage() RosterMessage {
	return RosterMessage{
		Type:     "roster",
		Mode:     h.game.Mode(),
		Duration: h.game.Duration(),
		Players:  h.game.Players(),
		Teams:    h.game.Teams(),
	}
}

// sequencerEvent mirrors sequencer transitions to every client. It runs on
// the sequencer's goroutine (or a timer goroutine) and must not call back
// into the sequencer.
func (h *Hub) sequencerEvent(ev game.Event) {
	h.broadcast(SequenceMessage{
		Type:   "sequence",
		State:  ev.State,
		Stage:  ev.Stage,
		Turn:   ev.Turn,
		Result: ev.Result,
	})

	switch ev.State {
	case game.StateShowingResult:
		h.broadcast(h.rosterMessage())
	case game.StateGameFinished:
		h.broadcast(ScoreboardMessage{
			Type:    "scoreboard",
			Players: h.game.Players(),
			Teams:   h.game.Teams(),
			Results: h.game.Results(),
		})
	}
}

// handleJoin processes "join" messages: the connecting cookie takes a seat
// as a named player.
func (h *Hub) handleJoin(cfg *Config, jr joinRequest) {
	msg := jr.msg
	c := jr.client

	if msg.Name == "" || c.playerID == "" {
		return
	}

	h.mu.Lock()
	h.lastActive = time.Now()
	seatID, hasSeat := h.seats[c.playerID]
	h.mu.Unlock()

	for _, p := range h.game.Players() {
		if p.ID == seatID {
			continue
		}
		if strings.EqualFold(p.Name, msg.Name) {
			h.sendTo(c, CollisionMessage{
				Type:    "collision",
				Field:   "name",
				Message: "That name is already taken. Please choose a different name.",
			})
			return
		}
	}

	if hasSeat {
		// Rejoin with a new name: replace the old seat.
		h.game.RemovePlayer(seatID)
	}
	p := h.game.AddPlayer(msg.Name, msg.Color, msg.Image)

	h.mu.Lock()
	h.seats[c.playerID] = p.ID
	h.mu.Unlock()

	logf(cfg, "GAMES: Player %q joined %s", msg.Name, h.id)

	h.broadcast(h.rosterMessage())
	h.sendHostView()
}

// handleHostCommand processes setup and lifecycle commands. Only the host
// may issue these.
func (h *Hub) handleHostCommand(cfg *Config, cmd hostCommand) {
	c := cmd.client
	msg := cmd.msg

	h.mu.Lock()
	h.lastActive = time.Now()
	isHost := h.hostPlayerID != "" && c.playerID == h.hostPlayerID
	h.mu.Unlock()

	if !isHost {
		h.sendTo(c, SimpleMessage{Type: "not_host", Message: "Only the host can do that."})
		return
	}

	switch msg.Type {
	case "configure":
		if msg.Mode != "" {
			h.game.SetMode(game.Mode(msg.Mode))
		}
		if msg.DurationKind != "" {
			h.game.SetDuration(game.Duration{
				Kind:  game.DurationKind(msg.DurationKind),
				Value: msg.DurationValue,
			})
		}
		h.broadcast(h.rosterMessage())

	case "add_player":
		// Players without their own device get a seat straight from the host.
		if msg.Name == "" {
			return
		}
		h.game.AddPlayer(msg.Name, msg.Color, msg.Image)
		h.broadcast(h.rosterMessage())

	case "remove_player":
		if msg.TargetID == "" {
			return
		}
		// An in-flight turn references its participants by ID; pulling one
		// out mid-game would leave the turn unable to record its result.
		// Same rule scheduleRemoval applies to idle-timeout removals.
		if h.seq.State() != game.StateIdle {
			h.sendTo(c, SimpleMessage{Type: "error", Message: "Players can only be removed before the game starts."})
			return
		}
		h.game.RemovePlayer(msg.TargetID)

		h.mu.Lock()
		var kicked *Client
		for cookie, seatID := range h.seats {
			if seatID != msg.TargetID {
				continue
			}
			delete(h.seats, cookie)
			for client := range h.clients {
				if client.playerID == cookie {
					kicked = client
				}
			}
		}
		h.mu.Unlock()

		if kicked != nil {
			h.sendTo(kicked, SimpleMessage{
				Type:    "kicked",
				Message: "You have been removed by the host.",
			})
		}
		h.broadcast(h.rosterMessage())

	case "create_team":
		if msg.TeamName == "" {
			return
		}
		h.game.CreateTeam(msg.TeamName, msg.TeamColor, msg.PlayerIDs)
		h.broadcast(h.rosterMessage())

	case "randomize_teams":
		h.game.RandomizeTeams(msg.TeamCount)
		h.broadcast(h.rosterMessage())

	case "add_challenge":
		if msg.Challenge == nil || msg.Challenge.Title == "" {
			return
		}
		saved := h.game.AddCustomChallenge(*msg.Challenge)
		h.persistChallenge(cfg, c.playerID, saved, false)
		h.sendHostView()

	case "update_challenge":
		if msg.Challenge == nil || msg.ChallengeID == "" {
			return
		}
		h.game.UpdateCustomChallenge(msg.ChallengeID, *msg.Challenge)
		updated := *msg.Challenge
		updated.ID = msg.ChallengeID
		h.persistChallenge(cfg, c.playerID, updated, true)
		h.sendHostView()

	case "remove_challenge":
		if msg.ChallengeID == "" {
			return
		}
		h.game.RemoveCustomChallenge(msg.ChallengeID)
		if h.deps.store != nil {
			go func(id string) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := h.deps.store.DeleteChallenge(ctx, id); err != nil {
					logf(cfg, "STORE: deleting challenge %s failed: %v", id, err)
				}
			}(msg.ChallengeID)
		}
		h.sendHostView()

	case "start_game":
		if err := h.seq.Start(); err != nil {
			h.sendTo(c, SimpleMessage{Type: "error", Message: "The game has already started."})
			return
		}
		logf(cfg, "GAMES: Session %s started", h.id)

	case "reset_game":
		h.seq.Reset()
		h.game.Reset()
		h.mu.Lock()
		h.seats = make(map[string]string)
		h.mu.Unlock()
		logf(cfg, "GAMES: Session %s reset", h.id)
		h.broadcast(h.rosterMessage())
		h.broadcast(SequenceMessage{Type: "sequence", State: game.StateIdle})
	}
}

// handlePlay processes in-game messages from any client.
func (h *Hub) handlePlay(cfg *Config, pr playRequest) {
	c := pr.client
	msg := pr.msg

	h.mu.Lock()
	h.lastActive = time.Now()
	h.mu.Unlock()

	switch msg.Type {
	case "complete_challenge":
		if msg.Completed == nil {
			return
		}
		if err := h.seq.Complete(*msg.Completed, msg.WinnerID); err != nil {
			h.sendTo(c, SimpleMessage{Type: "error", Message: err.Error()})
			return
		}
		logf(cfg, "GAMES: Challenge completed in %s (completed=%t)", h.id, *msg.Completed)

	case "quiz_tracks":
		if h.deps.spotify == nil || h.deps.store == nil {
			h.sendTo(c, SimpleMessage{Type: "error", Message: "The music quiz is not configured on this server."})
			return
		}
		if msg.PlaylistID == "" {
			return
		}
		go h.fetchQuizTracks(cfg, c, msg.PlaylistID, msg.Limit)
	}
}

// persistChallenge mirrors a custom challenge to the sqlite store without
// blocking the session. Failures are logged; the in-memory pool stays
// authoritative.
func (h *Hub) persistChallenge(cfg *Config, hostCookie string, c game.Challenge, update bool) {
	if h.deps.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var err error
		if update {
			err = h.deps.store.UpdateChallenge(ctx, c.ID, c)
		} else {
			err = h.deps.store.AddChallenge(ctx, hostCookie, c)
		}
		if err != nil {
			logf(cfg, "STORE: saving challenge %q failed: %v", c.Title, err)
		}
	}()
}

// loadSavedChallenges pulls the host's saved custom challenges into the
// session pool. Best-effort; a dead store just means an empty deck.
func (h *Hub) loadSavedChallenges(cfg *Config, hostCookie string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	saved, err := h.deps.store.Challenges(ctx, hostCookie)
	if err != nil {
		logf(cfg, "STORE: loading challenges failed: %v", err)
		return
	}
	for _, c := range saved {
		h.game.AddCustomChallenge(c)
	}
	if len(saved) > 0 {
		logf(cfg, "STORE: Loaded %d saved challenges into %s", len(saved), h.id)
		h.sendHostView()
	}
}

// fetchQuizTracks resolves the host's Spotify token (refreshing if stale)
// and broadcasts the playlist tracks for the music quiz.
func (h *Hub) fetchQuizTracks(cfg *Config, c *Client, playlistID string, limit int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	h.mu.RLock()
	hostCookie := h.hostPlayerID
	h.mu.RUnlock()

	auth, err := h.deps.store.SpotifyAuth(ctx, hostCookie)
	if err != nil {
		logf(cfg, "SPOTIFY: no auth for session %s: %v", h.id, err)
		h.sendTo(c, SimpleMessage{Type: "error", Message: "The host has not linked Spotify."})
		return
	}

	if auth.Expired() {
		tok, err := h.deps.spotify.Refresh(ctx, auth.RefreshToken)
		if err != nil {
			logf(cfg, "SPOTIFY: token refresh failed: %v", err)
			h.sendTo(c, SimpleMessage{Type: "error", Message: "Spotify session expired. The host must relink."})
			return
		}
		auth.AccessToken = tok.AccessToken
		auth.RefreshToken = tok.RefreshToken
		auth.ExpiresAt = tok.ExpiresAt
		if err := h.deps.store.SaveSpotifyAuth(ctx, auth); err != nil {
			logf(cfg, "STORE: saving refreshed spotify auth failed: %v", err)
		}
	}

	if limit <= 0 {
		limit = 10
	}
	tracks, err := h.deps.spotify.PlaylistTracks(ctx, auth.AccessToken, playlistID, spotify.TrackOptions{
		Limit:     limit,
		Randomize: true,
	})
	if err != nil {
		logf(cfg, "SPOTIFY: playlist fetch failed: %v", err)
		h.sendTo(c, SimpleMessage{Type: "error", Message: "Could not fetch playlist tracks."})
		return
	}

	h.broadcast(TrackListMessage{Type: "quiz_tracks", Tracks: tracks})
}

// scheduleRemoval waits for d, and if no client with this playerID has
// reconnected and the game has not started, frees that cookie's seat.
func (h *Hub) scheduleRemoval(cfg *Config, playerID string, d time.Duration) {
	time.Sleep(d)

	h.mu.Lock()
	for client := range h.clients {
		if client.playerID == playerID {
			h.mu.Unlock()
			return
		}
	}
	seatID, ok := h.seats[playerID]
	h.mu.Unlock()

	if !ok {
		return
	}

	// Mid-game seats stay; dropping a participant would corrupt the turn
	// rotation for everyone still playing.
	if h.seq.State() != game.StateIdle {
		return
	}

	h.mu.Lock()
	delete(h.seats, playerID)
	h.lastActive = time.Now()
	h.mu.Unlock()

	h.game.RemovePlayer(seatID)
	logf(cfg, "GAMES: Removed idle player from %s", h.id)

	h.broadcast(h.rosterMessage())
	h.sendHostView()
}

// sendHostView sends the full challenge pool to the host only.
func (h *Hub) sendHostView() {
	h.mu.RLock()
	var hostClient *Client
	for c := range h.clients {
		if c.playerID == h.hostPlayerID {
			hostClient = c
			break
		}
	}
	createdAt, lastActive := h.createdAt, h.lastActive
	h.mu.RUnlock()

	if hostClient == nil {
		return
	}

	h.sendTo(hostClient, HostViewMessage{
		Type:       "host_view",
		Challenges: h.game.Pool(),
		CreatedAt:  createdAt,
		LastActive: lastActive,
	})
}

func (h *Hub) sendTo(c *Client, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// closeAll disconnects all clients of this hub (used by reaper) and cancels
// any pending reveal timer so nothing fires into a dead session.
func (h *Hub) closeAll() {
	h.seq.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "glass_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated session.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
}

func newGameManager(idleTimeout time.Duration) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(cfg *Config, d *deps, gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	hub := newHub(cfg, d, gameID)
	gm.hubs[gameID] = hub
	go hub.run(cfg)
	return hub
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-gm.idleTimeout)

		gm.mu.Lock()
		for id, hub := range gm.hubs {
			hub.mu.RLock()
			last := hub.lastActive
			hub.mu.RUnlock()

			if last.Before(cutoff) {
				delete(gm.hubs, id)
				go hub.closeAll()
			}
		}
		gm.mu.Unlock()
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, d *deps, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		hub := gm.getHub(cfg, d, gameID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
		}

		hub.register <- client

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "join":
			h.joins <- joinRequest{
				client: c,
				msg:    msg,
			}
		case "configure", "add_player", "remove_player", "create_team",
			"randomize_teams", "add_challenge", "update_challenge",
			"remove_challenge", "start_game", "reset_game":
			h.cmds <- hostCommand{
				client: c,
				msg:    msg,
			}
		case "complete_challenge", "quiz_tracks":
			h.plays <- playRequest{
				client: c,
				msg:    msg,
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// ---- Static file paths ----

//go:embed glass/index.html
var indexHTML []byte

//go:embed glass/app.css
var glassCSS []byte

//go:embed glass/app.js
var glassJS []byte

func getIndexHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(indexHTML)
	}
}

func getCssHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(glassCSS)
	}
}

func getJsHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(glassJS)
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerGlassGame sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerGlassGame(cfg *Config, d *deps, path string, mux *httprouter.Router) {
	gm := newGameManager(cfg.sessionTimeout)

	// Root path → redirect to new random game
	mux.GET(cfg.prefix+path, redirectNewGame(cfg, cfg.prefix+path, gm))

	// Per-game client view (HTML)
	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg))

	// Shared assets (no gameid in route)
	mux.GET(cfg.prefix+"/assets/glass/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/glass/app.js", getJsHandler(cfg))

	// Per-game websocket
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, d, gm))

	// Per-game QR code
	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler)
}
