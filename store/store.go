// Package store is the best-effort persistence collaborator: user-created
// challenges and Spotify credentials survive server restarts in a local
// SQLite file. Callers treat every failure as non-fatal; the in-memory game
// state stays authoritative.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/bendiknordeng/glass-sub003/game"
)

var ErrNotFound = errors.New("store: not found")

var schema = `CREATE TABLE IF NOT EXISTS challenges (
  id varchar(36) PRIMARY KEY,
  user_id varchar(64) NOT NULL,
  title varchar(120) NOT NULL,
  description text NOT NULL DEFAULT '',
  type varchar(16) NOT NULL,
  points int NOT NULL DEFAULT 0,
  can_reuse boolean NOT NULL DEFAULT false,
  punishment text NOT NULL DEFAULT '',
  prebuilt text NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS challenges_user_id ON challenges(user_id);

CREATE TABLE IF NOT EXISTS spotify_auth (
  user_id varchar(64) PRIMARY KEY,
  access_token text NOT NULL,
  refresh_token text NOT NULL,
  expires_at timestamp NOT NULL
);`

type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite file at path, creating the schema if needed.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type challengeRow struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Type        string `db:"type"`
	Points      int    `db:"points"`
	CanReuse    bool   `db:"can_reuse"`
	Punishment  string `db:"punishment"`
	Prebuilt    string `db:"prebuilt"`
}

func (r challengeRow) toChallenge() game.Challenge {
	c := game.Challenge{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Type:        game.ChallengeType(r.Type),
		Points:      r.Points,
		CanReuse:    r.CanReuse,
		Punishment:  r.Punishment,
	}
	if r.Prebuilt != "" {
		c.Prebuilt = json.RawMessage(r.Prebuilt)
	}
	return c
}

// Challenges returns all custom challenges saved by a user.
func (s *Store) Challenges(ctx context.Context, userID string) ([]game.Challenge, error) {
	rows := []challengeRow{}
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM challenges WHERE user_id = ?;`, userID)
	if err != nil {
		return nil, err
	}

	out := make([]game.Challenge, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toChallenge())
	}
	return out, nil
}

func (s *Store) AddChallenge(ctx context.Context, userID string, c game.Challenge) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO challenges(id, user_id, title, description, type, points, can_reuse, punishment, prebuilt)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		c.ID, userID, c.Title, c.Description, string(c.Type), c.Points, c.CanReuse, c.Punishment, string(c.Prebuilt))
	return err
}

func (s *Store) UpdateChallenge(ctx context.Context, id string, c game.Challenge) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE challenges SET title = ?, description = ?, type = ?, points = ?, can_reuse = ?, punishment = ?, prebuilt = ?
		 WHERE id = ?;`,
		c.Title, c.Description, string(c.Type), c.Points, c.CanReuse, c.Punishment, string(c.Prebuilt), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteChallenge(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM challenges WHERE id = ?;`, id)
	return err
}

// SpotifyAuth is one user's saved token pair.
type SpotifyAuth struct {
	UserID       string    `db:"user_id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
}

func (a SpotifyAuth) Expired() bool {
	return time.Now().After(a.ExpiresAt)
}

func (s *Store) SpotifyAuth(ctx context.Context, userID string) (SpotifyAuth, error) {
	var auth SpotifyAuth
	err := s.db.GetContext(ctx, &auth, `SELECT * FROM spotify_auth WHERE user_id = ?;`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return SpotifyAuth{}, ErrNotFound
	}
	if err != nil {
		return SpotifyAuth{}, err
	}
	return auth, nil
}

// SaveSpotifyAuth upserts the token pair for a user.
func (s *Store) SaveSpotifyAuth(ctx context.Context, auth SpotifyAuth) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO spotify_auth(user_id, access_token, refresh_token, expires_at)
		 VALUES(?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   access_token = excluded.access_token,
		   refresh_token = excluded.refresh_token,
		   expires_at = excluded.expires_at;`,
		auth.UserID, auth.AccessToken, auth.RefreshToken, auth.ExpiresAt)
	return err
}
