package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bendiknordeng/glass-sub003/game"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestChallengeRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := game.Challenge{
		ID:          uuid.NewString(),
		Title:       "Waterfall",
		Description: "Everyone drinks until the person before them stops.",
		Type:        game.AllVsAll,
		Points:      5,
		CanReuse:    true,
		Punishment:  "Drink twice",
		Prebuilt:    json.RawMessage(`{"playlist_id":"abc123","limit":10}`),
	}
	if err := s.AddChallenge(ctx, "user1", c); err != nil {
		t.Fatalf("AddChallenge() = %v", err)
	}

	got, err := s.Challenges(ctx, "user1")
	if err != nil {
		t.Fatalf("Challenges() = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Challenges() returned %d rows, want 1", len(got))
	}
	if got[0].Title != c.Title || got[0].Type != c.Type || got[0].Points != c.Points || !got[0].CanReuse {
		t.Fatalf("round trip mismatch: %+v", got[0])
	}
	if string(got[0].Prebuilt) != string(c.Prebuilt) {
		t.Fatalf("prebuilt blob = %s, want %s", got[0].Prebuilt, c.Prebuilt)
	}

	// Other users see nothing.
	other, err := s.Challenges(ctx, "user2")
	if err != nil {
		t.Fatalf("Challenges() = %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("Challenges() for other user = %d rows, want 0", len(other))
	}
}

func TestUpdateChallenge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := game.Challenge{ID: uuid.NewString(), Title: "Original", Type: game.Individual, Points: 5}
	if err := s.AddChallenge(ctx, "user1", c); err != nil {
		t.Fatalf("AddChallenge() = %v", err)
	}

	c.Title = "Updated"
	c.Points = 15
	if err := s.UpdateChallenge(ctx, c.ID, c); err != nil {
		t.Fatalf("UpdateChallenge() = %v", err)
	}

	got, err := s.Challenges(ctx, "user1")
	if err != nil {
		t.Fatalf("Challenges() = %v", err)
	}
	if got[0].Title != "Updated" || got[0].Points != 15 {
		t.Fatalf("update not applied: %+v", got[0])
	}

	if err := s.UpdateChallenge(ctx, "no-such-id", c); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateChallenge(unknown) = %v, want %v", err, ErrNotFound)
	}
}

func TestDeleteChallenge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := game.Challenge{ID: uuid.NewString(), Title: "Doomed", Type: game.Individual}
	if err := s.AddChallenge(ctx, "user1", c); err != nil {
		t.Fatalf("AddChallenge() = %v", err)
	}
	if err := s.DeleteChallenge(ctx, c.ID); err != nil {
		t.Fatalf("DeleteChallenge() = %v", err)
	}

	got, err := s.Challenges(ctx, "user1")
	if err != nil {
		t.Fatalf("Challenges() = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Challenges() = %d rows after delete, want 0", len(got))
	}
}

func TestSpotifyAuthUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.SpotifyAuth(ctx, "user1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SpotifyAuth(missing) = %v, want %v", err, ErrNotFound)
	}

	auth := SpotifyAuth{
		UserID:       "user1",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour).UTC(),
	}
	if err := s.SaveSpotifyAuth(ctx, auth); err != nil {
		t.Fatalf("SaveSpotifyAuth() = %v", err)
	}

	got, err := s.SpotifyAuth(ctx, "user1")
	if err != nil {
		t.Fatalf("SpotifyAuth() = %v", err)
	}
	if got.AccessToken != "access-1" || got.RefreshToken != "refresh-1" {
		t.Fatalf("SpotifyAuth() = %+v", got)
	}
	if got.Expired() {
		t.Fatal("fresh token reported expired")
	}

	// Second save replaces the row.
	auth.AccessToken = "access-2"
	if err := s.SaveSpotifyAuth(ctx, auth); err != nil {
		t.Fatalf("SaveSpotifyAuth() = %v", err)
	}
	got, err = s.SpotifyAuth(ctx, "user1")
	if err != nil {
		t.Fatalf("SpotifyAuth() = %v", err)
	}
	if got.AccessToken != "access-2" {
		t.Fatalf("AccessToken = %s, want access-2", got.AccessToken)
	}
}
