package spotify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(srv *httptest.Server) *Client {
	c := New("id", "secret")
	c.accountsURL = srv.URL + "/api/token"
	c.apiURL = srv.URL + "/v1"
	return c
}

func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/token" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() = %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %s", got)
		}
		if got := r.Form.Get("code"); got != "the-code" {
			t.Errorf("code = %s", got)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "id" || pass != "secret" {
			t.Errorf("basic auth = %s:%s", user, pass)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600}`))
	}))
	defer srv.Close()

	tok, err := testClient(srv).Exchange(context.Background(), "the-code", "http://localhost/callback")
	if err != nil {
		t.Fatalf("Exchange() = %v", err)
	}
	if tok.AccessToken != "at" || tok.RefreshToken != "rt" {
		t.Fatalf("token = %+v", tok)
	}
}

func TestRefreshKeepsOldRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-at","expires_in":3600}`))
	}))
	defer srv.Close()

	tok, err := testClient(srv).Refresh(context.Background(), "old-rt")
	if err != nil {
		t.Fatalf("Refresh() = %v", err)
	}
	if tok.AccessToken != "new-at" || tok.RefreshToken != "old-rt" {
		t.Fatalf("token = %+v", tok)
	}
}

func TestPlaylistTracks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/playlists/pl1/tracks" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer at" {
			t.Errorf("auth header = %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[
			{"track":{"id":"t1","name":"Song One","artists":[{"name":"Artist A"}],"album":{"name":"Album X","images":[{"url":"http://img/1"}]},"preview_url":"http://preview/1","duration_ms":180000}},
			{"track":{"id":"t2","name":"Song Two","artists":[{"name":"Artist B"}],"album":{"name":"Album Y","images":[]},"preview_url":"","duration_ms":210000}},
			{"track":{"id":"","name":"local file","artists":[],"album":{"name":"","images":[]},"preview_url":"","duration_ms":0}}
		]}`))
	}))
	defer srv.Close()

	tracks, err := testClient(srv).PlaylistTracks(context.Background(), "at", "pl1", TrackOptions{})
	if err != nil {
		t.Fatalf("PlaylistTracks() = %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("tracks = %d, want 2 (local files skipped)", len(tracks))
	}
	if tracks[0].Artist != "Artist A" || tracks[0].AlbumArt != "http://img/1" {
		t.Fatalf("track = %+v", tracks[0])
	}
}

func TestPlaylistTracksFollowsPageLinks(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("offset") == "100" {
			w.Write([]byte(`{"items":[
				{"track":{"id":"t3","name":"Three","artists":[{"name":"C"}],"album":{"name":"X","images":[]},"duration_ms":1000}}
			],"next":null}`))
			return
		}
		w.Write([]byte(`{"items":[
			{"track":{"id":"t1","name":"One","artists":[{"name":"A"}],"album":{"name":"X","images":[]},"duration_ms":1000}},
			{"track":{"id":"t2","name":"Two","artists":[{"name":"B"}],"album":{"name":"X","images":[]},"duration_ms":1000}}
		],"next":"` + srv.URL + `/v1/playlists/pl1/tracks?offset=100&limit=100"}`))
	}))
	defer srv.Close()

	tracks, err := testClient(srv).PlaylistTracks(context.Background(), "at", "pl1", TrackOptions{})
	if err != nil {
		t.Fatalf("PlaylistTracks() = %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("tracks = %d, want 3 across both pages", len(tracks))
	}
	if tracks[2].ID != "t3" {
		t.Fatalf("last track = %+v, want t3 from the second page", tracks[2])
	}
}

func TestPlaylistTracksLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[
			{"track":{"id":"t1","name":"One","artists":[{"name":"A"}],"album":{"name":"X","images":[]},"duration_ms":1000}},
			{"track":{"id":"t2","name":"Two","artists":[{"name":"B"}],"album":{"name":"X","images":[]},"duration_ms":1000}},
			{"track":{"id":"t3","name":"Three","artists":[{"name":"C"}],"album":{"name":"X","images":[]},"duration_ms":1000}}
		]}`))
	}))
	defer srv.Close()

	tracks, err := testClient(srv).PlaylistTracks(context.Background(), "at", "pl1", TrackOptions{Limit: 2, Randomize: true})
	if err != nil {
		t.Fatalf("PlaylistTracks() = %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(tracks))
	}
}

func TestTokenRequestFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad client", http.StatusBadRequest)
	}))
	defer srv.Close()

	if _, err := testClient(srv).Exchange(context.Background(), "code", "uri"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
