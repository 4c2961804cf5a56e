// Package spotify is the music-track provider collaborator behind the
// prebuilt music quiz challenge. It wraps the two Spotify surfaces the game
// consumes: the accounts token endpoint and the playlist tracks endpoint.
package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAccountsURL = "https://accounts.spotify.com/api/token"
	defaultAPIURL      = "https://api.spotify.com/v1"
)

// Track is the slice of playlist metadata the music quiz needs.
type Track struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Artist     string        `json:"artist"`
	Album      string        `json:"album"`
	AlbumArt   string        `json:"album_art,omitempty"`
	PreviewURL string        `json:"preview_url,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Token is an access/refresh pair with its expiry resolved to wall-clock time.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TrackOptions controls how many tracks come back and in what order.
type TrackOptions struct {
	Limit     int
	Randomize bool
}

type Client struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	accountsURL  string
	apiURL       string
}

func New(clientID, clientSecret string) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		accountsURL:  defaultAccountsURL,
		apiURL:       defaultAPIURL,
	}
}

// Exchange trades an authorization code for a token pair.
func (c *Client) Exchange(ctx context.Context, code, redirectURI string) (Token, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}
	return c.tokenRequest(ctx, form)
}

// Refresh trades a refresh token for a new access token. Spotify may omit
// the refresh token from the response, in which case the old one is kept.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	tok, err := c.tokenRequest(ctx, form)
	if err != nil {
		return Token{}, err
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

func (c *Client) tokenRequest(ctx context.Context, form url.Values) (Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.accountsURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Token{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Token{}, fmt.Errorf("spotify: token request failed with status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Token{}, err
	}

	return Token{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}

// PlaylistTracks fetches all tracks of a playlist, following the API's page
// links so playlists longer than one page are fully represented. With
// Randomize set the order is shuffled before the limit is applied, so
// repeated quizzes on the same playlist draw different songs.
func (c *Client) PlaylistTracks(ctx context.Context, accessToken, playlistID string, opts TrackOptions) ([]Track, error) {
	next := c.apiURL + "/playlists/" + url.PathEscape(playlistID) + "/tracks?limit=" + strconv.Itoa(100)

	var tracks []Track
	for next != "" {
		page, nextURL, err := c.playlistPage(ctx, accessToken, next)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, page...)
		next = nextURL
	}

	if opts.Randomize {
		rand.Shuffle(len(tracks), func(i, j int) {
			tracks[i], tracks[j] = tracks[j], tracks[i]
		})
	}
	if opts.Limit > 0 && opts.Limit < len(tracks) {
		tracks = tracks[:opts.Limit]
	}
	return tracks, nil
}

// playlistPage fetches one page of playlist tracks and returns the URL of
// the next page, empty when this was the last one.
func (c *Client) playlistPage(ctx context.Context, accessToken, endpoint string) ([]Track, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("spotify: playlist request failed with status %d", resp.StatusCode)
	}

	var body struct {
		Items []struct {
			Track struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Artists []struct {
					Name string `json:"name"`
				} `json:"artists"`
				Album struct {
					Name   string `json:"name"`
					Images []struct {
						URL string `json:"url"`
					} `json:"images"`
				} `json:"album"`
				PreviewURL string `json:"preview_url"`
				DurationMS int    `json:"duration_ms"`
			} `json:"track"`
		} `json:"items"`
		Next string `json:"next"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", err
	}

	tracks := make([]Track, 0, len(body.Items))
	for _, item := range body.Items {
		t := item.Track
		if t.ID == "" {
			continue
		}
		track := Track{
			ID:         t.ID,
			Name:       t.Name,
			Album:      t.Album.Name,
			PreviewURL: t.PreviewURL,
			Duration:   time.Duration(t.DurationMS) * time.Millisecond,
		}
		if len(t.Artists) > 0 {
			track.Artist = t.Artists[0].Name
		}
		if len(t.Album.Images) > 0 {
			track.AlbumArt = t.Album.Images[0].URL
		}
		tracks = append(tracks, track)
	}
	return tracks, body.Next, nil
}
