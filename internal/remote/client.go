// Package remote is the HTTP client of the typerush server API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/typerush/internal/model"
)

// DefaultTimeout bounds a single request when the caller sets no deadline.
const DefaultTimeout = 30 * time.Second

// Client talks to a typerush server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("server url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: baseURL, http: httpClient}, nil
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (model.AuthResult, error) {
	var res model.AuthResult
	err := c.do(ctx, http.MethodPost, "/api/auth/register", "", credentials{
		Email: email, Password: password, DisplayName: displayName,
	}, &res)
	return res, err
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (model.AuthResult, error) {
	var res model.AuthResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", "", credentials{Email: email, Password: password}, &res)
	if errors.Is(err, model.ErrUnauthorized) {
		return res, model.ErrInvalidCredentials
	}
	return res, err
}

// Logout tells the server the token is no longer used.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil)
}

// Me returns the account behind token.
func (c *Client) Me(ctx context.Context, token string) (model.User, error) {
	var user model.User
	err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &user)
	return user, err
}

// UpdateDisplayName renames the signed-in account.
func (c *Client) UpdateDisplayName(ctx context.Context, token, displayName string) (model.User, error) {
	var user model.User
	err := c.do(ctx, http.MethodPut, "/api/users/me", token, map[string]string{"displayName": displayName}, &user)
	return user, err
}

// CreateRace uploads one race.
func (c *Client) CreateRace(ctx context.Context, token string, rec model.RaceRecord) (model.RaceRecord, error) {
	var stored model.RaceRecord
	err := c.do(ctx, http.MethodPost, "/api/races", token, rec, &stored)
	return stored, err
}

// ImportRaces uploads a batch and returns how many races were new.
func (c *Client) ImportRaces(ctx context.Context, token string, recs []model.RaceRecord) (int, error) {
	var res struct {
		Imported int `json:"imported"`
	}
	err := c.do(ctx, http.MethodPost, "/api/races/import", token, map[string]any{"races": recs}, &res)
	return res.Imported, err
}

// ListRaces returns a newest-first page of the account's races.
func (c *Client) ListRaces(ctx context.Context, token string, limit, offset int) (model.RacePage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	var page model.RacePage
	err := c.do(ctx, http.MethodGet, "/api/races?"+q.Encode(), token, nil, &page)
	return page, err
}

// Stats returns the server-side aggregate of the account's races.
func (c *Client) Stats(ctx context.Context, token string) (model.RaceSummary, error) {
	var summary model.RaceSummary
	err := c.do(ctx, http.MethodGet, "/api/races/stats", token, nil, &summary)
	return summary, err
}

// Leaderboard returns the global board. quoteID may be nil.
func (c *Client) Leaderboard(ctx context.Context, limit int, quoteID *int, period model.Period) ([]model.LeaderboardEntry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if quoteID != nil {
		q.Set("quote", strconv.Itoa(*quoteID))
	}
	if period != "" {
		q.Set("period", string(period))
	}
	path := "/api/leaderboard"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var entries []model.LeaderboardEntry
	err := c.do(ctx, http.MethodGet, path, "", nil, &entries)
	return entries, err
}

// QuoteLeaderboard returns the top races on one quote.
func (c *Client) QuoteLeaderboard(ctx context.Context, quoteID, limit int) ([]model.LeaderboardEntry, error) {
	path := "/api/leaderboard/quote/" + strconv.Itoa(quoteID)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var entries []model.LeaderboardEntry
	err := c.do(ctx, http.MethodGet, path, "", nil, &entries)
	return entries, err
}

// MyRank returns the signed-in account's rank.
func (c *Client) MyRank(ctx context.Context, token string, quoteID *int) (model.UserRank, error) {
	var rank model.UserRank
	err := c.do(ctx, http.MethodGet, withQuote("/api/leaderboard/me", quoteID), token, nil, &rank)
	return rank, err
}

// UserRank returns the rank of any account.
func (c *Client) UserRank(ctx context.Context, userID string, quoteID *int) (model.UserRank, error) {
	var rank model.UserRank
	path := withQuote("/api/leaderboard/user/"+url.PathEscape(userID), quoteID)
	err := c.do(ctx, http.MethodGet, path, "", nil, &rank)
	return rank, err
}

// Ping checks that the server answers its health probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", "", nil, nil)
}

func withQuote(path string, quoteID *int) string {
	if quoteID == nil {
		return path
	}
	return path + "?quote=" + strconv.Itoa(*quoteID)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrNetwork, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		payload.Error = strings.TrimSpace(string(raw))
	}
	msg := payload.Error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		// The server already prefixes validation messages.
		msg = strings.TrimPrefix(msg, model.ErrValidation.Error()+": ")
		return fmt.Errorf("%w: %s", model.ErrValidation, msg)
	case http.StatusUnauthorized:
		return model.ErrUnauthorized
	case http.StatusConflict:
		return model.ErrDuplicateAccount
	case http.StatusNotFound:
		return model.ErrNotFound
	default:
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: server returned %s", model.ErrNetwork, resp.Status)
		}
		return fmt.Errorf("unexpected status %s: %s", resp.Status, msg)
	}
}
