// Package api talks to the Hack-or-Snooze REST API and turns its responses
// into model entities. A Client keeps no state between calls; session
// state lives on the *model.User the caller holds.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/pders01/snooze/internal/config"
	"github.com/pders01/snooze/internal/debuglog"
	"github.com/pders01/snooze/internal/model"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "snooze/1.0 (https://github.com/pders01/snooze)"
)

type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewClient(cfg config.APIConfig) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchAllStories returns every story, in server order. No token needed.
func (c *Client) FetchAllStories(ctx context.Context) (*model.StoryCollection, error) {
	var resp storiesResponse
	if err := c.do(ctx, "fetch stories", http.MethodGet, "/stories", nil, nil, &resp); err != nil {
		return nil, err
	}
	return model.NewStoryCollection(resp.Stories), nil
}

func (c *Client) SubmitStory(ctx context.Context, user *model.User, draft model.Draft) (*model.Story, error) {
	const op = "submit story"
	if err := requireToken(op, user); err != nil {
		return nil, err
	}

	var resp storyResponse
	body := storyRequest{Token: user.Token, Story: draft}
	if err := c.do(ctx, op, http.MethodPost, "/stories", nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.Story == nil {
		return nil, &Error{Op: op, Kind: ErrServer, Message: "response had no story"}
	}
	return resp.Story, nil
}

func (c *Client) DeleteStory(ctx context.Context, user *model.User, storyID string) error {
	const op = "delete story"
	if err := requireToken(op, user); err != nil {
		return err
	}

	path := "/stories/" + url.PathEscape(storyID)
	return c.do(ctx, op, http.MethodDelete, path, tokenQuery(user.Token), nil, nil)
}

// CreateUser signs up a new account. The returned user carries its token.
func (c *Client) CreateUser(ctx context.Context, username, password, name string) (*model.User, error) {
	var resp userResponse
	body := authRequest{User: credentials{Username: username, Password: password, Name: name}}
	if err := c.do(ctx, "sign up", http.MethodPost, "/signup", nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.User.toUser(resp.Token), nil
}

// Login returns a fully populated user, own and favorite stories included,
// from a single request.
func (c *Client) Login(ctx context.Context, username, password string) (*model.User, error) {
	var resp userResponse
	body := authRequest{User: credentials{Username: username, Password: password}}
	if err := c.do(ctx, "login", http.MethodPost, "/login", nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.User.toUser(resp.Token), nil
}

// GetSessionUser restores a user from persisted credentials. It returns
// (nil, nil) without touching the network when either value is empty.
func (c *Client) GetSessionUser(ctx context.Context, token, username string) (*model.User, error) {
	if token == "" || username == "" {
		return nil, nil
	}

	payload, err := c.fetchUser(ctx, "restore session", token, username)
	if err != nil {
		return nil, err
	}
	return payload.toUser(token), nil
}

// RefreshUser replaces the user's own and favorite sets with the server's.
func (c *Client) RefreshUser(ctx context.Context, user *model.User) error {
	const op = "refresh user"
	if err := requireToken(op, user); err != nil {
		return err
	}

	payload, err := c.fetchUser(ctx, op, user.Token, user.Username)
	if err != nil {
		return err
	}

	fresh := payload.toUser(user.Token)
	user.UpdatedAt = fresh.UpdatedAt
	user.Favorites = fresh.Favorites
	user.OwnStories = fresh.OwnStories
	return nil
}

// AddFavorite marks a story as a favorite, then refreshes the user from
// the server. The user's sets are never patched locally.
func (c *Client) AddFavorite(ctx context.Context, user *model.User, storyID string) error {
	if user == nil || user.Token == "" || storyID == "" {
		return nil
	}

	body := tokenRequest{Token: user.Token}
	if err := c.do(ctx, "add favorite", http.MethodPost, favoritePath(user.Username, storyID), nil, body, nil); err != nil {
		return err
	}
	return c.RefreshUser(ctx, user)
}

// RemoveFavorite is the inverse of AddFavorite, with the same refresh.
func (c *Client) RemoveFavorite(ctx context.Context, user *model.User, storyID string) error {
	if user == nil || user.Token == "" || storyID == "" {
		return nil
	}

	if err := c.do(ctx, "remove favorite", http.MethodDelete, favoritePath(user.Username, storyID), tokenQuery(user.Token), nil, nil); err != nil {
		return err
	}
	return c.RefreshUser(ctx, user)
}

func (c *Client) fetchUser(ctx context.Context, op, token, username string) (userPayload, error) {
	var resp userResponse
	path := "/users/" + url.PathEscape(username)
	if err := c.do(ctx, op, http.MethodGet, path, tokenQuery(token), nil, &resp); err != nil {
		return userPayload{}, err
	}
	return resp.User, nil
}

func favoritePath(username, storyID string) string {
	return fmt.Sprintf("/users/%s/favorites/%s", url.PathEscape(username), url.PathEscape(storyID))
}

func tokenQuery(token string) url.Values {
	return url.Values{"token": []string{token}}
}

func requireToken(op string, user *model.User) error {
	if user == nil || user.Token == "" {
		return &Error{Op: op, Kind: ErrAuth, Message: "not logged in"}
	}
	return nil
}

// do performs one request/response round trip. Non-2xx responses become
// *Error; out, when non-nil, receives the decoded body. There are no
// retries.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	requestID := uuid.NewString()
	logger := debuglog.WithFields(map[string]interface{}{
		"op":         op,
		"method":     method,
		"path":       path,
		"request_id": requestID,
	})

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Kind: ErrValidation, Err: fmt.Errorf("encoding request: %w", err)}
		}
		bodyReader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return &Error{Op: op, Kind: ErrNetwork, Err: fmt.Errorf("creating request: %w", err)}
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		logger.Warnf("request failed: %v", err)
		return &Error{Op: op, Kind: ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	logger = logger.With("status", resp.StatusCode).With("elapsed", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Op: op, Status: resp.StatusCode, Kind: kindForStatus(resp.StatusCode)}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error.Message != "" {
			apiErr.Message = er.Error.Message
		}
		logger.Warnf("request rejected: %s", apiErr.Message)
		return apiErr
	}

	logger.Debugf("request ok")

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Kind: ErrServer, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
