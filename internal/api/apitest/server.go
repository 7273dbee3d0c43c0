// Package apitest runs an in-memory Hack-or-Snooze API on an httptest
// server. It implements the endpoints the client uses, with the same
// request and error shapes as the hosted service.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pders01/snooze/internal/model"
)

type account struct {
	username  string
	password  string
	name      string
	createdAt time.Time
	updatedAt time.Time
	favorites []string
}

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]*account
	tokens   map[string]string // token -> username
	stories  []*model.Story    // newest first
	requests []string
	now      func() time.Time
}

// NewServer starts a fake API and closes it when the test ends.
func NewServer(tb testing.TB) *Server {
	tb.Helper()

	s := &Server{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /stories", s.listStories)
	mux.HandleFunc("POST /stories", s.createStory)
	mux.HandleFunc("DELETE /stories/{id}", s.deleteStory)
	mux.HandleFunc("POST /signup", s.signup)
	mux.HandleFunc("POST /login", s.login)
	mux.HandleFunc("GET /users/{username}", s.getUser)
	mux.HandleFunc("POST /users/{username}/favorites/{id}", s.addFavorite)
	mux.HandleFunc("DELETE /users/{username}/favorites/{id}", s.removeFavorite)

	s.Server = httptest.NewServer(s.record(mux))
	tb.Cleanup(s.Close)
	return s
}

// AddUser registers an account and returns a valid token for it.
func (s *Server) AddUser(username, password, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.accounts[username] = &account{
		username:  username,
		password:  password,
		name:      name,
		createdAt: now,
		updatedAt: now,
	}
	return s.issueToken(username)
}

// AddStory stores a story as if username had submitted it.
func (s *Server) AddStory(username string, draft model.Draft) *model.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addStory(username, draft)
}

// Favorite marks a story as a favorite of username without a request.
func (s *Server) Favorite(username, storyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[username]; ok {
		acct.favorites = appendUnique(acct.favorites, storyID)
	}
}

// Requests returns "METHOD /path" for every request served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) RequestCount() int {
	return len(s.Requests())
}

func (s *Server) ResetRequests() {
	s.mu.Lock()
	s.requests = nil
	s.mu.Unlock()
}

// RevokeTokens invalidates every issued token, as an expiry would.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	s.tokens = make(map[string]string)
	s.mu.Unlock()
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listStories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"stories": s.stories})
}

func (s *Server) createStory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string      `json:"token"`
		Story model.Draft `json:"story"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.tokens[body.Token]
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	d := body.Story
	if d.Author == "" || d.Title == "" || d.URL == "" {
		writeError(w, http.StatusBadRequest, "author, title and url are required")
		return
	}
	if u, err := url.Parse(d.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeError(w, http.StatusBadRequest, "url must be a valid http(s) URL")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"story": s.addStory(username, d)})
}

func (s *Server) deleteStory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.tokens[r.URL.Query().Get("token")]
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	id := r.PathValue("id")
	idx := -1
	for i, st := range s.stories {
		if st.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no story with id %s", id))
		return
	}
	if s.stories[idx].Username != username {
		writeError(w, http.StatusForbidden, "only the submitter can delete a story")
		return
	}

	deleted := s.stories[idx]
	s.stories = append(s.stories[:idx], s.stories[idx+1:]...)
	for _, acct := range s.accounts {
		acct.favorites = remove(acct.favorites, id)
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "deleted", "story": deleted})
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Name     string `json:"name"`
		} `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON")
		return
	}
	u := body.User
	if u.Username == "" || u.Password == "" || u.Name == "" {
		writeError(w, http.StatusBadRequest, "username, password and name are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.accounts[u.Username]; taken {
		writeError(w, http.StatusConflict, fmt.Sprintf("there is already a user with username %q", u.Username))
		return
	}

	now := s.now()
	acct := &account{username: u.Username, password: u.Password, name: u.Name, createdAt: now, updatedAt: now}
	s.accounts[u.Username] = acct
	writeJSON(w, http.StatusCreated, map[string]any{"user": s.userPayload(acct), "token": s.issueToken(u.Username)})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User struct {
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[body.User.Username]
	if !ok {
		writeError(w, http.StatusNotFound, "no such user")
		return
	}
	if acct.password != body.User.Password {
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": s.userPayload(acct), "token": s.issueToken(acct.username)})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.authorize(w, r.URL.Query().Get("token"), r.PathValue("username"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": s.userPayload(acct)})
}

func (s *Server) addFavorite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.authorize(w, body.Token, r.PathValue("username"))
	if !ok {
		return
	}
	id := r.PathValue("id")
	if s.findStory(id) == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no story with id %s", id))
		return
	}
	acct.favorites = appendUnique(acct.favorites, id)
	acct.updatedAt = s.now()
	writeJSON(w, http.StatusOK, map[string]any{"message": "favorite added", "user": s.userPayload(acct)})
}

func (s *Server) removeFavorite(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.authorize(w, r.URL.Query().Get("token"), r.PathValue("username"))
	if !ok {
		return
	}
	id := r.PathValue("id")
	if s.findStory(id) == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no story with id %s", id))
		return
	}
	acct.favorites = remove(acct.favorites, id)
	acct.updatedAt = s.now()
	writeJSON(w, http.StatusOK, map[string]any{"message": "favorite removed", "user": s.userPayload(acct)})
}

// authorize checks that token belongs to username. Callers hold s.mu.
func (s *Server) authorize(w http.ResponseWriter, token, username string) (*account, bool) {
	owner, ok := s.tokens[token]
	if !ok || owner != username {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return nil, false
	}
	acct, ok := s.accounts[username]
	if !ok {
		writeError(w, http.StatusNotFound, "no such user")
		return nil, false
	}
	return acct, true
}

func (s *Server) addStory(username string, d model.Draft) *model.Story {
	now := s.now()
	story := &model.Story{
		ID:        uuid.NewString(),
		Title:     d.Title,
		Author:    d.Author,
		URL:       d.URL,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.stories = append([]*model.Story{story}, s.stories...)
	return story
}

func (s *Server) findStory(id string) *model.Story {
	for _, st := range s.stories {
		if st.ID == id {
			return st
		}
	}
	return nil
}

func (s *Server) userPayload(acct *account) map[string]any {
	favorites := make([]*model.Story, 0, len(acct.favorites))
	for _, id := range acct.favorites {
		if st := s.findStory(id); st != nil {
			favorites = append(favorites, st)
		}
	}
	own := make([]*model.Story, 0)
	for _, st := range s.stories {
		if st.Username == acct.username {
			own = append(own, st)
		}
	}
	return map[string]any{
		"username":  acct.username,
		"name":      acct.name,
		"createdAt": acct.createdAt,
		"updatedAt": acct.updatedAt,
		"favorites": favorites,
		"stories":   own,
	}
}

func (s *Server) issueToken(username string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.tokens[token] = username
	return token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"status":  status,
			"title":   http.StatusText(status),
			"message": message,
		},
	})
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
