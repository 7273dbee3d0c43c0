package api

import (
	"time"

	"github.com/pders01/snooze/internal/model"
)

// Request and response bodies of the Hack-or-Snooze API.

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type authRequest struct {
	User credentials `json:"user"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type storyRequest struct {
	Token string      `json:"token"`
	Story model.Draft `json:"story"`
}

type storiesResponse struct {
	Stories []*model.Story `json:"stories"`
}

type storyResponse struct {
	Story *model.Story `json:"story"`
}

type userPayload struct {
	Username  string         `json:"username"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Favorites []*model.Story `json:"favorites"`
	Stories   []*model.Story `json:"stories"`
}

type userResponse struct {
	User  userPayload `json:"user"`
	Token string      `json:"token"`
}

type errorResponse struct {
	Error struct {
		Status  int    `json:"status"`
		Title   string `json:"title"`
		Message string `json:"message"`
	} `json:"error"`
}

// toUser builds a User whose own and favorite sets come straight from the
// payload, so no follow-up request is needed.
func (p userPayload) toUser(token string) *model.User {
	return &model.User{
		Username:   p.Username,
		Name:       p.Name,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
		Token:      token,
		OwnStories: model.NewStoryCollection(p.Stories),
		Favorites:  model.NewStoryCollection(p.Favorites),
	}
}
