package model

import (
	"strings"
	"time"
)

type Story struct {
	ID        string    `json:"storyId"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Host returns the display hostname of the story link.
func (s *Story) Host() string {
	return HostName(s.URL)
}

// Draft is a story as submitted by a user, before the server assigns an id.
type Draft struct {
	Author string `json:"author"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

type User struct {
	Username  string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Session state. Not authoritative: replaced wholesale on every refresh.
	Token      string
	OwnStories *StoryCollection
	Favorites  *StoryCollection
}

func (u *User) IsFavorite(storyID string) bool {
	return u != nil && u.Favorites.Has(storyID)
}

func (u *User) Owns(storyID string) bool {
	return u != nil && u.OwnStories.Has(storyID)
}

// HostName pulls the hostname out of a URL without requiring a scheme.
// A leading "www." is dropped.
func HostName(url string) string {
	var host string
	parts := strings.Split(url, "/")
	if strings.Contains(url, "://") {
		if len(parts) > 2 {
			host = parts[2]
		}
	} else {
		host = parts[0]
	}
	return strings.TrimPrefix(host, "www.")
}
