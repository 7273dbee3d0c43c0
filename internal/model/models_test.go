package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostName(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"http://www.example.com/a", "example.com"},
		{"example.com/a", "example.com"},
		{"http://sub.example.com", "sub.example.com"},
		{"https://x.com", "x.com"},
		{"www.github.com/pders01", "github.com"},
		{"https://news.ycombinator.com:8080/item?id=1", "news.ycombinator.com:8080"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, HostName(tt.url))
		})
	}
}

func TestStoryHost(t *testing.T) {
	s := &Story{URL: "http://x.com"}
	assert.Equal(t, "x.com", s.Host())
}

func TestStoryCollection_Order(t *testing.T) {
	c := NewStoryCollection([]*Story{
		{ID: "c", Title: "third"},
		{ID: "a", Title: "first"},
		{ID: "b", Title: "second"},
	})

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"c", "a", "b"}, c.IDs())

	stories := c.Stories()
	assert.Equal(t, "third", stories[0].Title)
	assert.Equal(t, "second", stories[2].Title)
}

func TestStoryCollection_DuplicateIDKeepsPosition(t *testing.T) {
	c := NewStoryCollection([]*Story{
		{ID: "a", Title: "old"},
		{ID: "b"},
		{ID: "a", Title: "new"},
	})

	assert.Equal(t, []string{"a", "b"}, c.IDs())
	s, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "new", s.Title)
}

func TestStoryCollection_Without(t *testing.T) {
	c := NewStoryCollection([]*Story{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	w := c.Without("b")
	assert.Equal(t, []string{"a", "c"}, w.IDs())
	assert.Equal(t, 3, c.Len(), "original collection must not change")

	assert.Equal(t, []string{"a", "b", "c"}, c.Without("missing").IDs())
}

func TestStoryCollection_Filter(t *testing.T) {
	c := NewStoryCollection([]*Story{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	f := c.Filter([]string{"c", "a", "zzz"})
	assert.Equal(t, []string{"a", "c"}, f.IDs())
	assert.Equal(t, 0, c.Filter(nil).Len())
}

func TestNilCollection(t *testing.T) {
	var c *StoryCollection
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Has("a"))
	assert.Nil(t, c.Stories())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestUserMembership(t *testing.T) {
	u := &User{
		Username:   "test123",
		Favorites:  NewStoryCollection([]*Story{{ID: "fav"}}),
		OwnStories: NewStoryCollection([]*Story{{ID: "mine"}}),
	}

	assert.True(t, u.IsFavorite("fav"))
	assert.False(t, u.IsFavorite("mine"))
	assert.True(t, u.Owns("mine"))

	var anon *User
	assert.False(t, anon.IsFavorite("fav"))
	assert.False(t, anon.Owns("mine"))
}
