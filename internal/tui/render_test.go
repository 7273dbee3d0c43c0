package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/snooze/internal/model"
)

func sampleCollection() *model.StoryCollection {
	return model.NewStoryCollection([]*model.Story{
		{ID: "s1", Title: "First", Author: "Ann", URL: "http://www.first.com/a", Username: "ann"},
		{ID: "s2", Title: "Second", Author: "Bob", URL: "second.org/b", Username: "bob"},
		{ID: "s3", Title: "Third", Author: "Cy", URL: "https://sub.third.net", Username: "cy"},
	})
}

func TestRenderRowsAnonymous(t *testing.T) {
	rows := renderRows(sampleCollection(), nil, ViewAll)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"s1", "s2", "s3"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})
	assert.Equal(t, []string{"first.com", "second.org", "sub.third.net"}, []string{rows[0].Host, rows[1].Host, rows[2].Host})
	for _, r := range rows {
		assert.Equal(t, favNone, r.Fav)
		assert.False(t, r.Own)
	}
}

func TestRenderRowsFavoriteState(t *testing.T) {
	c := sampleCollection()
	s1, _ := c.Get("s1")
	s2, _ := c.Get("s2")
	user := &model.User{
		Username:   "ann",
		Token:      "tok",
		Favorites:  model.NewStoryCollection([]*model.Story{s2}),
		OwnStories: model.NewStoryCollection([]*model.Story{s1}),
	}

	rows := renderRows(c, user, ViewAll)

	tests := []struct {
		id  string
		fav favState
		own bool
	}{
		{"s1", favOff, true},
		{"s2", favOn, false},
		{"s3", favOff, false},
	}
	for i, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.id, rows[i].ID)
			assert.Equal(t, tt.fav, rows[i].Fav)
			assert.Equal(t, tt.own, rows[i].Own)
		})
	}
}

func TestRenderRowsEmpty(t *testing.T) {
	assert.Empty(t, renderRows(nil, nil, ViewAll))
	assert.Empty(t, renderRows(model.NewStoryCollection(nil), &model.User{}, ViewFavorites))
}

func TestRenderRowsIsPure(t *testing.T) {
	c := sampleCollection()
	first := renderRows(c, nil, ViewAll)
	second := renderRows(c, nil, ViewAll)
	assert.Equal(t, first, second)
	assert.Equal(t, 3, c.Len())
}

func TestStoryItem(t *testing.T) {
	row := storyRow{Title: "A very long story title indeed", Host: "x.com", Author: "Ann", Submitter: "ann", Fav: favOn, Own: true}

	item := storyItem{row: row, maxTitle: 10, showSubmitter: true}
	assert.Contains(t, item.Title(), "★")
	assert.Contains(t, item.Title(), "(x.com)")
	assert.NotContains(t, item.Title(), "indeed")
	assert.Contains(t, item.Description(), "by Ann")
	assert.Contains(t, item.Description(), "posted by ann")
	assert.Contains(t, item.Description(), "yours")
	assert.Equal(t, row.Title, item.FilterValue())

	row.Fav = favNone
	plain := storyItem{row: row}
	assert.False(t, strings.ContainsAny(plain.Title(), "★☆"))
	assert.NotContains(t, plain.Description(), "posted by")
}

func TestRowItems(t *testing.T) {
	items := rowItems(renderRows(sampleCollection(), nil, ViewAll), 40, false)
	require.Len(t, items, 3)
	assert.Equal(t, "First", items[0].FilterValue())
}
