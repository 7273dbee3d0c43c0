package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/snooze/internal/model"
)

type favState int

const (
	favNone favState = iota // anonymous: no icon at all
	favOff
	favOn
)

func (f favState) icon() string {
	switch f {
	case favOn:
		return "★"
	case favOff:
		return "☆"
	default:
		return ""
	}
}

// storyRow is everything a story list line shows.
type storyRow struct {
	ID        string
	Title     string
	URL       string
	Author    string
	Host      string
	Submitter string
	Fav       favState
	Own       bool
}

// renderRows turns a collection into list rows, one per story, in
// collection order. It reads nothing but its arguments.
func renderRows(c *model.StoryCollection, user *model.User, view View) []storyRow {
	stories := c.Stories()
	rows := make([]storyRow, 0, len(stories))
	for _, s := range stories {
		row := storyRow{
			ID:        s.ID,
			Title:     s.Title,
			URL:       s.URL,
			Author:    s.Author,
			Host:      s.Host(),
			Submitter: s.Username,
			Fav:       favNone,
		}
		if user != nil {
			row.Fav = favOff
			if user.IsFavorite(s.ID) {
				row.Fav = favOn
			}
			row.Own = view == ViewMine || user.Owns(s.ID)
		}
		rows = append(rows, row)
	}
	return rows
}

// storyItem adapts a row to the list widget.
type storyItem struct {
	row           storyRow
	maxTitle      int
	showSubmitter bool
}

func (i storyItem) Title() string {
	title := i.row.Title
	if i.maxTitle > 0 {
		title = truncateEnd(title, i.maxTitle)
	}
	line := title + " " + HostStyle.Render("("+i.row.Host+")")
	if icon := i.row.Fav.icon(); icon != "" {
		style := FavOffStyle
		if i.row.Fav == favOn {
			style = FavOnStyle
		}
		line = style.Render(icon) + " " + line
	}
	return line
}

func (i storyItem) Description() string {
	desc := fmt.Sprintf("by %s", i.row.Author)
	if i.showSubmitter {
		desc += fmt.Sprintf(" • posted by %s", i.row.Submitter)
	}
	if i.row.Own {
		desc += " • yours"
	}
	return lipgloss.NewStyle().Foreground(MutedColor).Render(desc)
}

func (i storyItem) FilterValue() string { return i.row.Title }

func rowItems(rows []storyRow, maxTitle int, showSubmitter bool) []list.Item {
	items := make([]list.Item, len(rows))
	for i, row := range rows {
		items[i] = storyItem{row: row, maxTitle: maxTitle, showSubmitter: showSubmitter}
	}
	return items
}
