package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/pders01/snooze/internal/model"
	"github.com/pders01/snooze/internal/search"
)

type sessionRestoredMsg struct {
	// token and username are what the store held when the restore began.
	token    string
	username string
	user     *model.User
	err      error
}

type storiesLoadedMsg struct {
	gen     uint64
	view    View
	stories *model.StoryCollection
	err     error
}

type userRefreshedMsg struct {
	gen  uint64
	view View
	user *model.User
	err  error
}

type profileRenderedMsg struct {
	gen     uint64
	content string
	err     error
}

type searchResultMsg struct {
	gen     uint64
	seq     uint64
	query   string
	stories *model.StoryCollection
	err     error
}

type authMsg struct {
	op   string
	user *model.User
	err  error
}

type storySubmittedMsg struct {
	story *model.Story
	err   error
}

type storyDeletedMsg struct {
	id  string
	err error
}

type favoriteToggledMsg struct {
	id    string
	added bool
	user  *model.User
	err   error
}

type openedMsg struct {
	link string
	err  error
}

// cloneUser gives a command its own User to refresh. Collections are
// replaced, never mutated, so a shallow copy is enough.
func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (a *App) restoreSession() tea.Cmd {
	return func() tea.Msg {
		sess, err := a.store.LoadSession()
		if err != nil {
			return sessionRestoredMsg{err: wrapErr("loading session", err)}
		}
		user, err := a.client.GetSessionUser(a.ctx, sess.Token, sess.Username)
		return sessionRestoredMsg{token: sess.Token, username: sess.Username, user: user, err: err}
	}
}

func (a *App) fetchStories(gen uint64, view View) tea.Cmd {
	return func() tea.Msg {
		stories, err := a.client.FetchAllStories(a.ctx)
		return storiesLoadedMsg{gen: gen, view: view, stories: stories, err: err}
	}
}

func (a *App) refreshUser(gen uint64, view View, user *model.User) tea.Cmd {
	return func() tea.Msg {
		u := cloneUser(user)
		if err := a.client.RefreshUser(a.ctx, u); err != nil {
			return userRefreshedMsg{gen: gen, view: view, err: err}
		}
		return userRefreshedMsg{gen: gen, view: view, user: u}
	}
}

func (a *App) login(username, password string) tea.Cmd {
	return func() tea.Msg {
		user, err := a.client.Login(a.ctx, username, password)
		return authMsg{op: "login", user: user, err: err}
	}
}

func (a *App) signup(username, password, name string) tea.Cmd {
	return func() tea.Msg {
		user, err := a.client.CreateUser(a.ctx, username, password, name)
		return authMsg{op: "sign up", user: user, err: err}
	}
}

func (a *App) submitStory(user *model.User, draft model.Draft) tea.Cmd {
	return func() tea.Msg {
		story, err := a.client.SubmitStory(a.ctx, user, draft)
		return storySubmittedMsg{story: story, err: err}
	}
}

func (a *App) deleteStory(user *model.User, id string) tea.Cmd {
	return func() tea.Msg {
		return storyDeletedMsg{id: id, err: a.client.DeleteStory(a.ctx, user, id)}
	}
}

func (a *App) toggleFavorite(user *model.User, id string) tea.Cmd {
	adding := !user.IsFavorite(id)
	return func() tea.Msg {
		u := cloneUser(user)
		var err error
		if adding {
			err = a.client.AddFavorite(a.ctx, u, id)
		} else {
			err = a.client.RemoveFavorite(a.ctx, u, id)
		}
		if err != nil {
			return favoriteToggledMsg{id: id, added: adding, err: err}
		}
		return favoriteToggledMsg{id: id, added: adding, user: u}
	}
}

func (a *App) runSearch(gen, seq uint64, source *model.StoryCollection, query string) tea.Cmd {
	return func() tea.Msg {
		filtered, err := search.Filter(source, query)
		return searchResultMsg{gen: gen, seq: seq, query: query, stories: filtered, err: err}
	}
}

func (a *App) openLink(link string) tea.Cmd {
	cmd, interactive, err := a.opener.Command(link)
	if err != nil {
		return func() tea.Msg { return openedMsg{link: link, err: err} }
	}
	if interactive {
		return tea.ExecProcess(cmd, func(err error) tea.Msg {
			return openedMsg{link: link, err: err}
		})
	}
	return func() tea.Msg {
		return openedMsg{link: link, err: a.opener.Open(link)}
	}
}

func (a *App) renderProfile(gen uint64, user *model.User, width int) tea.Cmd {
	return func() tea.Msg {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrapWidth(width)),
		)
		if err != nil {
			return profileRenderedMsg{gen: gen, err: wrapErr("initializing renderer", err)}
		}
		out, err := r.Render(profileMarkdown(user))
		if err != nil {
			return profileRenderedMsg{gen: gen, err: wrapErr("rendering profile", err)}
		}
		return profileRenderedMsg{gen: gen, content: out}
	}
}

func profileMarkdown(u *model.User) string {
	var b strings.Builder
	name := u.Name
	if name == "" {
		name = u.Username
	}
	fmt.Fprintf(&b, "# %s\n\n", name)
	fmt.Fprintf(&b, "- **Username:** %s\n", u.Username)
	if !u.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- **Account created:** %s\n", u.CreatedAt.Local().Format("January 2, 2006"))
	}
	fmt.Fprintf(&b, "- **Stories submitted:** %d\n", u.OwnStories.Len())
	fmt.Fprintf(&b, "- **Favorites:** %d\n", u.Favorites.Len())
	return b.String()
}

// wrapWidth keeps rendered text between 40 and 100 columns.
func wrapWidth(width int) int {
	w := (width * 9) / 10
	if w > 100 {
		w = 100
	}
	if w < 40 {
		w = 40
	}
	return w
}
