package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/snooze/internal/api"
	"github.com/pders01/snooze/internal/config"
	"github.com/pders01/snooze/internal/model"
	"github.com/pders01/snooze/internal/storage"
)

func TestStartupAnonymous(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("alice", "pw", "Alice")
	env.srv.AddStory("alice", model.Draft{Author: "a", Title: "first", URL: "http://a.com"})
	env.srv.AddStory("alice", model.Draft{Author: "b", Title: "second", URL: "http://www.b.com/x"})

	env.start(t)

	s := env.app.Session()
	assert.Equal(t, ViewAll, s.View)
	assert.Nil(t, s.User)
	assert.False(t, env.app.busy())

	rows := env.rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "second", rows[0].Title)
	assert.Equal(t, "b.com", rows[0].Host)
	for _, r := range rows {
		assert.Equal(t, favNone, r.Fav, "anonymous rows have no favorite icon")
	}
}

func TestStartupRestoresSession(t *testing.T) {
	env := newTestEnv(t)
	token := env.srv.AddUser("test123", "test123", "Test User")
	require.NoError(t, env.store.SaveSession(storage.Session{Token: token, Username: "test123"}))

	env.start(t)

	s := env.app.Session()
	require.True(t, s.LoggedIn())
	assert.Equal(t, "test123", s.User.Username)
	assert.Equal(t, ViewAll, s.View)
	assert.Equal(t, StatusSuccess, env.app.status.kind)
}

func TestStartupRejectedSessionIsCleared(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("test123", "test123", "Test User")
	require.NoError(t, env.store.SaveSession(storage.Session{Token: "stale", Username: "test123"}))

	env.start(t)

	s := env.app.Session()
	assert.Nil(t, s.User)
	assert.Equal(t, ViewAll, s.View)
	assert.Equal(t, StatusError, env.app.status.kind)

	sess, err := env.store.LoadSession()
	require.NoError(t, err)
	assert.True(t, sess.Empty())
}

// gatedService holds GetSessionUser until release is closed.
type gatedService struct {
	StoryService
	entered chan struct{}
	release chan struct{}
}

func (g *gatedService) GetSessionUser(ctx context.Context, token, username string) (*model.User, error) {
	close(g.entered)
	<-g.release
	return g.StoryService.GetSessionUser(ctx, token, username)
}

func TestLateRestoreDoesNotUndoLogin(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("test123", "test123", "Test User")
	require.NoError(t, env.store.SaveSession(storage.Session{Token: "stale", Username: "test123"}))

	gate := &gatedService{StoryService: env.client, entered: make(chan struct{}), release: make(chan struct{})}
	env.app.client = gate

	batch, ok := env.app.Init()().(tea.BatchMsg)
	require.True(t, ok)
	restored := make(chan tea.Msg, 1)
	go func() { restored <- batch[0]() }()
	<-gate.entered

	env.login(t, "test123", "test123")
	s := env.app.Session()
	require.True(t, s.LoggedIn())
	token := s.User.Token

	close(gate.release)
	_, cmd := env.app.Update(<-restored)
	drive(t, env.app, cmd)

	require.True(t, s.LoggedIn())
	assert.Equal(t, token, s.User.Token)
	assert.Equal(t, StatusSuccess, env.app.status.kind)

	sess, err := env.store.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, storage.Session{Token: token, Username: "test123"}, sess)
}

func TestRejectedRestoreKeepsNewerSession(t *testing.T) {
	env := newTestEnv(t)
	fresh := storage.Session{Token: "fresh", Username: "test123"}
	require.NoError(t, env.store.SaveSession(fresh))

	env.app.restoring = true
	_, cmd := env.app.Update(sessionRestoredMsg{
		token:    "stale",
		username: "test123",
		err:      &api.Error{Op: "restore", Status: 401, Kind: api.ErrAuth},
	})
	drive(t, env.app, cmd)

	assert.Equal(t, StatusError, env.app.status.kind)
	sess, err := env.store.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, fresh, sess)
}

func TestUserRefreshDoesNotEndStoryLoading(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("test123", "test123", "Test User")
	env.start(t)
	env.login(t, "test123", "test123")
	s := env.app.Session()

	_, cmd := env.app.Update(storySubmittedMsg{story: &model.Story{ID: "new"}})
	require.NotNil(t, cmd)
	require.True(t, env.app.loading)

	env.app.Update(userRefreshedMsg{gen: s.Generation, view: ViewAll, user: cloneUser(s.User)})
	assert.True(t, env.app.loading, "stories are still on their way")

	env.app.Update(storiesLoadedMsg{gen: s.Generation, view: ViewAll, stories: model.NewStoryCollection(nil)})
	assert.False(t, env.app.loading)
}

func TestLoginSubmitScenario(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("test123", "test123", "Test User")
	env.srv.AddUser("other", "pw", "Other")
	liked := env.srv.AddStory("other", model.Draft{Author: "o", Title: "liked", URL: "http://liked.com"})
	env.srv.AddStory("other", model.Draft{Author: "o", Title: "plain", URL: "http://plain.com"})
	env.srv.Favorite("test123", liked.ID)

	env.start(t)
	for _, r := range env.rows() {
		assert.Equal(t, favNone, r.Fav)
	}

	env.login(t, "test123", "test123")

	s := env.app.Session()
	require.True(t, s.LoggedIn())
	assert.Equal(t, ViewAll, s.View)

	sess, err := env.store.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "test123", sess.Username)
	assert.Equal(t, s.User.Token, sess.Token)

	favs := map[string]favState{}
	for _, r := range env.rows() {
		favs[r.Title] = r.Fav
	}
	assert.Equal(t, favOn, favs["liked"])
	assert.Equal(t, favOff, favs["plain"])

	press(t, env.app, key('2'))
	require.Equal(t, ViewSubmit, s.View)
	typeText(t, env.app, "A")
	press(t, env.app, keyTab)
	typeText(t, env.app, "T")
	press(t, env.app, keyTab)
	typeText(t, env.app, "http://x.com")
	press(t, env.app, keyEnter)

	assert.Equal(t, ViewAll, s.View)
	assert.Empty(t, s.Pending)
	rows := env.rows()
	require.NotEmpty(t, rows)
	assert.Equal(t, "T", rows[0].Title)
	assert.Equal(t, "A", rows[0].Author)
	assert.Equal(t, "x.com", rows[0].Host)
	assert.Equal(t, "test123", rows[0].Submitter)
	assert.True(t, s.User.Owns(rows[0].ID), "user is refreshed after submit")
}

func TestLoginFailureKeepsState(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("test123", "test123", "Test User")
	env.start(t)

	env.login(t, "test123", "wrong")

	s := env.app.Session()
	assert.Nil(t, s.User)
	assert.Equal(t, ViewAccount, s.View)
	assert.Empty(t, s.Pending)
	assert.Equal(t, StatusError, env.app.status.kind)
	assert.Contains(t, env.app.status.text, "login")
	assert.Equal(t, "test123", env.app.loginForm.Value("username"), "form keeps its input")
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)

	press(t, env.app, key('5'), tea.KeyMsg{Type: tea.KeyCtrlT})
	require.Same(t, env.app.signupForm, env.app.authForm)
	typeText(t, env.app, "New Person")
	press(t, env.app, keyTab)
	typeText(t, env.app, "newbie")
	press(t, env.app, keyTab)
	typeText(t, env.app, "secret")
	press(t, env.app, keyEnter)

	s := env.app.Session()
	require.True(t, s.LoggedIn())
	assert.Equal(t, "newbie", s.User.Username)
	assert.Equal(t, "New Person", s.User.Name)
	assert.Equal(t, ViewAll, s.View)
	assert.Empty(t, env.app.signupForm.Value("username"), "forms are reset")

	sess, err := env.store.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "newbie", sess.Username)
}

func TestAnonymousRedirectsToAccount(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
		want View
	}{
		{"submit", key('2'), ViewSubmit},
		{"favorites", key('3'), ViewFavorites},
		{"my stories", key('4'), ViewMine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.start(t)

			press(t, env.app, tt.key)

			assert.Equal(t, ViewAccount, env.app.Session().View)
			assert.Equal(t, StatusWarn, env.app.status.kind)
			assert.Equal(t, MsgLoginToView(tt.want), env.app.status.text)
		})
	}
}

func TestViewEntryFetchesOnlyForAll(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("test123", "test123", "Test User")
	env.start(t)
	env.login(t, "test123", "test123")
	env.srv.ResetRequests()

	press(t, env.app, key('3'), key('4'), key('2'))
	assert.Zero(t, env.srv.RequestCount(), "favorites, mine and submit use loaded state")

	press(t, env.app, keyEsc)
	assert.Equal(t, ViewAll, env.app.Session().View)
	assert.Equal(t, []string{"GET /stories"}, env.srv.Requests())
}

func TestStaleResponseDiscarded(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("alice", "pw", "Alice")
	env.srv.AddStory("alice", model.Draft{Author: "a", Title: "t", URL: "http://t.com"})
	env.start(t)

	s := env.app.Session()
	staleGen := s.Generation
	stale := model.NewStoryCollection([]*model.Story{{ID: "old", Title: "old", URL: "http://old.com"}})

	press(t, env.app, key('5'))
	env.app.Update(storiesLoadedMsg{gen: staleGen, view: ViewAll, stories: stale})
	assert.Equal(t, ViewAccount, s.View)
	assert.False(t, s.Displayed.Has("old"))

	press(t, env.app, keyEsc)
	require.Equal(t, ViewAll, s.View)
	current := s.Generation
	env.app.Update(storiesLoadedMsg{gen: staleGen, view: ViewAll, stories: stale})
	assert.False(t, s.Displayed.Has("old"), "older generation of the same view is dropped")

	env.app.Update(storiesLoadedMsg{gen: current, view: ViewAll, stories: stale})
	assert.True(t, s.Displayed.Has("old"))
}

func TestFavoriteToggleIsNotOptimistic(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("test123", "test123", "Test User")
	story := env.srv.AddStory("test123", model.Draft{Author: "a", Title: "t", URL: "http://t.com"})
	env.start(t)
	env.login(t, "test123", "test123")

	_, cmd := env.app.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
	require.NotNil(t, cmd)
	assert.Equal(t, favOff, env.rows()[0].Fav, "icon waits for the server")
	assert.Equal(t, "favorite", env.app.Session().Pending)

	drive(t, env.app, cmd)
	assert.Equal(t, favOn, env.rows()[0].Fav)
	assert.True(t, env.app.Session().User.IsFavorite(story.ID))
	assert.Empty(t, env.app.Session().Pending)

	press(t, env.app, tea.KeyMsg{Type: tea.KeyCtrlF})
	assert.Equal(t, favOff, env.rows()[0].Fav)
	assert.False(t, env.app.Session().User.IsFavorite(story.ID))
}

func TestFavoriteRequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("alice", "pw", "Alice")
	env.srv.AddStory("alice", model.Draft{Author: "a", Title: "t", URL: "http://t.com"})
	env.start(t)
	env.srv.ResetRequests()

	press(t, env.app, tea.KeyMsg{Type: tea.KeyCtrlF})

	assert.Zero(t, env.srv.RequestCount())
	assert.Equal(t, MsgLoginToFavorite, env.app.status.text)
}

func TestFavoritesViewRerendersFromUserSet(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("test123", "test123", "Test User")
	story := env.srv.AddStory("test123", model.Draft{Author: "a", Title: "t", URL: "http://t.com"})
	env.srv.Favorite("test123", story.ID)
	env.start(t)
	env.login(t, "test123", "test123")

	press(t, env.app, key('3'))
	require.Equal(t, ViewFavorites, env.app.Session().View)
	require.Len(t, env.rows(), 1)
	assert.Equal(t, favOn, env.rows()[0].Fav)

	press(t, env.app, tea.KeyMsg{Type: tea.KeyCtrlF})
	assert.Empty(t, env.rows())
	assert.Equal(t, 0, env.app.Session().Displayed.Len())
}

func TestDoubleMutationIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("test123", "test123", "Test User")
	env.srv.AddStory("test123", model.Draft{Author: "a", Title: "t", URL: "http://t.com"})
	env.start(t)
	env.login(t, "test123", "test123")

	_, first := env.app.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
	require.NotNil(t, first)

	_, second := env.app.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.Nil(t, second)
	assert.Equal(t, MsgStillWaiting("favorite"), env.app.status.text)

	drive(t, env.app, first)
	assert.Len(t, env.rows(), 1, "the ignored delete never ran")
}

func TestDeleteRemovesRowAndRefreshesUser(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("test123", "test123", "Test User")
	keep := env.srv.AddStory("test123", model.Draft{Author: "a", Title: "keep", URL: "http://k.com"})
	gone := env.srv.AddStory("test123", model.Draft{Author: "a", Title: "gone", URL: "http://g.com"})
	env.start(t)
	env.login(t, "test123", "test123")

	press(t, env.app, key('4'))
	require.Equal(t, gone.ID, env.rows()[0].ID)

	press(t, env.app, tea.KeyMsg{Type: tea.KeyCtrlX})

	s := env.app.Session()
	assert.Equal(t, []string{keep.ID}, s.Displayed.IDs())
	assert.False(t, s.User.Owns(gone.ID))
	assert.True(t, s.User.Owns(keep.ID))
	assert.Equal(t, MsgStoryDeleted, env.app.status.text)
}

func TestDeleteNotFoundLeavesCollection(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("test123", "test123", "Test User")
	story := env.srv.AddStory("test123", model.Draft{Author: "a", Title: "t", URL: "http://t.com"})
	env.start(t)
	env.login(t, "test123", "test123")

	// gone on the server, still on screen
	require.NoError(t, env.client.DeleteStory(context.Background(), env.app.Session().User, story.ID))
	before := env.app.Session().Displayed.IDs()

	press(t, env.app, tea.KeyMsg{Type: tea.KeyCtrlX})

	s := env.app.Session()
	assert.Equal(t, before, s.Displayed.IDs())
	assert.Equal(t, StatusError, env.app.status.kind)
	assert.Contains(t, env.app.status.text, "deleting story")
	assert.Empty(t, s.Pending)
}

func TestLogoutClearsSession(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("test123", "test123", "Test User")
	env.srv.AddStory("test123", model.Draft{Author: "a", Title: "t", URL: "http://t.com"})
	env.start(t)
	env.login(t, "test123", "test123")

	press(t, env.app, key('5'))
	assert.Equal(t, ViewAccount, env.app.Session().View)

	press(t, env.app, tea.KeyMsg{Type: tea.KeyCtrlL})

	s := env.app.Session()
	assert.Nil(t, s.User)
	assert.Equal(t, ViewAll, s.View)
	assert.Equal(t, MsgLoggedOut("test123"), env.app.status.text)
	for _, r := range env.rows() {
		assert.Equal(t, favNone, r.Fav)
	}

	sess, err := env.store.LoadSession()
	require.NoError(t, err)
	assert.True(t, sess.Empty())
}

func TestSubmitRequiresFields(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("test123", "test123", "Test User")
	env.start(t)
	env.login(t, "test123", "test123")
	env.srv.ResetRequests()

	press(t, env.app, key('2'))
	typeText(t, env.app, "A")
	press(t, env.app, keyTab, keyTab, keyEnter)

	assert.Equal(t, ViewSubmit, env.app.Session().View)
	assert.Equal(t, "title, url are required", env.app.status.text)
	assert.Zero(t, env.srv.RequestCount())
}

func TestSubmitRejectedKeepsForm(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("test123", "test123", "Test User")
	env.start(t)
	env.login(t, "test123", "test123")

	press(t, env.app, key('2'))
	typeText(t, env.app, "A")
	press(t, env.app, keyTab)
	typeText(t, env.app, "T")
	press(t, env.app, keyTab)
	typeText(t, env.app, "not a url")
	press(t, env.app, keyEnter)

	assert.Equal(t, ViewSubmit, env.app.Session().View)
	assert.Equal(t, StatusError, env.app.status.kind)
	assert.Equal(t, "T", env.app.submitForm.Value("title"))
}

func TestSearchFiltersAndClears(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("alice", "pw", "Alice")
	env.srv.AddStory("alice", model.Draft{Author: "Rob", Title: "Golang tips", URL: "http://go.dev"})
	env.srv.AddStory("alice", model.Draft{Author: "Ferris", Title: "Rust news", URL: "http://rust-lang.org"})
	env.start(t)

	press(t, env.app, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.True(t, env.app.inTextInput())
	typeText(t, env.app, "golang")

	s := env.app.Session()
	assert.Equal(t, "golang", s.Query)
	require.Len(t, env.rows(), 1)
	assert.Equal(t, "Golang tips", env.rows()[0].Title)

	press(t, env.app, keyEnter)
	assert.False(t, env.app.inTextInput())
	assert.Len(t, env.rows(), 1, "enter keeps the filter")

	press(t, env.app, keyEsc)
	assert.Empty(t, s.Query)
	assert.Len(t, env.rows(), 2)
}

func TestOpenSelected(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("alice", "pw", "Alice")
	env.srv.AddStory("alice", model.Draft{Author: "a", Title: "t", URL: "http://t.com/post"})
	env.start(t)

	press(t, env.app, tea.KeyMsg{Type: tea.KeyCtrlO})

	assert.Equal(t, []string{"http://t.com/post"}, env.opener.opened)
	assert.Equal(t, StatusInfo, env.app.status.kind)
}

func TestRefreshRefetches(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("alice", "pw", "Alice")
	env.start(t)
	assert.Empty(t, env.rows())

	env.srv.AddStory("alice", model.Draft{Author: "a", Title: "late", URL: "http://late.com"})
	press(t, env.app, tea.KeyMsg{Type: tea.KeyCtrlR})

	require.Len(t, env.rows(), 1)
	assert.Equal(t, "late", env.rows()[0].Title)
}

func TestQuit(t *testing.T) {
	env := newTestEnv(t)

	_, cmd := env.app.Update(key('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestViewRenders(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("test123", "test123", "Test User")
	env.srv.AddStory("test123", model.Draft{Author: "a", Title: "Visible title", URL: "http://t.com"})
	env.app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	env.start(t)

	out := env.app.View()
	assert.Contains(t, out, "Visible title")
	assert.Contains(t, out, "anonymous")

	env.login(t, "test123", "test123")
	assert.Contains(t, env.app.View(), "@test123")
}

func TestCancelledContextStopsRequests(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	env.app = NewApp(ctx, env.client, env.store, config.TestConfig())

	env.start(t)

	assert.Zero(t, env.srv.RequestCount())
	assert.Equal(t, StatusError, env.app.status.kind)
	assert.Equal(t, "loading stories: cannot reach the server", env.app.status.text)
}
