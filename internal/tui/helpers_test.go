package tui

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/pders01/snooze/internal/api"
	"github.com/pders01/snooze/internal/api/apitest"
	"github.com/pders01/snooze/internal/config"
	"github.com/pders01/snooze/internal/storage"
)

type fakeOpener struct {
	opened []string
	err    error
}

func (f *fakeOpener) Command(link string) (*exec.Cmd, bool, error) {
	return exec.Command("true", link), false, nil
}

func (f *fakeOpener) Open(link string) error {
	f.opened = append(f.opened, link)
	return f.err
}

type testEnv struct {
	app    *App
	srv    *apitest.Server
	store  *storage.Store
	client *api.Client
	opener *fakeOpener
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	srv := apitest.NewServer(t)
	cfg := config.TestConfig()
	cfg.API.BaseURL = srv.URL

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	client := api.NewClient(cfg.API)
	app := NewApp(context.Background(), client, store, cfg)
	opener := &fakeOpener{}
	app.opener = opener

	return &testEnv{app: app, srv: srv, store: store, client: client, opener: opener}
}

// drive runs cmd and every command it leads to, feeding each message
// back through Update, until nothing is left. Spinner ticks are dropped.
func drive(t *testing.T, app *App, cmd tea.Cmd) {
	t.Helper()

	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 200, "command loop did not settle")

		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}

		switch msg := c().(type) {
		case nil, spinner.TickMsg, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, next := app.Update(msg)
			queue = append(queue, next)
		}
	}
}

func press(t *testing.T, app *App, keys ...tea.KeyMsg) {
	t.Helper()
	for _, k := range keys {
		_, cmd := app.Update(k)
		drive(t, app, cmd)
	}
}

func typeText(t *testing.T, app *App, text string) {
	t.Helper()
	press(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

var (
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
)

// start runs Init to completion.
func (e *testEnv) start(t *testing.T) {
	t.Helper()
	drive(t, e.app, e.app.Init())
}

// login goes through the account form as a user would.
func (e *testEnv) login(t *testing.T, username, password string) {
	t.Helper()
	press(t, e.app, key('5'))
	typeText(t, e.app, username)
	press(t, e.app, keyTab)
	typeText(t, e.app, password)
	press(t, e.app, keyEnter)
}

// rows returns what the story list is showing.
func (e *testEnv) rows() []storyRow {
	items := e.app.storyList.Items()
	rows := make([]storyRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, it.(storyItem).row)
	}
	return rows
}
