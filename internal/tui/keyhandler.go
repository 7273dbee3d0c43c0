package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/snooze/internal/config"
)

// Command is one thing the user can ask for. Every navigation and action
// goes through App.dispatch with one of these.
type Command int

const (
	CmdNone Command = iota
	CmdShowAll
	CmdShowSubmit
	CmdShowFavorites
	CmdShowMine
	CmdShowAccount
	CmdLogout
	CmdDelete
	CmdToggleFavorite
	CmdOpen
	CmdRefresh
	CmdSearch
	CmdQuit

	// form and search line commands
	CmdConfirm
	CmdCancel
	CmdNextField
	CmdPrevField
	CmdSwitchForm
)

var showCommands = map[View]Command{
	ViewAll:       CmdShowAll,
	ViewSubmit:    CmdShowSubmit,
	ViewFavorites: CmdShowFavorites,
	ViewMine:      CmdShowMine,
	ViewAccount:   CmdShowAccount,
}

type KeyHandler struct {
	app         *App
	modifierKey string
	bindings    map[string]Command
	labels      map[Command]string
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	kh := &KeyHandler{
		app:         app,
		modifierKey: cfg.Keys.Modifier + "+",
		bindings:    make(map[string]Command),
		labels:      make(map[Command]string),
	}

	b := cfg.Keys.Bindings
	// View switches and quit are plain keys, only live outside text input.
	kh.bind(b.Quit, false, CmdQuit)
	kh.bind(b.AllStories, false, CmdShowAll)
	kh.bind(b.Submit, false, CmdShowSubmit)
	kh.bind(b.Favorites, false, CmdShowFavorites)
	kh.bind(b.MyStories, false, CmdShowMine)
	kh.bind(b.Account, false, CmdShowAccount)

	kh.bind(b.Logout, true, CmdLogout)
	kh.bind(b.Delete, true, CmdDelete)
	kh.bind(b.ToggleFavorite, true, CmdToggleFavorite)
	kh.bind(b.Open, true, CmdOpen)
	kh.bind(b.Refresh, true, CmdRefresh)
	kh.bind(b.Search, true, CmdSearch)

	kh.bindings["ctrl+c"] = CmdQuit
	return kh
}

// bind registers key for cmd. Single characters of modified bindings get
// the modifier prefix; anything longer is taken as a full key name.
func (kh *KeyHandler) bind(key string, modified bool, cmd Command) {
	if key == "" {
		return
	}
	if modified && len([]rune(key)) == 1 {
		key = kh.modifierKey + key
	}
	kh.bindings[key] = cmd
	kh.labels[cmd] = key
}

// Lookup returns the command bound to key.
func (kh *KeyHandler) Lookup(key string) (Command, bool) {
	cmd, ok := kh.bindings[key]
	return cmd, ok
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if kh.app.inTextInput() {
		return kh.handleTextInputMode(msg)
	}

	if cmd, ok := kh.bindings[key]; ok {
		return kh.app.dispatch(cmd)
	}

	switch key {
	case "esc":
		return kh.app.dispatch(CmdCancel)
	case "enter":
		if kh.app.session.View.listsStories() {
			return kh.app.dispatch(CmdOpen)
		}
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return kh.app.dispatch(CmdQuit)
	case "esc":
		return kh.app.dispatch(CmdCancel)
	case "enter":
		return kh.app.dispatch(CmdConfirm)
	case "tab", "down":
		return kh.app.dispatch(CmdNextField)
	case "shift+tab", "up":
		return kh.app.dispatch(CmdPrevField)
	case "ctrl+t":
		return kh.app.dispatch(CmdSwitchForm)
	default:
		return kh.app, kh.app.updateInput(msg)
	}
}

// delegateToCharm lets the list widget handle navigation keys.
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !kh.app.session.View.listsStories() {
		return kh.app, nil
	}
	var cmd tea.Cmd
	kh.app.storyList, cmd = kh.app.storyList.Update(msg)
	return kh.app, cmd
}

func (kh *KeyHandler) label(cmd Command, text string) string {
	key, ok := kh.labels[cmd]
	if !ok {
		return ""
	}
	return key + ": " + text
}

// GetHelpForCurrentView returns the key hints for the status bar.
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	s := kh.app.session
	var help []string
	add := func(entries ...string) {
		for _, e := range entries {
			if e != "" {
				help = append(help, e)
			}
		}
	}

	switch {
	case s.View.listsStories() && kh.app.searchInput.Focused():
		add("enter: keep filter", "esc: clear")
		return help

	case s.View.listsStories():
		add(kh.label(CmdOpen, "open"), kh.label(CmdSearch, "search"), kh.label(CmdRefresh, "refresh"))
		if s.LoggedIn() {
			add(kh.label(CmdToggleFavorite, "favorite"), kh.label(CmdDelete, "delete"))
		}

	case s.View == ViewSubmit:
		add("tab: next field", "enter: submit", "esc: cancel")
		return help

	case s.View == ViewAccount && !s.LoggedIn():
		add("tab: next field", "ctrl+t: switch form", "enter: send", "esc: cancel")
		return help

	case s.View == ViewAccount:
		add(kh.label(CmdLogout, "log out"))
	}

	add(kh.label(CmdQuit, "quit"))
	return help
}
