package tui

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/snooze/internal/api"
	"github.com/pders01/snooze/internal/browser"
	"github.com/pders01/snooze/internal/config"
	"github.com/pders01/snooze/internal/debuglog"
	"github.com/pders01/snooze/internal/model"
	"github.com/pders01/snooze/internal/storage"
)

// StoryService is the remote API as the controller uses it.
type StoryService interface {
	FetchAllStories(ctx context.Context) (*model.StoryCollection, error)
	SubmitStory(ctx context.Context, user *model.User, draft model.Draft) (*model.Story, error)
	DeleteStory(ctx context.Context, user *model.User, storyID string) error
	CreateUser(ctx context.Context, username, password, name string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*model.User, error)
	GetSessionUser(ctx context.Context, token, username string) (*model.User, error)
	RefreshUser(ctx context.Context, user *model.User) error
	AddFavorite(ctx context.Context, user *model.User, storyID string) error
	RemoveFavorite(ctx context.Context, user *model.User, storyID string) error
}

// SessionStore persists the login between runs.
type SessionStore interface {
	SaveSession(storage.Session) error
	LoadSession() (storage.Session, error)
	ClearSession() error
}

type Opener interface {
	Command(link string) (*exec.Cmd, bool, error)
	Open(link string) error
}

type App struct {
	config     *config.Config
	ctx        context.Context
	client     StoryService
	store      SessionStore
	opener     Opener
	keyHandler *KeyHandler
	session    *Session

	storyList   list.Model
	searchInput textinput.Model
	submitForm  *form
	loginForm   *form
	signupForm  *form
	authForm    *form
	spinner     spinner.Model

	profile   string
	loading   bool
	restoring bool
	spinning  bool
	status    status
	width     int
	height    int
}

// NewApp builds the controller. Requests it issues are bound to ctx.
func NewApp(ctx context.Context, client StoryService, store SessionStore, cfg *config.Config) *App {
	storyList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	storyList.Title = "› " + ViewAll.String()
	storyList.SetShowStatusBar(false)
	storyList.SetFilteringEnabled(false)
	storyList.SetShowHelp(false)
	storyList.DisableQuitKeybindings()

	si := textinput.New()
	si.Placeholder = "Search title, author, site…"
	si.Prompt = "/ "
	si.Cursor.SetMode(cursor.CursorStatic)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	app := &App{
		config:      cfg,
		ctx:         ctx,
		client:      client,
		store:       store,
		opener:      browser.NewLauncher(cfg.Browser),
		session:     &Session{View: ViewAll},
		storyList:   storyList,
		searchInput: si,
		submitForm: newForm("submit a story",
			fieldSpec{name: "author", placeholder: "who wrote it"},
			fieldSpec{name: "title", placeholder: "story title"},
			fieldSpec{name: "url", placeholder: "https://…"},
		),
		loginForm: newForm("log in",
			fieldSpec{name: "username", placeholder: "username"},
			fieldSpec{name: "password", placeholder: "password", secret: true},
		),
		signupForm: newForm("create account",
			fieldSpec{name: "name", placeholder: "display name"},
			fieldSpec{name: "username", placeholder: "username"},
			fieldSpec{name: "password", placeholder: "password", secret: true},
		),
		spinner: sp,
	}
	app.authForm = app.loginForm
	app.keyHandler = NewKeyHandler(app, cfg)

	return app
}

// Session exposes the controller state, mainly for tests and the CLI.
func (a *App) Session() *Session {
	return a.session
}

func (a *App) Init() tea.Cmd {
	a.restoring = true
	a.setStatus(MsgRestoring, StatusInfo)
	return tea.Batch(a.restoreSession(), a.startSpinner())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	s := a.session

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.storyList.SetSize(msg.Width, max(msg.Height-6, 3))
		inputWidth := min(max(msg.Width-10, 20), 60)
		a.searchInput.Width = inputWidth
		a.submitForm.SetWidth(inputWidth)
		a.loginForm.SetWidth(inputWidth / 2)
		a.signupForm.SetWidth(inputWidth / 2)
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case spinner.TickMsg:
		if !a.busy() {
			a.spinning = false
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case sessionRestoredMsg:
		// A login that finished first owns the session now.
		if !a.restoring {
			debuglog.Debugf("dropping session restore for %q, login state changed", msg.username)
			return a, nil
		}
		a.restoring = false
		cmd := a.enterWithUser(msg.user)
		if msg.err != nil {
			if errors.Is(msg.err, api.ErrAuth) {
				a.forgetSession(msg.token)
			}
			a.fail("restoring session", msg.err)
		} else if msg.user != nil {
			a.setStatus(MsgLoggedIn(msg.user.Username), StatusSuccess)
		}
		return a, cmd

	case storiesLoadedMsg:
		if !s.current(msg.gen, msg.view) {
			debuglog.Debugf("dropping stale story list (gen %d, now %d)", msg.gen, s.Generation)
			return a, nil
		}
		a.loading = false
		if msg.err != nil {
			a.fail("loading stories", msg.err)
			return a, nil
		}
		s.setSource(msg.stories)
		a.render()
		if a.status.kind != StatusError && a.status.kind != StatusSuccess {
			a.clearStatus()
		}
		return a, nil

	case userRefreshedMsg:
		isCurrent := s.current(msg.gen, msg.view)
		// In ViewAll the story fetch owns the loading state.
		if isCurrent && msg.view != ViewAll {
			a.loading = false
		}
		if msg.err != nil {
			a.fail("refreshing account", msg.err)
			return a, nil
		}
		if !s.sameUser(msg.user) {
			return a, nil
		}
		s.User = msg.user
		if isCurrent && (s.View == ViewFavorites || s.View == ViewMine) {
			a.resource(s.userCollection(s.View))
		}
		a.render()
		return a, nil

	case profileRenderedMsg:
		if !s.current(msg.gen, ViewAccount) {
			return a, nil
		}
		if msg.err != nil {
			a.fail("showing profile", msg.err)
			return a, nil
		}
		a.profile = msg.content
		return a, nil

	case searchResultMsg:
		if msg.gen != s.Generation || msg.seq != s.searchSeq {
			return a, nil
		}
		if msg.err != nil {
			a.fail("searching", msg.err)
			return a, nil
		}
		s.Displayed = msg.stories
		s.Query = msg.query
		a.render()
		a.setStatus(MsgResultsCount(msg.stories.Len()), StatusInfo)
		return a, nil

	case authMsg:
		s.Pending = ""
		if msg.err != nil {
			a.fail(msg.op, msg.err)
			return a, nil
		}
		a.restoring = false
		saveErr := a.store.SaveSession(storage.Session{Token: msg.user.Token, Username: msg.user.Username})
		a.loginForm.Reset()
		a.signupForm.Reset()
		cmd := a.enterWithUser(msg.user)
		if saveErr != nil {
			a.fail("saving session", saveErr)
		} else {
			a.setStatus(MsgLoggedIn(msg.user.Username), StatusSuccess)
		}
		return a, cmd

	case storySubmittedMsg:
		s.Pending = ""
		if msg.err != nil {
			a.fail("submitting story", msg.err)
			return a, nil
		}
		a.submitForm.Reset()
		cmd := a.enter(ViewAll)
		a.setStatus(MsgStorySubmitted, StatusSuccess)
		if !s.LoggedIn() {
			return a, cmd
		}
		return a, tea.Batch(cmd, a.refreshUser(s.Generation, s.View, s.User))

	case storyDeletedMsg:
		s.Pending = ""
		if msg.err != nil {
			a.fail("deleting story", msg.err)
			return a, nil
		}
		s.source = s.source.Without(msg.id)
		s.Displayed = s.Displayed.Without(msg.id)
		a.render()
		a.setStatus(MsgStoryDeleted, StatusSuccess)
		if !s.LoggedIn() {
			return a, nil
		}
		return a, a.refreshUser(s.Generation, s.View, s.User)

	case favoriteToggledMsg:
		s.Pending = ""
		if msg.err != nil {
			a.fail("updating favorites", msg.err)
			return a, nil
		}
		if !s.sameUser(msg.user) {
			return a, nil
		}
		s.User = msg.user
		if s.View == ViewFavorites || s.View == ViewMine {
			a.resource(s.userCollection(s.View))
		}
		a.render()
		a.setStatus(MsgFavorite(msg.added), StatusSuccess)
		return a, nil

	case openedMsg:
		if msg.err != nil {
			a.fail("opening link", msg.err)
			return a, nil
		}
		a.setStatus("Opened "+truncateMiddle(msg.link, 60), StatusInfo)
		return a, nil
	}

	if a.inTextInput() {
		return a, a.updateInput(msg)
	}
	return a, nil
}

// forgetSession clears the stored login if it still holds the rejected token.
func (a *App) forgetSession(token string) {
	stored, err := a.store.LoadSession()
	if err != nil {
		debuglog.Warnf("reading session: %v", err)
		return
	}
	if stored.Token != token {
		return
	}
	if err := a.store.ClearSession(); err != nil {
		debuglog.Warnf("clearing rejected session: %v", err)
	}
}

func (a *App) busy() bool {
	return a.loading || a.restoring || a.session.Pending != ""
}

func (a *App) startSpinner() tea.Cmd {
	if a.spinning {
		return nil
	}
	a.spinning = true
	return a.spinner.Tick
}

// dispatch is the single entry point for navigation and actions.
func (a *App) dispatch(c Command) (tea.Model, tea.Cmd) {
	switch c {
	case CmdQuit:
		return a, tea.Quit
	case CmdShowAll:
		return a, a.enter(ViewAll)
	case CmdShowSubmit:
		return a, a.enter(ViewSubmit)
	case CmdShowFavorites:
		return a, a.enter(ViewFavorites)
	case CmdShowMine:
		return a, a.enter(ViewMine)
	case CmdShowAccount:
		return a, a.enter(ViewAccount)
	case CmdLogout:
		return a, a.logout()
	case CmdDelete:
		return a, a.deleteSelected()
	case CmdToggleFavorite:
		return a, a.toggleSelected()
	case CmdOpen:
		return a, a.openSelected()
	case CmdRefresh:
		return a, a.refresh()
	case CmdSearch:
		return a, a.startSearch()
	case CmdConfirm:
		return a, a.confirm()
	case CmdCancel:
		return a, a.cancel()
	case CmdNextField:
		return a, a.moveField(true)
	case CmdPrevField:
		return a, a.moveField(false)
	case CmdSwitchForm:
		return a, a.switchAuthForm()
	default:
		return a, nil
	}
}

// enter makes v the active view and starts its one data side effect.
// Views that need a user send anonymous visitors to the account view.
func (a *App) enter(v View) tea.Cmd {
	s := a.session
	if v.needsUser() && !s.LoggedIn() {
		cmd := a.enter(ViewAccount)
		a.setStatus(MsgLoginToView(v), StatusWarn)
		return cmd
	}

	gen := s.nextGeneration()
	s.View = v
	s.searchSeq++
	a.searchInput.Reset()
	a.searchInput.Blur()
	a.loading = false
	a.profile = ""
	a.clearStatus()
	a.storyList.Title = "› " + v.String()

	switch v {
	case ViewAll:
		s.setSource(nil)
		a.render()
		a.loading = true
		a.setStatus(MsgLoadingStories, StatusInfo)
		return tea.Batch(a.fetchStories(gen, v), a.startSpinner())

	case ViewFavorites, ViewMine:
		s.setSource(s.userCollection(v))
		a.render()
		return nil

	case ViewSubmit:
		a.submitForm.Reset()
		if author := a.config.UI.Submit.DefaultAuthor; author != "" {
			a.submitForm.SetValue("author", author)
		}
		return a.submitForm.Focus()

	case ViewAccount:
		if s.LoggedIn() {
			return a.renderProfile(gen, s.User, a.width)
		}
		a.loginForm.Reset()
		a.signupForm.Reset()
		if username := a.config.UI.Submit.DefaultUsername; username != "" {
			a.loginForm.SetValue("username", username)
		}
		a.authForm = a.loginForm
		a.signupForm.Blur()
		return a.authForm.Focus()
	}
	return nil
}

// enterWithUser installs user (nil for anonymous) and shows all stories.
func (a *App) enterWithUser(user *model.User) tea.Cmd {
	a.session.User = user
	return a.enter(ViewAll)
}

func (a *App) logout() tea.Cmd {
	s := a.session
	if !s.LoggedIn() {
		a.setStatus(MsgNotLoggedIn, StatusWarn)
		return nil
	}

	username := s.User.Username
	clearErr := a.store.ClearSession()
	cmd := a.enterWithUser(nil)
	if clearErr != nil {
		a.fail("clearing session", clearErr)
	} else {
		debuglog.Infof("logged out %s", username)
		a.setStatus(MsgLoggedOut(username), StatusSuccess)
	}
	return cmd
}

// beginMutation claims the single mutation slot.
func (a *App) beginMutation(label, statusText string) bool {
	s := a.session
	if s.Pending != "" {
		debuglog.Debugf("ignoring %s while %s is pending", label, s.Pending)
		a.setStatus(MsgStillWaiting(s.Pending), StatusWarn)
		return false
	}
	s.Pending = label
	a.setStatus(statusText, StatusInfo)
	return true
}

func (a *App) selectedRow() (storyRow, bool) {
	if !a.session.View.listsStories() {
		return storyRow{}, false
	}
	item, ok := a.storyList.SelectedItem().(storyItem)
	return item.row, ok
}

func (a *App) deleteSelected() tea.Cmd {
	row, ok := a.selectedRow()
	if !ok {
		return nil
	}
	if !a.beginMutation("delete", MsgDeleting) {
		return nil
	}
	return tea.Batch(a.deleteStory(a.session.User, row.ID), a.startSpinner())
}

func (a *App) toggleSelected() tea.Cmd {
	row, ok := a.selectedRow()
	if !ok {
		return nil
	}
	if !a.session.LoggedIn() {
		a.setStatus(MsgLoginToFavorite, StatusWarn)
		return nil
	}
	if !a.beginMutation("favorite", MsgUpdatingFavs) {
		return nil
	}
	return tea.Batch(a.toggleFavorite(a.session.User, row.ID), a.startSpinner())
}

func (a *App) openSelected() tea.Cmd {
	row, ok := a.selectedRow()
	if !ok || row.URL == "" {
		return nil
	}
	return a.openLink(row.URL)
}

func (a *App) refresh() tea.Cmd {
	s := a.session
	switch s.View {
	case ViewAll, ViewAccount:
		return a.enter(s.View)
	case ViewFavorites, ViewMine:
		gen := s.nextGeneration()
		a.loading = true
		a.setStatus(MsgRefreshing, StatusInfo)
		return tea.Batch(a.refreshUser(gen, s.View, s.User), a.startSpinner())
	default:
		return nil
	}
}

func (a *App) startSearch() tea.Cmd {
	if !a.session.View.listsStories() {
		return nil
	}
	a.searchInput.SetValue(a.session.Query)
	a.searchInput.CursorEnd()
	return a.searchInput.Focus()
}

func (a *App) clearSearch() {
	s := a.session
	s.searchSeq++
	a.searchInput.Reset()
	a.searchInput.Blur()
	s.Displayed = s.source
	s.Query = ""
	a.render()
}

func (a *App) confirm() tea.Cmd {
	s := a.session
	switch {
	case s.View.listsStories():
		a.searchInput.Blur()
		if strings.TrimSpace(a.searchInput.Value()) == "" {
			a.clearSearch()
		}
		return nil

	case s.View == ViewSubmit:
		if !a.submitForm.OnLast() {
			return a.submitForm.Next()
		}
		return a.sendSubmit()

	case s.View == ViewAccount && !s.LoggedIn():
		if !a.authForm.OnLast() {
			return a.authForm.Next()
		}
		return a.sendAuth()
	}
	return nil
}

func (a *App) sendSubmit() tea.Cmd {
	f := a.submitForm
	if err := f.Validate(); err != nil {
		a.setStatus(err.Error(), StatusError)
		return nil
	}
	if !a.beginMutation("submit", MsgSubmitting) {
		return nil
	}
	draft := model.Draft{
		Author: f.Value("author"),
		Title:  f.Value("title"),
		URL:    f.Value("url"),
	}
	return tea.Batch(a.submitStory(a.session.User, draft), a.startSpinner())
}

func (a *App) sendAuth() tea.Cmd {
	f := a.authForm
	if err := f.Validate(); err != nil {
		a.setStatus(err.Error(), StatusError)
		return nil
	}

	if f == a.signupForm {
		if !a.beginMutation("sign up", MsgSigningUp) {
			return nil
		}
		return tea.Batch(a.signup(f.Value("username"), f.Value("password"), f.Value("name")), a.startSpinner())
	}

	if !a.beginMutation("login", MsgLoggingIn) {
		return nil
	}
	return tea.Batch(a.login(f.Value("username"), f.Value("password")), a.startSpinner())
}

func (a *App) cancel() tea.Cmd {
	s := a.session
	if s.View.listsStories() {
		if a.searchInput.Focused() || s.Query != "" {
			a.clearSearch()
		}
		return nil
	}
	if s.View != ViewAll {
		return a.enter(ViewAll)
	}
	return nil
}

func (a *App) moveField(forward bool) tea.Cmd {
	f := a.activeForm()
	if f == nil {
		return nil
	}
	if forward {
		return f.Next()
	}
	return f.Prev()
}

func (a *App) switchAuthForm() tea.Cmd {
	s := a.session
	if s.View != ViewAccount || s.LoggedIn() {
		return nil
	}
	a.authForm.Blur()
	if a.authForm == a.loginForm {
		a.authForm = a.signupForm
	} else {
		a.authForm = a.loginForm
	}
	return a.authForm.Focus()
}

func (a *App) activeForm() *form {
	s := a.session
	switch {
	case s.View == ViewSubmit:
		return a.submitForm
	case s.View == ViewAccount && !s.LoggedIn():
		return a.authForm
	default:
		return nil
	}
}

func (a *App) inTextInput() bool {
	if a.session.View.listsStories() {
		return a.searchInput.Focused()
	}
	if f := a.activeForm(); f != nil {
		return f.Focused()
	}
	return false
}

// updateInput forwards msg to whichever input has focus.
func (a *App) updateInput(msg tea.Msg) tea.Cmd {
	s := a.session
	if s.View.listsStories() {
		prev := a.searchInput.Value()
		var cmd tea.Cmd
		a.searchInput, cmd = a.searchInput.Update(msg)
		query := sanitizeSearchInput(a.searchInput.Value())
		if query == sanitizeSearchInput(prev) {
			return cmd
		}
		s.searchSeq++
		if len(query) < 2 {
			s.Displayed = s.source
			s.Query = ""
			a.render()
			return cmd
		}
		return tea.Batch(cmd, a.runSearch(s.Generation, s.searchSeq, s.source, query))
	}
	if f := a.activeForm(); f != nil {
		return f.Update(msg)
	}
	return nil
}

// resource swaps the view's collection, keeping an active search.
func (a *App) resource(c *model.StoryCollection) {
	s := a.session
	if s.Query == "" {
		s.setSource(c)
		return
	}
	ids := s.Displayed.IDs()
	s.source = c
	s.Displayed = c.Filter(ids)
}

// render rebuilds the list rows from the session.
func (a *App) render() {
	s := a.session
	rows := renderRows(s.Displayed, s.User, s.View)
	lc := a.config.UI.List
	a.storyList.SetItems(rowItems(rows, lc.MaxTitleLength, lc.ShowSubmitter))
	if n := len(rows); n > 0 && a.storyList.Index() >= n {
		a.storyList.Select(n - 1)
	}
}

func (a *App) View() string {
	s := a.session
	header := a.renderTabs()

	var content string
	switch {
	case s.View.listsStories():
		content = a.renderStories()
	case s.View == ViewSubmit:
		content = a.submitForm.View(true)
	case s.View == ViewAccount && s.LoggedIn():
		if a.profile == "" {
			content = renderMuted("Loading profile…")
		} else {
			content = a.profile
		}
	case s.View == ViewAccount:
		content = lipgloss.JoinHorizontal(lipgloss.Top,
			a.loginForm.View(a.authForm == a.loginForm),
			"    ",
			a.signupForm.View(a.authForm == a.signupForm),
		)
	}

	bodyHeight := max(a.height-4, 0)
	if a.height > 0 {
		content = ContentWrapper(a.width, bodyHeight).Render(content)
	}

	separator := SeparatorStyle.Render(strings.Repeat("─", max(a.width, 1)))
	return lipgloss.JoinVertical(lipgloss.Left, header, content, separator, a.renderStatusBar())
}

func (a *App) renderTabs() string {
	s := a.session
	tabs := make([]string, 0, len(viewOrder))
	for _, v := range viewOrder {
		key := a.keyHandler.labels[showCommands[v]]
		label := v.String()
		if key != "" {
			label = key + " " + label
		}
		if v == s.View {
			tabs = append(tabs, TitleStyle.Render(label))
		} else {
			tabs = append(tabs, renderMuted(" "+label+" "))
		}
	}

	who := "anonymous"
	if s.LoggedIn() {
		who = "@" + s.User.Username
	}
	left := LogoStyle.Render(CompactLogo) + " " + strings.Join(tabs, " ")
	gap := max(a.width-lipgloss.Width(left)-lipgloss.Width(who)-1, 1)
	return left + strings.Repeat(" ", gap) + HeaderStyle.Render(who)
}

func (a *App) renderStories() string {
	s := a.session
	var parts []string
	if a.searchInput.Focused() || s.Query != "" {
		parts = append(parts, renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), a.searchInput.Width))
	}

	switch {
	case s.Displayed.Len() > 0:
		parts = append(parts, a.storyList.View())
	case a.loading:
		parts = append(parts, renderMuted(MsgLoadingStories))
	case s.Query != "":
		parts = append(parts, renderMuted(MsgNoResults))
	default:
		parts = append(parts, renderHelp(emptyMessage(s.View)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func emptyMessage(v View) string {
	switch v {
	case ViewFavorites:
		return "No favorites yet."
	case ViewMine:
		return "You have not submitted any stories."
	default:
		return "No stories."
	}
}

func (a *App) renderStatusBar() string {
	prefix := ""
	if a.busy() {
		prefix = a.spinner.View() + " "
	}
	if st := a.renderStatus(); st != "" {
		return StatusBarStyle.Render(prefix + st)
	}
	return StatusBarStyle.Render(prefix + renderMuted(strings.Join(a.keyHandler.GetHelpForCurrentView(), " • ")))
}
