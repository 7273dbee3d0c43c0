package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/snooze/internal/debuglog"
)

// Canonical short status messages used across the app.
const (
	MsgLoadingStories  = "Loading stories…"
	MsgRestoring       = "Restoring session…"
	MsgRefreshing      = "Refreshing…"
	MsgSubmitting      = "Submitting…"
	MsgDeleting        = "Deleting…"
	MsgLoggingIn       = "Logging in…"
	MsgSigningUp       = "Creating account…"
	MsgUpdatingFavs    = "Updating favorites…"
	MsgStoryDeleted    = "Story deleted"
	MsgStorySubmitted  = "Story submitted"
	MsgNoResults       = "No results"
	MsgNotLoggedIn     = "Not logged in"
	MsgLoginToFavorite = "Log in to favorite stories"
)

func MsgLoggedIn(username string) string {
	return fmt.Sprintf("Logged in as %s", strings.TrimSpace(username))
}

func MsgLoggedOut(username string) string {
	return fmt.Sprintf("Logged out %s", strings.TrimSpace(username))
}

func MsgLoginToView(v View) string {
	return fmt.Sprintf("Log in to see %s", v)
}

func MsgStillWaiting(pending string) string {
	return fmt.Sprintf("Still waiting on %s…", pending)
}

func MsgFavorite(added bool) string {
	if added {
		return "Added to favorites"
	}
	return "Removed from favorites"
}

func MsgResultsCount(n int) string {
	switch n {
	case 0:
		return MsgNoResults
	case 1:
		return "1 result"
	default:
		return fmt.Sprintf("%d results", n)
	}
}

// StatusKind is the severity of the status bar line.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarn
	StatusError
)

// style returns the marker and style the status bar uses for k.
func (k StatusKind) style() (string, lipgloss.Style) {
	switch k {
	case StatusError:
		return "✗ ", StatusErrorStyle
	case StatusWarn:
		return "", StatusWarnStyle
	case StatusSuccess:
		return "✓ ", StatusSuccessStyle
	default:
		return "", StatusInfoStyle
	}
}

type status struct {
	text string
	kind StatusKind
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = status{text: text, kind: kind}
}

func (a *App) clearStatus() {
	a.status = status{}
}

// fail logs err and shows it in the status bar. State is left as it was.
func (a *App) fail(context string, err error) {
	debuglog.Errorf("%s: %v", context, err)
	a.setStatus(context+": "+describeErr(err), StatusError)
}

func (a *App) renderStatus() string {
	if a.status.text == "" {
		return ""
	}
	marker, style := a.status.kind.style()
	return style.Render(marker + a.status.text)
}
