package tui

import "github.com/pders01/snooze/internal/model"

// Session is the controller's whole mutable state. The App owns exactly
// one; nothing else holds a reference.
type Session struct {
	User *model.User
	View View

	// source is what the view shows before a search narrows it;
	// Displayed is what is on screen.
	source    *model.StoryCollection
	Displayed *model.StoryCollection
	Query     string

	// Generation increases on every view entry and fetch. Responses tagged
	// with an older generation are dropped.
	Generation uint64
	searchSeq  uint64

	// Pending names the mutation in flight, if any.
	Pending string
}

func (s *Session) LoggedIn() bool {
	return s.User != nil && s.User.Token != ""
}

// nextGeneration invalidates every outstanding fetch.
func (s *Session) nextGeneration() uint64 {
	s.Generation++
	return s.Generation
}

// current reports whether a response tagged (gen, view) still applies.
func (s *Session) current(gen uint64, view View) bool {
	return gen == s.Generation && view == s.View
}

// setSource replaces the view's collection and drops any search filter.
func (s *Session) setSource(c *model.StoryCollection) {
	s.source = c
	s.Displayed = c
	s.Query = ""
}

// sameUser reports whether u belongs to the session that is logged in now.
func (s *Session) sameUser(u *model.User) bool {
	return u != nil && s.User != nil && u.Username == s.User.Username && u.Token == s.User.Token
}

// userCollection returns the logged-in user's set backing view, if any.
func (s *Session) userCollection(view View) *model.StoryCollection {
	if s.User == nil {
		return nil
	}
	switch view {
	case ViewFavorites:
		return s.User.Favorites
	case ViewMine:
		return s.User.OwnStories
	default:
		return nil
	}
}
