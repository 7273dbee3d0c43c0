package tui

type View int

const (
	ViewAll View = iota
	ViewSubmit
	ViewFavorites
	ViewMine
	ViewAccount
)

var viewNames = map[View]string{
	ViewAll:       "stories",
	ViewSubmit:    "submit",
	ViewFavorites: "favorites",
	ViewMine:      "my stories",
	ViewAccount:   "account",
}

var viewOrder = []View{ViewAll, ViewSubmit, ViewFavorites, ViewMine, ViewAccount}

func (v View) String() string {
	if name, ok := viewNames[v]; ok {
		return name
	}
	return "unknown"
}

// listsStories reports whether the view shows a story list.
func (v View) listsStories() bool {
	return v == ViewAll || v == ViewFavorites || v == ViewMine
}

// needsUser reports whether the view is only reachable when logged in.
func (v View) needsUser() bool {
	return v == ViewSubmit || v == ViewFavorites || v == ViewMine
}
