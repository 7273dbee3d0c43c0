package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// truncateEnd cuts s to at most width terminal cells, ending in an
// ellipsis when anything was dropped. Wide runes count as two cells.
func truncateEnd(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}

// truncateMiddle keeps both ends of s and puts the ellipsis between them,
// for links whose host and last path segment both matter.
func truncateMiddle(s string, width int) string {
	total := ansi.StringWidth(s)
	switch {
	case width <= 0:
		return ""
	case total <= width:
		return s
	case width == 1:
		return "…"
	}

	keep := width - 1
	head := keep / 2
	tail := keep - head
	return ansi.Truncate(s, head, "") + "…" + ansi.TruncateLeft(s, total-tail, "")
}

// sanitizeSearchInput trims, flattens whitespace and caps query length.
func sanitizeSearchInput(input string) string {
	input = strings.Join(strings.Fields(input), " ")
	if r := []rune(input); len(r) > 256 {
		input = string(r[:256])
	}
	return input
}
