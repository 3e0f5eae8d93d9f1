package app

import (
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

func truncateToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	if ansi.StringWidth(text) <= width {
		return text
	}
	if width == 1 {
		return "…"
	}
	return ansi.Cut(text, 0, width-1) + "…"
}

// padRight fills plain text to exactly width cells, truncating if needed.
func padRight(text string, width int) string {
	if width <= 0 {
		return ""
	}
	text = runewidth.Truncate(text, width, "…")
	return runewidth.FillRight(text, width)
}
