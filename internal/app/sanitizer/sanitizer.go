// Package sanitizer strips terminal control sequences from server supplied
// text before it reaches the screen.
package sanitizer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var escapePatterns = []*regexp.Regexp{
	// CSI
	regexp.MustCompile(`\x1b\[[<>?=]?[0-9;]*[A-Za-z@^` + "`" + `~{|}!]`),
	// OSC, terminated by BEL or ST
	regexp.MustCompile(`\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`),
	// DCS, SOS, PM, APC
	regexp.MustCompile(`\x1b[PX^_][^\x1b]*\x1b\\`),
	// charset selection
	regexp.MustCompile(`\x1b[()][AB012]`),
}

type Options struct {
	// SingleLine folds line breaks into a single space.
	SingleLine bool
	// TabWidth expands tabs to this many spaces; zero drops them.
	TabWidth int
	// MaxRunes truncates the result; zero means unlimited.
	MaxRunes int
}

type Sanitizer struct {
	opts Options
	tab  string
}

func New(opts Options) *Sanitizer {
	return &Sanitizer{opts: opts, tab: strings.Repeat(" ", max(0, opts.TabWidth))}
}

// Content keeps line structure and expands tabs, for message bodies.
func Content() *Sanitizer {
	return New(Options{TabWidth: 4})
}

// Title folds everything onto one line, for list labels and headers.
func Title() *Sanitizer {
	return New(Options{SingleLine: true})
}

func RemoveEscapeSequences(input string) string {
	for _, p := range escapePatterns {
		input = p.ReplaceAllString(input, "")
	}
	return input
}

func (s *Sanitizer) Sanitize(input string) string {
	if input == "" {
		return input
	}
	input = RemoveEscapeSequences(input)
	input = strings.ReplaceAll(input, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(input))
	written := 0
	pendingSpace := false
	var last rune
	for _, r := range input {
		if s.opts.MaxRunes > 0 && written >= s.opts.MaxRunes {
			break
		}
		switch {
		case r == utf8.RuneError:
			continue
		case r == '\n' || r == '\r':
			if s.opts.SingleLine {
				pendingSpace = written > 0
				continue
			}
			if r == '\r' {
				continue
			}
		case r == '\t':
			if s.tab == "" {
				continue
			}
			b.WriteString(s.tab)
			last = ' '
			written += len(s.tab)
			continue
		case r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0):
			continue
		}
		if pendingSpace {
			if r != ' ' && last != ' ' {
				b.WriteByte(' ')
				written++
			}
			pendingSpace = false
		}
		b.WriteRune(r)
		last = r
		written++
	}
	return b.String()
}
