package app

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	glamouransi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	xansi "github.com/charmbracelet/x/ansi"

	"botdesk/internal/types"
)

const fallbackMarkdownWidth = 80

// markdownRenderer turns bot replies into terminal output. One glamour
// renderer is kept per bubble width; switching background drops them all.
type markdownRenderer struct {
	mu      sync.Mutex
	dark    bool
	byWidth map[int]*glamour.TermRenderer
}

func newMarkdownRenderer(dark bool) *markdownRenderer {
	return &markdownRenderer{dark: dark, byWidth: map[int]*glamour.TermRenderer{}}
}

// SetDark reports whether the background changed.
func (r *markdownRenderer) SetDark(dark bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dark == dark {
		return false
	}
	r.dark = dark
	r.byWidth = map[int]*glamour.TermRenderer{}
	return true
}

// RenderReply renders already sanitized reply content by message kind. Plain
// text is escaped so a reply starting with "#" or "1." stays prose.
func (r *markdownRenderer) RenderReply(kind types.MessageKind, content string, width int) string {
	switch kind {
	case types.MessageKindImage:
		return "[image] " + strings.TrimSpace(content)
	case types.MessageKindMarkdown, types.MessageKindCode:
		return r.Render(content, width)
	default:
		return r.Render(escapeMarkdown(content), width)
	}
}

// Render falls back to the raw input when glamour cannot render it.
func (r *markdownRenderer) Render(input string, width int) string {
	input = strings.TrimRight(input, "\n")
	if input == "" {
		return ""
	}
	if width <= 0 {
		width = fallbackMarkdownWidth
	}
	tr := r.renderer(width)
	if tr == nil {
		return input
	}
	out, err := tr.Render(input)
	if err != nil {
		return input
	}
	// glamour pads code blocks past the wrap width; bubbles must not grow.
	return strings.TrimRight(xansi.Hardwrap(strings.TrimRight(out, "\n"), width, true), "\n")
}

func (r *markdownRenderer) renderer(width int) *glamour.TermRenderer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tr, ok := r.byWidth[width]; ok {
		return tr
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStyles(buildStyleConfig(r.dark)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	r.byWidth[width] = tr
	return tr
}

func buildStyleConfig(dark bool) glamouransi.StyleConfig {
	base := styles.LightStyleConfig
	if dark {
		base = styles.DarkStyleConfig
	}
	// Bubble padding comes from lipgloss, not from glamour's document margins.
	base.Document.StylePrimitive.BlockPrefix = ""
	base.Document.StylePrimitive.BlockSuffix = ""
	zero := uint(0)
	base.Document.Margin = &zero
	return base
}

var markdownBlockPrefixes = []string{"#", ">", "- ", "* ", "+ ", "|"}

func escapeMarkdown(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.ReplaceAll(line, "`", "\\`")
		trimmed := strings.TrimLeft(line, " \t")
		indent := line[:len(line)-len(trimmed)]
		if startsMarkdownBlock(trimmed) {
			trimmed = "\\" + trimmed
		}
		lines[i] = indent + trimmed
	}
	return strings.Join(lines, "\n")
}

func startsMarkdownBlock(line string) bool {
	for _, prefix := range markdownBlockPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return isNumberedList(line)
}

func isNumberedList(text string) bool {
	dot := strings.IndexByte(text, '.')
	if dot <= 0 || dot+1 >= len(text) || text[dot+1] != ' ' {
		return false
	}
	for i := 0; i < dot; i++ {
		if text[i] < '0' || text[i] > '9' {
			return false
		}
	}
	return true
}
