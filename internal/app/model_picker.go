package app

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"botdesk/internal/catalog"
	"botdesk/internal/types"
)

const pickerNameWidth = 18

// pickerCategoryInfo reports the selected tab. Index 0 is "All".
func (m *Model) pickerCategoryInfo() (catalog.CategoryInfo, bool) {
	categories := catalog.Categories()
	if m.categoryIndex <= 0 || m.categoryIndex > len(categories) {
		return catalog.CategoryInfo{}, false
	}
	return categories[m.categoryIndex-1], true
}

func (m *Model) pickerCategory() types.Category {
	info, _ := m.pickerCategoryInfo()
	return info.Category
}

func (m *Model) visibleChatbots() []types.Chatbot {
	return catalog.Filter(m.search.Value(), m.pickerCategory())
}

func (m *Model) updatePicker(msg tea.KeyMsg) tea.Cmd {
	bots := m.visibleChatbots()
	switch msg.String() {
	case "tab":
		m.categoryIndex = (m.categoryIndex + 1) % (len(catalog.Categories()) + 1)
		m.pickerCursor = 0
		return nil
	case "shift+tab":
		total := len(catalog.Categories()) + 1
		m.categoryIndex = (m.categoryIndex + total - 1) % total
		m.pickerCursor = 0
		return nil
	case "up":
		if m.pickerCursor > 0 {
			m.pickerCursor--
		}
		return nil
	case "down":
		if m.pickerCursor < len(bots)-1 {
			m.pickerCursor++
		}
		return nil
	case "esc":
		m.search.SetValue("")
		m.pickerCursor = 0
		return nil
	case "enter":
		if len(bots) == 0 {
			m.showWarningToast("No chatbot matches the search")
			return m.toastCmd()
		}
		return m.openChatbot(bots[min(m.pickerCursor, len(bots)-1)])
	}
	var cmd tea.Cmd
	before := m.search.Value()
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != before {
		m.pickerCursor = 0
	}
	return cmd
}

// openChatbot selects bot, shows any persisted history at once and
// refreshes it in the background.
func (m *Model) openChatbot(bot types.Chatbot) tea.Cmd {
	m.ctrl.SelectChatbot(bot)
	m.screen = screenChat
	m.focus = focusInput
	m.search.Blur()
	m.input.Reset()
	m.history = m.ctrl.History(m.ctx, bot.ID)
	m.historyCursor = 0
	m.status = "Chatting with " + bot.Name
	m.syncTranscript()
	return tea.Batch(m.input.Focus(), m.fetchHistoryCmd(bot))
}

func (m *Model) pickerView() string {
	var b strings.Builder
	b.WriteString(m.search.View())
	b.WriteString("\n")
	b.WriteString(m.categoryTabs())
	b.WriteString("\n")
	rows := max(1, m.height-7)
	if info, ok := m.pickerCategoryInfo(); ok {
		b.WriteString(botDescStyle.Render(truncateToWidth(info.Description, m.width)))
		b.WriteString("\n")
		rows = max(1, rows-1)
	}
	b.WriteString(dividerStyle.Render(strings.Repeat("─", max(1, m.width))))
	b.WriteString("\n")

	bots := m.visibleChatbots()
	if len(bots) == 0 {
		b.WriteString(statusStyle.Render("No chatbots found"))
		return b.String()
	}
	start := 0
	if m.pickerCursor >= rows {
		start = m.pickerCursor - rows + 1
	}
	for i := start; i < len(bots) && i < start+rows; i++ {
		b.WriteString(m.pickerRow(bots[i], i == m.pickerCursor))
		if i < len(bots)-1 && i < start+rows-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m *Model) pickerRow(bot types.Chatbot, selected bool) string {
	dot := lipgloss.NewStyle().Foreground(colorForToken(bot.ColorToken)).Render("●")
	name := botNameStyle.Render(padRight(bot.Name, pickerNameWidth))
	meta := fmt.Sprintf("%-12s %6d uses  ", bot.Category, bot.UsageCount)
	descWidth := max(10, m.width-pickerNameWidth-len(meta)-4)
	desc := botDescStyle.Render(truncateToWidth(bot.Description, descWidth))
	row := dot + " " + name + " " + categoryStyle.Render(meta) + desc
	if selected {
		return selectedStyle.Render("›") + row
	}
	return " " + row
}

func (m *Model) categoryTabs() string {
	categories := catalog.Categories()
	rendered := make([]string, 0, len(categories)+1)
	if m.categoryIndex == 0 {
		rendered = append(rendered, categoryActiveStyle.Render(" All "))
	} else {
		rendered = append(rendered, categoryStyle.Render(" All "))
	}
	for i, info := range categories {
		label := " " + string(info.Category) + " "
		if i+1 == m.categoryIndex {
			rendered = append(rendered, categoryActiveStyle.Foreground(colorForToken(info.ColorToken)).Render(label))
			continue
		}
		rendered = append(rendered, categoryStyle.Render(label))
	}
	return truncateToWidth(strings.Join(rendered, " "), m.width)
}
