package app

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"botdesk/internal/logging"
	"botdesk/internal/types"
)

func (m *Model) updateChat(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.screen = screenPicker
		m.focus = focusInput
		m.input.Blur()
		m.status = "Pick a chatbot to start"
		return m.search.Focus()
	case "ctrl+n":
		conv := m.ctrl.CreateNewChat("")
		if conv == nil {
			return nil
		}
		name := m.activeChatbotName()
		m.showInfoToast("Started a new conversation with " + name)
		return m.toastCmd()
	case "ctrl+l":
		if m.ctrl.ClearCurrentChat() == nil {
			return nil
		}
		m.showInfoToast("Chat cleared")
		return m.toastCmd()
	case "ctrl+h", "tab":
		return m.toggleHistoryFocus()
	case "ctrl+d":
		return m.deleteSelectedChat()
	case "ctrl+y":
		return m.copyLastReply()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}

	if m.focus == focusHistory {
		return m.updateHistoryFocus(msg)
	}
	if msg.String() == "enter" {
		return m.submit()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// submit starts a send. The input is cleared only once the controller has
// accepted the message.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	if m.ctrl.Snapshot().Pending {
		m.showWarningToast("Wait for the current reply")
		return m.toastCmd()
	}
	send, ok := m.ctrl.BeginSend(text)
	if !ok {
		return nil
	}
	m.input.Reset()
	m.viewport.GotoBottom()
	m.status = m.activeChatbotName() + " is typing…"
	return tea.Batch(m.commitSendCmd(send, text), m.loader.Tick)
}

func (m *Model) onSendResult(msg sendResultMsg) tea.Cmd {
	m.status = "Chatting with " + m.activeChatbotName()
	if msg.err != nil {
		snap := m.ctrl.Snapshot()
		active := snap.Conversation != nil && snap.Conversation.LocalID == msg.conversationID
		if active && strings.TrimSpace(m.input.Value()) == "" {
			m.input.SetValue(msg.text)
		}
		m.showErrorToast("Failed to generate a response. Please try again.")
		return m.toastCmd()
	}
	m.viewport.GotoBottom()
	if snap := m.ctrl.Snapshot(); snap.Chatbot != nil {
		return m.fetchHistoryCmd(*snap.Chatbot)
	}
	return nil
}

func (m *Model) onHistory(msg historyMsg) {
	snap := m.ctrl.Snapshot()
	if snap.Chatbot == nil || snap.Chatbot.ID != msg.chatbotID {
		return
	}
	if msg.err != nil {
		m.logger.Debug("history refresh failed", logging.Err(msg.err))
		m.showWarningToast("Could not refresh chat history")
		return
	}
	m.history = msg.list
	if m.historyCursor >= len(m.history) {
		m.historyCursor = max(0, len(m.history)-1)
	}
}

func (m *Model) onLoadChat(msg loadChatMsg) tea.Cmd {
	m.focus = focusInput
	if msg.conv == nil {
		m.showWarningToast("Chat could not be loaded; started a new one")
		return tea.Batch(m.input.Focus(), m.toastCmd())
	}
	m.viewport.GotoBottom()
	return m.input.Focus()
}

func (m *Model) onDeleteChat(msg deleteChatMsg) tea.Cmd {
	if !msg.ok {
		m.showErrorToast("Failed to delete chat")
		return m.toastCmd()
	}
	filtered := m.history[:0:0]
	for _, conv := range m.history {
		if conv.ID() != msg.id {
			filtered = append(filtered, conv)
		}
	}
	m.history = filtered
	if m.historyCursor >= len(m.history) {
		m.historyCursor = max(0, len(m.history)-1)
	}
	m.showInfoToast("Chat deleted")
	return m.toastCmd()
}

func (m *Model) toggleHistoryFocus() tea.Cmd {
	if m.focus == focusHistory {
		m.focus = focusInput
		return m.input.Focus()
	}
	if len(m.history) == 0 {
		m.showInfoToast("No saved chats yet")
		return m.toastCmd()
	}
	m.focus = focusHistory
	m.input.Blur()
	return nil
}

func (m *Model) updateHistoryFocus(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		if m.historyCursor > 0 {
			m.historyCursor--
		}
	case "down", "j":
		if m.historyCursor < len(m.history)-1 {
			m.historyCursor++
		}
	case "enter":
		if conv, ok := m.selectedHistory(); ok {
			m.status = "Loading " + titleSanitizer.Sanitize(conv.Title)
			return m.loadChatCmd(conv.ID())
		}
	}
	return nil
}

func (m *Model) selectedHistory() (types.Conversation, bool) {
	if m.historyCursor < 0 || m.historyCursor >= len(m.history) {
		return types.Conversation{}, false
	}
	return m.history[m.historyCursor], true
}

// deleteSelectedChat deletes the highlighted history entry, or the active
// conversation when the input has focus.
func (m *Model) deleteSelectedChat() tea.Cmd {
	var id string
	if m.focus == focusHistory {
		conv, ok := m.selectedHistory()
		if !ok {
			return nil
		}
		id = conv.ID()
	} else if snap := m.ctrl.Snapshot(); snap.Conversation != nil && !snap.Conversation.IsDraft() {
		id = snap.Conversation.RemoteID
	}
	if id == "" {
		m.showInfoToast("Nothing to delete")
		return m.toastCmd()
	}
	return m.deleteChatCmd(id)
}

func (m *Model) copyLastReply() tea.Cmd {
	reply, ok := lastBotReply(m.ctrl.Snapshot().Conversation)
	if !ok {
		m.showInfoToast("No reply to copy yet")
		return m.toastCmd()
	}
	method, err := copyTextToClipboard(reply)
	if err != nil {
		m.showErrorToast("copy failed: " + err.Error())
		return m.toastCmd()
	}
	if method == clipboardMethodOSC52 {
		m.showInfoToast("Reply copied via terminal")
	} else {
		m.showInfoToast("Reply copied")
	}
	return m.toastCmd()
}

func (m *Model) activeChatbotName() string {
	if snap := m.ctrl.Snapshot(); snap.Chatbot != nil {
		return snap.Chatbot.Name
	}
	return "chatbot"
}

func (m *Model) syncTranscript() {
	snap := m.ctrl.Snapshot()
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(renderTranscript(m.markdown, snap.Conversation, m.activeChatbotName(), m.transcriptWidth(), m.loader.View()))
	if atBottom || snap.Pending {
		m.viewport.GotoBottom()
	}
}

func (m *Model) chatView() string {
	main := lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), dividerStyle.Render(strings.Repeat("─", m.transcriptWidth())), m.input.View())
	if !m.showSidebar() {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(lipgloss.Height(main)), main)
}

func (m *Model) sidebarView(height int) string {
	width := sidebarWidth - 1
	lines := []string{headerStyle.Render(padRight("History", width))}
	active := ""
	if snap := m.ctrl.Snapshot(); snap.Conversation != nil {
		active = snap.Conversation.RemoteID
	}
	if len(m.history) == 0 {
		lines = append(lines, statusStyle.Render(padRight("No saved chats", width)))
	}
	for i, conv := range m.history {
		if len(lines) >= height {
			break
		}
		label := padRight(titleSanitizer.Sanitize(conv.Title)+" · "+conv.LastTouched().Local().Format("Jan 2"), width)
		switch {
		case m.focus == focusHistory && i == m.historyCursor:
			label = selectedStyle.Render(label)
		case conv.RemoteID != "" && conv.RemoteID == active:
			label = historyActiveStyle.Render(label)
		default:
			label = historyStyle.Render(label)
		}
		lines = append(lines, label)
	}
	style := sidebarBlurStyle
	if m.focus == focusHistory {
		style = sidebarFocusStyle
	}
	return style.Height(height).Width(width).Render(strings.Join(lines, "\n"))
}
