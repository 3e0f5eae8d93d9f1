package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"botdesk/internal/chat"
	"botdesk/internal/types"
)

type sendResultMsg struct {
	conversationID string
	text           string
	reply          *types.Message
	err            error
}

type historyMsg struct {
	chatbotID string
	list      []types.Conversation
	err       error
}

type loadChatMsg struct {
	id   string
	conv *types.Conversation
}

type deleteChatMsg struct {
	id string
	ok bool
}

type toastExpiredMsg struct{}

func (m *Model) commitSendCmd(send *chat.PendingSend, text string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		reply, err := send.Commit(ctx)
		return sendResultMsg{conversationID: send.ConversationID(), text: text, reply: reply, err: err}
	}
}

func (m *Model) fetchHistoryCmd(bot types.Chatbot) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		list, err := ctrl.GetChatHistory(ctx, bot.Category)
		return historyMsg{chatbotID: bot.ID, list: list, err: err}
	}
}

func (m *Model) loadChatCmd(id string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return loadChatMsg{id: id, conv: ctrl.LoadChatByID(ctx, id)}
	}
}

func (m *Model) deleteChatCmd(id string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return deleteChatMsg{id: id, ok: ctrl.DeleteChatByID(ctx, id)}
	}
}

func (m *Model) toastCmd() tea.Cmd {
	return tea.Tick(m.toastRemaining(), func(time.Time) tea.Msg {
		return toastExpiredMsg{}
	})
}
