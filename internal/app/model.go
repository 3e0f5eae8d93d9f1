package app

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"botdesk/internal/chat"
	"botdesk/internal/logging"
	"botdesk/internal/types"
)

const (
	defaultWidth    = 100
	defaultHeight   = 30
	sidebarWidth    = 30
	minSidebarTotal = 80
	inputHeight     = 3
)

// Controller is the part of the conversation controller the UI drives.
type Controller interface {
	SelectChatbot(chatbot types.Chatbot)
	BeginSend(text string) (*chat.PendingSend, bool)
	CreateNewChat(chatbotID string) *types.Conversation
	ClearCurrentChat() *types.Conversation
	LoadChatByID(ctx context.Context, remoteID string) *types.Conversation
	GetChatHistory(ctx context.Context, category types.Category) ([]types.Conversation, error)
	DeleteChatByID(ctx context.Context, remoteID string) bool
	History(ctx context.Context, chatbotID string) []types.Conversation
	Snapshot() chat.Snapshot
}

type IdentitySource interface {
	Identity() *types.Identity
}

type screen int

const (
	screenPicker screen = iota
	screenChat
)

type focusArea int

const (
	focusInput focusArea = iota
	focusHistory
)

type Model struct {
	ctx      context.Context
	ctrl     Controller
	identity IdentitySource
	logger   logging.Logger
	now      func() time.Time

	width  int
	height int
	screen screen
	focus  focusArea

	search        textinput.Model
	categoryIndex int
	pickerCursor  int

	input    textarea.Model
	viewport viewport.Model
	loader   spinner.Model

	history       []types.Conversation
	historyCursor int

	markdown *markdownRenderer

	status       string
	toastText    string
	toastLevel   toastLevel
	toastUntil   time.Time
	toastRepeats int
}

func NewModel(ctrl Controller, identity IdentitySource, logger logging.Logger) Model {
	if logger == nil {
		logger = logging.Nop()
	}
	search := textinput.New()
	search.Placeholder = "Search chatbots"
	search.Prompt = "/ "
	search.Focus()

	input := textarea.New()
	input.Placeholder = "Type a message"
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.SetHeight(inputHeight)
	input.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")

	loader := spinner.New()
	loader.Spinner = spinner.Dot
	loader.Style = activityStyle

	m := Model{
		ctx:      context.Background(),
		ctrl:     ctrl,
		identity: identity,
		logger:   logger.With(logging.Component("ui")),
		now:      time.Now,
		search:   search,
		input:    input,
		viewport: viewport.New(defaultWidth, defaultHeight-8),
		loader:   loader,
		markdown: newMarkdownRenderer(true),
		status:   "Pick a chatbot to start",
	}
	m.resize(defaultWidth, defaultHeight)
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loader.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.screen == screenPicker {
			cmd = m.updatePicker(msg)
		} else {
			cmd = m.updateChat(msg)
		}
	case spinner.TickMsg:
		m.loader, cmd = m.loader.Update(msg)
	case sendResultMsg:
		cmd = m.onSendResult(msg)
	case historyMsg:
		m.onHistory(msg)
	case loadChatMsg:
		cmd = m.onLoadChat(msg)
	case deleteChatMsg:
		cmd = m.onDeleteChat(msg)
	case toastExpiredMsg:
		if !m.toastActive(m.now()) {
			m.clearToast()
		}
	default:
		if m.screen == screenChat && m.focus == focusInput {
			m.input, cmd = m.input.Update(msg)
		} else if m.screen == screenPicker {
			m.search, cmd = m.search.Update(msg)
		}
	}
	if m.screen == screenChat {
		m.syncTranscript()
	}
	return m, cmd
}

func (m *Model) View() string {
	var body string
	if m.screen == screenPicker {
		body = m.pickerView()
	} else {
		body = m.chatView()
	}
	lines := []string{m.headerLine(), body}
	if toast := m.toastLine(m.width); toast != "" {
		lines = append(lines, toast)
	} else {
		lines = append(lines, statusStyle.Render(truncateToWidth(m.status, m.width)))
	}
	lines = append(lines, helpStyle.Render(truncateToWidth(m.helpLine(), m.width)))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) resize(width, height int) {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	m.width = width
	m.height = height
	m.search.Width = max(10, width-4)
	m.input.SetWidth(max(10, m.transcriptWidth()))
	m.viewport.Width = m.transcriptWidth()
	m.viewport.Height = max(3, height-inputHeight-6)
}

func (m *Model) showSidebar() bool {
	return m.width >= minSidebarTotal
}

func (m *Model) transcriptWidth() int {
	if m.showSidebar() {
		return max(20, m.width-sidebarWidth-1)
	}
	return max(20, m.width)
}

func (m *Model) headerLine() string {
	title := "botdesk"
	if snap := m.ctrl.Snapshot(); m.screen == screenChat && snap.Chatbot != nil {
		title += " · " + snap.Chatbot.Name + " (" + string(snap.Chatbot.Category) + ")"
		if snap.Conversation != nil && snap.Conversation.Title != "" {
			title += " · " + titleSanitizer.Sanitize(snap.Conversation.Title)
		}
	}
	user := "not signed in"
	if m.identity != nil {
		if id := m.identity.Identity(); id != nil {
			user = id.DisplayName
			if user == "" {
				user = id.Email
			}
		}
	}
	left := headerStyle.Render(truncateToWidth(title, max(1, m.width-len(user)-2)))
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(user))
	return left + strings.Repeat(" ", gap) + statusStyle.Render(user)
}

func (m *Model) helpLine() string {
	if m.screen == screenPicker {
		return "type to search · tab category · ↑/↓ move · enter open · ctrl+c quit"
	}
	if m.focus == focusHistory {
		return "↑/↓ move · enter open · ctrl+d delete · tab/ctrl+h back to input · esc chatbots"
	}
	return "enter send · ctrl+n new · ctrl+l clear · ctrl+h history · ctrl+d delete · ctrl+y copy reply · esc chatbots"
}
