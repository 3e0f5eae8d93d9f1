package app

import "github.com/charmbracelet/lipgloss"

const (
	chatBubblePaddingVertical   = 0
	chatBubblePaddingHorizontal = 1
)

var (
	headerStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activityStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
	selectedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236"))
	dividerStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	botNameStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	botDescStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	categoryActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("239")).Bold(true)
	categoryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	historyStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	historyActiveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	sidebarFocusStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, true, false, false).BorderForeground(lipgloss.Color("69"))
	sidebarBlurStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, true, false, false).BorderForeground(lipgloss.Color("238"))
	userBubbleStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Background(lipgloss.Color("236")).Padding(chatBubblePaddingVertical, chatBubblePaddingHorizontal)
	botBubbleStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(chatBubblePaddingVertical, chatBubblePaddingHorizontal)
	pendingBubbleStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("237")).Foreground(lipgloss.Color("244")).Faint(true).Padding(chatBubblePaddingVertical, chatBubblePaddingHorizontal)
	chatMetaStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true)
	toastInfoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("29")).Bold(true)
	toastWarningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("136")).Bold(true)
	toastErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Bold(true)
)

// categoryColors maps catalog color tokens to terminal colors.
var categoryColors = map[string]lipgloss.Color{
	"chatbot-blue":   lipgloss.Color("33"),
	"chatbot-red":    lipgloss.Color("160"),
	"chatbot-green":  lipgloss.Color("35"),
	"chatbot-purple": lipgloss.Color("99"),
	"chatbot-yellow": lipgloss.Color("178"),
	"chatbot-teal":   lipgloss.Color("37"),
}

func colorForToken(token string) lipgloss.Color {
	if len(token) > 3 && token[:3] == "bg-" {
		token = token[3:]
	}
	if color, ok := categoryColors[token]; ok {
		return color
	}
	return lipgloss.Color("252")
}
