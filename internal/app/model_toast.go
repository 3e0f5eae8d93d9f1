package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

type toastLevel int

const (
	toastLevelInfo toastLevel = iota
	toastLevelWarning
	toastLevelError
)

// Send failures need to be read, confirmations only glanced at.
var toastDurations = map[toastLevel]time.Duration{
	toastLevelInfo:    3 * time.Second,
	toastLevelWarning: 4 * time.Second,
	toastLevelError:   6 * time.Second,
}

func toastDurationFor(level toastLevel) time.Duration {
	if d, ok := toastDurations[level]; ok {
		return d
	}
	return toastDurations[toastLevelInfo]
}

func (m *Model) showInfoToast(message string) {
	m.showToast(toastLevelInfo, message)
}

func (m *Model) showWarningToast(message string) {
	m.showToast(toastLevelWarning, message)
}

func (m *Model) showErrorToast(message string) {
	m.showToast(toastLevelError, message)
}

// showToast replaces the visible toast. Repeating the visible message at the
// same level counts it and extends its life.
func (m *Model) showToast(level toastLevel, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	now := m.now()
	if m.toastActive(now) && m.toastText == message && m.toastLevel == level {
		m.toastRepeats++
	} else {
		m.toastText = message
		m.toastLevel = level
		m.toastRepeats = 1
	}
	m.toastUntil = now.Add(toastDurationFor(level))
}

func (m *Model) clearToast() {
	m.toastText = ""
	m.toastLevel = toastLevelInfo
	m.toastUntil = time.Time{}
	m.toastRepeats = 0
}

func (m *Model) toastActive(at time.Time) bool {
	if m.toastText == "" {
		return false
	}
	return m.toastUntil.IsZero() || at.Before(m.toastUntil)
}

// toastRemaining is how long the visible toast has left, floored so the
// expiry tick always fires.
func (m *Model) toastRemaining() time.Duration {
	if m.toastUntil.IsZero() {
		return toastDurationFor(m.toastLevel)
	}
	return max(10*time.Millisecond, m.toastUntil.Sub(m.now()))
}

func (m *Model) toastLine(width int) string {
	if !m.toastActive(m.now()) || width <= 0 {
		return ""
	}
	text := m.toastText
	if m.toastRepeats > 1 {
		text = fmt.Sprintf("%s (x%d)", text, m.toastRepeats)
	}
	pill := m.toastStyle().Render(" " + truncateToWidth(text, max(1, width-4)) + " ")
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, pill)
}

func (m *Model) toastStyle() lipgloss.Style {
	switch m.toastLevel {
	case toastLevelWarning:
		return toastWarningStyle
	case toastLevelError:
		return toastErrorStyle
	default:
		return toastInfoStyle
	}
}
