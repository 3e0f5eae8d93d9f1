package devserver

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"botdesk/internal/types"
)

// Responder produces the bot side of a chat.
type Responder interface {
	Reply(category types.Category, query string) string
}

type ResponderFunc func(category types.Category, query string) string

func (f ResponderFunc) Reply(category types.Category, query string) string {
	return f(category, query)
}

// CannedResponder answers with a fixed line per category.
type CannedResponder struct{}

func (CannedResponder) Reply(category types.Category, query string) string {
	q := strings.ToLower(query)
	switch category {
	case types.CategoryMathematics:
		if strings.Contains(q, "equation") || strings.Contains(q, "solve") {
			return "To solve this equation, we need to isolate the variable by performing the same operation on both sides..."
		}
		return "I can help with various math problems including algebra, calculus, geometry, and statistics. What specific problem do you want to solve?"
	case types.CategoryProgramming:
		if strings.Contains(q, "code") || strings.Contains(q, "error") {
			return "```go\n// Here's an example solution\nfunc solve(input []int) []int {\n\tvar out []int\n\tfor _, x := range input {\n\t\tif x*2 > 10 {\n\t\t\tout = append(out, x*2)\n\t\t}\n\t}\n\treturn out\n}\n```\nThis doubles each value and keeps only the results greater than 10."
		}
		return "I can help with coding questions, debugging, and explaining programming concepts. What language or framework are you working with?"
	case types.CategoryLaw:
		return "Please note that I provide general legal information, not legal advice. For your specific situation, you should consult with a qualified attorney."
	case types.CategoryMedical:
		return "While I can provide general health information, please consult with a healthcare professional for medical advice tailored to your specific situation."
	case types.CategoryBusiness:
		return "Based on market trends, I'd recommend focusing on sustainable growth strategies while maintaining healthy cash flow. Would you like more specific advice for your industry?"
	case types.CategoryScience:
		return "That's an interesting scientific question! The current research suggests that...[scientific explanation]. Would you like me to elaborate on any specific aspect?"
	default:
		return fmt.Sprintf("Thank you for your message. How can I assist you further with %s?", category)
	}
}

const titleRunes = 25

// chatTitle derives a title from the opening query.
func chatTitle(query string) string {
	query = strings.TrimSpace(query)
	line, _, _ := strings.Cut(query, "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return types.DefaultConversationTitle
	}
	if utf8.RuneCountInString(line) > titleRunes {
		return string([]rune(line)[:titleRunes]) + "..."
	}
	if line != query {
		return line + "..."
	}
	return line
}
