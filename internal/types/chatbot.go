package types

import "strings"

type Category string

const (
	CategoryMathematics Category = "Mathematics"
	CategoryLaw         Category = "Law"
	CategoryMedical     Category = "Medical"
	CategoryProgramming Category = "Programming"
	CategoryBusiness    Category = "Business"
	CategoryScience     Category = "Science"
)

var allCategories = []Category{
	CategoryMathematics,
	CategoryLaw,
	CategoryMedical,
	CategoryProgramming,
	CategoryBusiness,
	CategoryScience,
}

// APIType is the lowercased form the chat API expects in `type` and
// `chatbot_type`.
func (c Category) APIType() string {
	return strings.ToLower(strings.TrimSpace(string(c)))
}

func ParseCategory(raw string) (Category, bool) {
	raw = strings.TrimSpace(raw)
	for _, category := range allCategories {
		if strings.EqualFold(string(category), raw) {
			return category, true
		}
	}
	return "", false
}

type Chatbot struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	AvatarURL   string   `json:"avatar_url"`
	ColorToken  string   `json:"color_token"`
	UsageCount  int      `json:"usage_count"`
}
