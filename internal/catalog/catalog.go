// Package catalog holds the fixed set of chatbots the product offers.
package catalog

import (
	"sort"
	"strings"

	"botdesk/internal/types"
)

type CategoryInfo struct {
	Category    types.Category
	ColorToken  string
	Description string
}

var categories = []CategoryInfo{
	{Category: types.CategoryMathematics, ColorToken: "chatbot-blue", Description: "Math problems and equations"},
	{Category: types.CategoryLaw, ColorToken: "chatbot-red", Description: "Legal advice and information"},
	{Category: types.CategoryMedical, ColorToken: "chatbot-green", Description: "Health and medical information"},
	{Category: types.CategoryProgramming, ColorToken: "chatbot-purple", Description: "Coding help and debugging"},
	{Category: types.CategoryBusiness, ColorToken: "chatbot-yellow", Description: "Business strategies and analytics"},
	{Category: types.CategoryScience, ColorToken: "chatbot-teal", Description: "Scientific knowledge and research"},
}

var chatbots = []types.Chatbot{
	{ID: "chatbot-1", Name: "MathGenius", Description: "Solve complex math problems with step-by-step explanations", Category: types.CategoryMathematics, AvatarURL: "https://cdn-icons-png.flaticon.com/512/4807/4807695.png", ColorToken: "bg-chatbot-blue", UsageCount: 1352},
	{ID: "chatbot-2", Name: "LegalEagle", Description: "Get legal advice and explanations of complex laws", Category: types.CategoryLaw, AvatarURL: "https://cdn-icons-png.flaticon.com/512/2942/2942511.png", ColorToken: "bg-chatbot-red", UsageCount: 872},
	{ID: "chatbot-3", Name: "MedConsult", Description: "Medical information and health advice (not a replacement for doctors)", Category: types.CategoryMedical, AvatarURL: "https://cdn-icons-png.flaticon.com/512/5979/5979127.png", ColorToken: "bg-chatbot-green", UsageCount: 2140},
	{ID: "chatbot-4", Name: "CodeWizard", Description: "Programming help, debugging, and code explanations", Category: types.CategoryProgramming, AvatarURL: "https://cdn-icons-png.flaticon.com/512/6062/6062646.png", ColorToken: "bg-chatbot-purple", UsageCount: 3218},
	{ID: "chatbot-5", Name: "BusinessPro", Description: "Business strategies, analytics, and market insights", Category: types.CategoryBusiness, AvatarURL: "https://cdn-icons-png.flaticon.com/512/1256/1256650.png", ColorToken: "bg-chatbot-yellow", UsageCount: 943},
	{ID: "chatbot-6", Name: "ScienceGuru", Description: "Scientific knowledge across physics, chemistry, biology, and more", Category: types.CategoryScience, AvatarURL: "https://cdn-icons-png.flaticon.com/512/1055/1055113.png", ColorToken: "bg-chatbot-teal", UsageCount: 1734},
	{ID: "chatbot-7", Name: "AlgebraHelper", Description: "Algebra equations and explanations made simple", Category: types.CategoryMathematics, AvatarURL: "https://cdn-icons-png.flaticon.com/512/3406/3406898.png", ColorToken: "bg-chatbot-blue", UsageCount: 876},
	{ID: "chatbot-8", Name: "PatentBot", Description: "Patent law and intellectual property assistance", Category: types.CategoryLaw, AvatarURL: "https://cdn-icons-png.flaticon.com/512/2398/2398756.png", ColorToken: "bg-chatbot-red", UsageCount: 512},
	{ID: "chatbot-9", Name: "NutriExpert", Description: "Nutrition advice and dietary information", Category: types.CategoryMedical, AvatarURL: "https://cdn-icons-png.flaticon.com/512/706/706164.png", ColorToken: "bg-chatbot-green", UsageCount: 1321},
	{ID: "chatbot-10", Name: "FullStackHelper", Description: "Full-stack development guidance and tips", Category: types.CategoryProgramming, AvatarURL: "https://cdn-icons-png.flaticon.com/512/1688/1688451.png", ColorToken: "bg-chatbot-purple", UsageCount: 2105},
	{ID: "chatbot-11", Name: "StartupAdvisor", Description: "Advice for startups and entrepreneurship", Category: types.CategoryBusiness, AvatarURL: "https://cdn-icons-png.flaticon.com/512/3208/3208615.png", ColorToken: "bg-chatbot-yellow", UsageCount: 687},
	{ID: "chatbot-12", Name: "PhysicsHelper", Description: "Physics concepts explained with examples", Category: types.CategoryScience, AvatarURL: "https://cdn-icons-png.flaticon.com/512/2784/2784403.png", ColorToken: "bg-chatbot-teal", UsageCount: 943},
}

// All returns a copy of every chatbot in catalog order.
func All() []types.Chatbot {
	return append([]types.Chatbot{}, chatbots...)
}

func Find(id string) (types.Chatbot, bool) {
	id = strings.TrimSpace(id)
	for _, bot := range chatbots {
		if bot.ID == id {
			return bot, true
		}
	}
	return types.Chatbot{}, false
}

// FindByName matches case-insensitively, so the CLI accepts "codewizard".
func FindByName(name string) (types.Chatbot, bool) {
	name = strings.TrimSpace(name)
	for _, bot := range chatbots {
		if strings.EqualFold(bot.Name, name) {
			return bot, true
		}
	}
	return types.Chatbot{}, false
}

// Resolve accepts either an id or a name.
func Resolve(ref string) (types.Chatbot, bool) {
	if bot, ok := Find(ref); ok {
		return bot, true
	}
	return FindByName(ref)
}

// Filter keeps bots whose name or description contains search (case
// insensitive) and whose category matches. An empty category matches all.
func Filter(search string, category types.Category) []types.Chatbot {
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]types.Chatbot, 0, len(chatbots))
	for _, bot := range chatbots {
		if category != "" && bot.Category != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(bot.Name), search) &&
			!strings.Contains(strings.ToLower(bot.Description), search) {
			continue
		}
		out = append(out, bot)
	}
	return out
}

// Top returns the n most used bots.
func Top(n int) []types.Chatbot {
	out := All()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UsageCount > out[j].UsageCount
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

func Categories() []CategoryInfo {
	return append([]CategoryInfo{}, categories...)
}

func CategoryDetails(category types.Category) (CategoryInfo, bool) {
	for _, info := range categories {
		if info.Category == category {
			return info, true
		}
	}
	return CategoryInfo{}, false
}
