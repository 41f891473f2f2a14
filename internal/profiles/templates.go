package profiles

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Category groups templates in the picker.
type Category string

const (
	CategoryAll           Category = "all"
	CategoryProfessional  Category = "professional"
	CategoryPersonal      Category = "personal"
	CategoryEntertainment Category = "entertainment"
	CategoryCreative      Category = "creative"
	CategoryBusiness      Category = "business"
	CategoryEducational   Category = "educational"
	CategorySocial        Category = "social"
	CategoryProductivity  Category = "productivity"
	CategoryFinance       Category = "finance"
)

var categoryLabels = map[Category]string{
	CategoryProfessional:  "Professional",
	CategoryPersonal:      "Personal",
	CategoryEntertainment: "Entertainment",
	CategoryCreative:      "Creative",
	CategoryBusiness:      "Business",
	CategoryEducational:   "Educational",
	CategorySocial:        "Social",
	CategoryProductivity:  "Productivity",
	CategoryFinance:       "Finance",
	CategoryAll:           "All Categories",
}

// Label returns the display name of the category.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Template is a ready-made name/icon/color combination.
type Template struct {
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	Icon     string   `json:"icon"`
	Color    string   `json:"color"`
	Category Category `json:"category"`
}

var templates = map[string]Template{
	"work":        {Name: "Work", Icon: "💼", Color: "#2196F3", Category: CategoryProfessional},
	"personal":    {Name: "Personal", Icon: "🏠", Color: "#4CAF50", Category: CategoryPersonal},
	"development": {Name: "Development", Icon: "💻", Color: "#FF9800", Category: CategoryProfessional},
	"gaming":      {Name: "Gaming", Icon: "🎮", Color: "#9C27B0", Category: CategoryEntertainment},
	"shopping":    {Name: "Shopping", Icon: "🛒", Color: "#E91E63", Category: CategoryPersonal},
	"finance":     {Name: "Finance", Icon: "💰", Color: "#4CAF50", Category: CategoryFinance},
	"social":      {Name: "Social Media", Icon: "📱", Color: "#00BCD4", Category: CategorySocial},
	"email":       {Name: "Email", Icon: "📧", Color: "#F44336", Category: CategoryProductivity},
	"research":    {Name: "Research", Icon: "📚", Color: "#673AB7", Category: CategoryEducational},
	"school":      {Name: "School", Icon: "🎓", Color: "#3F51B5", Category: CategoryEducational},
	"creative":    {Name: "Creative", Icon: "🎨", Color: "#E91E63", Category: CategoryCreative},
	"music":       {Name: "Music", Icon: "🎵", Color: "#9C27B0", Category: CategoryEntertainment},
	"travel":      {Name: "Travel", Icon: "✈️", Color: "#00BCD4", Category: CategoryPersonal},
	"health":      {Name: "Health", Icon: "💊", Color: "#4CAF50", Category: CategoryPersonal},
	"fitness":     {Name: "Fitness", Icon: "💪", Color: "#FF5722", Category: CategoryPersonal},
	"news":        {Name: "News", Icon: "📰", Color: "#607D8B", Category: CategoryProductivity},
	"sports":      {Name: "Sports", Icon: "⚽", Color: "#8BC34A", Category: CategoryEntertainment},
	"food":        {Name: "Food", Icon: "🍕", Color: "#FF9800", Category: CategoryPersonal},
	"photography": {Name: "Photography", Icon: "📷", Color: "#9E9E9E", Category: CategoryCreative},
	"design":      {Name: "Design", Icon: "🖌️", Color: "#E91E63", Category: CategoryCreative},
	"admin":       {Name: "Admin", Icon: "⚙️", Color: "#607D8B", Category: CategoryProfessional},
	"testing":     {Name: "Testing", Icon: "🧪", Color: "#673AB7", Category: CategoryProfessional},
	"coding":      {Name: "Coding", Icon: "👨‍💻", Color: "#00ACC1", Category: CategoryProfessional},
	"meetings":    {Name: "Meetings", Icon: "📞", Color: "#5C6BC0", Category: CategoryProfessional},
	"project":     {Name: "Project", Icon: "📋", Color: "#26A69A", Category: CategoryProfessional},
	"marketing":   {Name: "Marketing", Icon: "📈", Color: "#EC407A", Category: CategoryBusiness},
	"sales":       {Name: "Sales", Icon: "💵", Color: "#66BB6A", Category: CategoryBusiness},
	"streaming":   {Name: "Streaming", Icon: "📺", Color: "#EF5350", Category: CategoryEntertainment},
	"podcast":     {Name: "Podcasts", Icon: "🎙️", Color: "#AB47BC", Category: CategoryEntertainment},
	"books":       {Name: "Books", Icon: "📖", Color: "#8D6E63", Category: CategoryEntertainment},
}

func init() {
	for k, t := range templates {
		t.Key = k
		templates[k] = t
	}
}

// Templates returns every template sorted by key.
func Templates() []Template {
	out := lo.Values(templates)
	sortTemplates(out)
	return out
}

// TemplatesByCategory returns the templates in c, or all of them for
// CategoryAll.
func TemplatesByCategory(c Category) []Template {
	if c == CategoryAll {
		return Templates()
	}
	out := lo.Filter(lo.Values(templates), func(t Template, _ int) bool { return t.Category == c })
	sortTemplates(out)
	return out
}

// SearchTemplates matches query case-insensitively against template names
// and categories.
func SearchTemplates(query string) []Template {
	q := strings.ToLower(strings.TrimSpace(query))
	out := lo.Filter(lo.Values(templates), func(t Template, _ int) bool {
		return strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(string(t.Category), q)
	})
	sortTemplates(out)
	return out
}

// LookupTemplate returns the template registered under key.
func LookupTemplate(key string) (Template, bool) {
	t, ok := templates[key]
	return t, ok
}

// Categories returns every category including CategoryAll, in display order.
func Categories() []Category {
	return []Category{
		CategoryProfessional, CategoryPersonal, CategoryEntertainment,
		CategoryCreative, CategoryBusiness, CategoryEducational,
		CategorySocial, CategoryProductivity, CategoryFinance, CategoryAll,
	}
}

// FromTemplate returns an unsaved profile prefilled from t.
func FromTemplate(t Template) Profile {
	return Profile{Name: t.Name, Icon: t.Icon, Color: t.Color}
}

func sortTemplates(ts []Template) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Key < ts[j].Key })
}
