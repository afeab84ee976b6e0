package model

// Recipe data belongs to the upstream catalog and is never persisted here.

type SearchMode string

const (
	SearchByName       SearchMode = "by_name"
	SearchByIngredient SearchMode = "by_ingredient"
)

// ParseSearchMode maps the ?type= query value. Anything that is not an
// ingredient search is a name search.
func ParseSearchMode(s string) SearchMode {
	switch s {
	case "ingredient", string(SearchByIngredient):
		return SearchByIngredient
	default:
		return SearchByName
	}
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Thumbnail   string `json:"thumbnail"`
	Description string `json:"description"`
}

type RecipeSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Thumbnail string `json:"thumbnail"`
}

type Ingredient struct {
	Name    string `json:"name"`
	Measure string `json:"measure"`
}

type Recipe struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Slug         string       `json:"slug"`
	Category     string       `json:"category"`
	Area         string       `json:"area"`
	Instructions string       `json:"instructions"`
	Thumbnail    string       `json:"thumbnail"`
	Tags         []string     `json:"tags"`
	YouTube      string       `json:"youtube,omitempty"`
	Source       string       `json:"source,omitempty"`
	Ingredients  []Ingredient `json:"ingredients"`
}
