package model

import "time"

// Category is the fixed set of recipe categories.
type Category string

const (
	CategoryBreakfast Category = "breakfast"
	CategoryLunch     Category = "lunch"
	CategoryDinner    Category = "dinner"
	CategoryDessert   Category = "dessert"
	CategoryJuice     Category = "juice"
	CategorySmoothie  Category = "smoothie"
	CategorySnack     Category = "snack"
	CategoryBeverage  Category = "beverage"
)

// CategoryAll is the list-filter sentinel meaning "no category filter".
// It is never a valid value for a stored recipe.
const CategoryAll = "all"

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryBreakfast,
	CategoryLunch,
	CategoryDinner,
	CategoryDessert,
	CategoryJuice,
	CategorySmoothie,
	CategorySnack,
	CategoryBeverage,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Recipe is a shared recipe with its embedded ratings.
//
// AverageRating and ReviewCount are derived from Ratings by the rating
// package and are never written independently. Author is fixed at creation.
type Recipe struct {
	ID            string      `json:"_id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Ingredients   []string    `json:"ingredients"`
	Instructions  []string    `json:"instructions"`
	Category      Category    `json:"category"`
	CookingTime   int         `json:"cookingTime"` // minutes
	Difficulty    Difficulty  `json:"difficulty"`
	Image         string      `json:"image,omitempty"`
	Author        UserSummary `json:"author"`
	Ratings       []Rating    `json:"ratings"`
	AverageRating float64     `json:"averageRating"`
	ReviewCount   int         `json:"reviewCount"`
	Featured      bool        `json:"featured"`
	FeaturedUntil *time.Time  `json:"featuredUntil,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// Rating is one user's score for a recipe. A recipe holds at most one
// Rating per user; it has no identity outside its recipe.
type Rating struct {
	User      UserSummary `json:"user"`
	Value     int         `json:"rating"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 5
)

// FeaturedAt reports whether r should appear in the featured listing at now:
// flagged, and either without expiry or expiring after now.
func (r *Recipe) FeaturedAt(now time.Time) bool {
	if !r.Featured {
		return false
	}
	return r.FeaturedUntil == nil || r.FeaturedUntil.After(now)
}

// RecipePage is one page of a filtered recipe listing.
type RecipePage struct {
	Recipes     []Recipe `json:"recipes"`
	TotalPages  int      `json:"totalPages"`
	CurrentPage int      `json:"currentPage"`
	Total       int      `json:"total"`
}
