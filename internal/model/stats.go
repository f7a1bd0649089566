package model

// CategoryStat is the per-category aggregate on the admin dashboard.
// The JSON key for the category is "_id" to match the dashboard client.
type CategoryStat struct {
	Category  Category `json:"_id"`
	Count     int      `json:"count"`
	AvgRating float64  `json:"avgRating"`
}

// AdminStats is computed on demand for every dashboard request.
type AdminStats struct {
	TotalUsers        int            `json:"totalUsers"`
	TotalRecipes      int            `json:"totalRecipes"`
	TopRatedRecipes   []Recipe       `json:"topRatedRecipes"`
	RecentUsers       []User         `json:"recentUsers"`
	RecipesByCategory []CategoryStat `json:"recipesByCategory"`
}
