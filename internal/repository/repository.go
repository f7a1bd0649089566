// Package repository declares the storage contracts the service layer
// depends on. Implementations live in sub-packages (sqlite, redis).
package repository

import (
	"context"
	"time"

	"github.com/sakif/recipe-share/internal/model"
)

// RecipeSort is the ordering of a recipe listing. Every ordering breaks ties
// newest first.
type RecipeSort string

const (
	SortRatingDesc     RecipeSort = "rating"
	SortCreatedDesc    RecipeSort = "newest"
	SortCookingTimeAsc RecipeSort = "cookingTime"
	SortTitleAsc       RecipeSort = "title"
)

// DefaultRecipeSort is used when the caller does not ask for an order.
const DefaultRecipeSort = SortRatingDesc

// sortAliases maps the canonical keys plus the field-style keys the web
// client sends ("-averageRating", "-createdAt") onto a RecipeSort.
var sortAliases = map[string]RecipeSort{
	"rating":         SortRatingDesc,
	"-averageRating": SortRatingDesc,
	"newest":         SortCreatedDesc,
	"-createdAt":     SortCreatedDesc,
	"cookingTime":    SortCookingTimeAsc,
	"title":          SortTitleAsc,
}

// ParseRecipeSort resolves a sort key. An empty key yields the default.
func ParseRecipeSort(key string) (RecipeSort, bool) {
	if key == "" {
		return DefaultRecipeSort, true
	}
	s, ok := sortAliases[key]
	return s, ok
}

// RecipeFilter narrows a listing. Zero values mean "no filter".
type RecipeFilter struct {
	Category model.Category // empty for all categories
	Search   string         // case-insensitive substring of title or description
}

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	// CreateUser inserts u, assigning ID and CreatedAt. The very first user
	// ever stored is made admin; the decision is atomic with the insert.
	// Returns apperror.ErrConflict if the Google id is already registered.
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	CountUsers(ctx context.Context) (int, error)
	RecentUsers(ctx context.Context, limit int) ([]model.User, error)
}

type RecipeRepository interface {
	CreateRecipe(ctx context.Context, r *model.Recipe) error
	// GetRecipe returns the recipe with author and raters resolved.
	GetRecipe(ctx context.Context, id string) (*model.Recipe, error)
	ListRecipes(ctx context.Context, f RecipeFilter, sort RecipeSort, opts ListOptions) ([]model.Recipe, int, error)
	// FeaturedRecipes lists recipes flagged featured whose expiry is absent
	// or after now, best rated first.
	FeaturedRecipes(ctx context.Context, now time.Time, limit int) ([]model.Recipe, error)
	// RateRecipe inserts or replaces rater's rating and recomputes the
	// recipe's aggregates as one atomic read-modify-write.
	RateRecipe(ctx context.Context, recipeID string, rater model.UserSummary, value int, now time.Time) (*model.Recipe, error)
	SetFeatured(ctx context.Context, id string, featured bool, until *time.Time) (*model.Recipe, error)
}

// StatsRepository serves the read-only admin aggregates.
type StatsRepository interface {
	CountUsers(ctx context.Context) (int, error)
	CountRecipes(ctx context.Context) (int, error)
	TopRatedRecipes(ctx context.Context, limit int) ([]model.Recipe, error)
	RecentUsers(ctx context.Context, limit int) ([]model.User, error)
	RecipesByCategory(ctx context.Context) ([]model.CategoryStat, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, s *model.Session) error
	// GetSession returns apperror.ErrNotFound for unknown ids.
	GetSession(ctx context.Context, id string) (*model.Session, error)
	// DeleteSession is idempotent: deleting an unknown id is not an error.
	DeleteSession(ctx context.Context, id string) error
}

type ChatRepository interface {
	GetChat(ctx context.Context, userID string) ([]model.ChatMessage, error)
	// SaveChat replaces the user's whole transcript.
	SaveChat(ctx context.Context, userID string, messages []model.ChatMessage, now time.Time) error
	ChatSummary(ctx context.Context, activeSince time.Time, recent int) (*model.ChatSummary, error)
}
