// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never concrete stores, so tests can
// hand them in-memory fakes and the server can pick SQLite or Redis.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/recipe-share/internal/apperror"
	"github.com/sakif/recipe-share/internal/model"
	"github.com/sakif/recipe-share/internal/rating"
	"github.com/sakif/recipe-share/internal/repository"
)

const (
	MaxTitleLength    = 200
	DefaultPageSize   = 12
	MaxPageSize       = 100
	FeaturedLimit     = 6
	DefaultPage       = 1
	DefaultDifficulty = model.DifficultyMedium
)

// RecipeService handles listing, reading, creating and rating recipes.
type RecipeService struct {
	repo   repository.RecipeRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewRecipeService(repo repository.RecipeRepository, logger *slog.Logger) *RecipeService {
	return &RecipeService{repo: repo, logger: logger, now: time.Now}
}

// ListParams are the raw listing inputs as they arrive from the query
// string. Zero values select the defaults.
type ListParams struct {
	Category string
	Search   string
	Sort     string
	Page     int
	Limit    int
}

// List returns one page of recipes.
//
// PAGINATION:
// limit defaults to 12 and must lie in [1, 100]; page defaults to 1.
// skip = (page-1)*limit. Asking for a page past the end returns an empty
// page, not an error.
func (s *RecipeService) List(ctx context.Context, p ListParams) (*model.RecipePage, error) {
	filter := repository.RecipeFilter{Search: strings.TrimSpace(p.Search)}

	if c := strings.TrimSpace(p.Category); c != "" && c != model.CategoryAll {
		category := model.Category(c)
		if !category.Valid() {
			return nil, apperror.ValidationFailed("category", fmt.Sprintf("unknown category %q", c))
		}
		filter.Category = category
	}

	sort, ok := repository.ParseRecipeSort(strings.TrimSpace(p.Sort))
	if !ok {
		return nil, apperror.ValidationFailed("sort", fmt.Sprintf("unknown sort key %q", p.Sort))
	}

	limit := p.Limit
	switch {
	case limit == 0:
		limit = DefaultPageSize
	case limit < 0 || limit > MaxPageSize:
		return nil, apperror.ValidationFailed("limit",
			fmt.Sprintf("limit must be between 1 and %d", MaxPageSize))
	}
	page := p.Page
	if page < 1 {
		page = DefaultPage
	}

	// Saturate instead of overflowing; an offset past every row yields an
	// empty page.
	offset := math.MaxInt
	if page-1 <= math.MaxInt/limit {
		offset = (page - 1) * limit
	}

	recipes, total, err := s.repo.ListRecipes(ctx, filter, sort, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing recipes: %w", err)
	}

	return &model.RecipePage{
		Recipes:     recipes,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		Total:       total,
	}, nil
}

// Featured returns up to six currently featured recipes, best rated first.
func (s *RecipeService) Featured(ctx context.Context) ([]model.Recipe, error) {
	recipes, err := s.repo.FeaturedRecipes(ctx, s.now(), FeaturedLimit)
	if err != nil {
		return nil, fmt.Errorf("listing featured recipes: %w", err)
	}
	return recipes, nil
}

func (s *RecipeService) Get(ctx context.Context, id string) (*model.Recipe, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "recipe id is required")
	}
	recipe, err := s.repo.GetRecipe(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting recipe %s: %w", id, err)
	}
	return recipe, nil
}

// CreateRecipeInput is the author-supplied part of a recipe.
type CreateRecipeInput struct {
	Title        string
	Description  string
	Ingredients  []string
	Instructions []string
	Category     string
	CookingTime  int
	Difficulty   string
	Image        string
}

// Create validates in and stores it with author as the immutable owner.
// Malformed input is rejected, never coerced; only an omitted difficulty
// falls back to "medium".
func (s *RecipeService) Create(ctx context.Context, author *model.User, in CreateRecipeInput) (*model.Recipe, error) {
	if author == nil {
		return nil, apperror.Unauthenticated("login required to create recipes")
	}

	recipe, err := buildRecipe(in)
	if err != nil {
		return nil, err
	}
	recipe.Author = author.Summary()

	if err := s.repo.CreateRecipe(ctx, recipe); err != nil {
		s.logger.Error("failed to create recipe",
			slog.String("title", recipe.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating recipe: %w", err)
	}

	s.logger.Info("recipe created",
		slog.String("id", recipe.ID),
		slog.String("author", author.ID),
	)
	return recipe, nil
}

func buildRecipe(in CreateRecipeInput) (*model.Recipe, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, apperror.ValidationFailed("description", "description is required")
	}

	ingredients, err := cleanSteps("ingredients", in.Ingredients)
	if err != nil {
		return nil, err
	}
	instructions, err := cleanSteps("instructions", in.Instructions)
	if err != nil {
		return nil, err
	}

	category := model.Category(strings.TrimSpace(in.Category))
	if !category.Valid() {
		return nil, apperror.ValidationFailed("category", fmt.Sprintf("unknown category %q", in.Category))
	}

	if in.CookingTime <= 0 {
		return nil, apperror.ValidationFailed("cookingTime", "cooking time must be a positive number of minutes")
	}

	difficulty := DefaultDifficulty
	if d := strings.TrimSpace(in.Difficulty); d != "" {
		difficulty = model.Difficulty(d)
		if !difficulty.Valid() {
			return nil, apperror.ValidationFailed("difficulty", fmt.Sprintf("unknown difficulty %q", in.Difficulty))
		}
	}

	return &model.Recipe{
		Title:        title,
		Description:  description,
		Ingredients:  ingredients,
		Instructions: instructions,
		Category:     category,
		CookingTime:  in.CookingTime,
		Difficulty:   difficulty,
		Image:        strings.TrimSpace(in.Image),
	}, nil
}

// cleanSteps trims every entry and requires at least one, none blank.
func cleanSteps(field string, steps []string) ([]string, error) {
	if len(steps) == 0 {
		return nil, apperror.ValidationFailed(field, field+" must contain at least one entry")
	}
	out := make([]string, len(steps))
	for i, step := range steps {
		out[i] = strings.TrimSpace(step)
		if out[i] == "" {
			return nil, apperror.ValidationFailed(field, fmt.Sprintf("%s[%d] must not be blank", field, i))
		}
	}
	return out, nil
}

// Rate records rater's value for the recipe and returns the updated recipe.
// The value is checked here so a bad request never reaches storage.
func (s *RecipeService) Rate(ctx context.Context, rater *model.User, recipeID string, value int) (*model.Recipe, error) {
	if rater == nil {
		return nil, apperror.Unauthenticated("login required to rate recipes")
	}
	if err := rating.Validate(value); err != nil {
		return nil, err
	}

	recipe, err := s.repo.RateRecipe(ctx, recipeID, rater.Summary(), value, s.now())
	if err != nil {
		return nil, fmt.Errorf("rating recipe %s: %w", recipeID, err)
	}

	s.logger.Info("recipe rated",
		slog.String("recipe", recipeID),
		slog.String("user", rater.ID),
		slog.Int("rating", value),
		slog.Float64("average", recipe.AverageRating),
	)
	return recipe, nil
}
