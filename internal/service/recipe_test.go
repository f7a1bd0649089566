package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/recipe-share/internal/apperror"
	"github.com/sakif/recipe-share/internal/model"
	"github.com/sakif/recipe-share/internal/repository"
)

func newTestRecipeService(t *testing.T) (*RecipeService, *fakeRecipeRepo) {
	t.Helper()
	repo := newFakeRecipeRepo()
	return NewRecipeService(repo, testLogger()), repo
}

func validInput() CreateRecipeInput {
	return CreateRecipeInput{
		Title:        "  Lentil Soup ",
		Description:  "Warming and cheap",
		Ingredients:  []string{" lentils", "onion "},
		Instructions: []string{"chop", "simmer"},
		Category:     "lunch",
		CookingTime:  15,
	}
}

var (
	userA = &model.User{ID: "user-a", Name: "Ann", Avatar: "a.png"}
	userB = &model.User{ID: "user-b", Name: "Bob"}
)

// =========================================================================
// LIST TESTS
// =========================================================================

func TestList_Defaults(t *testing.T) {
	svc, repo := newTestRecipeService(t)
	repo.listTotal = 25

	page, err := svc.List(context.Background(), ListParams{})
	require.NoError(t, err)

	assert.Equal(t, repository.RecipeFilter{}, repo.lastFilter)
	assert.Equal(t, repository.SortRatingDesc, repo.lastSort)
	assert.Equal(t, repository.ListOptions{Limit: 12, Offset: 0}, repo.lastOpts)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 25, page.Total)
}

func TestList_Params(t *testing.T) {
	tests := []struct {
		name       string
		params     ListParams
		total      int
		wantFilter repository.RecipeFilter
		wantSort   repository.RecipeSort
		wantOpts   repository.ListOptions
		wantPages  int
		wantPage   int
	}{
		{
			name:       "category all is unfiltered",
			params:     ListParams{Category: "all"},
			wantFilter: repository.RecipeFilter{},
			wantSort:   repository.SortRatingDesc,
			wantOpts:   repository.ListOptions{Limit: 12},
			wantPage:   1,
		},
		{
			name:       "category and search",
			params:     ListParams{Category: "dinner", Search: " stew "},
			total:      1,
			wantFilter: repository.RecipeFilter{Category: model.CategoryDinner, Search: "stew"},
			wantSort:   repository.SortRatingDesc,
			wantOpts:   repository.ListOptions{Limit: 12},
			wantPages:  1,
			wantPage:   1,
		},
		{
			name:      "page 3 of 5 per page",
			params:    ListParams{Page: 3, Limit: 5, Sort: "-createdAt"},
			total:     11,
			wantSort:  repository.SortCreatedDesc,
			wantOpts:  repository.ListOptions{Limit: 5, Offset: 10},
			wantPages: 3,
			wantPage:  3,
		},
		{
			name:      "limit at the maximum and page floored",
			params:    ListParams{Limit: MaxPageSize, Page: -2, Sort: "cookingTime"},
			total:     250,
			wantSort:  repository.SortCookingTimeAsc,
			wantOpts:  repository.ListOptions{Limit: 100},
			wantPages: 3,
			wantPage:  1,
		},
		{
			name:      "page beyond the end",
			params:    ListParams{Page: 9, Limit: 10},
			total:     5,
			wantSort:  repository.SortRatingDesc,
			wantOpts:  repository.ListOptions{Limit: 10, Offset: 80},
			wantPages: 1,
			wantPage:  9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestRecipeService(t)
			repo.listTotal = tt.total

			page, err := svc.List(context.Background(), tt.params)
			require.NoError(t, err)

			assert.Equal(t, tt.wantFilter, repo.lastFilter)
			assert.Equal(t, tt.wantSort, repo.lastSort)
			assert.Equal(t, tt.wantOpts, repo.lastOpts)
			assert.Equal(t, tt.wantPages, page.TotalPages)
			assert.Equal(t, tt.wantPage, page.CurrentPage)
		})
	}
}

func TestList_HugePageIsEmpty(t *testing.T) {
	svc, repo := newTestRecipeService(t)
	repo.listTotal = 30

	for _, p := range []ListParams{
		{Page: math.MaxInt, Limit: 10},
		{Page: math.MaxInt/10 + 2, Limit: 10},
		{Page: 1 << 40, Limit: MaxPageSize},
	} {
		page, err := svc.List(context.Background(), p)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, repo.lastOpts.Offset, repo.listTotal, "page=%d", p.Page)
		assert.Equal(t, p.Page, page.CurrentPage)
		assert.Equal(t, (30+p.Limit-1)/p.Limit, page.TotalPages)
	}
}

func TestList_RejectsOutOfRangeLimit(t *testing.T) {
	svc, repo := newTestRecipeService(t)
	repo.listTotal = 250

	for _, limit := range []int{-4, -1, MaxPageSize + 1, 1000} {
		_, err := svc.List(context.Background(), ListParams{Limit: limit})
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr, "limit=%d", limit)
		assert.Equal(t, "limit", appErr.Field)
	}
}

func TestList_RejectsUnknownKeys(t *testing.T) {
	svc, _ := newTestRecipeService(t)

	_, err := svc.List(context.Background(), ListParams{Category: "brunch"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.List(context.Background(), ListParams{Sort: "-views"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestList_StorageFailure(t *testing.T) {
	svc, repo := newTestRecipeService(t)
	repo.err = errors.New("database is locked")

	_, err := svc.List(context.Background(), ListParams{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperror.ErrValidation)
}

func TestFeatured_UsesLimitAndClock(t *testing.T) {
	svc, repo := newTestRecipeService(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	_, err := svc.Featured(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, repo.lastFeaturedLimit)
	assert.Equal(t, fixed, repo.lastFeaturedAt)
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreate_Valid(t *testing.T) {
	svc, repo := newTestRecipeService(t)

	recipe, err := svc.Create(context.Background(), userA, validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, recipe.ID)
	assert.Equal(t, "Lentil Soup", recipe.Title)
	assert.Equal(t, []string{"lentils", "onion"}, recipe.Ingredients)
	assert.Equal(t, model.DifficultyMedium, recipe.Difficulty, "omitted difficulty defaults to medium")
	assert.Equal(t, userA.Summary(), recipe.Author)
	assert.Contains(t, repo.recipes, recipe.ID)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *CreateRecipeInput)
		field  string
	}{
		{"missing title", func(in *CreateRecipeInput) { in.Title = "   " }, "title"},
		{"long title", func(in *CreateRecipeInput) { in.Title = strings.Repeat("x", MaxTitleLength+1) }, "title"},
		{"long accented title", func(in *CreateRecipeInput) { in.Title = strings.Repeat("é", MaxTitleLength+1) }, "title"},
		{"missing description", func(in *CreateRecipeInput) { in.Description = "" }, "description"},
		{"no ingredients", func(in *CreateRecipeInput) { in.Ingredients = nil }, "ingredients"},
		{"blank ingredient", func(in *CreateRecipeInput) { in.Ingredients = []string{"salt", " "} }, "ingredients"},
		{"no instructions", func(in *CreateRecipeInput) { in.Instructions = []string{} }, "instructions"},
		{"bad category", func(in *CreateRecipeInput) { in.Category = "brunch" }, "category"},
		{"category all is not a category", func(in *CreateRecipeInput) { in.Category = "all" }, "category"},
		{"zero cooking time", func(in *CreateRecipeInput) { in.CookingTime = 0 }, "cookingTime"},
		{"negative cooking time", func(in *CreateRecipeInput) { in.CookingTime = -5 }, "cookingTime"},
		{"bad difficulty", func(in *CreateRecipeInput) { in.Difficulty = "extreme" }, "difficulty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestRecipeService(t)
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), userA, in)
			require.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
			assert.Empty(t, repo.recipes, "invalid recipe must not be stored")
		})
	}
}

func TestCreate_TitleLengthCountsCharacters(t *testing.T) {
	svc, _ := newTestRecipeService(t)
	in := validInput()
	in.Title = strings.Repeat("é", MaxTitleLength)

	recipe, err := svc.Create(context.Background(), userA, in)
	require.NoError(t, err)
	assert.Equal(t, in.Title, recipe.Title)
}

func TestCreate_Anonymous(t *testing.T) {
	svc, _ := newTestRecipeService(t)

	_, err := svc.Create(context.Background(), nil, validInput())
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

// =========================================================================
// RATE TESTS
// =========================================================================

// TestRate_Scenario: A rates 5, B rates 3, then A re-rates 1.
func TestRate_Scenario(t *testing.T) {
	svc, _ := newTestRecipeService(t)
	ctx := context.Background()

	recipe, err := svc.Create(ctx, userA, validInput())
	require.NoError(t, err)
	assert.Equal(t, 15, recipe.CookingTime)
	assert.Equal(t, model.CategoryLunch, recipe.Category)

	_, err = svc.Rate(ctx, userA, recipe.ID, 5)
	require.NoError(t, err)
	got, err := svc.Rate(ctx, userB, recipe.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.AverageRating)
	assert.Equal(t, 2, got.ReviewCount)

	got, err = svc.Rate(ctx, userA, recipe.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.AverageRating)
	assert.Equal(t, 2, got.ReviewCount)
}

func TestRate_Rejections(t *testing.T) {
	svc, _ := newTestRecipeService(t)
	ctx := context.Background()
	recipe, err := svc.Create(ctx, userA, validInput())
	require.NoError(t, err)
	_, err = svc.Rate(ctx, userA, recipe.ID, 4)
	require.NoError(t, err)

	for _, v := range []int{0, 6, 100, -3} {
		_, err := svc.Rate(ctx, userB, recipe.ID, v)
		assert.ErrorIs(t, err, apperror.ErrValidation, "rating %d", v)
	}

	_, err = svc.Rate(ctx, nil, recipe.ID, 4)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	_, err = svc.Rate(ctx, userB, "missing", 4)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	unchanged, err := svc.Get(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, unchanged.AverageRating)
	assert.Equal(t, 1, unchanged.ReviewCount)
}

func TestGet_NotFoundAndBlankID(t *testing.T) {
	svc, _ := newTestRecipeService(t)

	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.Get(context.Background(), " ")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
