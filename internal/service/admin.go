package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/recipe-share/internal/apperror"
	"github.com/sakif/recipe-share/internal/model"
	"github.com/sakif/recipe-share/internal/repository"
)

const (
	TopRatedLimit    = 10
	RecentUsersLimit = 10

	// MaxFeatureDays keeps expiries within four-digit years.
	MaxFeatureDays = 3650
)

// AdminService serves the dashboard aggregates and the feature toggle.
// Callers are expected to have passed the admin gate already.
type AdminService struct {
	stats   repository.StatsRepository
	recipes repository.RecipeRepository
	logger  *slog.Logger
	now     func() time.Time
}

func NewAdminService(stats repository.StatsRepository, recipes repository.RecipeRepository, logger *slog.Logger) *AdminService {
	return &AdminService{stats: stats, recipes: recipes, logger: logger, now: time.Now}
}

// Stats computes every dashboard figure from current data. Nothing is
// cached, and a failure in any query fails the whole call.
func (s *AdminService) Stats(ctx context.Context) (*model.AdminStats, error) {
	totalUsers, err := s.stats.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("admin stats: counting users: %w", err)
	}
	totalRecipes, err := s.stats.CountRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("admin stats: counting recipes: %w", err)
	}
	topRated, err := s.stats.TopRatedRecipes(ctx, TopRatedLimit)
	if err != nil {
		return nil, fmt.Errorf("admin stats: top rated recipes: %w", err)
	}
	recentUsers, err := s.stats.RecentUsers(ctx, RecentUsersLimit)
	if err != nil {
		return nil, fmt.Errorf("admin stats: recent users: %w", err)
	}
	byCategory, err := s.stats.RecipesByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("admin stats: recipes by category: %w", err)
	}

	return &model.AdminStats{
		TotalUsers:        totalUsers,
		TotalRecipes:      totalRecipes,
		TopRatedRecipes:   topRated,
		RecentUsers:       recentUsers,
		RecipesByCategory: byCategory,
	}, nil
}

// Feature sets or clears a recipe's featured flag.
//
// With featured=true and durationDays > 0 the feature expires after that
// many days; with durationDays == 0 it never expires. featured=false
// clears the expiry as well.
func (s *AdminService) Feature(ctx context.Context, recipeID string, featured bool, durationDays int) (*model.Recipe, error) {
	if durationDays < 0 || durationDays > MaxFeatureDays {
		return nil, apperror.ValidationFailed("duration",
			fmt.Sprintf("duration must be between 0 and %d days", MaxFeatureDays))
	}

	var until *time.Time
	if featured && durationDays > 0 {
		t := s.now().AddDate(0, 0, durationDays)
		until = &t
	}

	recipe, err := s.recipes.SetFeatured(ctx, recipeID, featured, until)
	if err != nil {
		return nil, fmt.Errorf("featuring recipe %s: %w", recipeID, err)
	}

	s.logger.Info("recipe feature updated",
		slog.String("recipe", recipeID),
		slog.Bool("featured", featured),
		slog.Int("durationDays", durationDays),
	)
	return recipe, nil
}
