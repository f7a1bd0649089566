package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/recipe-share/internal/apperror"
	"github.com/sakif/recipe-share/internal/model"
	"github.com/sakif/recipe-share/internal/rating"
	"github.com/sakif/recipe-share/internal/repository"
)

var (
	_ repository.RecipeRepository = (*DB)(nil)
	_ repository.StatsRepository  = (*DB)(nil)
)

// recipeSelect joins the author so listings come back with the author's
// public fields resolved. LEFT JOIN keeps recipes visible even if the
// author row is missing.
const recipeSelect = `
	SELECT r.id, r.title, r.description, r.ingredients, r.instructions, r.category,
	       r.cooking_time, r.difficulty, r.image,
	       r.author_id, COALESCE(u.name, ''), COALESCE(u.avatar, ''),
	       r.average_rating, r.review_count, r.featured, r.featured_until,
	       r.created_at, r.updated_at
	FROM recipes r
	LEFT JOIN users u ON u.id = r.author_id`

var recipeOrder = map[repository.RecipeSort]string{
	repository.SortRatingDesc:     `r.average_rating DESC, r.created_at DESC, r.id DESC`,
	repository.SortCreatedDesc:    `r.created_at DESC, r.id DESC`,
	repository.SortCookingTimeAsc: `r.cooking_time ASC, r.created_at DESC, r.id DESC`,
	repository.SortTitleAsc:       `r.title COLLATE NOCASE ASC, r.created_at DESC, r.id DESC`,
}

// querier is the subset of *sql.DB and *sql.Tx used by shared helpers.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateRecipe inserts r, assigning its ID and timestamps. r.Author.ID must
// reference an existing user.
func (db *DB) CreateRecipe(ctx context.Context, r *model.Recipe) error {
	ingredients, err := json.Marshal(r.Ingredients)
	if err != nil {
		return fmt.Errorf("sqlite: encoding ingredients: %w", err)
	}
	instructions, err := json.Marshal(r.Instructions)
	if err != nil {
		return fmt.Errorf("sqlite: encoding instructions: %w", err)
	}

	now := time.Now().UTC()
	r.ID = xid.New().String()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Ratings = []model.Rating{}
	r.AverageRating = 0
	r.ReviewCount = 0

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO recipes (id, title, description, ingredients, instructions, category,
		                      cooking_time, difficulty, image, author_id,
		                      average_rating, review_count, featured, featured_until,
		                      created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?, ?, ?)`,
		r.ID,
		r.Title,
		r.Description,
		string(ingredients),
		string(instructions),
		string(r.Category),
		r.CookingTime,
		string(r.Difficulty),
		r.Image,
		r.Author.ID,
		r.Featured,
		nullTime(r.FeaturedUntil),
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating recipe: %w", err)
	}

	return nil
}

// GetRecipe returns one recipe with its author and every rater resolved.
func (db *DB) GetRecipe(ctx context.Context, id string) (*model.Recipe, error) {
	return getRecipe(ctx, db.conn, id)
}

func getRecipe(ctx context.Context, q querier, id string) (*model.Recipe, error) {
	r, err := scanRecipe(q.QueryRowContext(ctx, recipeSelect+` WHERE r.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("recipe", id)
		}
		return nil, fmt.Errorf("sqlite: getting recipe %s: %w", id, err)
	}

	r.Ratings, err = loadRatings(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRecipes returns one page of recipes matching f plus the total number
// of matches. Listed recipes carry their author but not their ratings.
func (db *DB) ListRecipes(ctx context.Context, f repository.RecipeFilter, sort repository.RecipeSort, opts repository.ListOptions) ([]model.Recipe, int, error) {
	order, ok := recipeOrder[sort]
	if !ok {
		order = recipeOrder[repository.DefaultRecipeSort]
	}

	where, args := recipeWhere(f)

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recipes r`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting recipes: %w", err)
	}

	recipes, err := db.queryRecipes(ctx,
		recipeSelect+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

// FeaturedRecipes lists recipes currently featured at now, best rated first.
func (db *DB) FeaturedRecipes(ctx context.Context, now time.Time, limit int) ([]model.Recipe, error) {
	return db.queryRecipes(ctx,
		recipeSelect+`
		 WHERE r.featured = 1 AND (r.featured_until IS NULL OR r.featured_until > ?)
		 ORDER BY `+recipeOrder[repository.SortRatingDesc]+` LIMIT ?`,
		now.UTC(), limit,
	)
}

// RateRecipe inserts or replaces rater's rating on a recipe.
//
// ATOMIC READ-MODIFY-WRITE:
// The current ratings are read, passed through rating.Submit and written
// back, together with the recomputed aggregates, inside one transaction.
// With the single-connection pool no other transaction can interleave, so
// two users rating at the same moment cannot lose each other's update.
func (db *DB) RateRecipe(ctx context.Context, recipeID string, rater model.UserSummary, value int, now time.Time) (*model.Recipe, error) {
	now = now.UTC()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning rating transaction: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM recipes WHERE id = ?`, recipeID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("recipe", recipeID)
		}
		return nil, fmt.Errorf("sqlite: locating recipe %s: %w", recipeID, err)
	}

	current, err := loadRatings(ctx, tx, recipeID)
	if err != nil {
		return nil, err
	}

	res, err := rating.Submit(current, rater, value, now)
	if err != nil {
		return nil, err
	}

	position := -1
	for i, r := range res.Ratings {
		if r.User.ID == rater.ID {
			position = i
			break
		}
	}
	if position < 0 {
		return nil, fmt.Errorf("sqlite: rating for user %s missing after submit", rater.ID)
	}
	entry := res.Ratings[position]

	_, err = tx.ExecContext(ctx,
		`INSERT INTO recipe_ratings (recipe_id, user_id, position, rating, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (recipe_id, user_id)
		 DO UPDATE SET rating = excluded.rating, updated_at = excluded.updated_at`,
		recipeID,
		rater.ID,
		position,
		entry.Value,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: writing rating on %s: %w", recipeID, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE recipes SET average_rating = ?, review_count = ?, updated_at = ? WHERE id = ?`,
		res.AverageRating,
		res.ReviewCount,
		now,
		recipeID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating aggregates on %s: %w", recipeID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing rating on %s: %w", recipeID, err)
	}

	return db.GetRecipe(ctx, recipeID)
}

// SetFeatured sets or clears the featured flag and its expiry.
func (db *DB) SetFeatured(ctx context.Context, id string, featured bool, until *time.Time) (*model.Recipe, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE recipes SET featured = ?, featured_until = ?, updated_at = ? WHERE id = ?`,
		featured,
		nullTime(until),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: featuring recipe %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound("recipe", id)
	}

	return db.GetRecipe(ctx, id)
}

func (db *DB) CountRecipes(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting recipes: %w", err)
	}
	return n, nil
}

func (db *DB) TopRatedRecipes(ctx context.Context, limit int) ([]model.Recipe, error) {
	return db.queryRecipes(ctx,
		recipeSelect+` ORDER BY `+recipeOrder[repository.SortRatingDesc]+` LIMIT ?`, limit)
}

// RecipesByCategory groups every recipe by category with its count and the
// mean of the recipes' average ratings. Categories without recipes are omitted.
func (db *DB) RecipesByCategory(ctx context.Context) ([]model.CategoryStat, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT category, COUNT(*), AVG(average_rating)
		 FROM recipes
		 GROUP BY category
		 ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: grouping recipes by category: %w", err)
	}
	defer rows.Close()

	stats := make([]model.CategoryStat, 0, len(model.Categories))
	for rows.Next() {
		var (
			s        model.CategoryStat
			category string
		)
		if err := rows.Scan(&category, &s.Count, &s.AvgRating); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		s.Category = model.Category(category)
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}
	return stats, nil
}

func (db *DB) queryRecipes(ctx context.Context, query string, args ...any) ([]model.Recipe, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing recipes: %w", err)
	}
	defer rows.Close()

	recipes := []model.Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning recipe row: %w", err)
		}
		recipes = append(recipes, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating recipes: %w", err)
	}
	return recipes, nil
}

// loadRatings returns a recipe's ratings in submission order with each
// rater's public fields resolved.
func loadRatings(ctx context.Context, q querier, recipeID string) ([]model.Rating, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT rr.user_id, COALESCE(u.name, ''), COALESCE(u.avatar, ''),
		        rr.rating, rr.created_at, rr.updated_at
		 FROM recipe_ratings rr
		 LEFT JOIN users u ON u.id = rr.user_id
		 WHERE rr.recipe_id = ?
		 ORDER BY rr.position`,
		recipeID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading ratings for %s: %w", recipeID, err)
	}
	defer rows.Close()

	ratings := []model.Rating{}
	for rows.Next() {
		var r model.Rating
		if err := rows.Scan(
			&r.User.ID, &r.User.Name, &r.User.Avatar,
			&r.Value, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning rating row: %w", err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating ratings: %w", err)
	}
	return ratings, nil
}

func scanRecipe(row rowScanner) (*model.Recipe, error) {
	var (
		r             model.Recipe
		ingredients   string
		instructions  string
		category      string
		difficulty    string
		featuredUntil sql.NullTime
	)
	if err := row.Scan(
		&r.ID,
		&r.Title,
		&r.Description,
		&ingredients,
		&instructions,
		&category,
		&r.CookingTime,
		&difficulty,
		&r.Image,
		&r.Author.ID,
		&r.Author.Name,
		&r.Author.Avatar,
		&r.AverageRating,
		&r.ReviewCount,
		&r.Featured,
		&featuredUntil,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(ingredients), &r.Ingredients); err != nil {
		return nil, fmt.Errorf("decoding ingredients: %w", err)
	}
	if err := json.Unmarshal([]byte(instructions), &r.Instructions); err != nil {
		return nil, fmt.Errorf("decoding instructions: %w", err)
	}
	r.Category = model.Category(category)
	r.Difficulty = model.Difficulty(difficulty)
	if featuredUntil.Valid {
		t := featuredUntil.Time
		r.FeaturedUntil = &t
	}
	r.Ratings = []model.Rating{}

	return &r, nil
}

// recipeWhere builds the WHERE clause for a listing filter.
func recipeWhere(f repository.RecipeFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.Category != "" {
		clauses = append(clauses, `r.category = ?`)
		args = append(args, string(f.Category))
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		clauses = append(clauses, `(casefold(r.title) LIKE ? ESCAPE '\' OR casefold(r.description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(clauses, ` AND `), args
}

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
