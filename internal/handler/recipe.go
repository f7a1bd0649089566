package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/recipe-share/internal/apperror"
	"github.com/sakif/recipe-share/internal/auth"
	"github.com/sakif/recipe-share/internal/metrics"
	"github.com/sakif/recipe-share/internal/model"
	"github.com/sakif/recipe-share/internal/service"
)

// RecipeService is the slice of service.RecipeService the handler uses.
// Tests substitute a stub.
type RecipeService interface {
	List(ctx context.Context, p service.ListParams) (*model.RecipePage, error)
	Featured(ctx context.Context) ([]model.Recipe, error)
	Get(ctx context.Context, id string) (*model.Recipe, error)
	Create(ctx context.Context, author *model.User, in service.CreateRecipeInput) (*model.Recipe, error)
	Rate(ctx context.Context, rater *model.User, recipeID string, value int) (*model.Recipe, error)
}

// RecipeHandler serves the public catalogue and the two authenticated
// write paths: creating a recipe and rating one.
type RecipeHandler struct {
	recipes RecipeService
	metrics *metrics.Metrics
	logger  *slog.Logger
	responder
}

func NewRecipeHandler(recipes RecipeService, m *metrics.Metrics, logger *slog.Logger, opts Options) *RecipeHandler {
	return &RecipeHandler{
		recipes:   recipes,
		metrics:   m,
		logger:    logger,
		responder: newResponder(logger, opts),
	}
}

// HandleList returns one page of recipes.
//
// HTTP: GET /recipes?category=dinner&search=soup&sort=rating&page=2&limit=12
func (h *RecipeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := intParam(q.Get("page"), "page")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.recipes.List(r.Context(), service.ListParams{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleFeatured returns the currently featured recipes.
//
// HTTP: GET /recipes/featured
func (h *RecipeHandler) HandleFeatured(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.recipes.Featured(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

// HandleGet returns a single recipe with its ratings.
//
// HTTP: GET /recipes/{id}
func (h *RecipeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.recipes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

type createRecipeRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Category     string   `json:"category"`
	CookingTime  int      `json:"cookingTime"`
	Difficulty   string   `json:"difficulty"`
	Image        string   `json:"image"`
}

// HandleCreate stores a recipe authored by the caller.
//
// HTTP: POST /recipes
// Auth: Required
func (h *RecipeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req createRecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	recipe, err := h.recipes.Create(r.Context(), user, service.CreateRecipeInput{
		Title:        req.Title,
		Description:  req.Description,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
		Category:     req.Category,
		CookingTime:  req.CookingTime,
		Difficulty:   req.Difficulty,
		Image:        req.Image,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, recipe)
}

type rateRequest struct {
	Rating int `json:"rating"`
}

// HandleRate records the caller's rating, replacing any earlier one.
//
// HTTP: POST /recipes/{id}/rate
// REQUEST BODY: {"rating": 4}
// Auth: Required
func (h *RecipeHandler) HandleRate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req rateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.metrics.RatingSubmitted(metrics.RatingRejected)
		h.writeError(w, r, err)
		return
	}

	recipe, err := h.recipes.Rate(r.Context(), user, chi.URLParam(r, "id"), req.Rating)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			h.metrics.RatingSubmitted(metrics.RatingRejected)
		}
		h.writeError(w, r, err)
		return
	}

	h.metrics.RatingSubmitted(metrics.RatingAccepted)
	writeJSON(w, http.StatusOK, recipe)
}

// intParam parses an optional integer query parameter. Empty means zero,
// which the service turns into its default.
func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}
