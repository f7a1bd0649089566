package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/recipe-share/internal/model"
)

type AdminService interface {
	Stats(ctx context.Context) (*model.AdminStats, error)
	Feature(ctx context.Context, recipeID string, featured bool, durationDays int) (*model.Recipe, error)
}

// AdminHandler serves the dashboard. Every route is behind RequireAdmin.
type AdminHandler struct {
	admin  AdminService
	logger *slog.Logger
	responder
}

func NewAdminHandler(admin AdminService, logger *slog.Logger, opts Options) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger, responder: newResponder(logger, opts)}
}

// HandleStats returns site-wide counts and rankings.
//
// HTTP: GET /admin/stats
func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type featureRequest struct {
	Featured bool `json:"featured"`
	Duration int  `json:"duration"` // days; 0 means no expiry
}

// HandleFeature toggles a recipe's featured flag.
//
// HTTP: PUT /admin/recipes/{id}/feature
// REQUEST BODY: {"featured": true, "duration": 7}
func (h *AdminHandler) HandleFeature(w http.ResponseWriter, r *http.Request) {
	var req featureRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	recipe, err := h.admin.Feature(r.Context(), id, req.Featured, req.Duration)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("recipe feature updated",
		slog.String("recipeID", id),
		slog.Bool("featured", req.Featured),
		slog.Int("durationDays", req.Duration),
	)
	writeJSON(w, http.StatusOK, recipe)
}
