package rebalancing

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/avramidis/folio/internal/domain"
)

// Handler handles rebalancing HTTP requests
type Handler struct {
	service    *Service
	targets    *TargetRepository
	exclusions *ExclusionStore
	log        zerolog.Logger
}

// NewHandler creates a new rebalancing handler
func NewHandler(service *Service, targets *TargetRepository, exclusions *ExclusionStore, log zerolog.Logger) *Handler {
	return &Handler{
		service:    service,
		targets:    targets,
		exclusions: exclusions,
		log:        log.With().Str("handler", "rebalancing").Logger(),
	}
}

// HandleGetPlan returns the rebalancing plan. ?model_id selects a model;
// without it the default model is used.
func (h *Handler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	var modelID int64
	if raw := r.URL.Query().Get("model_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid model_id")
			return
		}
		modelID = parsed
	}

	plan, err := h.service.Plan(modelID)
	if errors.Is(err, ErrModelNotFound) || errors.Is(err, ErrNoDefaultModel) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, plan)
}

// HandleListModels returns all target models.
func (h *Handler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.targets.List()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if models == nil {
		models = []domain.TargetModel{}
	}
	h.writeJSON(w, http.StatusOK, models)
}

// HandleSaveModel creates or updates a target model. Validation (sum to 100,
// range checks) happens here at save time, never at plan time.
func (h *Handler) HandleSaveModel(w http.ResponseWriter, r *http.Request) {
	var model domain.TargetModel
	if err := json.NewDecoder(r.Body).Decode(&model); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := ValidateModel(model); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.targets.Save(&model); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, model)
}

// HandleDeleteModel removes a target model.
func (h *Handler) HandleDeleteModel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid model id")
		return
	}

	if err := h.targets.Delete(id); err != nil {
		if errors.Is(err, ErrModelNotFound) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// HandleGetExclusions returns the portfolio ids excluded from rebalancing.
func (h *Handler) HandleGetExclusions(w http.ResponseWriter, r *http.Request) {
	ids, err := h.exclusions.ExcludedPortfolios()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"excluded": ids})
}

// HandleToggleExclusion flips a portfolio's exclusion flag.
func (h *Handler) HandleToggleExclusion(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	excluded, err := h.exclusions.Toggle(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio_id": id,
		"excluded":     excluded,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
