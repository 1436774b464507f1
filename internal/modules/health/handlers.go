package health

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// Handler handles health scoring HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new health handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "health").Logger(),
	}
}

// HandleGetScore returns the portfolio health under ?profile= (active
// profile when omitted).
func (h *Handler) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Calculate(r.URL.Query().Get("profile"))
	if errors.Is(err, ErrUnknownProfile) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleListProfiles returns the predefined analysis profiles plus the
// active selection.
func (h *Handler) HandleListProfiles(w http.ResponseWriter, r *http.Request) {
	active, err := h.service.ActiveProfile()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"profiles": Profiles(),
		"active":   active.ID,
	})
}

// HandleSetProfile persists the active profile selection.
func (h *Handler) HandleSetProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.SetActiveProfile(body.ID); err != nil {
		if errors.Is(err, ErrUnknownProfile) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"active": body.ID})
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
