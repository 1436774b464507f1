package allocation

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// Handler handles allocation HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new allocation handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "allocation").Logger(),
	}
}

// HandleGetBreakdown returns the current allocation breakdown for the
// requested dimension (?dimension=asset_class|sector|region). When
// ?view=proportional the Margin slice is dropped so the result sums to a
// donut-friendly whole.
func (h *Handler) HandleGetBreakdown(w http.ResponseWriter, r *http.Request) {
	dim := ParseDimension(r.URL.Query().Get("dimension"))

	breakdown, err := h.service.Breakdown(dim)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if r.URL.Query().Get("view") == "proportional" {
		breakdown.Slices = breakdown.ProportionalSlices()
	}

	h.writeJSON(w, http.StatusOK, breakdown)
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
