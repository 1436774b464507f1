package prices

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/avramidis/folio/internal/events"
)

// Handler handles price HTTP requests
type Handler struct {
	service  *Service
	notifier Notifier
	log      zerolog.Logger
}

// NewHandler creates a new prices handler
func NewHandler(service *Service, notifier Notifier, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		notifier: notifier,
		log:      log.With().Str("handler", "prices").Logger(),
	}
}

// HandleRefresh runs a synchronous price refresh. This is the manual-refresh
// entry point, so a MANUAL_REFRESH trigger is emitted alongside the refresh
// itself.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.notifier.Notify(events.Trigger{
		Kind: events.ManualRefresh,
		Date: time.Now(),
	})

	result, err := h.service.RefreshAll(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, result)
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
