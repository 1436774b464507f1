package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TriggerKind enumerates the recomputation triggers.
type TriggerKind string

const (
	TransactionAdded    TriggerKind = "TRANSACTION_ADDED"
	TransactionModified TriggerKind = "TRANSACTION_MODIFIED"
	TransactionDeleted  TriggerKind = "TRANSACTION_DELETED"
	PriceUpdated        TriggerKind = "PRICE_UPDATED"
	ManualRefresh       TriggerKind = "MANUAL_REFRESH"
)

// Trigger is one recomputation event. It carries enough identifiers for a
// handler to decide what to recompute; the calculation engines themselves
// never see triggers.
type Trigger struct {
	Kind          TriggerKind `json:"kind"`
	PortfolioID   int64       `json:"portfolio_id,omitempty"`
	TransactionID int64       `json:"transaction_id,omitempty"`
	Symbol        string      `json:"symbol,omitempty"`
	Date          time.Time   `json:"date"`
}

// RecomputeFunc is invoked once per settled burst of triggers.
type RecomputeFunc func(triggers []Trigger)

// Handler collects triggers and fires a recompute after the burst settles.
// Debouncing lives here so the engines stay pure; callers may invoke the
// engines directly when they want synchronous results.
type Handler struct {
	mu        sync.Mutex
	pending   []Trigger
	timer     *time.Timer
	debounce  time.Duration
	recompute RecomputeFunc
	log       zerolog.Logger
}

// NewHandler creates a trigger handler with the given debounce window.
func NewHandler(debounce time.Duration, recompute RecomputeFunc, log zerolog.Logger) *Handler {
	return &Handler{
		debounce:  debounce,
		recompute: recompute,
		log:       log.With().Str("service", "events").Logger(),
	}
}

// Notify records a trigger and (re)arms the debounce timer.
func (h *Handler) Notify(t Trigger) {
	if t.Date.IsZero() {
		t.Date = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.pending = append(h.pending, t)
	h.log.Debug().
		Str("kind", string(t.Kind)).
		Int64("portfolio_id", t.PortfolioID).
		Str("symbol", t.Symbol).
		Msg("Trigger received")

	if h.timer != nil {
		h.timer.Stop()
	}
	h.timer = time.AfterFunc(h.debounce, h.flush)
}

// Flush fires the recompute immediately with whatever is pending. Used by
// the manual-refresh endpoint, which should not wait out the debounce.
func (h *Handler) Flush() {
	h.mu.Lock()
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.mu.Unlock()
	h.flush()
}

func (h *Handler) flush() {
	h.mu.Lock()
	triggers := h.pending
	h.pending = nil
	h.timer = nil
	h.mu.Unlock()

	if len(triggers) == 0 {
		return
	}

	h.log.Info().Int("triggers", len(triggers)).Msg("Dispatching recompute")
	h.recompute(triggers)
}
