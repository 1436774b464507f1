package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avramidis/folio/pkg/logger"
)

type recorder struct {
	mu     sync.Mutex
	bursts [][]Trigger
}

func (r *recorder) recompute(triggers []Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bursts = append(r.bursts, triggers)
}

func (r *recorder) burstCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bursts)
}

func TestHandler_DebouncesBursts(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	rec := &recorder{}
	h := NewHandler(20*time.Millisecond, rec.recompute, log)

	h.Notify(Trigger{Kind: TransactionAdded, PortfolioID: 1})
	h.Notify(Trigger{Kind: TransactionAdded, PortfolioID: 1})
	h.Notify(Trigger{Kind: PriceUpdated})

	assert.Equal(t, 0, rec.burstCount(), "recompute must wait out the debounce window")

	time.Sleep(100 * time.Millisecond)

	require.Equal(t, 1, rec.burstCount(), "a burst must collapse into one recompute")
	rec.mu.Lock()
	assert.Len(t, rec.bursts[0], 3)
	rec.mu.Unlock()
}

func TestHandler_FlushFiresImmediately(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	rec := &recorder{}
	h := NewHandler(time.Hour, rec.recompute, log)

	h.Notify(Trigger{Kind: ManualRefresh})
	h.Flush()

	require.Equal(t, 1, rec.burstCount())
}

func TestHandler_FlushWithNothingPendingIsNoop(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	rec := &recorder{}
	h := NewHandler(time.Hour, rec.recompute, log)

	h.Flush()
	assert.Equal(t, 0, rec.burstCount())
}

func TestHandler_FillsMissingTimestamp(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	rec := &recorder{}
	h := NewHandler(5*time.Millisecond, rec.recompute, log)

	h.Notify(Trigger{Kind: TransactionDeleted})
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, 1, rec.burstCount())
	rec.mu.Lock()
	assert.False(t, rec.bursts[0][0].Date.IsZero())
	rec.mu.Unlock()
}
