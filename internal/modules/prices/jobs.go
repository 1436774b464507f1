package prices

import "context"

// RefreshJob adapts the price service to the scheduler's Job interface.
type RefreshJob struct {
	service *Service
}

// NewRefreshJob creates a new price refresh job
func NewRefreshJob(service *Service) *RefreshJob {
	return &RefreshJob{service: service}
}

// Name implements scheduler.Job.
func (j *RefreshJob) Name() string {
	return "price_refresh"
}

// Run implements scheduler.Job.
func (j *RefreshJob) Run() error {
	_, err := j.service.RefreshAll(context.Background())
	return err
}

// SnapshotJob records the end-of-day portfolio value without fetching
// quotes, so the volatility history stays daily even on days the refresh
// schedule misses.
type SnapshotJob struct {
	service *Service
}

// NewSnapshotJob creates a new snapshot job
func NewSnapshotJob(service *Service) *SnapshotJob {
	return &SnapshotJob{service: service}
}

// Name implements scheduler.Job.
func (j *SnapshotJob) Name() string {
	return "value_snapshot"
}

// Run implements scheduler.Job.
func (j *SnapshotJob) Run() error {
	return j.service.RecordSnapshot()
}
