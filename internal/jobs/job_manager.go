package jobs

import (
	"fmt"
	"log/slog"
)

// JobManager coordinates all scheduled jobs in the application.
type JobManager struct {
	routeEstimateRefreshJob *RouteEstimateRefreshJob
}

// NewJobManager creates a job manager with all background jobs.
func NewJobManager(refresher RouteEstimateRefresher, refreshSchedule string, logger *slog.Logger) *JobManager {
	return &JobManager{
		routeEstimateRefreshJob: NewRouteEstimateRefreshJob(refresher, refreshSchedule, logger),
	}
}

// StartAll starts all scheduled jobs.
func (jm *JobManager) StartAll() error {
	if err := jm.routeEstimateRefreshJob.Start(); err != nil {
		return fmt.Errorf("failed to start route estimate refresh job: %w", err)
	}
	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.routeEstimateRefreshJob.Stop()
}
