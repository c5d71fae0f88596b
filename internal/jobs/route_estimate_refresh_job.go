package jobs

import (
	"context"
	"log/slog"

	"lastmile/internal/core/application/usecases/commands"

	"github.com/robfig/cron/v3"
)

// DefaultRouteRefreshSchedule runs the refresh every thirty seconds.
const DefaultRouteRefreshSchedule = "*/30 * * * * *"

// RouteEstimateRefresher is the use case run by RouteEstimateRefreshJob.
type RouteEstimateRefresher interface {
	Handle(ctx context.Context, cmd commands.RefreshRouteEstimatesCommand) (commands.RefreshRouteEstimatesResult, error)
}

// RouteEstimateRefreshJob recomputes the distance and time estimates of every
// driver's active deliveries on a cron schedule.
type RouteEstimateRefreshJob struct {
	handler  RouteEstimateRefresher
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewRouteEstimateRefreshJob creates the job. schedule is a six-field cron
// expression (seconds first); empty means DefaultRouteRefreshSchedule.
func NewRouteEstimateRefreshJob(handler RouteEstimateRefresher, schedule string, logger *slog.Logger) *RouteEstimateRefreshJob {
	if schedule == "" {
		schedule = DefaultRouteRefreshSchedule
	}
	return &RouteEstimateRefreshJob{
		handler:  handler,
		schedule: schedule,
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger.With("component", "route_estimate_refresh_job"),
	}
}

// Start registers the refresh and starts the scheduler.
func (j *RouteEstimateRefreshJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.Run(context.Background()) }); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Route estimate refresh job started", "schedule", j.schedule)
	return nil
}

// Run performs one refresh. Failures are logged; the next tick retries.
func (j *RouteEstimateRefreshJob) Run(ctx context.Context) {
	result, err := j.handler.Handle(ctx, commands.NewRefreshRouteEstimatesCommand())
	if err != nil {
		j.logger.ErrorContext(ctx, "Route estimate refresh failed", "error", err)
		return
	}
	if result.Conflicts > 0 || result.Skipped > 0 {
		j.logger.WarnContext(ctx, "Route estimate refresh incomplete",
			"drivers", result.Drivers,
			"updated", result.Updated,
			"conflicts", result.Conflicts,
			"skipped", result.Skipped)
		return
	}
	j.logger.DebugContext(ctx, "Route estimates refreshed", "drivers", result.Drivers, "updated", result.Updated)
}

// Stop stops scheduling and waits for a running refresh to finish.
func (j *RouteEstimateRefreshJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Route estimate refresh job stopped")
}
