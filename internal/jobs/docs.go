// Package jobs provides scheduled background tasks for the delivery service.
//
// Jobs use github.com/robfig/cron/v3 with a seconds field.
//
// # Available Jobs
//
// RouteEstimateRefreshJob groups active deliveries by driver, orders each
// driver's stops with the route optimizer and writes the leg distance and
// time back onto every delivery. A delivery changed concurrently keeps its
// old estimate until the next tick.
//
// # Usage
//
//	jobManager := jobs.NewJobManager(refreshHandler, cfg.RouteRefreshSchedule, logger)
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// Overlapping runs are skipped rather than queued.
package jobs
