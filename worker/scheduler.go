// Package worker drives the scheduled pipeline: twice-daily scrapes, hourly
// health checks, periodic trip-plan searches, deal rating, award polling,
// and backups. One in-process cron runs everything; every job is wrapped in
// SkipIfStillRunning so a slow run blocks its own next firing instead of
// stacking.
package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jesposito/walkabout/awards"
	"github.com/jesposito/walkabout/backup"
	"github.com/jesposito/walkabout/db"
	"github.com/jesposito/walkabout/pkg/logger"
	"github.com/jesposito/walkabout/scrape"
	"github.com/jesposito/walkabout/trips"
)

// Scheduler owns the cron instance and job wiring.
type Scheduler struct {
	cron *cron.Cron

	store       db.Store
	scrapeSvc   *scrape.Service
	tripSearch  *trips.SearchService
	awardPoller *awards.Poller
	dealRater   *DealRater
	backupSvc   *backup.Service
}

// NewScheduler builds the scheduler in the configured timezone (UTC when the
// zone cannot be loaded).
func NewScheduler(tz string, store db.Store, scrapeSvc *scrape.Service, tripSearch *trips.SearchService, awardPoller *awards.Poller, dealRater *DealRater, backupSvc *backup.Service) *Scheduler {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		logger.Warn("Unknown scheduler timezone, falling back to UTC", "tz", tz)
		loc = time.UTC
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	return &Scheduler{
		cron:        c,
		store:       store,
		scrapeSvc:   scrapeSvc,
		tripSearch:  tripSearch,
		awardPoller: awardPoller,
		dealRater:   dealRater,
		backupSvc:   backupSvc,
	}
}

// Start registers the job table and starts the cron loop.
func (s *Scheduler) Start() error {
	jobs := []struct {
		spec string
		name string
		run  func()
	}{
		{"30 6 * * *", "morning_scrape", s.scrapeAllActive},
		{"30 18 * * *", "evening_scrape", s.scrapeAllActive},
		{"@every 1h", "health_check", s.healthCheck},
		{"@every 6h", "trip_plan_search", s.searchTripPlans},
		{"@every 2h", "deal_rating", s.rateDeals},
		{"@every 6h", "award_poll", s.pollAwards},
		{"15 3 * * *", "backup", s.runBackup},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, job.run); err != nil {
			return err
		}
		logger.Info("Scheduled job", "name", job.name, "spec", job.spec)
	}

	s.cron.Start()
	logger.Info("Scheduler started", "jobs", len(jobs))
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Scheduler stopped")
}

// scrapeAllActive runs the scraping pipeline sequentially over every active
// search definition. A persistence failure aborts only that definition; the
// loop continues.
func (s *Scheduler) scrapeAllActive() {
	ctx := context.Background()

	defs, err := s.store.ListActiveSearchDefinitions(ctx)
	if err != nil {
		logger.Error(err, "Scheduled scrape could not list definitions")
		return
	}
	if len(defs) == 0 {
		logger.Warn("No active search definitions to scrape")
		return
	}

	successes, failures := 0, 0
	for i := range defs {
		result, err := s.scrapeSvc.ScrapeDefinition(ctx, defs[i].ID)
		switch {
		case err != nil:
			failures++
			logger.Error(err, "Scrape errored", "route", defs[i].DisplayName())
		case result.Status == "success":
			successes++
		default:
			failures++
		}
	}

	logger.Info("Scheduled scrape complete", "successes", successes, "failures", failures)
}

func (s *Scheduler) healthCheck() {
	if err := s.scrapeSvc.CheckHealth(context.Background()); err != nil {
		logger.Error(err, "Health check failed")
	}
}

// searchTripPlans runs §4.H for every active plan whose check frequency has
// elapsed.
func (s *Scheduler) searchTripPlans() {
	ctx := context.Background()

	plans, err := s.store.ListActiveTripPlans(ctx)
	if err != nil {
		logger.Error(err, "Trip plan job could not list plans")
		return
	}

	now := time.Now().UTC()
	for i := range plans {
		plan := &plans[i]

		if plan.LastSearchAt.Valid {
			due := plan.LastSearchAt.Time.Add(time.Duration(plan.CheckFrequencyHrs) * time.Hour)
			if now.Before(due) {
				continue
			}
		}

		summary, err := s.tripSearch.SearchPlan(ctx, plan.ID)
		if err != nil {
			logger.Error(err, "Trip plan search failed", "trip_plan_id", plan.ID)
			continue
		}
		logger.Info("Trip plan search complete",
			"trip_plan_id", plan.ID,
			"attempted", summary.SearchesAttempted,
			"successful", summary.SearchesSuccessful,
			"results", len(summary.Results))
	}
}

func (s *Scheduler) rateDeals() {
	if s.dealRater == nil {
		return
	}
	if err := s.dealRater.RateUnrated(context.Background()); err != nil {
		logger.Error(err, "Deal rating failed")
	}
}

func (s *Scheduler) pollAwards() {
	if s.awardPoller == nil {
		return
	}
	if err := s.awardPoller.PollAll(context.Background()); err != nil {
		logger.Error(err, "Award polling failed")
	}
}

func (s *Scheduler) runBackup() {
	if s.backupSvc == nil || !s.backupSvc.Enabled() {
		return
	}
	if _, err := s.backupSvc.Run(); err != nil {
		logger.Error(err, "Backup failed")
	}
}
