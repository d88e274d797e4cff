// Package scheduler wires up the cron jobs that periodically trigger the
// scrape+parse runs and the saved-search matching cycle.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"estatehub/pipeline-service/internal/model"
	"estatehub/pipeline-service/internal/notify"
	"estatehub/pipeline-service/internal/pipeline"
)

// Scheduler wraps robfig/cron and manages the two recurring jobs: the
// ingestion sweep (scrape then parse, every source) and the matching cycle.
type Scheduler struct {
	cron       *cron.Cron
	runner     *pipeline.Runner
	engine     *notify.Engine
	scrapeSpec string // cron spec, e.g. "@every 6h"
	matchSpec  string // cron spec, e.g. "0 0 * * *"
}

// New creates a Scheduler. The ingestion sweep fires every intervalHours
// hours; the matching cycle follows matchSpec.
func New(runner *pipeline.Runner, engine *notify.Engine, intervalHours int, matchSpec string) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLogger(cron.DefaultLogger)),
		runner:     runner,
		engine:     engine,
		scrapeSpec: fmt.Sprintf("@every %dh", intervalHours),
		matchSpec:  matchSpec,
	}
}

// Start registers both jobs and starts the scheduler. Also runs one
// ingestion sweep immediately so the store is populated without waiting
// for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.scrapeSpec, func() {
		s.runSweep(ctx)
	}); err != nil {
		return fmt.Errorf("cron.AddFunc scrape: %w", err)
	}

	if _, err := s.cron.AddFunc(s.matchSpec, func() {
		s.runMatching(ctx)
	}); err != nil {
		return fmt.Errorf("cron.AddFunc matching: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started — sweep: %s, matching: %s", s.scrapeSpec, s.matchSpec)

	// Run immediately on startup (non-blocking)
	go s.runSweep(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] Cron stopped")
}

// runSweep scrapes and parses every source. A failing source does not stop
// the others.
func (s *Scheduler) runSweep(ctx context.Context) {
	log.Println("[scheduler] Ingestion sweep started")

	for _, source := range model.Sources() {
		if err := s.runner.ScrapeRun(ctx, source); err != nil {
			log.Printf("[scheduler] Scrape run error for %s: %v", source, err)
		}
		if err := s.runner.ParseRun(ctx, source); err != nil {
			log.Printf("[scheduler] Parse run error for %s: %v", source, err)
		}
	}

	log.Println("[scheduler] Ingestion sweep complete")
}

func (s *Scheduler) runMatching(ctx context.Context) {
	if err := s.engine.RunMatchingCycle(ctx); err != nil {
		log.Printf("[scheduler] Matching cycle error: %v", err)
	}
}
