package sync

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Scheduler triggers batch reconciliation runs on a cron cadence.
type Scheduler struct {
	cron   *cron.Cron
	runner *BatchRunner
}

func NewScheduler(runner *BatchRunner, schedule string) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		runner: runner,
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	log.Info("Starting sync scheduler")
	s.cron.Start()
}

// Stop stops scheduling new runs and waits for a run in progress.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) tick() {
	results, err := s.runner.RunAll(context.Background())
	if err != nil {
		log.Errorf("scheduled sync batch failed: %v", err)
		return
	}
	logBatchSummary(results)
}

func logBatchSummary(results []Result) {
	var created, updated, removed, failed int
	for _, result := range results {
		if result.Err != nil {
			failed++
			continue
		}
		created += result.Stats.Created
		updated += result.Stats.Updated
		removed += result.Stats.Removed
	}
	log.Infof("sync batch finished: %d subscriptions, %d created, %d updated, %d removed, %d failed",
		len(results), created, updated, removed, failed)
}
