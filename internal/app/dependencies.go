package app

import (
	"database/sql"
	"time"

	"github.com/calmirror/calmirror/internal/config"
	"github.com/calmirror/calmirror/internal/utils"
	"github.com/calmirror/calmirror/pkg/google"
	"github.com/calmirror/calmirror/pkg/mirror"
	"github.com/calmirror/calmirror/pkg/profile"
	"github.com/calmirror/calmirror/pkg/subscription"
	"github.com/calmirror/calmirror/pkg/sync"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	ProfileService profile.Service
	ProfileHandler *profile.Handler

	GoogleAuth    *google.GoogleAuth
	GoogleService *google.ServiceImpl
	GoogleHandler *google.Handler

	MappingRepo *mirror.MappingRepoImpl
	StateRepo   *mirror.StateRepoImpl
	Engine      *mirror.Engine

	SubscriptionRepo    subscription.Repository
	SubscriptionService subscription.Service
	SubscriptionHandler *subscription.Handler

	BatchRunner *sync.BatchRunner
	Scheduler   *sync.Scheduler
	SyncHandler *sync.Handler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *sql.DB, cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}

	deps.ProfileService = profile.NewService(profile.NewRepository(db))
	deps.ProfileHandler = profile.NewHandler(deps.ProfileService)

	deps.GoogleAuth = google.NewGoogleAuth(db, cfg)
	deps.GoogleService = google.NewService(deps.GoogleAuth)
	deps.GoogleHandler = google.NewHandler(deps.GoogleService)

	deps.MappingRepo = mirror.NewMappingRepo(db)
	deps.StateRepo = mirror.NewStateRepo(db)
	deps.Engine = mirror.NewEngine(deps.GoogleService, deps.MappingRepo, deps.StateRepo, mirror.Config{
		LookBehind:         time.Duration(cfg.Sync.LookBehindDays) * 24 * time.Hour,
		LookAhead:          time.Duration(cfg.Sync.LookAheadDays) * 24 * time.Hour,
		RemoveOnlyMatching: cfg.Sync.RemoveOnlyMatching,
	}, deps.Clock)

	deps.SubscriptionRepo = subscription.NewRepository(db)
	deps.SubscriptionService = subscription.NewService(deps.SubscriptionRepo, deps.StateRepo, deps.MappingRepo, deps.Clock)
	deps.SubscriptionHandler = subscription.NewHandler(deps.SubscriptionService)

	deps.BatchRunner = sync.NewBatchRunner(deps.SubscriptionRepo, deps.Engine, time.Duration(cfg.Sync.RunTimeoutSeconds)*time.Second)
	deps.SyncHandler = sync.NewHandler(deps.BatchRunner)

	scheduler, err := sync.NewScheduler(deps.BatchRunner, cfg.Sync.Schedule)
	if err != nil {
		return nil, err
	}
	deps.Scheduler = scheduler

	return deps, nil
}
