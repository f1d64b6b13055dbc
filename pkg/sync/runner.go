package sync

import (
	"context"
	"time"

	"github.com/calmirror/calmirror/pkg/mirror"
	"github.com/calmirror/calmirror/pkg/subscription"
	log "github.com/sirupsen/logrus"
)

// Result is the outcome of reconciling one subscription within a batch.
type Result struct {
	SubscriptionID int
	Stats          mirror.Stats
	Err            error
}

// BatchRunner reconciles all enabled subscriptions in sequence. A failing
// subscription is reported in its Result and does not stop the batch.
type BatchRunner struct {
	subscriptions subscription.Repository
	engine        *mirror.Engine
	runTimeout    time.Duration
}

func NewBatchRunner(subscriptions subscription.Repository, engine *mirror.Engine, runTimeout time.Duration) *BatchRunner {
	return &BatchRunner{
		subscriptions: subscriptions,
		engine:        engine,
		runTimeout:    runTimeout,
	}
}

func (b *BatchRunner) RunAll(ctx context.Context) ([]Result, error) {
	subs, err := b.subscriptions.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}
	log.Debugf("Starting batch run for %d enabled subscriptions", len(subs))

	results := make([]Result, 0, len(subs))
	for _, sub := range subs {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		results = append(results, b.runOne(ctx, sub))
	}
	return results, nil
}

func (b *BatchRunner) runOne(ctx context.Context, sub subscription.Subscription) Result {
	runCtx := ctx
	if b.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, b.runTimeout)
		defer cancel()
	}

	stats, err := b.engine.Run(runCtx, sub)
	if err != nil {
		log.Errorf("failed to reconcile subscription %d: %v", sub.ID, err)
	}
	return Result{SubscriptionID: sub.ID, Stats: stats, Err: err}
}
