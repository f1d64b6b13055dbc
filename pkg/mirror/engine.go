package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calmirror/calmirror/internal/utils"
	"github.com/calmirror/calmirror/pkg/filter"
	"github.com/calmirror/calmirror/pkg/subscription"
	log "github.com/sirupsen/logrus"
)

// Stats summarizes the target-side effects of one reconciliation run.
type Stats struct {
	Created int
	Updated int
	Removed int
}

type Config struct {
	// LookBehind and LookAhead bound the backfill window around "now".
	LookBehind time.Duration
	LookAhead  time.Duration
	// RemoveOnlyMatching restricts the dedup pass to orphans that still match
	// the subscription filter, protecting unrelated manual entries in a
	// shared target calendar.
	RemoveOnlyMatching bool
}

// Engine converges a subscription's target calendar to exactly the source
// events currently matching the filter rule. Each run executes four ordered
// passes (delta, backfill, prune, dedup); every pass is idempotent and safe
// to retry after a partial failure.
type Engine struct {
	providers ProviderFactory
	mappings  MappingRepo
	states    StateRepo
	cfg       Config
	clock     utils.Clock
}

func NewEngine(providers ProviderFactory, mappings MappingRepo, states StateRepo, cfg Config, clock utils.Clock) *Engine {
	return &Engine{
		providers: providers,
		mappings:  mappings,
		states:    states,
		cfg:       cfg,
		clock:     clock,
	}
}

// Run reconciles one subscription. An expired sync token is self-healing:
// the cursor is cleared and the run ends ok, deferring the full scan to the
// next cycle. Any other error records last_status=error and is returned.
func (e *Engine) Run(ctx context.Context, sub subscription.Subscription) (Stats, error) {
	r, err := e.newRun(ctx, sub)
	if err != nil {
		e.recordRun(ctx, sub.ID, StatusError)
		return Stats{}, err
	}

	deferred, err := r.delta(ctx)
	if err != nil {
		e.recordRun(ctx, sub.ID, StatusError)
		return r.stats, err
	}
	if deferred {
		e.recordRun(ctx, sub.ID, StatusOK)
		return r.stats, nil
	}

	if err := r.backfill(ctx); err != nil {
		e.recordRun(ctx, sub.ID, StatusError)
		return r.stats, err
	}
	if err := r.prune(ctx); err != nil {
		e.recordRun(ctx, sub.ID, StatusError)
		return r.stats, err
	}
	if err := r.dedup(ctx); err != nil {
		e.recordRun(ctx, sub.ID, StatusError)
		return r.stats, err
	}

	e.recordRun(ctx, sub.ID, StatusOK)
	log.Infof("reconciled subscription %d: %d created, %d updated, %d removed",
		sub.ID, r.stats.Created, r.stats.Updated, r.stats.Removed)
	return r.stats, nil
}

func (e *Engine) newRun(ctx context.Context, sub subscription.Subscription) (*run, error) {
	rule, err := filter.ParseRule(sub.Filter.Kind, sub.Filter.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid filter rule for subscription %d: %w", sub.ID, err)
	}

	provider, err := e.providers.ProviderFor(ctx, sub.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("could not prepare calendar provider for profile %d: %w", sub.ProfileID, err)
	}

	now := e.clock.Now()
	return &run{
		engine:   e,
		provider: provider,
		matcher:  filter.NewMatcher(rule),
		sub:      sub,
		window: TimeWindow{
			TimeMin: now.Add(-e.cfg.LookBehind),
			TimeMax: now.Add(e.cfg.LookAhead),
		},
	}, nil
}

func (e *Engine) recordRun(ctx context.Context, subscriptionID int, status string) {
	if err := e.states.RecordRun(ctx, subscriptionID, status, e.clock.Now()); err != nil {
		log.Errorf("could not record run status for subscription %d: %v", subscriptionID, err)
	}
}

// run holds the per-subscription state of one reconciliation cycle.
type run struct {
	engine   *Engine
	provider Provider
	matcher  *filter.Matcher
	sub      subscription.Subscription
	window   TimeWindow
	stats    Stats
}

func (r *run) matches(ev Event) bool {
	return r.matcher.Match(ev.Summary, ev.Description, ev.Location)
}

// delta consumes the incremental change feed since the stored cursor, paging
// until the terminal page, then persists the new sync token unconditionally:
// the feed has already advanced past these items, so partial downstream
// failures must not cause them to be re-read. Returns deferred=true when the
// token had expired and the cursor was reset.
func (r *run) delta(ctx context.Context) (bool, error) {
	state, err := r.engine.states.Get(ctx, r.sub.ID)
	if err != nil {
		return false, err
	}
	if state.SyncToken == "" {
		log.Debugf("no sync token for subscription %d, requesting full change feed", r.sub.ID)
	}

	opts := ChangesOptions{SyncToken: state.SyncToken}
	for {
		page, err := r.provider.Changes(ctx, r.sub.SourceCalendarID, opts)
		if errors.Is(err, ErrSyncTokenExpired) {
			log.Warnf("sync token expired for subscription %d, resetting cursor", r.sub.ID)
			if err := r.engine.states.ClearSyncToken(ctx, r.sub.ID); err != nil {
				return false, err
			}
			return true, nil
		}
		if err != nil {
			return false, fmt.Errorf("could not read change feed: %w", err)
		}

		for _, ev := range page.Items {
			if err := r.applyChange(ctx, ev); err != nil {
				return false, err
			}
		}

		if page.NextPageToken == "" {
			if page.NextSyncToken != "" {
				if err := r.engine.states.SetSyncToken(ctx, r.sub.ID, page.NextSyncToken); err != nil {
					return false, err
				}
			}
			return false, nil
		}
		opts.PageToken = page.NextPageToken
	}
}

func (r *run) applyChange(ctx context.Context, ev Event) error {
	switch {
	case ev.Cancelled:
		return r.remove(ctx, ev.ID)
	case ev.IsRecurringMaster():
		return r.fanOutMaster(ctx, ev)
	default:
		if r.matches(ev) {
			return r.upsert(ctx, ev, false)
		}
		return r.remove(ctx, ev.ID)
	}
}

// fanOutMaster re-derives the concrete occurrences of a changed recurring
// series within the backfill window and force-refreshes each one, since the
// master edit may have changed content shared by every occurrence. The
// master itself is never mirrored.
func (r *run) fanOutMaster(ctx context.Context, master Event) error {
	instances, err := r.provider.Instances(ctx, r.sub.SourceCalendarID, master.ID, r.window)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("could not expand recurring series %s: %w", master.ID, err)
	}

	for _, instance := range instances {
		if instance.Cancelled || !r.matches(instance) {
			if err := r.remove(ctx, instance.ID); err != nil {
				return err
			}
			continue
		}
		if err := r.upsert(ctx, instance, true); err != nil {
			return err
		}
	}

	// Legacy states may have mirrored the master directly; clean that up.
	return r.remove(ctx, master.ID)
}

// backfill scans the fixed time window regardless of the cursor. Delta feeds
// miss items whose relevance only appears after a rule change, or items that
// drift into scope purely by the calendar clock advancing.
func (r *run) backfill(ctx context.Context) error {
	items, err := r.provider.ListWindow(ctx, r.sub.SourceCalendarID, r.window)
	if err != nil {
		return fmt.Errorf("could not list backfill window: %w", err)
	}
	for _, ev := range items {
		if ev.Cancelled || ev.IsRecurringMaster() {
			continue
		}
		if !r.matches(ev) {
			continue
		}
		if err := r.upsert(ctx, ev, false); err != nil {
			return err
		}
	}
	return nil
}

// prune re-validates every existing mapping against the source. This pass is
// the authority for "rule changed, stop mirroring previously-matched items".
func (r *run) prune(ctx context.Context) error {
	mappings, err := r.engine.mappings.ListBySubscription(ctx, r.sub.ID)
	if err != nil {
		return err
	}
	for _, mapping := range mappings {
		ev, err := r.provider.Get(ctx, r.sub.SourceCalendarID, mapping.SourceEventID)
		if errors.Is(err, ErrNotFound) {
			if err := r.remove(ctx, mapping.SourceEventID); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("could not re-fetch source event %s: %w", mapping.SourceEventID, err)
		}
		if ev.Cancelled || ev.IsRecurringMaster() || !r.matches(ev) {
			if err := r.remove(ctx, mapping.SourceEventID); err != nil {
				return err
			}
		}
	}
	return nil
}

// dedup deletes target events with no mapping row: leftovers of crashed
// runs, manual edits, or other processes. In restricted mode only orphans
// that still match the rule are removed.
func (r *run) dedup(ctx context.Context) error {
	mappings, err := r.engine.mappings.ListBySubscription(ctx, r.sub.ID)
	if err != nil {
		return err
	}
	mapped := make(map[string]bool, len(mappings))
	for _, mapping := range mappings {
		mapped[mapping.TargetEventID] = true
	}

	targets, err := r.provider.ListWindow(ctx, r.sub.TargetCalendarID, TimeWindow{})
	if err != nil {
		return fmt.Errorf("could not list target calendar: %w", err)
	}
	for _, ev := range targets {
		if ev.Cancelled || mapped[ev.ID] {
			continue
		}
		if r.engine.cfg.RemoveOnlyMatching && !r.matches(ev) {
			continue
		}
		log.Debugf("removing orphan event %s from target calendar %s", ev.ID, r.sub.TargetCalendarID)
		if err := r.provider.Delete(ctx, r.sub.TargetCalendarID, ev.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("could not delete orphan event %s: %w", ev.ID, err)
		}
		r.stats.Removed++
	}
	return nil
}

// upsert mirrors one occurrence: create if unmapped, update if the
// fingerprint or etag differs from the last recorded value (or force is
// set), otherwise leave untouched. The remote write happens first; the
// mapping write follows in the same logical step, so a crash between the
// two is the only window for duplicate creation, self-healed by dedup.
func (r *run) upsert(ctx context.Context, ev Event, force bool) error {
	fp, err := ev.Fingerprint()
	if err != nil {
		return err
	}

	mapping, err := r.engine.mappings.Get(ctx, r.sub.ID, ev.ID)
	if err != nil {
		return err
	}

	if mapping == nil {
		return r.create(ctx, ev, fp)
	}

	if !force && mapping.Etag == ev.Etag && mapping.Fingerprint == fp {
		return nil
	}

	_, err = r.provider.Update(ctx, r.sub.TargetCalendarID, mapping.TargetEventID, ev.MirrorPayload())
	if errors.Is(err, ErrNotFound) {
		// The target copy vanished underneath us; recreate and remap.
		return r.create(ctx, ev, fp)
	}
	if err != nil {
		return fmt.Errorf("could not update target event %s: %w", mapping.TargetEventID, err)
	}
	if err := r.engine.mappings.Upsert(ctx, Mapping{
		SubscriptionID: r.sub.ID,
		SourceEventID:  ev.ID,
		TargetEventID:  mapping.TargetEventID,
		Etag:           ev.Etag,
		Fingerprint:    fp,
	}); err != nil {
		return err
	}
	r.stats.Updated++
	return nil
}

func (r *run) create(ctx context.Context, ev Event, fp string) error {
	created, err := r.provider.Create(ctx, r.sub.TargetCalendarID, ev.MirrorPayload())
	if err != nil {
		return fmt.Errorf("could not create target event for source %s: %w", ev.ID, err)
	}
	if err := r.engine.mappings.Upsert(ctx, Mapping{
		SubscriptionID: r.sub.ID,
		SourceEventID:  ev.ID,
		TargetEventID:  created.ID,
		Etag:           ev.Etag,
		Fingerprint:    fp,
	}); err != nil {
		return err
	}
	r.stats.Created++
	return nil
}

// remove deletes the target copy and its mapping. A missing mapping or an
// already-gone target event is a no-op.
func (r *run) remove(ctx context.Context, sourceEventID string) error {
	mapping, err := r.engine.mappings.Get(ctx, r.sub.ID, sourceEventID)
	if err != nil {
		return err
	}
	if mapping == nil {
		return nil
	}
	if err := r.provider.Delete(ctx, r.sub.TargetCalendarID, mapping.TargetEventID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("could not delete target event %s: %w", mapping.TargetEventID, err)
	}
	if err := r.engine.mappings.Delete(ctx, r.sub.ID, sourceEventID); err != nil {
		return err
	}
	r.stats.Removed++
	return nil
}
