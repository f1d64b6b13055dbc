package subscription

import (
	"context"
	"fmt"

	"github.com/calmirror/calmirror/internal/utils"
	"github.com/calmirror/calmirror/pkg/filter"
	log "github.com/sirupsen/logrus"
)

// CursorStore invalidates the incremental sync cursor of a subscription.
// Satisfied by the mirror state repository.
type CursorStore interface {
	ClearSyncToken(ctx context.Context, subscriptionID int) error
}

// MappingWiper removes all mirrored-event mappings of a subscription.
// Satisfied by the mirror mapping repository.
type MappingWiper interface {
	DeleteBySubscription(ctx context.Context, subscriptionID int) error
}

type Service interface {
	Create(ctx context.Context, profileID int, sub Subscription) (Subscription, error)
	Get(ctx context.Context, profileID int, id int) (Subscription, error)
	List(ctx context.Context, profileID int) ([]Subscription, error)
	Update(ctx context.Context, profileID int, sub Subscription) (Subscription, error)
	SetEnabled(ctx context.Context, profileID int, id int, enabled bool) (Subscription, error)
	Delete(ctx context.Context, profileID int, id int) error
}

type ServiceImpl struct {
	repo     Repository
	cursors  CursorStore
	mappings MappingWiper
	clock    utils.Clock
}

func NewService(repo Repository, cursors CursorStore, mappings MappingWiper, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{repo: repo, cursors: cursors, mappings: mappings, clock: clock}
}

func (s *ServiceImpl) Create(ctx context.Context, profileID int, sub Subscription) (Subscription, error) {
	if err := s.validate(sub); err != nil {
		return Subscription{}, err
	}
	now := s.clock.Now()
	sub.ProfileID = profileID
	sub.CreatedAt = now
	sub.UpdatedAt = now
	id, err := s.repo.Store(ctx, profileID, sub)
	if err != nil {
		return Subscription{}, err
	}
	sub.ID = id
	log.Infof("Created subscription %d (%s -> %s)", sub.ID, sub.SourceCalendarID, sub.TargetCalendarID)
	return sub, nil
}

func (s *ServiceImpl) Get(ctx context.Context, profileID int, id int) (Subscription, error) {
	return s.repo.GetByID(ctx, profileID, id)
}

func (s *ServiceImpl) List(ctx context.Context, profileID int) ([]Subscription, error) {
	return s.repo.ListByProfile(ctx, profileID)
}

// Update replaces the calendars and filter of a subscription. When the filter
// or either calendar changes, the stored sync token no longer describes the
// set of events the subscription should track, so the cursor is cleared and
// existing mappings are wiped. The next run then rebuilds the mirror from a
// full backfill.
func (s *ServiceImpl) Update(ctx context.Context, profileID int, sub Subscription) (Subscription, error) {
	if err := s.validate(sub); err != nil {
		return Subscription{}, err
	}
	current, err := s.repo.GetByID(ctx, profileID, sub.ID)
	if err != nil {
		return Subscription{}, err
	}

	scopeChanged := current.Filter != sub.Filter ||
		current.SourceCalendarID != sub.SourceCalendarID ||
		current.TargetCalendarID != sub.TargetCalendarID

	sub.ProfileID = profileID
	sub.CreatedAt = current.CreatedAt
	sub.UpdatedAt = s.clock.Now()
	updated, err := s.repo.Update(ctx, profileID, sub)
	if err != nil {
		return Subscription{}, err
	}
	if !updated {
		return Subscription{}, ErrSubscriptionNotFound
	}

	if scopeChanged {
		if err := s.cursors.ClearSyncToken(ctx, sub.ID); err != nil {
			return Subscription{}, fmt.Errorf("could not clear sync token: %w", err)
		}
		if current.TargetCalendarID != sub.TargetCalendarID {
			// Mappings point at events in the old target calendar and can
			// never be pruned through the new one.
			if err := s.mappings.DeleteBySubscription(ctx, sub.ID); err != nil {
				return Subscription{}, fmt.Errorf("could not wipe mappings: %w", err)
			}
		}
		log.Infof("Subscription %d scope changed, sync cursor reset", sub.ID)
	}
	return sub, nil
}

func (s *ServiceImpl) SetEnabled(ctx context.Context, profileID int, id int, enabled bool) (Subscription, error) {
	current, err := s.repo.GetByID(ctx, profileID, id)
	if err != nil {
		return Subscription{}, err
	}
	if current.Enabled == enabled {
		return current, nil
	}
	current.Enabled = enabled
	current.UpdatedAt = s.clock.Now()
	updated, err := s.repo.Update(ctx, profileID, current)
	if err != nil {
		return Subscription{}, err
	}
	if !updated {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return current, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, profileID int, id int) error {
	deleted, err := s.repo.Delete(ctx, profileID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrSubscriptionNotFound
	}
	if err := s.mappings.DeleteBySubscription(ctx, id); err != nil {
		return fmt.Errorf("could not wipe mappings: %w", err)
	}
	if err := s.cursors.ClearSyncToken(ctx, id); err != nil {
		return fmt.Errorf("could not clear sync token: %w", err)
	}
	return nil
}

func (s *ServiceImpl) validate(sub Subscription) error {
	if sub.SourceCalendarID == "" || sub.TargetCalendarID == "" {
		return fmt.Errorf("source and target calendar are required")
	}
	if sub.SourceCalendarID == sub.TargetCalendarID {
		return fmt.Errorf("source and target calendar must differ")
	}
	if _, err := filter.ParseRule(sub.Filter.Kind, sub.Filter.Pattern); err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}
	return nil
}
