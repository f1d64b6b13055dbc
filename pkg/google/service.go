package google

import (
	"context"
	"fmt"

	"github.com/calmirror/calmirror/pkg/mirror"
	"github.com/calmirror/calmirror/pkg/profile"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type CalendarItem struct {
	ID      string
	Summary string
}

type Service interface {
	ListCalendars(ctx context.Context) ([]CalendarItem, error)
}

// ServiceImpl is also the mirror.ProviderFactory used by the reconciliation
// engine: given a profile id it yields a Calendar authenticated with the
// profile's stored token.
type ServiceImpl struct {
	auth *GoogleAuth
}

func NewService(auth *GoogleAuth) *ServiceImpl {
	return &ServiceImpl{
		auth: auth,
	}
}

var _ mirror.ProviderFactory = (*ServiceImpl)(nil)

func (s *ServiceImpl) ProviderFor(ctx context.Context, profileId int) (mirror.Provider, error) {
	service, err := s.prepareGoogleService(ctx, profileId)
	if err != nil {
		return nil, err
	}
	return newGoogleCalendar(service), nil
}

func (s *ServiceImpl) ListCalendars(ctx context.Context) ([]CalendarItem, error) {
	profileId, err := profile.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current profile: %w", err)
	}

	googleService, err := s.prepareGoogleService(ctx, profileId)
	if err != nil {
		return nil, err
	}
	calendars, err := googleService.CalendarList.List().Do()
	if err != nil {
		err := fmt.Errorf("unable to retrieve calendars from Google Calendar: %v", err)
		log.Error(err)
		return nil, err
	}
	var googleCalendars []CalendarItem
	for _, cal := range calendars.Items {
		googleCalendars = append(googleCalendars, CalendarItem{
			ID:      cal.Id,
			Summary: cal.Summary,
		})
	}
	return googleCalendars, nil
}

func (s *ServiceImpl) prepareGoogleService(ctx context.Context, profileId int) (*calendar.Service, error) {

	client, err := s.auth.getClient(ctx, profileId)
	if err != nil {
		err := fmt.Errorf("unable to retrieve Google auth client: %v", err)
		log.Error(err)
		return nil, err
	}
	if client == nil {
		log.Debug("profile is unauthenticated, authentication is required")
		return nil, ErrUnauthenticated
	}
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		err := fmt.Errorf("unable to retrieve Calendar client: %v", err)
		log.Error(err)
		return nil, err
	}

	return service, nil
}
