package mirror

import (
	"context"
	"time"
)

type StubStateRepo struct {
	data map[int]State
}

func NewStubStateRepo() *StubStateRepo {
	return &StubStateRepo{data: map[int]State{}}
}

func (s *StubStateRepo) Get(ctx context.Context, subscriptionID int) (State, error) {
	state := s.data[subscriptionID]
	state.SubscriptionID = subscriptionID
	return state, nil
}

func (s *StubStateRepo) SetSyncToken(ctx context.Context, subscriptionID int, token string) error {
	state := s.data[subscriptionID]
	state.SyncToken = token
	s.data[subscriptionID] = state
	return nil
}

func (s *StubStateRepo) ClearSyncToken(ctx context.Context, subscriptionID int) error {
	state := s.data[subscriptionID]
	state.SyncToken = ""
	s.data[subscriptionID] = state
	return nil
}

func (s *StubStateRepo) RecordRun(ctx context.Context, subscriptionID int, status string, at time.Time) error {
	state := s.data[subscriptionID]
	state.LastStatus = status
	state.LastRunAt = at
	s.data[subscriptionID] = state
	return nil
}
