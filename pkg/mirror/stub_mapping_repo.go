package mirror

import (
	"context"
	"sort"
)

type mappingKey struct {
	subscriptionID int
	sourceEventID  string
}

type StubMappingRepo struct {
	data map[mappingKey]Mapping
}

func NewStubMappingRepo() *StubMappingRepo {
	return &StubMappingRepo{data: map[mappingKey]Mapping{}}
}

func (s *StubMappingRepo) Get(ctx context.Context, subscriptionID int, sourceEventID string) (*Mapping, error) {
	mapping, ok := s.data[mappingKey{subscriptionID, sourceEventID}]
	if !ok {
		return nil, nil
	}
	return &mapping, nil
}

func (s *StubMappingRepo) Upsert(ctx context.Context, mapping Mapping) error {
	s.data[mappingKey{mapping.SubscriptionID, mapping.SourceEventID}] = mapping
	return nil
}

func (s *StubMappingRepo) Delete(ctx context.Context, subscriptionID int, sourceEventID string) error {
	delete(s.data, mappingKey{subscriptionID, sourceEventID})
	return nil
}

func (s *StubMappingRepo) ListBySubscription(ctx context.Context, subscriptionID int) ([]Mapping, error) {
	var mappings []Mapping
	for key, mapping := range s.data {
		if key.subscriptionID == subscriptionID {
			mappings = append(mappings, mapping)
		}
	}
	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].SourceEventID < mappings[j].SourceEventID
	})
	return mappings, nil
}

func (s *StubMappingRepo) DeleteBySubscription(ctx context.Context, subscriptionID int) error {
	for key := range s.data {
		if key.subscriptionID == subscriptionID {
			delete(s.data, key)
		}
	}
	return nil
}
