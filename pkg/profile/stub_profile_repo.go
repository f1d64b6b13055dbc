package profile

import (
	"context"
	"sort"
)

type StubRepository struct {
	nextId int
	data   map[int]Profile
}

func NewStubRepository() *StubRepository {
	return &StubRepository{data: map[int]Profile{}}
}

func (s *StubRepository) Store(ctx context.Context, p Profile) (int, error) {
	s.nextId++
	p.Id = s.nextId
	s.data[p.Id] = p
	return p.Id, nil
}

func (s *StubRepository) GetByUid(ctx context.Context, uid string) (Profile, error) {
	for _, p := range s.data {
		if p.Uid == uid {
			return p, nil
		}
	}
	return Profile{}, ErrProfileNotFound
}

func (s *StubRepository) GetAll(ctx context.Context) ([]Profile, error) {
	profiles := make([]Profile, 0, len(s.data))
	for _, p := range s.data {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Id < profiles[j].Id })
	return profiles, nil
}

func (s *StubRepository) Delete(ctx context.Context, id int) (bool, error) {
	if _, ok := s.data[id]; !ok {
		return false, nil
	}
	delete(s.data, id)
	return true, nil
}
