package subscription

import (
	"context"
	"sort"
)

// StubRepository is an in-memory Repository for tests.
type StubRepository struct {
	subs   map[int]Subscription
	nextID int
}

func NewStubRepository() *StubRepository {
	return &StubRepository{subs: make(map[int]Subscription), nextID: 1}
}

func (r *StubRepository) Store(_ context.Context, profileID int, sub Subscription) (int, error) {
	sub.ID = r.nextID
	sub.ProfileID = profileID
	r.nextID++
	r.subs[sub.ID] = sub
	return sub.ID, nil
}

func (r *StubRepository) GetByID(_ context.Context, profileID int, id int) (Subscription, error) {
	sub, ok := r.subs[id]
	if !ok || sub.ProfileID != profileID {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return sub, nil
}

func (r *StubRepository) ListByProfile(_ context.Context, profileID int) ([]Subscription, error) {
	var out []Subscription
	for _, sub := range r.subs {
		if sub.ProfileID == profileID {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *StubRepository) ListEnabled(_ context.Context) ([]Subscription, error) {
	var out []Subscription
	for _, sub := range r.subs {
		if sub.Enabled {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *StubRepository) Update(_ context.Context, profileID int, sub Subscription) (bool, error) {
	current, ok := r.subs[sub.ID]
	if !ok || current.ProfileID != profileID {
		return false, nil
	}
	sub.ProfileID = profileID
	r.subs[sub.ID] = sub
	return true, nil
}

func (r *StubRepository) Delete(_ context.Context, profileID int, id int) (bool, error) {
	sub, ok := r.subs[id]
	if !ok || sub.ProfileID != profileID {
		return false, nil
	}
	delete(r.subs, id)
	return true, nil
}
