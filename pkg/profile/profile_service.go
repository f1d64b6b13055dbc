package profile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service interface {
	Create(ctx context.Context, p Profile) (Profile, error)
	GetByUid(ctx context.Context, uid string) (Profile, error)
	GetCurrentProfile(ctx context.Context) (Profile, error)
	List(ctx context.Context) ([]Profile, error)
	Delete(ctx context.Context, id int) (bool, error)
}

type ServiceImpl struct {
	repo Repository
}

func NewService(repo Repository) *ServiceImpl {
	return &ServiceImpl{repo: repo}
}

func (s *ServiceImpl) Create(ctx context.Context, p Profile) (Profile, error) {
	p.Uid = uuid.New().String()
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
	id, err := s.repo.Store(ctx, p)
	if err != nil {
		return Profile{}, err
	}
	p.Id = id
	return p, nil
}

func (s *ServiceImpl) GetByUid(ctx context.Context, uid string) (Profile, error) {
	return s.repo.GetByUid(ctx, uid)
}

func (s *ServiceImpl) GetCurrentProfile(ctx context.Context) (Profile, error) {
	p, err := CurrentProfile(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to get current profile: %w", err)
	}
	return p, nil
}

func (s *ServiceImpl) List(ctx context.Context) ([]Profile, error) {
	return s.repo.GetAll(ctx)
}

func (s *ServiceImpl) Delete(ctx context.Context, id int) (bool, error) {
	return s.repo.Delete(ctx, id)
}
