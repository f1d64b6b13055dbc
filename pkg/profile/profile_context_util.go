package profile

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const ProfileKey contextKey = "profile"

var ErrNoProfile = errors.New("profile not found")

// CurrentId retrieves the current profile's ID from the context. Returns ErrNoProfile if not present.
func CurrentId(ctx context.Context) (int, error) {
	p, ok := ctx.Value(ProfileKey).(Profile)
	if !ok {
		log.Trace("profile not found in context")
		return 0, ErrNoProfile
	}
	return p.Id, nil
}

func CurrentProfile(ctx context.Context) (Profile, error) {
	p, ok := ctx.Value(ProfileKey).(Profile)
	if !ok {
		log.Trace("profile not found in context")
		return Profile{}, ErrNoProfile
	}
	return p, nil
}

func WithProfile(ctx context.Context, p Profile) context.Context {
	return context.WithValue(ctx, ProfileKey, p)
}
