package app

import (
	"errors"
	"net/http"

	"github.com/calmirror/calmirror/internal/config"
	"github.com/calmirror/calmirror/pkg/profile"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Propagate X-Profile-Id header into context for downstream services
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			profileIdHeader := req.Header.Get("X-Profile-Id")
			ctx := req.Context()

			if profileIdHeader != "" {
				p, err := deps.ProfileService.GetByUid(ctx, profileIdHeader)
				if err != nil {
					if errors.Is(err, profile.ErrProfileNotFound) {
						log.Debugf("profile not found: %s", profileIdHeader)
						http.Error(w, "profile not found", http.StatusForbidden)
						return
					}
					log.Errorf("failed to get profile: %v", err)
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				ctx = profile.WithProfile(ctx, p)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
}
