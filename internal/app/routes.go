package app

import (
	"github.com/calmirror/calmirror/internal/config"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Profile management
	r.HandleFunc("/api/profile", deps.ProfileHandler.CreateProfile).Methods("POST")
	r.HandleFunc("/api/profile", deps.ProfileHandler.ListProfiles).Methods("GET")
	r.HandleFunc("/api/profile/current", deps.ProfileHandler.CurrentProfile).Methods("GET")
	r.HandleFunc("/api/profile/{profileId}", deps.ProfileHandler.DeleteProfile).Methods("DELETE")

	// Subscriptions
	r.HandleFunc("/api/subscription", deps.SubscriptionHandler.CreateSubscription).Methods("POST")
	r.HandleFunc("/api/subscription", deps.SubscriptionHandler.ListSubscriptions).Methods("GET")
	r.HandleFunc("/api/subscription/{subscriptionId}", deps.SubscriptionHandler.GetSubscription).Methods("GET")
	r.HandleFunc("/api/subscription/{subscriptionId}", deps.SubscriptionHandler.UpdateSubscription).Methods("PUT")
	r.HandleFunc("/api/subscription/{subscriptionId}/enabled", deps.SubscriptionHandler.SetSubscriptionEnabled).Methods("PUT")
	r.HandleFunc("/api/subscription/{subscriptionId}", deps.SubscriptionHandler.DeleteSubscription).Methods("DELETE")

	// Sync
	r.HandleFunc("/api/sync/run", deps.SyncHandler.TriggerRun).Methods("POST")

	// Google integration
	r.HandleFunc("/api/integrations/google/auth/login", deps.GoogleAuth.OAuthLogin).Methods("GET")
	r.HandleFunc("/api/integrations/google/auth/logout", deps.GoogleAuth.OAuthLogout).Methods("DELETE")
	r.HandleFunc("/api/integrations/google/auth/callback", deps.GoogleAuth.OAuthCallback).Methods("GET")
	r.HandleFunc("/api/integrations/google/calendars", deps.GoogleHandler.ListCalendars).Methods("GET")
}
