package subscription

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/calmirror/calmirror/pkg/filter"
	"github.com/calmirror/calmirror/pkg/profile"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type SubscriptionDTO struct {
	Id               int       `json:"id"`
	SourceCalendarId string    `json:"sourceCalendarId"`
	TargetCalendarId string    `json:"targetCalendarId"`
	FilterKind       string    `json:"filterKind"`
	FilterPattern    string    `json:"filterPattern"`
	Enabled          bool      `json:"enabled"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new subscription")
	w.Header().Set("Content-Type", "application/json")

	profileID, err := profile.CurrentId(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var dto SubscriptionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), profileID, dtoToSubscription(dto))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(subscriptionToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	profileID, err := profile.CurrentId(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	subs, err := h.service.List(r.Context(), profileID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]SubscriptionDTO, 0, len(subs))
	for _, sub := range subs {
		dtos = append(dtos, subscriptionToDTO(sub))
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	profileID, err := profile.CurrentId(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	id, err := subscriptionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sub, err := h.service.Get(r.Context(), profileID, id)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			http.Error(w, "subscription not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(subscriptionToDTO(sub)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	profileID, err := profile.CurrentId(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	id, err := subscriptionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var dto SubscriptionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sub := dtoToSubscription(dto)
	sub.ID = id

	updated, err := h.service.Update(r.Context(), profileID, sub)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			http.Error(w, "subscription not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(subscriptionToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) SetSubscriptionEnabled(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	profileID, err := profile.CurrentId(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	id, err := subscriptionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sub, err := h.service.SetEnabled(r.Context(), profileID, id, body.Enabled)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			http.Error(w, "subscription not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(subscriptionToDTO(sub)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	profileID, err := profile.CurrentId(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	id, err := subscriptionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), profileID, id); err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			http.Error(w, "subscription not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func subscriptionID(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["subscriptionId"])
}

func subscriptionToDTO(sub Subscription) SubscriptionDTO {
	return SubscriptionDTO{
		Id:               sub.ID,
		SourceCalendarId: sub.SourceCalendarID,
		TargetCalendarId: sub.TargetCalendarID,
		FilterKind:       string(sub.Filter.Kind),
		FilterPattern:    sub.Filter.Pattern,
		Enabled:          sub.Enabled,
		CreatedAt:        sub.CreatedAt,
		UpdatedAt:        sub.UpdatedAt,
	}
}

func dtoToSubscription(dto SubscriptionDTO) Subscription {
	return Subscription{
		ID:               dto.Id,
		SourceCalendarID: dto.SourceCalendarId,
		TargetCalendarID: dto.TargetCalendarId,
		Filter: FilterRule{
			Kind:    filter.RuleKind(dto.FilterKind),
			Pattern: dto.FilterPattern,
		},
		Enabled: dto.Enabled,
	}
}
