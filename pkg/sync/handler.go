package sync

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

type ResultDTO struct {
	SubscriptionId int    `json:"subscriptionId"`
	Created        int    `json:"created"`
	Updated        int    `json:"updated"`
	Removed        int    `json:"removed"`
	Error          string `json:"error,omitempty"`
}

type Handler struct {
	runner *BatchRunner
}

func NewHandler(runner *BatchRunner) *Handler {
	return &Handler{runner: runner}
}

// TriggerRun starts a batch reconciliation immediately, outside the cron
// cadence.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	log.Debug("Manual sync run triggered")
	w.Header().Set("Content-Type", "application/json")

	results, err := h.runner.RunAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	logBatchSummary(results)

	dtos := make([]ResultDTO, 0, len(results))
	for _, result := range results {
		dto := ResultDTO{
			SubscriptionId: result.SubscriptionID,
			Created:        result.Stats.Created,
			Updated:        result.Stats.Updated,
			Removed:        result.Stats.Removed,
		}
		if result.Err != nil {
			dto.Error = result.Err.Error()
		}
		dtos = append(dtos, dto)
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
