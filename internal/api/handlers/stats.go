package handlers

import (
	"net/http"
	"time"

	"github.com/eshaffer321/bank-recon-backend/internal/api/dto"
	"github.com/eshaffer321/bank-recon-backend/internal/infrastructure/storage"
)

// StatsHandler handles learning-history stats HTTP requests.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository) *StatsHandler {
	return &StatsHandler{
		Base: NewBase(repo),
	}
}

// Get handles GET /api/learning/stats - returns learning-history aggregates.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetLearningStats()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.LearningStatsResponse{
		Total:            stats.Total,
		Categorized:      stats.Categorized,
		WithCounterparty: stats.WithCounterparty,
	}
	if stats.OldestExample != nil {
		response.OldestExample = stats.OldestExample.Format(time.RFC3339)
	}
	if stats.NewestExample != nil {
		response.NewestExample = stats.NewestExample.Format(time.RFC3339)
	}

	h.WriteJSON(w, http.StatusOK, response)
}
