package receipt

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lodestar-freight/lodestar/internal/platform/httpx"
)

// Handler wires HTTP endpoints for receipt status and stats.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the receipt handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers receipt routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/receipts/{receiptID}/stats", h.handleStats)
	r.Post("/receipts/{receiptID}/status", h.handleRecompute)
}

type statusResponse struct {
	ReceiptID int64  `json:"receipt_id"`
	Status    Status `json:"status"`
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	stats, err := h.service.GetStats(r.Context(), id)
	if err != nil {
		h.logger.Warn("get receipt stats failed", slog.Any("error", err), slog.Int64("receipt_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) handleRecompute(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	status, err := h.service.RecomputeAndPersist(r.Context(), id)
	if err != nil {
		h.logger.Warn("recompute receipt status failed", slog.Any("error", err), slog.Int64("receipt_id", id))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("receipt status recomputed", slog.Int64("receipt_id", id), slog.String("status", string(status)))
	httpx.JSON(w, http.StatusOK, statusResponse{ReceiptID: id, Status: status})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "receiptID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "receiptID must be a positive integer")
		return 0, false
	}
	return id, true
}
