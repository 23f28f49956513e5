package allocation

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lodestar-freight/lodestar/internal/platform/httpx"
	"github.com/lodestar-freight/lodestar/internal/shared"
)

// OperationRecorder counts engine operations by outcome.
type OperationRecorder interface {
	RecordOperation(operation string, err error)
}

// Handler wires HTTP endpoints for the allocation engine.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	validator   *validator.Validate
	idempotency *shared.IdempotencyStore
	recorder    OperationRecorder
}

// NewHandler constructs the allocation handler. idempotency and recorder may be nil.
func NewHandler(logger *slog.Logger, service *Service, idempotency *shared.IdempotencyStore, recorder OperationRecorder) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		validator:   validator.New(),
		idempotency: idempotency,
		recorder:    recorder,
	}
}

func (h *Handler) record(operation string, err error) {
	if h.recorder != nil {
		h.recorder.RecordOperation(operation, err)
	}
}

// MountRoutes registers allocation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/allocations", h.handleCreate)
	r.Get("/allocations/{allocationID}", h.handleGet)
	r.Post("/allocations/{allocationID}/pick", h.handlePick)
	r.Post("/allocations/{allocationID}/load", h.handleLoad)
	r.Post("/allocations/{allocationID}/ship", h.handleShip)
	r.Post("/allocations/{allocationID}/cancel", h.handleCancel)
	r.Post("/allocations/{allocationID}/split", h.handleSplit)
	r.Get("/shipments/{shipmentID}/allocations", h.handleListByShipment)
	r.Get("/items/{itemID}/movements", h.handleListMovements)
}

type createRequest struct {
	InventoryItemID int64  `json:"inventory_item_id" validate:"required"`
	ShipmentID      int64  `json:"shipment_id" validate:"required"`
	ContainerID     *int64 `json:"container_id,omitempty"`
	AllocatedQty    int64  `json:"allocated_qty" validate:"required"`
}

type pickRequest struct {
	PickedQty int64 `json:"picked_qty" validate:"min=0"`
}

type loadRequest struct {
	LoadedQty   int64  `json:"loaded_qty" validate:"min=0"`
	ContainerID *int64 `json:"container_id,omitempty"`
}

type shipRequest struct {
	ShippedQty int64 `json:"shipped_qty" validate:"required"`
}

type splitRequest struct {
	SplitQty    int64  `json:"split_qty" validate:"required"`
	ContainerID *int64 `json:"container_id,omitempty"`
}

type splitResponse struct {
	Original Allocation `json:"original"`
	Created  Allocation `json:"created"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.service.Create(r.Context(), CreateInput{
		InventoryItemID: req.InventoryItemID,
		ShipmentID:      req.ShipmentID,
		ContainerID:     req.ContainerID,
		AllocatedQty:    req.AllocatedQty,
	})
	h.record("create", err)
	if err != nil {
		h.respondError(w, r, "create allocation", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "allocationID")
	if !ok {
		return
	}
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get allocation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) handlePick(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "allocationID")
	if !ok {
		return
	}
	var req pickRequest
	if !h.decode(w, r, &req) {
		return
	}
	updated, err := h.service.Pick(r.Context(), id, req.PickedQty)
	h.record("pick", err)
	if err != nil {
		h.respondError(w, r, "pick allocation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "allocationID")
	if !ok {
		return
	}
	var req loadRequest
	if !h.decode(w, r, &req) {
		return
	}
	updated, err := h.service.Load(r.Context(), id, req.LoadedQty, req.ContainerID)
	h.record("load", err)
	if err != nil {
		h.respondError(w, r, "load allocation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) handleShip(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "allocationID")
	if !ok {
		return
	}
	var req shipRequest
	if !h.decode(w, r, &req) {
		return
	}
	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idempotency != nil {
		if _, err := uuid.Parse(idemKey); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Idempotency-Key must be a UUID")
			return
		}
		if err := h.idempotency.CheckAndInsert(r.Context(), idemKey, "allocation:ship"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Conflict", "ship request already processed")
				return
			}
			h.respondError(w, r, "ship idempotency", err)
			return
		}
	}
	updated, err := h.service.Ship(r.Context(), id, req.ShippedQty)
	h.record("ship", err)
	if err != nil {
		// a post-commit failure means the ship is durable; keep the key so
		// a retry gets the idempotency conflict instead of re-attempting
		var postCommit *PostCommitError
		if idemKey != "" && h.idempotency != nil && !errors.As(err, &postCommit) {
			_ = h.idempotency.Delete(r.Context(), idemKey)
		}
		h.respondError(w, r, "ship allocation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "allocationID")
	if !ok {
		return
	}
	updated, err := h.service.Cancel(r.Context(), id)
	h.record("cancel", err)
	if err != nil {
		h.respondError(w, r, "cancel allocation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) handleSplit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "allocationID")
	if !ok {
		return
	}
	var req splitRequest
	if !h.decode(w, r, &req) {
		return
	}
	original, created, err := h.service.Split(r.Context(), id, req.SplitQty, req.ContainerID)
	h.record("split", err)
	if err != nil {
		h.respondError(w, r, "split allocation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, splitResponse{Original: original, Created: created})
}

func (h *Handler) handleListByShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "shipmentID")
	if !ok {
		return
	}
	allocations, err := h.service.ListByShipment(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "list shipment allocations", err)
		return
	}
	httpx.JSON(w, http.StatusOK, allocations)
}

func (h *Handler) handleListMovements(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "itemID")
	if !ok {
		return
	}
	movements, err := h.service.ListMovements(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "list item movements", err)
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", param+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Warn(op+" failed", slog.Any("error", err), slog.String("path", r.URL.Path))
	httpx.RespondError(w, err)
}
