package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appshipment "github.com/supplytrace/backend/internal/application/shipment"
	"github.com/supplytrace/backend/internal/domain/shipment"
	"github.com/supplytrace/backend/internal/interfaces/http/dto"
	"github.com/supplytrace/backend/internal/interfaces/http/middleware"
)

// ShipmentHandler serves the shipment registry
type ShipmentHandler struct {
	BaseHandler
	registry *appshipment.RegistryService
}

// NewShipmentHandler creates a new ShipmentHandler
func NewShipmentHandler(registry *appshipment.RegistryService) *ShipmentHandler {
	return &ShipmentHandler{registry: registry}
}

// CreateShipmentRequest is the body of POST /shipments. Coordinates are
// fixed-point degrees scaled by 1e6.
type CreateShipmentRequest struct {
	DestinationLat  int64     `json:"destination_lat"`
	DestinationLong int64     `json:"destination_long"`
	RadiusMeters    int64     `json:"radius_meters" binding:"required"`
	Manufacturer    string    `json:"manufacturer" binding:"required,uuid"`
	MaterialID      uint64    `json:"material_id"`
	Quantity        int64     `json:"quantity" binding:"required,gt=0"`
	ExpectedArrival time.Time `json:"expected_arrival" binding:"required"`
}

// ListShipmentsRequest holds the query parameters of GET /shipments
type ListShipmentsRequest struct {
	dto.ListRequest
	Status       string `form:"status" binding:"omitempty,oneof=CREATED IN_TRANSIT ARRIVED"`
	Manufacturer string `form:"manufacturer" binding:"omitempty,uuid"`
	Supplier     string `form:"supplier" binding:"omitempty,uuid"`
}

// StatusResponse is the body of GET /shipments/:id/status
type StatusResponse struct {
	ID     uint64 `json:"id"`
	Status string `json:"status"`
}

// Create locks raw material into a new shipment owned by the calling supplier
func (h *ShipmentHandler) Create(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.registry.CreateShipment(c.Request.Context(), caller, appshipment.CreateShipmentInput{
		DestinationLat:  req.DestinationLat,
		DestinationLong: req.DestinationLong,
		RadiusMeters:    req.RadiusMeters,
		Manufacturer:    uuid.MustParse(req.Manufacturer),
		MaterialID:      req.MaterialID,
		Quantity:        req.Quantity,
		ExpectedArrival: req.ExpectedArrival,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// StartDelivery moves a shipment into transit
func (h *ShipmentHandler) StartDelivery(c *gin.Context) {
	h.transition(c, h.registry.StartDelivery)
}

// ForceArrival releases a shipment by administrative override
func (h *ShipmentHandler) ForceArrival(c *gin.Context) {
	h.transition(c, h.registry.ForceArrival)
}

// ManufacturerForceArrival releases an overdue shipment at the manufacturer's request
func (h *ShipmentHandler) ManufacturerForceArrival(c *gin.Context) {
	h.transition(c, h.registry.ManufacturerForceArrival)
}

func (h *ShipmentHandler) transition(c *gin.Context, op func(ctx context.Context, caller uuid.UUID, id uint64) (*appshipment.ShipmentResponse, error)) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}

	resp, err := op(c.Request.Context(), caller, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get returns one shipment
func (h *ShipmentHandler) Get(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.registry.GetShipment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetStatus returns only the lifecycle status of a shipment
func (h *ShipmentHandler) GetStatus(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}

	status, err := h.registry.GetShipmentStatus(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, StatusResponse{ID: id, Status: status.String()})
}

// List returns shipments filtered by status and party
func (h *ShipmentHandler) List(c *gin.Context) {
	var req ListShipmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	filter := shipment.Filter{Page: req.Page, PageSize: req.PageSize}
	if req.Status != "" {
		status := shipment.Status(req.Status)
		filter.Status = &status
	}
	if req.Manufacturer != "" {
		m := uuid.MustParse(req.Manufacturer)
		filter.Manufacturer = &m
	}
	if req.Supplier != "" {
		s := uuid.MustParse(req.Supplier)
		filter.Supplier = &s
	}

	page, err := h.registry.ListShipments(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}
