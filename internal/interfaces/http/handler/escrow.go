package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appescrow "github.com/supplytrace/backend/internal/application/escrow"
	"github.com/supplytrace/backend/internal/interfaces/http/middleware"
)

// EscrowHandler serves shipment payment escrows
type EscrowHandler struct {
	BaseHandler
	escrows *appescrow.EscrowService
}

// NewEscrowHandler creates a new EscrowHandler
func NewEscrowHandler(escrows *appescrow.EscrowService) *EscrowHandler {
	return &EscrowHandler{escrows: escrows}
}

// CreateEscrowRequest funds the escrow of a shipment. Amount is a decimal string.
type CreateEscrowRequest struct {
	Supplier string `json:"supplier" binding:"required,uuid"`
	Amount   string `json:"amount" binding:"required,decimal_gt0"`
}

// Create locks the caller's payment for a shipment
func (h *EscrowHandler) Create(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	shipmentID, ok := h.uintParam(c, "id")
	if !ok {
		return
	}

	var req CreateEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.escrows.CreateEscrow(c.Request.Context(), caller, appescrow.CreateEscrowInput{
		ShipmentID: shipmentID,
		Supplier:   uuid.MustParse(req.Supplier),
		Amount:     decimal.RequireFromString(req.Amount),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Release pays the supplier once the shipment has arrived
func (h *EscrowHandler) Release(c *gin.Context) {
	h.settle(c, h.escrows.ReleasePayment)
}

// Refund returns the payment to the manufacturer
func (h *EscrowHandler) Refund(c *gin.Context) {
	h.settle(c, h.escrows.RefundEscrow)
}

func (h *EscrowHandler) settle(c *gin.Context, op func(ctx context.Context, caller uuid.UUID, shipmentID uint64) (*appescrow.EscrowResponse, error)) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	shipmentID, ok := h.uintParam(c, "id")
	if !ok {
		return
	}

	resp, err := op(c.Request.Context(), caller, shipmentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get returns the escrow of a shipment
func (h *EscrowHandler) Get(c *gin.Context) {
	shipmentID, ok := h.uintParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.escrows.GetEscrow(c.Request.Context(), shipmentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
