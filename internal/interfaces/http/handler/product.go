package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	appproduct "github.com/supplytrace/backend/internal/application/product"
	"github.com/supplytrace/backend/internal/interfaces/http/middleware"
)

// ProductHandler serves product assembly and provenance metadata
type ProductHandler struct {
	BaseHandler
	assembler  *appproduct.AssemblerService
	provenance *appproduct.ProvenanceService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(assembler *appproduct.AssemblerService, provenance *appproduct.ProvenanceService) *ProductHandler {
	return &ProductHandler{assembler: assembler, provenance: provenance}
}

// AssembleRequest lists one metadata descriptor per product to mint
type AssembleRequest struct {
	Metadata []string `json:"metadata" binding:"required,min=1,dive,max=2048"`
}

// Assemble consumes an arrived shipment's material into products
func (h *ProductHandler) Assemble(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	shipmentID, ok := h.uintParam(c, "id")
	if !ok {
		return
	}

	var req AssembleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	products, err := h.assembler.AssembleProduct(c.Request.Context(), caller, shipmentID, req.Metadata)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, products)
}

// Get returns one product
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}

	p, err := h.assembler.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// ListByShipment returns the products assembled from a shipment
func (h *ProductHandler) ListByShipment(c *gin.Context) {
	shipmentID, ok := h.uintParam(c, "id")
	if !ok {
		return
	}

	products, err := h.assembler.ListProductsByShipment(c.Request.Context(), shipmentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, products)
}

// Metadata serves the provenance document of a product unwrapped, so the
// URL can be stored as the product's token URI.
func (h *ProductHandler) Metadata(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.provenance.BuildMetadata(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
}
