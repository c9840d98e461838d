package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appledger "github.com/supplytrace/backend/internal/application/ledger"
	"github.com/supplytrace/backend/internal/interfaces/http/middleware"
)

// LedgerHandler serves asset ledger administration and balance queries
type LedgerHandler struct {
	BaseHandler
	ledger *appledger.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledger *appledger.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// MintMaterialRequest credits raw material units to an account
type MintMaterialRequest struct {
	Account    string `json:"account" binding:"required,uuid"`
	MaterialID uint64 `json:"material_id"`
	Amount     int64  `json:"amount" binding:"required,gt=0"`
}

// DepositFundsRequest credits payment units to an account
type DepositFundsRequest struct {
	Account string `json:"account" binding:"required,uuid"`
	Amount  string `json:"amount" binding:"required,decimal_gt0"`
}

// UniqueAssetResponse is the read model of a minted unique asset
type UniqueAssetResponse struct {
	ID         uint64    `json:"id"`
	Owner      uuid.UUID `json:"owner"`
	Descriptor string    `json:"descriptor"`
}

// MintMaterial credits material to an account
func (h *LedgerHandler) MintMaterial(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req MintMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	balance, err := h.ledger.MintMaterial(c.Request.Context(), caller, uuid.MustParse(req.Account), req.MaterialID, req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// DepositFunds credits payment units to an account
func (h *LedgerHandler) DepositFunds(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req DepositFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	balance, err := h.ledger.DepositFunds(c.Request.Context(), caller, uuid.MustParse(req.Account), decimal.RequireFromString(req.Amount))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// MaterialBalance returns an account's balance of one material
func (h *LedgerHandler) MaterialBalance(c *gin.Context) {
	account, ok := h.uuidParam(c, "account")
	if !ok {
		return
	}
	materialID, err := strconv.ParseUint(c.Param("material"), 10, 64)
	if err != nil {
		h.BadRequest(c, "Invalid material")
		return
	}

	balance, err := h.ledger.MaterialBalance(c.Request.Context(), account, materialID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// PaymentBalance returns an account's payment balance
func (h *LedgerHandler) PaymentBalance(c *gin.Context) {
	account, ok := h.uuidParam(c, "account")
	if !ok {
		return
	}

	balance, err := h.ledger.PaymentBalance(c.Request.Context(), account)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// UniqueAsset returns the owner and descriptor of a minted unique asset
func (h *LedgerHandler) UniqueAsset(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}

	asset, err := h.ledger.UniqueAsset(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, UniqueAssetResponse{ID: asset.ID, Owner: asset.Owner, Descriptor: asset.Descriptor})
}
