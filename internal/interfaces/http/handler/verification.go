package handler

import (
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	appshipment "github.com/supplytrace/backend/internal/application/shipment"
	"github.com/supplytrace/backend/internal/infrastructure/oracle"
	"github.com/supplytrace/backend/internal/interfaces/http/dto"
	"github.com/supplytrace/backend/internal/interfaces/http/middleware"
)

// VerificationHandler exposes the poller interface and the oracle callback
type VerificationHandler struct {
	BaseHandler
	upkeep   *appshipment.UpkeepService
	verifier *appshipment.VerifierService
	signer   *oracle.CallbackSigner
}

// NewVerificationHandler creates a new VerificationHandler
func NewVerificationHandler(upkeep *appshipment.UpkeepService, verifier *appshipment.VerifierService, signer *oracle.CallbackSigner) *VerificationHandler {
	return &VerificationHandler{upkeep: upkeep, verifier: verifier, signer: signer}
}

// CheckUpkeepResponse tells an external poller whether a perform is due
type CheckUpkeepResponse struct {
	UpkeepNeeded bool   `json:"upkeep_needed"`
	PerformData  string `json:"perform_data,omitempty"`
}

// PerformUpkeepRequest carries the perform data returned by the check
type PerformUpkeepRequest struct {
	PerformData string `json:"perform_data" binding:"required,hex_payload"`
}

// PerformUpkeepResponse reports the verification request that was issued
type PerformUpkeepResponse struct {
	RequestID string `json:"request_id"`
}

// OracleCallbackRequest is the verification gateway's response to a request.
// Payloads are hex encoded.
type OracleCallbackRequest struct {
	RequestID string `json:"request_id" binding:"required"`
	Response  string `json:"response" binding:"hex_payload"`
	Error     string `json:"error" binding:"hex_payload"`
}

// CheckUpkeep reports the first shipment due for a poll
func (h *VerificationHandler) CheckUpkeep(c *gin.Context) {
	needed, payload, err := h.upkeep.CheckPollable(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := CheckUpkeepResponse{UpkeepNeeded: needed}
	if needed {
		resp.PerformData = "0x" + hex.EncodeToString(payload)
	}
	h.Success(c, resp)
}

// PerformUpkeep re-validates the shipment and issues a verification request
func (h *VerificationHandler) PerformUpkeep(c *gin.Context) {
	var req PerformUpkeepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	requestID, err := h.upkeep.Perform(c.Request.Context(), decodeHex(req.PerformData))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, PerformUpkeepResponse{RequestID: requestID})
}

// OracleCallback applies a verification response. It authenticates the
// gateway by signature rather than by bearer token.
func (h *VerificationHandler) OracleCallback(c *gin.Context) {
	var req OracleCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	payload, errPayload := decodeHex(req.Response), decodeHex(req.Error)
	if err := h.signer.Verify(req.RequestID, payload, errPayload, c.GetHeader(oracle.SignatureHeader)); err != nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeBadSignature, err.Error())
		return
	}

	result, err := h.verifier.OnVerificationResponse(c.Request.Context(), req.RequestID, payload, errPayload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// decodeHex decodes a value already checked by the hex_payload validator
func decodeHex(s string) []byte {
	b, _ := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	return b
}
