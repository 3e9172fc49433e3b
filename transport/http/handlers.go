package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/service"
	"go.uber.org/zap"
)

// MessageSuccess is the envelope message of every successful response
const MessageSuccess = "Success"

// Response is the uniform response envelope
type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// VerifyMessageRequest is the body of the verify-message endpoint
type VerifyMessageRequest struct {
	Message   string `json:"message" binding:"required"`
	PublicKey string `json:"publicKey" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	Chain     string `json:"chain"`
}

// RetrieveRequest is the body of the retrieve endpoint
type RetrieveRequest struct {
	AuthenticationID string `json:"authenticationId" binding:"required"`
}

// VerificationHandlers contains HTTP handlers for verification endpoints
type VerificationHandlers struct {
	authService *service.AuthService
	logger      *zap.Logger
}

// NewVerificationHandlers creates new verification handlers
func NewVerificationHandlers(authService *service.AuthService, logger *zap.Logger) *VerificationHandlers {
	return &VerificationHandlers{
		authService: authService,
		logger:      logger,
	}
}

// RequestMessage issues a challenge message
func (h *VerificationHandlers) RequestMessage(c *gin.Context) {
	challenge, err := h.authService.RequestMessage(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Message: MessageSuccess, Data: challenge})
}

// VerifyMessage verifies a signed message. A failed verification is still a 200.
func (h *VerificationHandlers) VerifyMessage(c *gin.Context) {
	var req VerifyMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Message: "Invalid request"})
		return
	}

	result, err := h.authService.VerifyMessage(c.Request.Context(), core.VerifyRequest{
		Message:   req.Message,
		PublicKey: req.PublicKey,
		Signature: req.Signature,
		Chain:     core.ParseChain(req.Chain),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Message: MessageSuccess, Data: result})
}

// Retrieve returns a stored authentication record
func (h *VerificationHandlers) Retrieve(c *gin.Context) {
	var req RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Message: "Invalid request"})
		return
	}

	record, err := h.authService.Retrieve(c.Request.Context(), req.AuthenticationID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Message: MessageSuccess, Data: record})
}

// Health reports the supported chains
func (h *VerificationHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Message: MessageSuccess,
		Data:    gin.H{"chains": h.authService.Chains()},
	})
}

// fail maps service errors to status codes
func (h *VerificationHandlers) fail(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	errorMsg := "Internal server error"

	switch {
	case errors.Is(err, core.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		errorMsg = "Invalid request"
	case errors.Is(err, core.ErrUnsupportedChain):
		statusCode = http.StatusBadRequest
		errorMsg = "Unsupported chain"
	case errors.Is(err, core.ErrNotFoundOrExpired):
		statusCode = http.StatusNotFound
		errorMsg = "Authentication not found or expired"
	case errors.Is(err, core.ErrStoreUnavailable):
		statusCode = http.StatusServiceUnavailable
		errorMsg = "Service temporarily unavailable"
	}

	if statusCode >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", GetRequestID(c)),
			zap.Error(err))
	}

	_ = c.Error(err)
	c.JSON(statusCode, Response{Message: errorMsg})
}
