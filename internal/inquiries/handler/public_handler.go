package handler

import (
	"context"
	"net/http"

	"brokerage_intake/internal/inquiries/admission"
	"brokerage_intake/internal/inquiries/intake"
	"brokerage_intake/internal/inquiries/transport"
	"brokerage_intake/platform/apperr"
	"brokerage_intake/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Submitter runs the admission pipeline.
type Submitter interface {
	Submit(ctx context.Context, s admission.Submission) (intake.Result, error)
}

// PublicHandler serves the unauthenticated inquiry form.
type PublicHandler struct {
	intake Submitter
}

const msgInvalidBody = "request body must be a JSON object"

func NewPublicHandler(intake Submitter) *PublicHandler {
	return &PublicHandler{intake: intake}
}

// RegisterRoutes registers public routes under /public/inquiries.
func (h *PublicHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Submit)
}

// Submit admits a new inquiry. The caller's address comes from the
// connection, never from the body.
func (h *PublicHandler) Submit(c *gin.Context) {
	var req transport.SubmitInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidBody))
		return
	}

	sub := admission.Submission{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Message:    req.Message,
		PropertyID: req.PropertyID,
		IPAddress:  c.ClientIP(),
	}
	if id := httpkit.GetIdentity(c); id.IsAuthenticated() {
		userID := id.UserID()
		sub.UserID = &userID
	}

	res, err := h.intake.Submit(c.Request.Context(), sub)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToAdmissionResponse(res))
}
