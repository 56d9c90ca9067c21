package handler

import (
	"context"
	"net/http"
	"time"

	"brokerage_intake/internal/inquiries/assignment"
	"brokerage_intake/internal/inquiries/lifecycle"
	"brokerage_intake/internal/inquiries/repository"
	"brokerage_intake/internal/inquiries/transport"
	"brokerage_intake/internal/monitoring"
	"brokerage_intake/platform/apperr"
	"brokerage_intake/platform/httpkit"
	"brokerage_intake/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Lifecycle interface {
	Get(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) (repository.Inquiry, error)
	Transition(ctx context.Context, id uuid.UUID, target string, actor lifecycle.Actor) (repository.Inquiry, error)
}

type Assigner interface {
	AssignInquiry(ctx context.Context, inquiryID uuid.UUID) (assignment.Outcome, error)
	ReassignBroker(ctx context.Context, brokerID uuid.UUID) (assignment.Batch, error)
}

// ReassignEnqueuer hands a reassignment run to the background worker.
type ReassignEnqueuer interface {
	EnqueueBrokerReassign(ctx context.Context, brokerID uuid.UUID) error
}

type MetricsReader interface {
	Snapshot(ctx context.Context, day time.Time) (monitoring.DailySnapshot, error)
}

// Handler serves the staff-facing inquiry routes.
type Handler struct {
	lifecycle Lifecycle
	assigner  Assigner
	metrics   MetricsReader
	enqueuer  ReassignEnqueuer
	val       *validator.Validator
	now       func() time.Time
}

const (
	msgInvalidID   = "invalid id"
	msgInvalidDate = "date must be formatted as YYYY-MM-DD"
)

func New(lc Lifecycle, assigner Assigner, metrics MetricsReader, val *validator.Validator) *Handler {
	return &Handler{lifecycle: lc, assigner: assigner, metrics: metrics, val: val, now: time.Now}
}

func (h *Handler) SetReassignEnqueuer(q ReassignEnqueuer) {
	h.enqueuer = q
}

// RegisterRoutes mounts authenticated inquiry routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.POST("/:id/assign", httpkit.RequireRole(httpkit.RoleAdmin), h.Assign)
}

// RegisterAdminRoutes mounts routes on the admin group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/brokers/:id/reassign", h.ReassignBroker)
	rg.GET("/intake/metrics", h.Metrics)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	inq, err := h.lifecycle.Get(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.InquiryEnvelope{Success: true, Inquiry: transport.ToInquiryResponse(inq)})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidBody))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.FieldValidation(validator.FieldErrors(err)))
		return
	}

	inq, err := h.lifecycle.Transition(c.Request.Context(), id, req.Status, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.InquiryEnvelope{Success: true, Inquiry: transport.ToInquiryResponse(inq)})
}

func (h *Handler) Assign(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	outcome, err := h.assigner.AssignInquiry(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.AssignmentEnvelope{Success: true, Outcome: outcome})
}

func (h *Handler) ReassignBroker(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if c.Query("async") == "true" && h.enqueuer != nil {
		if err := h.enqueuer.EnqueueBrokerReassign(c.Request.Context(), id); err != nil {
			httpkit.HandleError(c, err)
			return
		}
		httpkit.JSON(c, http.StatusAccepted, transport.QueuedEnvelope{Success: true, BrokerID: id, Queued: true})
		return
	}

	batch, err := h.assigner.ReassignBroker(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ReassignmentEnvelope{Success: true, Batch: batch})
}

func (h *Handler) Metrics(c *gin.Context) {
	day := h.now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpkit.HandleError(c, apperr.BadRequest(msgInvalidDate))
			return
		}
		day = parsed
	}

	snap, err := h.metrics.Snapshot(c.Request.Context(), day)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.MetricsEnvelope{Success: true, Metrics: snap})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidID))
		return uuid.Nil, false
	}
	return id, true
}

func actorFrom(c *gin.Context) (lifecycle.Actor, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return lifecycle.Actor{}, false
	}
	return lifecycle.Actor{UserID: id.UserID(), IsAdmin: id.IsAdmin()}, true
}
