package alert

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Nayana519/PulseGuard/internal/middleware"
	alertService "github.com/Nayana519/PulseGuard/internal/service/alert"
	apperrors "github.com/Nayana519/PulseGuard/pkg/errors"
	"github.com/Nayana519/PulseGuard/pkg/httputil"
)

type Handler struct {
	service alertService.AlertServicer
}

func NewHandler(service alertService.AlertServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	alerts := r.Group("/alerts")
	{
		alerts.GET("", h.ListAlerts)
		alerts.PATCH("/:id/read", h.MarkRead)
		alerts.POST("/read-all", h.MarkAllRead)
	}
}

func (h *Handler) ListAlerts(c *gin.Context) {
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))
	alerts, err := h.service.List(c.Request.Context(), middleware.UserID(c), unreadOnly)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, alerts)
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid alert ID", err))
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), middleware.UserID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"id": id, "is_read": true})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	n, err := h.service.MarkAllRead(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"updated": n})
}
