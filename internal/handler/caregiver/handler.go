package caregiver

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Nayana519/PulseGuard/internal/middleware"
	caregiverService "github.com/Nayana519/PulseGuard/internal/service/caregiver"
	apperrors "github.com/Nayana519/PulseGuard/pkg/errors"
	"github.com/Nayana519/PulseGuard/pkg/httputil"
)

type Handler struct {
	service caregiverService.CaregiverServicer
}

func NewHandler(service caregiverService.CaregiverServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/caregiver/patients")
	{
		patients.GET("", h.Overview)
		patients.POST("", h.LinkPatient)
		patients.GET("/:id", h.PatientOverview)
	}
}

func (h *Handler) Overview(c *gin.Context) {
	overviews, err := h.service.Overview(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, overviews)
}

func (h *Handler) PatientOverview(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid patient ID", err))
		return
	}
	overview, err := h.service.PatientOverview(c.Request.Context(), middleware.UserID(c), patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, overview)
}

func (h *Handler) LinkPatient(c *gin.Context) {
	var req caregiverService.LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}
	patient, err := h.service.LinkPatient(c.Request.Context(), middleware.UserID(c), req.Email)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, patient)
}
