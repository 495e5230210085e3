package medication

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Nayana519/PulseGuard/internal/middleware"
	medicationService "github.com/Nayana519/PulseGuard/internal/service/medication"
	apperrors "github.com/Nayana519/PulseGuard/pkg/errors"
	"github.com/Nayana519/PulseGuard/pkg/httputil"
)

type Handler struct {
	service medicationService.MedicationServicer
}

func NewHandler(service medicationService.MedicationServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	meds := r.Group("/medications")
	{
		meds.POST("", h.AddMedication)
		meds.GET("", h.ListMedications)
		meds.POST("/check", h.CheckInteractions)
		meds.GET("/overlaps", h.CheckOverlaps)
		meds.GET("/:id", h.GetMedication)
		meds.DELETE("/:id", h.DeactivateMedication)
		meds.GET("/:id/curve", h.ConcentrationCurve)
		meds.POST("/:id/doses", h.LogDose)
		meds.GET("/:id/doses", h.DoseHistory)
	}
}

// AddMedication answers 201 when stored and 409 with the decision when blocked.
func (h *Handler) AddMedication(c *gin.Context) {
	var req medicationService.AddMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}

	res, err := h.service.AddMedication(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if res.Decision.Blocked() {
		httputil.RespondWithStatus(c, http.StatusConflict, res)
		return
	}
	httputil.RespondWithCreated(c, res)
}

func (h *Handler) CheckInteractions(c *gin.Context) {
	var req medicationService.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}
	assessment, err := h.service.Preview(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, assessment)
}

func (h *Handler) ListMedications(c *gin.Context) {
	meds, err := h.service.ListActive(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, meds)
}

func (h *Handler) CheckOverlaps(c *gin.Context) {
	overlaps, err := h.service.CheckOverlaps(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{
		"overlaps":    overlaps,
		"has_overlap": len(overlaps) > 0,
	})
}

func (h *Handler) GetMedication(c *gin.Context) {
	id, ok := medicationID(c)
	if !ok {
		return
	}
	med, err := h.service.Get(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, med)
}

func (h *Handler) DeactivateMedication(c *gin.Context) {
	id, ok := medicationID(c)
	if !ok {
		return
	}
	if err := h.service.Deactivate(c.Request.Context(), middleware.UserID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ConcentrationCurve(c *gin.Context) {
	id, ok := medicationID(c)
	if !ok {
		return
	}
	cycles := 0
	if v := c.Query("cycles"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("cycles must be an integer", err))
			return
		}
		cycles = n
	}

	samples, err := h.service.ConcentrationCurve(c.Request.Context(), middleware.UserID(c), id, cycles)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, samples)
}

func (h *Handler) LogDose(c *gin.Context) {
	id, ok := medicationID(c)
	if !ok {
		return
	}
	var req medicationService.LogDoseRequest
	// an empty body logs a taken dose
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
			return
		}
	}

	log, err := h.service.LogDose(c.Request.Context(), middleware.UserID(c), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, log)
}

func (h *Handler) DoseHistory(c *gin.Context) {
	id, ok := medicationID(c)
	if !ok {
		return
	}
	logs, err := h.service.DoseHistory(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, logs)
}

func medicationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid medication ID", err))
		return uuid.Nil, false
	}
	return id, true
}
