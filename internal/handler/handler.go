package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/BarkinBalci/registration-analytics-service/docs"
	"github.com/BarkinBalci/registration-analytics-service/internal/dto"
	"github.com/BarkinBalci/registration-analytics-service/internal/engine"
	"github.com/BarkinBalci/registration-analytics-service/internal/query"
	"github.com/BarkinBalci/registration-analytics-service/internal/service"
)

type Handler struct {
	registrationService service.RegistrationServicer
	metricsService      service.MetricsServicer
	prometheus          http.Handler
	router              *gin.Engine
	log                 *zap.Logger
}

// NewHandler creates the HTTP API. registrationService may be nil when no ingestion queue is configured.
func NewHandler(registrationService service.RegistrationServicer, metricsService service.MetricsServicer, prometheus http.Handler, log *zap.Logger) *Handler {
	h := &Handler{
		registrationService: registrationService,
		metricsService:      metricsService,
		prometheus:          prometheus,
		router:              gin.Default(),
		log:                 log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	if h.prometheus != nil {
		h.router.GET("/prometheus", gin.WrapH(h.prometheus))
	}
	h.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := h.router.Group("/v1")
	v1.GET("/metrics", h.getMetrics)
	v1.GET("/quality", h.getQualityReport)
	v1.GET("/participants", h.getParticipants)
	v1.POST("/snapshots", h.reloadSnapshot)
	if h.registrationService != nil {
		v1.POST("/registrations", h.publishRegistration)
		v1.POST("/registrations/bulk", h.publishRegistrationsBulk)
	}
}

// writeError maps service errors onto status codes
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, query.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_filter", Message: err.Error()})
	case errors.Is(err, service.ErrInvalidRegistration):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "validation_error", Message: err.Error()})
	case errors.Is(err, engine.ErrNoSnapshot):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "no_snapshot", Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal_error", Message: err.Error()})
	}
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// getMetrics handles GET /v1/metrics
// @Summary Query registration metrics
// @Description Aggregate the active snapshot over a day range, grouped by dimensions and at most one time granularity
// @Tags metrics
// @Produce json
// @Param from query string false "First day, inclusive (YYYY-MM-DD)" example:"2026-01-01"
// @Param to query string false "Last day, inclusive (YYYY-MM-DD)" example:"2026-01-31"
// @Param group_by query string false "Comma separated dimensions plus optional day, week, month or weekday" example:"month,category"
// @Param category query []string false "Category filter" collectionFormat(multi)
// @Param region query []string false "Region filter" collectionFormat(multi)
// @Param status query []string false "Status filter" collectionFormat(multi)
// @Param event query []string false "Event filter" collectionFormat(multi)
// @Param distance query []string false "Distance filter" collectionFormat(multi)
// @Param gender query []string false "Gender filter" collectionFormat(multi)
// @Param age_group query []string false "Age group filter" collectionFormat(multi)
// @Param price_tier query []string false "Price tier filter" collectionFormat(multi)
// @Param top query int false "Keep only the first N rows" example:"10"
// @Param sort query string false "Row order before truncation" Enums(count_desc)
// @Success 200 {object} dto.GetMetricsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/metrics [get]
func (h *Handler) getMetrics(c *gin.Context) {
	var req dto.GetMetricsRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid metrics request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	response, err := h.metricsService.GetMetrics(c.Request.Context(), &req)
	if err != nil {
		if !errors.Is(err, query.ErrInvalidFilter) {
			h.log.Error("Failed to get metrics",
				zap.Error(err),
				zap.String("group_by", req.GroupBy),
				zap.String("from", req.From),
				zap.String("to", req.To))
		}
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// getQualityReport handles GET /v1/quality
// @Summary Data-quality report
// @Description Rejected, duplicate and accepted counts of the active snapshot
// @Tags snapshots
// @Produce json
// @Success 200 {object} dto.QualityReportResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/quality [get]
func (h *Handler) getQualityReport(c *gin.Context) {
	report, err := h.metricsService.GetQualityReport(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// reloadSnapshot handles POST /v1/snapshots
// @Summary Rebuild the snapshot
// @Description Reload every registration from the configured source and make the new snapshot active
// @Tags snapshots
// @Produce json
// @Success 201 {object} dto.QualityReportResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/snapshots [post]
func (h *Handler) reloadSnapshot(c *gin.Context) {
	report, err := h.metricsService.ReloadSnapshot(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to reload snapshot", zap.Error(err))
		h.writeError(c, err)
		return
	}

	h.log.Info("Snapshot reloaded",
		zap.String("source", report.Source),
		zap.Int64("snapshot_version", report.SnapshotVersion),
		zap.Int("accepted", report.Accepted))

	c.JSON(http.StatusCreated, report)
}

// publishRegistration handles POST /v1/registrations
// @Summary Publish a single registration
// @Description Validate a registration and publish it to the ingestion queue
// @Tags registrations
// @Accept json
// @Produce json
// @Param registration body dto.RegistrationRequest true "Registration data"
// @Success 202 {object} dto.PublishRegistrationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/registrations [post]
func (h *Handler) publishRegistration(c *gin.Context) {
	var req dto.RegistrationRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid registration request",
			zap.Error(err),
			zap.String("event_id", req.EventID))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	key, err := h.registrationService.ProcessRegistration(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to process registration",
			zap.Error(err),
			zap.String("event_id", req.EventID),
			zap.String("registrant_id", req.RegistrantID))
		h.writeError(c, err)
		return
	}

	h.log.Info("Registration accepted",
		zap.String("registration_key", key),
		zap.String("event_id", req.EventID))

	c.JSON(http.StatusAccepted, dto.PublishRegistrationResponse{
		RegistrationKey: key,
		Status:          "accepted",
	})
}

// publishRegistrationsBulk handles POST /v1/registrations/bulk
// @Summary Publish multiple registrations
// @Description Validate and publish up to 1000 registrations; failures are reported per registration
// @Tags registrations
// @Accept json
// @Produce json
// @Param registrations body dto.PublishRegistrationsBulkRequest true "Bulk registration data"
// @Success 202 {object} dto.PublishBulkRegistrationsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/registrations/bulk [post]
func (h *Handler) publishRegistrationsBulk(c *gin.Context) {
	var bulkRequest dto.PublishRegistrationsBulkRequest

	if err := c.ShouldBindJSON(&bulkRequest); err != nil {
		h.log.Warn("Invalid bulk registration request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	keys, errs, err := h.registrationService.ProcessBulkRegistrations(c.Request.Context(), bulkRequest.Registrations)
	if err != nil {
		h.log.Error("Failed to process bulk registrations",
			zap.Error(err),
			zap.Int("registration_count", len(bulkRequest.Registrations)))
		h.writeError(c, err)
		return
	}

	h.log.Info("Bulk registrations processed",
		zap.Int("accepted", len(keys)),
		zap.Int("rejected", len(errs)),
		zap.Int("total", len(bulkRequest.Registrations)))

	c.JSON(http.StatusAccepted, dto.PublishBulkRegistrationsResponse{
		Accepted:         len(keys),
		Rejected:         len(errs),
		RegistrationKeys: keys,
		Errors:           errs,
	})
}

// getParticipants handles GET /v1/participants
// @Summary Participant insights
// @Description List registrants inactive for more than inactive_days and the registrants with the fewest registrations
// @Tags metrics
// @Produce json
// @Param inactive_days query int false "Inactivity threshold in whole days" example:"180"
// @Param limit query int false "Maximum rows per list, 1 to 5000" example:"500"
// @Param as_of query string false "Reference day (YYYY-MM-DD), defaults to today" example:"2026-02-01"
// @Success 200 {object} dto.GetParticipantsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/participants [get]
func (h *Handler) getParticipants(c *gin.Context) {
	var req dto.GetParticipantsRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid participants request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	response, err := h.metricsService.GetParticipants(c.Request.Context(), &req)
	if err != nil {
		if !errors.Is(err, query.ErrInvalidFilter) {
			h.log.Error("Failed to get participants", zap.Error(err))
		}
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
