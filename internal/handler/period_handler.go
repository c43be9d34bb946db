package handler

import (
	"net/http"

	"electivas/internal/middleware"
	"electivas/internal/model"
	"electivas/internal/service"
	"electivas/pkg/response"

	"github.com/gin-gonic/gin"
)

type PeriodHandler struct {
	periodService service.PeriodService
}

func NewPeriodHandler(periodService service.PeriodService) *PeriodHandler {
	return &PeriodHandler{periodService: periodService}
}

func (h *PeriodHandler) RegisterRoutes(router *gin.RouterGroup) {
	periods := router.Group("/api/periods")
	{
		periods.GET("", middleware.RequireRole(), h.ListPeriods)
		periods.GET("/current", middleware.RequireRole(), h.GetCurrentPeriod)
		periods.GET("/:id", middleware.RequireRole(), h.GetPeriod)

		admin := periods.Group("", middleware.RequireRole(model.RoleJefe))
		admin.POST("", h.CreatePeriod)
		admin.PUT("/:id/state", h.ChangeState)
		admin.PUT("/:id/archive", h.ArchivePeriod)
		admin.DELETE("/:id", h.PurgePeriod)
	}
}

// CreatePeriod opens a new academic period in PLANIFICACION
// @Summary      Create academic period
// @Description  Dates are dd-mm-yyyy. Only one active period may be in PLANIFICACION or INSCRIPCION.
// @Tags         periods
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreatePeriodRequest  true  "Period"
// @Success      201      {object}  response.Response{data=service.PeriodResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/periods [post]
func (h *PeriodHandler) CreatePeriod(c *gin.Context) {
	var req service.CreatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	period, err := h.periodService.CreatePeriod(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, period))
}

// ChangeState moves a period through its lifecycle
// @Summary      Change period state
// @Tags         periods
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Period ID"
// @Param        request  body      service.ChangePeriodStateRequest  true  "Target state"
// @Success      200      {object}  response.Response{data=service.PeriodResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/periods/{id}/state [put]
func (h *PeriodHandler) ChangeState(c *gin.Context) {
	var req service.ChangePeriodStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	period, err := h.periodService.ChangeState(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.State)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, period))
}

// ArchivePeriod closes a period permanently
// @Summary      Archive period
// @Tags         periods
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Period ID"
// @Success      200  {object}  response.Response{data=service.PeriodResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/periods/{id}/archive [put]
func (h *PeriodHandler) ArchivePeriod(c *gin.Context) {
	period, err := h.periodService.Archive(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, period))
}

// PurgePeriod deletes an archived period
// @Summary      Purge archived period
// @Tags         periods
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Period ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/periods/{id} [delete]
func (h *PeriodHandler) PurgePeriod(c *gin.Context) {
	if err := h.periodService.Purge(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Period purged successfully"}))
}

// ListPeriods returns every period, active ones first
// @Summary      List periods
// @Tags         periods
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.PeriodResponse}
// @Router       /api/periods [get]
func (h *PeriodHandler) ListPeriods(c *gin.Context) {
	periods, err := h.periodService.ListPeriods(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, periods))
}

// GetCurrentPeriod returns the period currently open for enrollment
// @Summary      Current enrollment period
// @Tags         periods
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.PeriodResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/periods/current [get]
func (h *PeriodHandler) GetCurrentPeriod(c *gin.Context) {
	period, err := h.periodService.Current(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if period == nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, service.ReasonNoActivePeriod))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToPeriodResponse(*period)))
}

// GetPeriod returns one period
// @Summary      Get period
// @Tags         periods
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Period ID"
// @Success      200  {object}  response.Response{data=service.PeriodResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/periods/{id} [get]
func (h *PeriodHandler) GetPeriod(c *gin.Context) {
	period, err := h.periodService.GetPeriod(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, period))
}
