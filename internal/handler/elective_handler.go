package handler

import (
	"net/http"

	"electivas/internal/middleware"
	"electivas/internal/model"
	"electivas/internal/service"
	"electivas/pkg/pagination"
	"electivas/pkg/response"

	"github.com/gin-gonic/gin"
)

type ElectiveHandler struct {
	electiveService service.ElectiveService
	quotaLedger     service.QuotaLedger
	reportService   service.ReportService
}

func NewElectiveHandler(electiveService service.ElectiveService, quotaLedger service.QuotaLedger, reportService service.ReportService) *ElectiveHandler {
	return &ElectiveHandler{
		electiveService: electiveService,
		quotaLedger:     quotaLedger,
		reportService:   reportService,
	}
}

func (h *ElectiveHandler) RegisterRoutes(router *gin.RouterGroup) {
	electives := router.Group("/api/electives")
	{
		electives.GET("", middleware.RequireRole(), h.ListElectives)
		electives.GET("/:id", middleware.RequireRole(), h.GetElective)
		electives.GET("/:id/availability", middleware.RequireRole(), h.GetAvailability)
		electives.POST("", middleware.RequireRole(model.RoleProfesor, model.RoleJefe), h.ProposeElective)

		jefe := electives.Group("", middleware.RequireRole(model.RoleJefe))
		jefe.PUT("/:id/approve", h.ApproveElective)
		jefe.PUT("/:id/reject", h.RejectElective)
		jefe.PUT("/:id/quotas", h.DistributeQuotas)
		jefe.GET("/:id/requests", h.ListRequests)
	}
}

// ProposeElective registers a new elective awaiting review
// @Summary      Propose elective
// @Tags         electives
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.ProposeElectiveRequest  true  "Elective"
// @Success      201      {object}  response.Response{data=service.ElectiveResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/electives [post]
func (h *ElectiveHandler) ProposeElective(c *gin.Context) {
	var req service.ProposeElectiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	elective, err := h.electiveService.Propose(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, elective))
}

// ListElectives returns electives, optionally filtered by approval state
// @Summary      List electives
// @Tags         electives
// @Security     BearerAuth
// @Produce      json
// @Param        state  query     string  false  "PENDIENTE, APROBADO or RECHAZADO"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=[]service.ElectiveResponse}
// @Router       /api/electives [get]
func (h *ElectiveHandler) ListElectives(c *gin.Context) {
	params := pagination.Parse(c)

	electives, total, err := h.electiveService.ListElectives(c.Request.Context(), c.Query("state"), params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, electives, pagination.NewMeta(params, total)))
}

// GetElective returns one elective
// @Summary      Get elective
// @Tags         electives
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Elective ID"
// @Success      200  {object}  response.Response{data=service.ElectiveResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/electives/{id} [get]
func (h *ElectiveHandler) GetElective(c *gin.Context) {
	elective, err := h.electiveService.GetElective(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, elective))
}

// ApproveElective opens an elective for enrollment
// @Summary      Approve elective
// @Tags         electives
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Elective ID"
// @Success      200  {object}  response.Response{data=service.ElectiveResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/electives/{id}/approve [put]
func (h *ElectiveHandler) ApproveElective(c *gin.Context) {
	elective, err := h.electiveService.Approve(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, elective))
}

// RejectElective rejects a proposed elective
// @Summary      Reject elective
// @Tags         electives
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Elective ID"
// @Param        request  body      service.RejectElectiveRequest  true  "Reason"
// @Success      200      {object}  response.Response{data=service.ElectiveResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/electives/{id}/reject [put]
func (h *ElectiveHandler) RejectElective(c *gin.Context) {
	var req service.RejectElectiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	elective, err := h.electiveService.Reject(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, elective))
}

// DistributeQuotas sets the reserved seats per program
// @Summary      Distribute seats between programs
// @Tags         electives
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true  "Elective ID"
// @Param        request  body      service.DistributeQuotasRequest  true  "Allocations"
// @Success      200      {object}  response.Response{data=[]service.QuotaAvailabilityResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/electives/{id}/quotas [put]
func (h *ElectiveHandler) DistributeQuotas(c *gin.Context) {
	var req service.DistributeQuotasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	quotas, err := h.quotaLedger.Distribute(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, quotas))
}

// GetAvailability reports remaining seats per program, counting accepted requests only
// @Summary      Seat availability
// @Tags         electives
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Elective ID"
// @Success      200  {object}  response.Response{data=[]service.QuotaAvailabilityResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/electives/{id}/availability [get]
func (h *ElectiveHandler) GetAvailability(c *gin.Context) {
	availability, err := h.reportService.ListQuotaAvailability(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, availability))
}

// ListRequests returns the review queue of an elective
// @Summary      List requests for an elective
// @Tags         electives
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Elective ID"
// @Param        state  query     string  false  "Request state filter"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=[]service.EnrollmentRequestResponse}
// @Router       /api/electives/{id}/requests [get]
func (h *ElectiveHandler) ListRequests(c *gin.Context) {
	params := pagination.Parse(c)

	requests, total, err := h.reportService.ListRequestsByElective(c.Request.Context(), c.Param("id"), c.Query("state"), params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, requests, pagination.NewMeta(params, total)))
}
