package handler

import (
	"net/http"

	"electivas/internal/middleware"
	"electivas/internal/model"
	"electivas/internal/service"
	"electivas/pkg/response"

	"github.com/gin-gonic/gin"
)

type EnrollmentHandler struct {
	enrollmentService service.EnrollmentService
	reviewService     service.ReviewService
	reportService     service.ReportService
}

func NewEnrollmentHandler(enrollmentService service.EnrollmentService, reviewService service.ReviewService, reportService service.ReportService) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollmentService: enrollmentService,
		reviewService:     reviewService,
		reportService:     reportService,
	}
}

func (h *EnrollmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	enrollments := router.Group("/api/enrollments")
	{
		student := enrollments.Group("", middleware.RequireRole(model.RoleEstudiante))
		student.POST("", h.SubmitRequest)
		student.GET("/me", h.ListMyRequests)
		student.DELETE("/:id", h.WithdrawRequest)

		jefe := enrollments.Group("", middleware.RequireRole(model.RoleJefe))
		jefe.PUT("/:id/approve", h.ApproveRequest)
		jefe.PUT("/:id/reject", h.RejectRequest)
		jefe.PUT("/:id/promote", h.PromoteRequest)
	}
}

// SubmitRequest asks for a seat in an elective
// @Summary      Submit enrollment request
// @Description  Admits the request (PENDIENTE) while the program has seats, otherwise waitlists it (LISTA_ESPERA).
// @Tags         enrollments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.SubmitEnrollmentRequest  true  "Elective and priority"
// @Success      201      {object}  response.Response{data=service.AdmissionResult}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/enrollments [post]
func (h *EnrollmentHandler) SubmitRequest(c *gin.Context) {
	var req service.SubmitEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	result, err := h.enrollmentService.Submit(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListMyRequests returns the caller's requests, newest first
// @Summary      My enrollment requests
// @Tags         enrollments
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.EnrollmentRequestResponse}
// @Router       /api/enrollments/me [get]
func (h *EnrollmentHandler) ListMyRequests(c *gin.Context) {
	requests, err := h.reportService.ListRequestsByStudent(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, requests))
}

// WithdrawRequest deletes one of the caller's requests while enrollment is open
// @Summary      Withdraw enrollment request
// @Tags         enrollments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/enrollments/{id} [delete]
func (h *EnrollmentHandler) WithdrawRequest(c *gin.Context) {
	if err := h.enrollmentService.Withdraw(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Request withdrawn successfully"}))
}

// ApproveRequest accepts a pending request
// @Summary      Approve enrollment request
// @Tags         enrollments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.EnrollmentRequestResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/enrollments/{id}/approve [put]
func (h *EnrollmentHandler) ApproveRequest(c *gin.Context) {
	result, err := h.reviewService.Approve(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// RejectRequest rejects a pending request
// @Summary      Reject enrollment request
// @Tags         enrollments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true   "Request ID"
// @Param        request  body      service.RejectEnrollmentRequest  false  "Reason"
// @Success      200      {object}  response.Response{data=service.EnrollmentRequestResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/enrollments/{id}/reject [put]
func (h *EnrollmentHandler) RejectRequest(c *gin.Context) {
	var req service.RejectEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// reason is optional
		req.Reason = ""
	}

	result, err := h.reviewService.Reject(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// PromoteRequest moves a waitlisted request back into review
// @Summary      Promote from waitlist
// @Tags         enrollments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.EnrollmentRequestResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/enrollments/{id}/promote [put]
func (h *EnrollmentHandler) PromoteRequest(c *gin.Context) {
	result, err := h.reviewService.PromoteFromWaitlist(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
