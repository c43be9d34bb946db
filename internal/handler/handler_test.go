package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"electivas/internal/apperror"
	"electivas/internal/middleware"
	"electivas/internal/model"
	"electivas/internal/service"
	"electivas/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	middleware.InitAuth(testSecret)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func token(t *testing.T, sub string, role model.Role) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": string(role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func do(t *testing.T, r *gin.Engine, method, path, bearer string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var res response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return rec, res
}

// --- stubs ---

type stubEnrollments struct {
	service.EnrollmentService
	submit  func(studentID string, req service.SubmitEnrollmentRequest) (service.AdmissionResult, error)
	student string
}

func (s *stubEnrollments) Submit(_ context.Context, studentID string, req service.SubmitEnrollmentRequest) (service.AdmissionResult, error) {
	s.student = studentID
	return s.submit(studentID, req)
}

type stubPeriods struct {
	service.PeriodService
	current *model.AcademicPeriod
	created int
}

func (s *stubPeriods) Current(context.Context) (*model.AcademicPeriod, error) {
	return s.current, nil
}

func (s *stubPeriods) CreatePeriod(_ context.Context, _ string, req service.CreatePeriodRequest) (service.PeriodResponse, error) {
	s.created++
	return service.PeriodResponse{Name: req.Name, StartDate: req.StartDate, EndDate: req.EndDate}, nil
}

func enrollmentRouter(enrollments service.EnrollmentService) *gin.Engine {
	r := gin.New()
	NewEnrollmentHandler(enrollments, nil, nil).RegisterRoutes(&r.RouterGroup)
	return r
}

func TestSubmitRequest(t *testing.T) {
	studentID := uuid.NewString()
	electiveID := uuid.NewString()
	body := service.SubmitEnrollmentRequest{ElectiveID: electiveID, Priority: 1}

	t.Run("admitted", func(t *testing.T) {
		stub := &stubEnrollments{submit: func(_ string, req service.SubmitEnrollmentRequest) (service.AdmissionResult, error) {
			return service.AdmissionResult{
				Request: service.EnrollmentRequestResponse{ElectiveID: req.ElectiveID, State: string(model.RequestPendiente)},
				Outcome: service.OutcomeAdmitted,
			}, nil
		}}
		rec, res := do(t, enrollmentRouter(stub), http.MethodPost, "/api/enrollments", token(t, studentID, model.RoleEstudiante), body)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "success", res.Status)
		assert.Equal(t, studentID, stub.student)
		data := res.Data.(map[string]interface{})
		assert.Equal(t, string(service.OutcomeAdmitted), data["outcome"])
	})

	errorCases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", apperror.Validation(service.ReasonPriorityNotPositive), http.StatusBadRequest, service.ReasonPriorityNotPositive},
		{"not found", apperror.NotFound(service.ReasonElectiveNotFound), http.StatusNotFound, service.ReasonElectiveNotFound},
		{"conflict", apperror.Conflict(service.ReasonDuplicateRequest), http.StatusConflict, service.ReasonDuplicateRequest},
		{"ineligible", apperror.Ineligible(service.ReasonNoActivePeriod), http.StatusUnprocessableEntity, service.ReasonNoActivePeriod},
		{"infrastructure", errors.New("database error: connection reset"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubEnrollments{submit: func(string, service.SubmitEnrollmentRequest) (service.AdmissionResult, error) {
				return service.AdmissionResult{}, tc.err
			}}
			rec, res := do(t, enrollmentRouter(stub), http.MethodPost, "/api/enrollments", token(t, studentID, model.RoleEstudiante), body)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "error", res.Status)
			assert.Equal(t, tc.msg, res.Error)
		})
	}

	t.Run("malformed elective id never reaches the service", func(t *testing.T) {
		stub := &stubEnrollments{submit: func(string, service.SubmitEnrollmentRequest) (service.AdmissionResult, error) {
			t.Fatal("service called")
			return service.AdmissionResult{}, nil
		}}
		rec, res := do(t, enrollmentRouter(stub), http.MethodPost, "/api/enrollments", token(t, studentID, model.RoleEstudiante),
			service.SubmitEnrollmentRequest{ElectiveID: "abc", Priority: 1})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, res.Error, "elective_id")
	})
}

func TestRequireRole(t *testing.T) {
	stub := &stubEnrollments{submit: func(string, service.SubmitEnrollmentRequest) (service.AdmissionResult, error) {
		return service.AdmissionResult{}, nil
	}}
	r := enrollmentRouter(stub)
	body := service.SubmitEnrollmentRequest{ElectiveID: uuid.NewString(), Priority: 1}

	rec, _ := do(t, r, http.MethodPost, "/api/enrollments", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, r, http.MethodPost, "/api/enrollments", "not-a-jwt", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, r, http.MethodPost, "/api/enrollments", token(t, uuid.NewString(), model.RoleProfesor), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, r, http.MethodPost, "/api/enrollments", token(t, uuid.NewString(), model.Role("ADMIN")), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, r, http.MethodPost, "/api/enrollments", token(t, "", model.RoleEstudiante), body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPeriodRoutes(t *testing.T) {
	stub := &stubPeriods{}
	r := gin.New()
	NewPeriodHandler(stub).RegisterRoutes(&r.RouterGroup)
	jefe := token(t, uuid.NewString(), model.RoleJefe)

	rec, res := do(t, r, http.MethodGet, "/api/periods/current", token(t, uuid.NewString(), model.RoleEstudiante), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, service.ReasonNoActivePeriod, res.Error)

	rec, res = do(t, r, http.MethodPost, "/api/periods", jefe, service.CreatePeriodRequest{Name: "2025-1", StartDate: "2025-03-01", EndDate: "31-03-2025"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "start_date must be a valid date in dd-mm-yyyy format", res.Error)
	assert.Zero(t, stub.created)

	rec, _ = do(t, r, http.MethodPost, "/api/periods", jefe, service.CreatePeriodRequest{Name: "2025-1", StartDate: "01-03-2025", EndDate: "31-03-2025"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, stub.created)

	rec, _ = do(t, r, http.MethodPost, "/api/periods", token(t, uuid.NewString(), model.RoleProfesor), service.CreatePeriodRequest{Name: "2025-1", StartDate: "01-03-2025", EndDate: "31-03-2025"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
