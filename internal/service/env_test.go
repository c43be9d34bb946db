package service

import (
	"testing"
	"time"

	"electivas/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var bogota = time.FixedZone("COT", -5*3600)

type testEnv struct {
	t     *testing.T
	store *memStore
	now   time.Time

	enrollmentRepo *memEnrollmentRepo
	notifier       *recordingNotifier

	periods     PeriodService
	electives   ElectiveService
	ledger      QuotaLedger
	enrollments EnrollmentService
	reviews     ReviewService
	reports     ReportService
	audit       AuditService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	env := &testEnv{
		t:        t,
		store:    store,
		now:      time.Date(2025, 3, 10, 9, 0, 0, 0, bogota),
		notifier: &recordingNotifier{},
	}
	clock := func() time.Time { return env.now }

	tx := &memTxManager{store: store}
	periodRepo := &memPeriodRepo{s: store}
	electiveRepo := &memElectiveRepo{s: store}
	quotaRepo := &memQuotaRepo{s: store}
	userRepo := &memUserRepo{s: store}
	programRepo := &memProgramRepo{s: store}
	auditRepo := &memAuditRepo{s: store}
	env.enrollmentRepo = &memEnrollmentRepo{s: store}

	env.periods = NewPeriodService(periodRepo, auditRepo, tx, env.notifier, clock)
	env.electives = NewElectiveService(electiveRepo, auditRepo, tx, clock)
	env.ledger = NewQuotaLedger(quotaRepo, electiveRepo, programRepo, auditRepo, tx, env.notifier)
	env.enrollments = NewEnrollmentService(env.periods, env.ledger, electiveRepo, userRepo, env.enrollmentRepo, auditRepo, tx, env.notifier, clock)
	env.reviews = NewReviewService(env.ledger, userRepo, env.enrollmentRepo, auditRepo, tx, env.notifier, clock)
	env.reports = NewReportService(env.ledger, electiveRepo, env.enrollmentRepo)
	env.audit = NewAuditService(auditRepo)
	return env
}

func (e *testEnv) date(s string) datatypes.Date {
	e.t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(e.t, err)
	return datatypes.Date(d)
}

func (e *testEnv) seedPeriod(name string, state model.PeriodState, start, end string, active bool) model.AcademicPeriod {
	p := model.AcademicPeriod{
		ID:        uuid.New(),
		Name:      name,
		StartDate: e.date(start),
		EndDate:   e.date(end),
		State:     state,
		Active:    active,
	}
	e.store.periods[p.ID] = p
	return p
}

// seedOpenPeriod seeds an active INSCRIPCION period that contains env.now.
func (e *testEnv) seedOpenPeriod() model.AcademicPeriod {
	return e.seedPeriod("2025-1", model.PeriodInscripcion, "01-03-2025", "31-03-2025", true)
}

func (e *testEnv) seedElective(name string, state model.ElectiveState, seats int) model.Elective {
	el := model.Elective{
		ID:            uuid.New(),
		Name:          name,
		Description:   name + " description",
		Credits:       decimal.NewFromInt(3),
		TotalSeats:    seats,
		ProfessorName: "Prof. Rojas",
		State:         state,
		CreatedAt:     e.now,
	}
	e.store.electives[el.ID] = el
	return el
}

func (e *testEnv) seedProgram(code string) model.Program {
	p := model.Program{ID: uuid.New(), Code: code, Name: "Program " + code}
	e.store.programs[p.ID] = p
	return p
}

func (e *testEnv) seedStudent(program *model.Program) model.User {
	id := uuid.New()
	u := model.User{
		ID:       id,
		Username: "student-" + id.String()[:8],
		FullName: "Student " + id.String()[:8],
		Email:    id.String()[:8] + "@example.edu",
		Role:     model.RoleEstudiante,
	}
	if program != nil {
		pid := program.ID
		u.ProgramID = &pid
	}
	e.store.users[u.ID] = u
	return u
}

func (e *testEnv) seedQuota(elective model.Elective, program model.Program, reserved int) model.ProgramQuota {
	q := model.ProgramQuota{
		ID:            uuid.New(),
		ElectiveID:    elective.ID,
		ProgramID:     program.ID,
		ReservedSeats: reserved,
		CreatedAt:     time.Now(),
	}
	e.store.quotas[q.ID] = q
	return q
}

func (e *testEnv) seedRequest(student model.User, elective model.Elective, priority int, state model.RequestState) model.EnrollmentRequest {
	r := model.EnrollmentRequest{
		ID:          uuid.New(),
		StudentID:   student.ID,
		ElectiveID:  elective.ID,
		Priority:    priority,
		State:       state,
		SubmittedAt: e.now,
	}
	e.store.requests[r.ID] = r
	return r
}

func (e *testEnv) requestCount() int {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return len(e.store.requests)
}

func (e *testEnv) auditCount() int {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return len(e.store.audits)
}
