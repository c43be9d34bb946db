package service

import (
	"context"
	"fmt"
	"time"

	"electivas/internal/apperror"
	"electivas/internal/model"
	"electivas/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type SubmitEnrollmentRequest struct {
	ElectiveID string `json:"elective_id" binding:"required,uuid"`
	Priority   int    `json:"priority"`
}

type ElectiveSnapshot struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Credits     string `json:"credits"`
	TotalSeats  int    `json:"total_seats"`
	State       string `json:"state"`
}

type StudentSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	ProgramCode string `json:"program_code,omitempty"`
}

type EnrollmentRequestResponse struct {
	ID              string            `json:"id"`
	StudentID       string            `json:"student_id"`
	ElectiveID      string            `json:"elective_id"`
	Priority        int               `json:"priority"`
	State           string            `json:"state"`
	SubmittedAt     string            `json:"submitted_at"`
	ReviewedAt      *string           `json:"reviewed_at,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	Elective        *ElectiveSnapshot `json:"elective,omitempty"`
	Student         *StudentSummary   `json:"student,omitempty"`
}

// Outcome distinguishes the two successful admission decisions.
type Outcome string

const (
	OutcomeAdmitted   Outcome = "ADMITTED"
	OutcomeWaitlisted Outcome = "WAITLISTED"
)

type AdmissionResult struct {
	Request   EnrollmentRequestResponse `json:"request"`
	Outcome   Outcome                   `json:"outcome"`
	Message   string                    `json:"message"`
	Reserved  int                       `json:"reserved"`
	Occupied  int                       `json:"occupied"`
	Available int                       `json:"available"`
}

// RequestUpdateEvent is published when a request is created, reviewed or withdrawn.
type RequestUpdateEvent struct {
	RequestID  string `json:"request_id"`
	StudentID  string `json:"student_id"`
	ElectiveID string `json:"elective_id"`
	State      string `json:"state"`
}

// Elective and Owner scope live delivery of the event.
func (e RequestUpdateEvent) Elective() string { return e.ElectiveID }
func (e RequestUpdateEvent) Owner() string    { return e.StudentID }

// StateWithdrawn marks a deleted request in RequestUpdateEvent.
const StateWithdrawn = "WITHDRAWN"

// Rejection reasons reported to the requesting student.
const (
	ReasonNoActivePeriod      = "no active enrollment period"
	ReasonPeriodNotStarted    = "enrollment period has not started yet"
	ReasonPeriodEnded         = "enrollment period has ended"
	ReasonElectiveNotFound    = "elective not found"
	ReasonElectiveNotOpen     = "elective is not approved for enrollment"
	ReasonNoProgram           = "no program assigned"
	ReasonNoQuota             = "no seats assigned for your program in this elective"
	ReasonDuplicateRequest    = "request already exists for this elective"
	ReasonPriorityNotPositive = "priority must be a positive integer"
	ReasonPriorityExceeds     = "priority exceeds available electives"
	ReasonPriorityUsed        = "priority already used"
)

// --- Interface ---

// EnrollmentService decides admission for new requests and lets students withdraw them.
type EnrollmentService interface {
	Submit(ctx context.Context, studentID string, req SubmitEnrollmentRequest) (AdmissionResult, error)
	Withdraw(ctx context.Context, studentID string, requestID string) error
}

type enrollmentService struct {
	periods        PeriodService
	ledger         QuotaLedger
	electiveRepo   repository.ElectiveRepository
	userRepo       repository.UserRepository
	enrollmentRepo repository.EnrollmentRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	notifier       Notifier
	now            Clock
}

func NewEnrollmentService(
	periods PeriodService,
	ledger QuotaLedger,
	electiveRepo repository.ElectiveRepository,
	userRepo repository.UserRepository,
	enrollmentRepo repository.EnrollmentRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
	clock Clock,
) EnrollmentService {
	return &enrollmentService{
		periods:        periods,
		ledger:         ledger,
		electiveRepo:   electiveRepo,
		userRepo:       userRepo,
		enrollmentRepo: enrollmentRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		notifier:       notifierOrNop(notifier),
		now:            clock,
	}
}

// --- Implementation ---

// Submit evaluates one request end to end. Rejections roll back and leave no record;
// admission and waitlisting both persist the request. The quota row stays locked from
// the occupancy count until commit, so concurrent submissions cannot overshoot it.
func (s *enrollmentService) Submit(ctx context.Context, studentID string, req SubmitEnrollmentRequest) (AdmissionResult, error) {
	sid, err := parseID(studentID, "student id")
	if err != nil {
		return AdmissionResult{}, err
	}
	eid, err := parseID(req.ElectiveID, "elective id")
	if err != nil {
		return AdmissionResult{}, err
	}

	var (
		result   AdmissionResult
		request  model.EnrollmentRequest
		elective *model.Elective
	)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		now := s.now()

		// 1. period window
		if err := s.checkEnrollmentOpen(txCtx, now); err != nil {
			return err
		}

		// 2. elective
		found, err := s.electiveRepo.FindByID(txCtx, eid)
		if err != nil {
			return lookupErr(err, ReasonElectiveNotFound)
		}
		elective = found
		if elective.State != model.ElectiveAprobado {
			return apperror.Ineligible(ReasonElectiveNotOpen)
		}

		// 3. program assignment
		student, err := s.userRepo.GetByID(txCtx, sid)
		if err != nil {
			return lookupErr(err, "student not found")
		}
		if student.ProgramID == nil {
			return apperror.Ineligible(ReasonNoProgram)
		}

		// 4-5. quota row, locked, and current occupancy
		seats, err := s.ledger.Lock(txCtx, elective.ID, *student.ProgramID)
		if err != nil {
			if apperror.Is(err, apperror.KindNotFound) {
				return apperror.Ineligible(ReasonNoQuota)
			}
			return err
		}

		// 6. duplicate
		exists, err := s.enrollmentRepo.ExistsForStudentElective(txCtx, sid, elective.ID)
		if err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if exists {
			return apperror.Conflict(ReasonDuplicateRequest)
		}

		// 7. priority
		if err := s.checkPriority(txCtx, sid, req.Priority); err != nil {
			return err
		}

		// 8. decision
		request = model.EnrollmentRequest{
			StudentID:   sid,
			ElectiveID:  elective.ID,
			Priority:    req.Priority,
			State:       model.RequestListaEspera,
			SubmittedAt: now,
		}
		outcome := OutcomeWaitlisted
		if seats.HasRoom() {
			request.State = model.RequestPendiente
			outcome = OutcomeAdmitted
			seats.Occupied++
		}

		if err := s.enrollmentRepo.Create(txCtx, &request); err != nil {
			return translateEnrollmentWrite(err)
		}

		result = AdmissionResult{
			Outcome:   outcome,
			Message:   admissionMessage(outcome, seats),
			Reserved:  seats.Reserved,
			Occupied:  seats.Occupied,
			Available: seats.Available(),
		}

		return writeAudit(txCtx, s.auditRepo, &sid, model.ActionSubmitEnrollment, request.ID.String(), elective.Name, map[string]interface{}{
			"priority": request.Priority,
			"state":    request.State,
			"reserved": seats.Reserved,
			"occupied": seats.Occupied,
		})
	})
	if err != nil {
		return AdmissionResult{}, err
	}

	request.Elective = elective
	result.Request = toEnrollmentResponse(request)
	s.notifier.Publish(EventRequestUpdated, toRequestEvent(request, string(request.State)))
	return result, nil
}

func (s *enrollmentService) checkEnrollmentOpen(ctx context.Context, now time.Time) error {
	period, err := s.periods.Current(ctx)
	if err != nil {
		return err
	}
	if period == nil || !period.Active || period.State != model.PeriodInscripcion {
		return apperror.Ineligible(ReasonNoActivePeriod)
	}
	today := model.DateOf(now)
	if today.Before(period.Start()) {
		return apperror.Ineligible(ReasonPeriodNotStarted)
	}
	if today.After(period.End()) {
		return apperror.Ineligible(ReasonPeriodEnded)
	}
	return nil
}

func (s *enrollmentService) checkPriority(ctx context.Context, studentID uuid.UUID, priority int) error {
	if priority <= 0 {
		return apperror.Validation(ReasonPriorityNotPositive)
	}
	approved, err := s.electiveRepo.CountByState(ctx, model.ElectiveAprobado)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if int64(priority) > approved {
		return apperror.Validation("%s (%d approved)", ReasonPriorityExceeds, approved)
	}
	taken, err := s.enrollmentRepo.PriorityTaken(ctx, studentID, priority)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if taken {
		return apperror.Conflict(ReasonPriorityUsed)
	}
	return nil
}

func (s *enrollmentService) Withdraw(ctx context.Context, studentID string, requestID string) error {
	sid, err := parseID(studentID, "student id")
	if err != nil {
		return err
	}
	rid, err := parseID(requestID, "request id")
	if err != nil {
		return err
	}

	var request *model.EnrollmentRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.enrollmentRepo.FindByIDForUpdate(txCtx, rid)
		if err != nil {
			return lookupErr(err, "request not found")
		}
		if found.StudentID != sid {
			return apperror.NotFound("request not found")
		}
		request = found

		// same window as Submit
		if err := s.checkEnrollmentOpen(txCtx, s.now()); err != nil {
			return err
		}

		if err := s.enrollmentRepo.Delete(txCtx, request.ID); err != nil {
			return fmt.Errorf("failed to withdraw request: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, &sid, model.ActionWithdrawEnrollment, request.ID.String(), "", map[string]interface{}{
			"elective_id": request.ElectiveID.String(),
			"priority":    request.Priority,
			"state":       request.State,
		})
	})
	if err != nil {
		return err
	}

	s.notifier.Publish(EventRequestUpdated, toRequestEvent(*request, StateWithdrawn))
	if request.State == model.RequestAceptado {
		s.ledger.Broadcast(ctx, request.ElectiveID)
	}
	return nil
}

// --- Helpers ---

func admissionMessage(outcome Outcome, seats Seats) string {
	if outcome == OutcomeAdmitted {
		return fmt.Sprintf("request submitted: %d seat(s) remaining for your program (%d of %d occupied)",
			seats.Available(), seats.Occupied, seats.Reserved)
	}
	return fmt.Sprintf("no seats left for your program (%d of %d occupied): request placed on the waitlist",
		seats.Occupied, seats.Reserved)
}

// translateEnrollmentWrite maps unique-index violations raced past the pre-checks onto their rejection reasons.
func translateEnrollmentWrite(err error) error {
	constraint, dup := repository.IsUniqueViolation(err)
	if !dup {
		return fmt.Errorf("failed to save request: %w", err)
	}
	switch constraint {
	case model.IndexStudentElective:
		return apperror.Wrap(apperror.KindConflict, err, ReasonDuplicateRequest)
	case model.IndexStudentPriority:
		return apperror.Wrap(apperror.KindConflict, err, ReasonPriorityUsed)
	default:
		return apperror.Wrap(apperror.KindConflict, err, "request conflicts with an existing one")
	}
}

func toEnrollmentResponse(r model.EnrollmentRequest) EnrollmentRequestResponse {
	res := EnrollmentRequestResponse{
		ID:              r.ID.String(),
		StudentID:       r.StudentID.String(),
		ElectiveID:      r.ElectiveID.String(),
		Priority:        r.Priority,
		State:           string(r.State),
		SubmittedAt:     formatTimestamp(r.SubmittedAt),
		ReviewedAt:      formatOptionalTimestamp(r.ReviewedAt),
		RejectionReason: r.RejectionReason,
	}
	if r.Elective != nil {
		res.Elective = &ElectiveSnapshot{
			Name:        r.Elective.Name,
			Description: r.Elective.Description,
			Credits:     r.Elective.Credits.String(),
			TotalSeats:  r.Elective.TotalSeats,
			State:       string(r.Elective.State),
		}
	}
	if r.Student != nil {
		res.Student = &StudentSummary{
			ID:       r.Student.ID.String(),
			Username: r.Student.Username,
			FullName: r.Student.FullName,
		}
		if r.Student.Program != nil {
			res.Student.ProgramCode = r.Student.Program.Code
		}
	}
	return res
}

func toRequestEvent(r model.EnrollmentRequest, state string) RequestUpdateEvent {
	return RequestUpdateEvent{
		RequestID:  r.ID.String(),
		StudentID:  r.StudentID.String(),
		ElectiveID: r.ElectiveID.String(),
		State:      state,
	}
}
