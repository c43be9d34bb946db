package service

import (
	"context"
	"fmt"
	"strings"

	"electivas/internal/apperror"
	"electivas/internal/model"
	"electivas/internal/repository"
)

type RejectEnrollmentRequest struct {
	Reason string `json:"reason"`
}

// ReviewService carries the department head's decisions on submitted requests.
type ReviewService interface {
	Approve(ctx context.Context, userID string, requestID string) (EnrollmentRequestResponse, error)
	Reject(ctx context.Context, userID string, requestID string, reason string) (EnrollmentRequestResponse, error)
	// PromoteFromWaitlist moves a waitlisted request back into the review queue.
	// It never pushes the program's admission occupancy past its reservation.
	PromoteFromWaitlist(ctx context.Context, userID string, requestID string) (EnrollmentRequestResponse, error)
}

type reviewService struct {
	ledger         QuotaLedger
	userRepo       repository.UserRepository
	enrollmentRepo repository.EnrollmentRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	notifier       Notifier
	now            Clock
}

func NewReviewService(
	ledger QuotaLedger,
	userRepo repository.UserRepository,
	enrollmentRepo repository.EnrollmentRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
	clock Clock,
) ReviewService {
	return &reviewService{
		ledger:         ledger,
		userRepo:       userRepo,
		enrollmentRepo: enrollmentRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		notifier:       notifierOrNop(notifier),
		now:            clock,
	}
}

func (s *reviewService) Approve(ctx context.Context, userID string, requestID string) (EnrollmentRequestResponse, error) {
	res, err := s.transition(ctx, userID, requestID, model.RequestAceptado, model.ActionApproveEnrollment, "", nil)
	if err != nil {
		return EnrollmentRequestResponse{}, err
	}
	s.ledger.Broadcast(ctx, res.ElectiveID)
	return toEnrollmentResponse(*res), nil
}

func (s *reviewService) Reject(ctx context.Context, userID string, requestID string, reason string) (EnrollmentRequestResponse, error) {
	res, err := s.transition(ctx, userID, requestID, model.RequestRechazado, model.ActionRejectEnrollment, strings.TrimSpace(reason), nil)
	if err != nil {
		return EnrollmentRequestResponse{}, err
	}
	return toEnrollmentResponse(*res), nil
}

func (s *reviewService) PromoteFromWaitlist(ctx context.Context, userID string, requestID string) (EnrollmentRequestResponse, error) {
	res, err := s.transition(ctx, userID, requestID, model.RequestPendiente, model.ActionPromoteWaitlist, "", s.reserveSeat)
	if err != nil {
		return EnrollmentRequestResponse{}, err
	}
	return toEnrollmentResponse(*res), nil
}

// reserveSeat locks the student's quota bucket and fails when it is already full.
func (s *reviewService) reserveSeat(ctx context.Context, req *model.EnrollmentRequest) error {
	student, err := s.userRepo.GetByID(ctx, req.StudentID)
	if err != nil {
		return lookupErr(err, "student not found")
	}
	if student.ProgramID == nil {
		return apperror.Ineligible(ReasonNoProgram)
	}
	seats, err := s.ledger.Lock(ctx, req.ElectiveID, *student.ProgramID)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return apperror.Ineligible("no seats assigned for the student's program in this elective")
		}
		return err
	}
	if !seats.HasRoom() {
		return apperror.Conflict("no seats available for the student's program (%d of %d occupied)", seats.Occupied, seats.Reserved)
	}
	return nil
}

func (s *reviewService) transition(
	ctx context.Context,
	userID string,
	requestID string,
	next model.RequestState,
	action string,
	reason string,
	guard func(context.Context, *model.EnrollmentRequest) error,
) (*model.EnrollmentRequest, error) {
	rid, err := parseID(requestID, "request id")
	if err != nil {
		return nil, err
	}

	var request *model.EnrollmentRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.enrollmentRepo.FindByIDForUpdate(txCtx, rid)
		if err != nil {
			return lookupErr(err, "request not found")
		}
		request = found
		previous := request.State

		if !previous.CanTransitionTo(next) {
			return apperror.Conflict("request is %s and cannot move to %s", previous, next)
		}
		if guard != nil {
			if err := guard(txCtx, request); err != nil {
				return err
			}
		}

		now := s.now()
		request.State = next
		request.ReviewedBy = actorID(userID)
		request.ReviewedAt = &now
		request.RejectionReason = reason
		if err := s.enrollmentRepo.Update(txCtx, request); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, actorID(userID), action, request.ID.String(), "", map[string]interface{}{
			"from":        previous,
			"to":          next,
			"elective_id": request.ElectiveID.String(),
			"reason":      reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(EventRequestUpdated, toRequestEvent(*request, string(request.State)))
	return request, nil
}
