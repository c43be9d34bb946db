package service

import (
	"context"
	"fmt"
	"strings"

	"electivas/internal/apperror"
	"electivas/internal/model"
	"electivas/internal/repository"
)

// ReportService exposes read-only views over requests and seat availability.
type ReportService interface {
	ListRequestsByStudent(ctx context.Context, studentID string) ([]EnrollmentRequestResponse, error)
	ListQuotaAvailability(ctx context.Context, electiveID string) ([]QuotaAvailabilityResponse, error)
	ListRequestsByElective(ctx context.Context, electiveID string, state string, page, limit int) ([]EnrollmentRequestResponse, int64, error)
}

type reportService struct {
	ledger         QuotaLedger
	electiveRepo   repository.ElectiveRepository
	enrollmentRepo repository.EnrollmentRepository
}

func NewReportService(
	ledger QuotaLedger,
	electiveRepo repository.ElectiveRepository,
	enrollmentRepo repository.EnrollmentRepository,
) ReportService {
	return &reportService{
		ledger:         ledger,
		electiveRepo:   electiveRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

func (s *reportService) ListRequestsByStudent(ctx context.Context, studentID string) ([]EnrollmentRequestResponse, error) {
	sid, err := parseID(studentID, "student id")
	if err != nil {
		return nil, err
	}
	requests, err := s.enrollmentRepo.ListByStudent(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch requests: %w", err)
	}
	res := make([]EnrollmentRequestResponse, 0, len(requests))
	for _, r := range requests {
		res = append(res, toEnrollmentResponse(r))
	}
	return res, nil
}

// ListQuotaAvailability counts only accepted requests as occupied.
func (s *reportService) ListQuotaAvailability(ctx context.Context, electiveID string) ([]QuotaAvailabilityResponse, error) {
	eid, err := parseID(electiveID, "elective id")
	if err != nil {
		return nil, err
	}
	if _, err := s.electiveRepo.FindByID(ctx, eid); err != nil {
		return nil, lookupErr(err, "elective not found")
	}
	return s.ledger.ListAvailability(ctx, eid, model.PublishedStates)
}

func (s *reportService) ListRequestsByElective(ctx context.Context, electiveID string, state string, page, limit int) ([]EnrollmentRequestResponse, int64, error) {
	eid, err := parseID(electiveID, "elective id")
	if err != nil {
		return nil, 0, err
	}
	var filter model.RequestState
	if state != "" {
		parsed, ok := model.ParseRequestState(strings.ToUpper(state))
		if !ok {
			return nil, 0, apperror.Validation("invalid request state %q", state)
		}
		filter = parsed
	}
	if _, err := s.electiveRepo.FindByID(ctx, eid); err != nil {
		return nil, 0, lookupErr(err, "elective not found")
	}

	requests, total, err := s.enrollmentRepo.ListByElective(ctx, eid, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch requests: %w", err)
	}
	res := make([]EnrollmentRequestResponse, 0, len(requests))
	for _, r := range requests {
		res = append(res, toEnrollmentResponse(r))
	}
	return res, total, nil
}
