package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"electivas/internal/apperror"
	"electivas/internal/model"
	"electivas/internal/repository"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type ProposeElectiveRequest struct {
	Name          string          `json:"name" binding:"required"`
	Description   string          `json:"description"`
	Credits       decimal.Decimal `json:"credits" swaggertype:"string" example:"3"`
	TotalSeats    int             `json:"total_seats" binding:"required,gt=0"`
	ProfessorName string          `json:"professor_name" binding:"required"`
}

type RejectElectiveRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ElectiveResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Credits         string  `json:"credits"`
	TotalSeats      int     `json:"total_seats"`
	ProfessorName   string  `json:"professor_name"`
	State           string  `json:"state"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
	ReviewedAt      *string `json:"reviewed_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// --- Interface ---

type ElectiveService interface {
	Propose(ctx context.Context, userID string, req ProposeElectiveRequest) (ElectiveResponse, error)
	Approve(ctx context.Context, userID string, id string) (ElectiveResponse, error)
	Reject(ctx context.Context, userID string, id string, reason string) (ElectiveResponse, error)
	GetElective(ctx context.Context, id string) (ElectiveResponse, error)
	ListElectives(ctx context.Context, state string, page, limit int) ([]ElectiveResponse, int64, error)
}

type electiveService struct {
	electiveRepo repository.ElectiveRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	now          Clock
}

func NewElectiveService(
	electiveRepo repository.ElectiveRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	clock Clock,
) ElectiveService {
	return &electiveService{
		electiveRepo: electiveRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		now:          clock,
	}
}

// --- Implementation ---

func (s *electiveService) Propose(ctx context.Context, userID string, req ProposeElectiveRequest) (ElectiveResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ElectiveResponse{}, apperror.Validation("elective name is required")
	}
	if !req.Credits.IsPositive() {
		return ElectiveResponse{}, apperror.Validation("credits must be greater than zero")
	}
	if req.TotalSeats <= 0 {
		return ElectiveResponse{}, apperror.Validation("total seats must be greater than zero")
	}
	professor := strings.TrimSpace(req.ProfessorName)
	if professor == "" {
		return ElectiveResponse{}, apperror.Validation("professor name is required")
	}

	elective := model.Elective{
		Name:          name,
		Description:   strings.TrimSpace(req.Description),
		Credits:       req.Credits,
		TotalSeats:    req.TotalSeats,
		ProfessorName: professor,
		ProposedBy:    actorID(userID),
		State:         model.ElectivePendiente,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.electiveRepo.FindByName(txCtx, name); err == nil {
			return apperror.Conflict("an elective named %s already exists", name)
		} else if !isNotFound(err) {
			return fmt.Errorf("database error: %w", err)
		}

		if err := s.electiveRepo.Create(txCtx, &elective); err != nil {
			if _, dup := repository.IsUniqueViolation(err); dup {
				return apperror.Conflict("an elective named %s already exists", name)
			}
			return fmt.Errorf("failed to create elective: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, actorID(userID), model.ActionProposeElective, elective.ID.String(), elective.Name, map[string]interface{}{
			"credits":     elective.Credits.String(),
			"total_seats": elective.TotalSeats,
		})
	})
	if err != nil {
		return ElectiveResponse{}, err
	}
	return toElectiveResponse(elective), nil
}

func (s *electiveService) Approve(ctx context.Context, userID string, id string) (ElectiveResponse, error) {
	return s.review(ctx, userID, id, model.ElectiveAprobado, "")
}

func (s *electiveService) Reject(ctx context.Context, userID string, id string, reason string) (ElectiveResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ElectiveResponse{}, apperror.Validation("rejection reason is required")
	}
	return s.review(ctx, userID, id, model.ElectiveRechazado, reason)
}

func (s *electiveService) review(ctx context.Context, userID string, id string, next model.ElectiveState, reason string) (ElectiveResponse, error) {
	electiveID, err := parseID(id, "elective id")
	if err != nil {
		return ElectiveResponse{}, err
	}

	var elective *model.Elective
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.electiveRepo.FindByIDForUpdate(txCtx, electiveID)
		if err != nil {
			return lookupErr(err, "elective not found")
		}
		elective = found

		if !elective.State.CanTransitionTo(next) {
			return apperror.Conflict("elective is already %s", elective.State)
		}

		now := s.now()
		elective.State = next
		elective.ReviewedBy = actorID(userID)
		elective.ReviewedAt = &now
		elective.RejectionReason = reason
		if err := s.electiveRepo.Update(txCtx, elective); err != nil {
			return fmt.Errorf("failed to update elective: %w", err)
		}

		action := model.ActionApproveElective
		if next == model.ElectiveRechazado {
			action = model.ActionRejectElective
		}
		return writeAudit(txCtx, s.auditRepo, actorID(userID), action, elective.ID.String(), elective.Name, map[string]interface{}{
			"state":  next,
			"reason": reason,
		})
	})
	if err != nil {
		return ElectiveResponse{}, err
	}
	return toElectiveResponse(*elective), nil
}

func (s *electiveService) GetElective(ctx context.Context, id string) (ElectiveResponse, error) {
	electiveID, err := parseID(id, "elective id")
	if err != nil {
		return ElectiveResponse{}, err
	}
	elective, err := s.electiveRepo.FindByID(ctx, electiveID)
	if err != nil {
		return ElectiveResponse{}, lookupErr(err, "elective not found")
	}
	return toElectiveResponse(*elective), nil
}

func (s *electiveService) ListElectives(ctx context.Context, state string, page, limit int) ([]ElectiveResponse, int64, error) {
	var filter model.ElectiveState
	if state != "" {
		parsed, ok := model.ParseElectiveState(strings.ToUpper(state))
		if !ok {
			return nil, 0, apperror.Validation("invalid elective state %q", state)
		}
		filter = parsed
	}

	electives, total, err := s.electiveRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch electives: %w", err)
	}
	res := make([]ElectiveResponse, 0, len(electives))
	for _, e := range electives {
		res = append(res, toElectiveResponse(e))
	}
	return res, total, nil
}

// --- Helpers ---

func toElectiveResponse(e model.Elective) ElectiveResponse {
	return ElectiveResponse{
		ID:              e.ID.String(),
		Name:            e.Name,
		Description:     e.Description,
		Credits:         e.Credits.String(),
		TotalSeats:      e.TotalSeats,
		ProfessorName:   e.ProfessorName,
		State:           string(e.State),
		RejectionReason: e.RejectionReason,
		ReviewedAt:      formatOptionalTimestamp(e.ReviewedAt),
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
	}
}
