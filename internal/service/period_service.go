package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"electivas/internal/apperror"
	"electivas/internal/model"
	"electivas/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// --- DTOs ---

type CreatePeriodRequest struct {
	Name      string `json:"name" binding:"required"`
	StartDate string `json:"start_date" binding:"required,ddmmyyyy"` // dd-mm-yyyy
	EndDate   string `json:"end_date" binding:"required,ddmmyyyy"`   // dd-mm-yyyy
}

type ChangePeriodStateRequest struct {
	State string `json:"state" binding:"required"`
}

type PeriodResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	State     string `json:"state"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

// --- Interface ---

// PeriodService owns the academic period state machine.
type PeriodService interface {
	CreatePeriod(ctx context.Context, userID string, req CreatePeriodRequest) (PeriodResponse, error)
	ChangeState(ctx context.Context, userID string, id string, state string) (PeriodResponse, error)
	Archive(ctx context.Context, userID string, id string) (PeriodResponse, error)
	Purge(ctx context.Context, userID string, id string) error
	GetPeriod(ctx context.Context, id string) (PeriodResponse, error)
	ListPeriods(ctx context.Context) ([]PeriodResponse, error)
	// Current returns the period open for enrollment, or nil when there is none.
	Current(ctx context.Context) (*model.AcademicPeriod, error)
}

type periodService struct {
	periodRepo repository.PeriodRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	notifier   Notifier
	now        Clock
}

func NewPeriodService(
	periodRepo repository.PeriodRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
	clock Clock,
) PeriodService {
	return &periodService{
		periodRepo: periodRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		notifier:   notifierOrNop(notifier),
		now:        clock,
	}
}

// --- Implementation ---

func (s *periodService) CreatePeriod(ctx context.Context, userID string, req CreatePeriodRequest) (PeriodResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return PeriodResponse{}, apperror.Validation("period name is required")
	}
	start, err := model.ParseDate(req.StartDate)
	if err != nil {
		return PeriodResponse{}, apperror.Validation("invalid start_date: %v", err)
	}
	end, err := model.ParseDate(req.EndDate)
	if err != nil {
		return PeriodResponse{}, apperror.Validation("invalid end_date: %v", err)
	}
	if start.Before(model.DateOf(s.now())) {
		return PeriodResponse{}, apperror.Validation("start date cannot be in the past")
	}
	if !start.Before(end) {
		return PeriodResponse{}, apperror.Validation("start date must be before end date")
	}

	period := model.AcademicPeriod{
		Name:      name,
		StartDate: datatypes.Date(start),
		EndDate:   datatypes.Date(end),
		State:     model.PeriodPlanificacion,
		Active:    true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.periodRepo.LockLifecycle(txCtx); err != nil {
			return fmt.Errorf("failed to lock period lifecycle: %w", err)
		}

		exists, err := s.periodRepo.ExistsActiveByName(txCtx, name, uuid.Nil)
		if err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if exists {
			return apperror.Validation("an active period named %s already exists", name)
		}

		open, err := s.periodRepo.CountActiveInStates(txCtx, model.ExclusivePeriodStates, uuid.Nil)
		if err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if open > 0 {
			return apperror.Validation("another active period is already in PLANIFICACION or INSCRIPCION")
		}

		if err := s.periodRepo.Create(txCtx, &period); err != nil {
			return fmt.Errorf("failed to create period: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, actorID(userID), model.ActionCreatePeriod, period.ID.String(), period.Name, map[string]interface{}{
			"start_date": req.StartDate,
			"end_date":   req.EndDate,
		})
	})
	if err != nil {
		return PeriodResponse{}, err
	}

	resp := ToPeriodResponse(period)
	s.notifier.Publish(EventPeriodUpdated, resp)
	return resp, nil
}

func (s *periodService) ChangeState(ctx context.Context, userID string, id string, state string) (PeriodResponse, error) {
	periodID, err := parseID(id, "period id")
	if err != nil {
		return PeriodResponse{}, err
	}
	next, ok := model.ParsePeriodState(state)
	if !ok {
		return PeriodResponse{}, apperror.Validation("invalid period state %q", state)
	}

	var period *model.AcademicPeriod
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.periodRepo.LockLifecycle(txCtx); err != nil {
			return fmt.Errorf("failed to lock period lifecycle: %w", err)
		}

		found, err := s.periodRepo.FindByIDForUpdate(txCtx, periodID)
		if err != nil {
			return lookupErr(err, "period not found")
		}
		period = found
		previous := period.State

		if previous == next {
			return apperror.Validation("period is already in state %s", next)
		}
		if !previous.CanTransitionTo(next) {
			return apperror.Conflict("cannot move period from %s to %s", previous, next)
		}

		if next == model.PeriodInscripcion {
			count, err := s.periodRepo.CountActiveInStates(txCtx, []model.PeriodState{model.PeriodInscripcion}, period.ID)
			if err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			if count > 0 {
				return apperror.Conflict("another active period already holds INSCRIPCION")
			}
		}
		if next.Exclusive() {
			count, err := s.periodRepo.CountActiveInStates(txCtx, model.ExclusivePeriodStates, period.ID)
			if err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			if count > 0 {
				return apperror.Conflict("another active period is already in PLANIFICACION or INSCRIPCION")
			}
		}

		period.State = next
		if next == model.PeriodCerrado {
			period.Active = false
		}
		if err := s.periodRepo.Update(txCtx, period); err != nil {
			return fmt.Errorf("failed to update period: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, actorID(userID), model.ActionChangePeriodState, period.ID.String(), period.Name, map[string]interface{}{
			"from": previous,
			"to":   next,
		})
	})
	if err != nil {
		return PeriodResponse{}, err
	}

	resp := ToPeriodResponse(*period)
	s.notifier.Publish(EventPeriodUpdated, resp)
	return resp, nil
}

func (s *periodService) Archive(ctx context.Context, userID string, id string) (PeriodResponse, error) {
	periodID, err := parseID(id, "period id")
	if err != nil {
		return PeriodResponse{}, err
	}

	var period *model.AcademicPeriod
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.periodRepo.FindByIDForUpdate(txCtx, periodID)
		if err != nil {
			return lookupErr(err, "period not found")
		}
		period = found

		if !period.Active {
			return apperror.Conflict("period %s is already archived", period.Name)
		}

		previous := period.State
		period.Active = false
		period.State = model.PeriodCerrado
		if err := s.periodRepo.Update(txCtx, period); err != nil {
			return fmt.Errorf("failed to archive period: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, actorID(userID), model.ActionArchivePeriod, period.ID.String(), period.Name, map[string]interface{}{
			"from": previous,
		})
	})
	if err != nil {
		return PeriodResponse{}, err
	}

	resp := ToPeriodResponse(*period)
	s.notifier.Publish(EventPeriodUpdated, resp)
	return resp, nil
}

func (s *periodService) Purge(ctx context.Context, userID string, id string) error {
	periodID, err := parseID(id, "period id")
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		period, err := s.periodRepo.FindByIDForUpdate(txCtx, periodID)
		if err != nil {
			return lookupErr(err, "period not found")
		}
		if period.Active || period.State != model.PeriodCerrado {
			return apperror.Conflict("only archived periods can be purged")
		}
		if err := s.periodRepo.Delete(txCtx, period.ID); err != nil {
			return fmt.Errorf("failed to purge period: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actorID(userID), model.ActionPurgePeriod, period.ID.String(), period.Name, map[string]interface{}{
			"purged": true,
		})
	})
}

func (s *periodService) GetPeriod(ctx context.Context, id string) (PeriodResponse, error) {
	periodID, err := parseID(id, "period id")
	if err != nil {
		return PeriodResponse{}, err
	}
	period, err := s.periodRepo.FindByID(ctx, periodID)
	if err != nil {
		return PeriodResponse{}, lookupErr(err, "period not found")
	}
	return ToPeriodResponse(*period), nil
}

func (s *periodService) ListPeriods(ctx context.Context) ([]PeriodResponse, error) {
	periods, err := s.periodRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch periods: %w", err)
	}
	res := make([]PeriodResponse, 0, len(periods))
	for _, p := range periods {
		res = append(res, ToPeriodResponse(p))
	}
	return res, nil
}

func (s *periodService) Current(ctx context.Context) (*model.AcademicPeriod, error) {
	period, err := s.periodRepo.FindCurrent(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve current period: %w", err)
	}
	return period, nil
}

// --- Helpers ---

// ToPeriodResponse renders dates as dd-mm-yyyy.
func ToPeriodResponse(p model.AcademicPeriod) PeriodResponse {
	return PeriodResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		StartDate: model.FormatDate(p.Start()),
		EndDate:   model.FormatDate(p.End()),
		State:     string(p.State),
		Active:    p.Active,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}
