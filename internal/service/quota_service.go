package service

import (
	"context"
	"fmt"
	"log"

	"electivas/internal/apperror"
	"electivas/internal/model"
	"electivas/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type QuotaAllocation struct {
	ProgramID string `json:"program_id" binding:"required,uuid"`
	Seats     int    `json:"seats" binding:"gte=0"`
}

type DistributeQuotasRequest struct {
	Allocations []QuotaAllocation `json:"allocations" binding:"required,min=1,dive"`
}

type QuotaAvailabilityResponse struct {
	ProgramID   string `json:"program_id"`
	ProgramCode string `json:"program_code"`
	ProgramName string `json:"program_name"`
	Reserved    int    `json:"reserved"`
	Occupied    int    `json:"occupied"`
	Available   int    `json:"available"`
}

// QuotaUpdateEvent is published whenever the public availability of an elective may have changed.
type QuotaUpdateEvent struct {
	ElectiveID string                      `json:"elective_id"`
	Programs   []QuotaAvailabilityResponse `json:"programs"`
}

func (e QuotaUpdateEvent) Elective() string { return e.ElectiveID }

// Seats is the capacity of one (elective, program) bucket.
type Seats struct {
	Reserved int
	Occupied int
}

// Available never goes below zero, even for data written before quotas were tightened.
func (s Seats) Available() int {
	if s.Occupied >= s.Reserved {
		return 0
	}
	return s.Reserved - s.Occupied
}

func (s Seats) HasRoom() bool {
	return s.Occupied < s.Reserved
}

// --- Interface ---

// QuotaLedger is the source of truth for per-program seat capacity.
type QuotaLedger interface {
	// GetQuota returns a NotFound error when the program was never allocated seats in the elective.
	GetQuota(ctx context.Context, electiveID, programID uuid.UUID) (*model.ProgramQuota, error)
	CountOccupied(ctx context.Context, electiveID, programID uuid.UUID, states []model.RequestState) (int, error)
	Available(ctx context.Context, electiveID, programID uuid.UUID, states []model.RequestState) (Seats, error)
	// Lock row-locks the quota and counts admission occupancy. It must run inside a transaction.
	Lock(ctx context.Context, electiveID, programID uuid.UUID) (Seats, error)
	ListAvailability(ctx context.Context, electiveID uuid.UUID, states []model.RequestState) ([]QuotaAvailabilityResponse, error)
	Distribute(ctx context.Context, userID string, electiveID string, req DistributeQuotasRequest) ([]QuotaAvailabilityResponse, error)
	// Broadcast publishes the public availability of an elective to live subscribers.
	Broadcast(ctx context.Context, electiveID uuid.UUID)
}

type quotaLedger struct {
	quotaRepo    repository.QuotaRepository
	electiveRepo repository.ElectiveRepository
	programRepo  repository.ProgramRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	notifier     Notifier
}

func NewQuotaLedger(
	quotaRepo repository.QuotaRepository,
	electiveRepo repository.ElectiveRepository,
	programRepo repository.ProgramRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
) QuotaLedger {
	return &quotaLedger{
		quotaRepo:    quotaRepo,
		electiveRepo: electiveRepo,
		programRepo:  programRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		notifier:     notifierOrNop(notifier),
	}
}

// --- Implementation ---

func (l *quotaLedger) GetQuota(ctx context.Context, electiveID, programID uuid.UUID) (*model.ProgramQuota, error) {
	quota, err := l.quotaRepo.FindByElectiveAndProgram(ctx, electiveID, programID)
	if err != nil {
		return nil, lookupErr(err, "no seats assigned for this program in the elective")
	}
	return quota, nil
}

func (l *quotaLedger) CountOccupied(ctx context.Context, electiveID, programID uuid.UUID, states []model.RequestState) (int, error) {
	count, err := l.quotaRepo.CountOccupied(ctx, electiveID, programID, states)
	if err != nil {
		return 0, fmt.Errorf("failed to count occupied seats: %w", err)
	}
	return int(count), nil
}

func (l *quotaLedger) Available(ctx context.Context, electiveID, programID uuid.UUID, states []model.RequestState) (Seats, error) {
	quota, err := l.GetQuota(ctx, electiveID, programID)
	if err != nil {
		return Seats{}, err
	}
	occupied, err := l.CountOccupied(ctx, electiveID, programID, states)
	if err != nil {
		return Seats{}, err
	}
	return Seats{Reserved: quota.ReservedSeats, Occupied: occupied}, nil
}

func (l *quotaLedger) Lock(ctx context.Context, electiveID, programID uuid.UUID) (Seats, error) {
	quota, err := l.quotaRepo.FindByElectiveAndProgramForUpdate(ctx, electiveID, programID)
	if err != nil {
		return Seats{}, lookupErr(err, "no seats assigned for this program in the elective")
	}
	occupied, err := l.CountOccupied(ctx, electiveID, programID, model.AdmissionStates)
	if err != nil {
		return Seats{}, err
	}
	return Seats{Reserved: quota.ReservedSeats, Occupied: occupied}, nil
}

func (l *quotaLedger) ListAvailability(ctx context.Context, electiveID uuid.UUID, states []model.RequestState) ([]QuotaAvailabilityResponse, error) {
	quotas, err := l.quotaRepo.ListByElective(ctx, electiveID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotas: %w", err)
	}
	occupancy, err := l.quotaRepo.CountOccupiedByProgram(ctx, electiveID, states)
	if err != nil {
		return nil, fmt.Errorf("failed to count occupied seats: %w", err)
	}

	occupiedBy := make(map[uuid.UUID]int, len(occupancy))
	for _, o := range occupancy {
		occupiedBy[o.ProgramID] = int(o.Occupied)
	}

	res := make([]QuotaAvailabilityResponse, 0, len(quotas))
	for _, q := range quotas {
		seats := Seats{Reserved: q.ReservedSeats, Occupied: occupiedBy[q.ProgramID]}
		item := QuotaAvailabilityResponse{
			ProgramID: q.ProgramID.String(),
			Reserved:  seats.Reserved,
			Occupied:  seats.Occupied,
			Available: seats.Available(),
		}
		if q.Program != nil {
			item.ProgramCode = q.Program.Code
			item.ProgramName = q.Program.Name
		}
		res = append(res, item)
	}
	return res, nil
}

func (l *quotaLedger) Distribute(ctx context.Context, userID string, electiveID string, req DistributeQuotasRequest) ([]QuotaAvailabilityResponse, error) {
	id, err := parseID(electiveID, "elective id")
	if err != nil {
		return nil, err
	}
	if len(req.Allocations) == 0 {
		return nil, apperror.Validation("at least one program allocation is required")
	}

	requested := make(map[uuid.UUID]int, len(req.Allocations))
	order := make([]uuid.UUID, 0, len(req.Allocations))
	for _, a := range req.Allocations {
		programID, err := parseID(a.ProgramID, "program id")
		if err != nil {
			return nil, err
		}
		if a.Seats < 0 {
			return nil, apperror.Validation("seats for program %s cannot be negative", programID)
		}
		if _, dup := requested[programID]; dup {
			return nil, apperror.Validation("program %s is listed more than once", programID)
		}
		requested[programID] = a.Seats
		order = append(order, programID)
	}

	var elective *model.Elective
	err = l.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := l.electiveRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return lookupErr(err, "elective not found")
		}
		elective = found
		if elective.State != model.ElectiveAprobado {
			return apperror.Conflict("seats can only be distributed for approved electives")
		}

		existing, err := l.quotaRepo.ListByElective(txCtx, elective.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch quotas: %w", err)
		}
		total := 0
		for _, q := range existing {
			if _, replaced := requested[q.ProgramID]; !replaced {
				total += q.ReservedSeats
			}
		}
		for _, seats := range requested {
			total += seats
		}
		if total > elective.TotalSeats {
			return apperror.Validation("reserved seats (%d) exceed the elective's total seats (%d)", total, elective.TotalSeats)
		}

		for _, programID := range order {
			seats := requested[programID]
			if _, err := l.programRepo.FindByID(txCtx, programID); err != nil {
				return lookupErr(err, "program %s not found", programID)
			}

			quota, err := l.quotaRepo.FindByElectiveAndProgramForUpdate(txCtx, elective.ID, programID)
			if err != nil {
				if !isNotFound(err) {
					return fmt.Errorf("database error: %w", err)
				}
				quota = &model.ProgramQuota{ElectiveID: elective.ID, ProgramID: programID}
			}

			occupied, err := l.CountOccupied(txCtx, elective.ID, programID, model.AdmissionStates)
			if err != nil {
				return err
			}
			if seats < occupied {
				return apperror.Conflict("program %s already occupies %d seats; cannot reserve %d", programID, occupied, seats)
			}

			quota.ReservedSeats = seats
			if err := l.quotaRepo.Save(txCtx, quota); err != nil {
				return fmt.Errorf("failed to save quota: %w", err)
			}
		}

		return writeAudit(txCtx, l.auditRepo, actorID(userID), model.ActionDistributeQuotas, elective.ID.String(), elective.Name, map[string]interface{}{
			"allocations": req.Allocations,
			"total":       total,
		})
	})
	if err != nil {
		return nil, err
	}

	res, err := l.ListAvailability(ctx, elective.ID, model.PublishedStates)
	if err != nil {
		return nil, err
	}
	l.notifier.Publish(EventQuotaUpdated, QuotaUpdateEvent{ElectiveID: elective.ID.String(), Programs: res})
	return res, nil
}

func (l *quotaLedger) Broadcast(ctx context.Context, electiveID uuid.UUID) {
	programs, err := l.ListAvailability(ctx, electiveID, model.PublishedStates)
	if err != nil {
		log.Printf("Failed to compute availability for elective %s: %v", electiveID, err)
		return
	}
	l.notifier.Publish(EventQuotaUpdated, QuotaUpdateEvent{ElectiveID: electiveID.String(), Programs: programs})
}
