package service

import (
	"context"
	"fmt"
	"strings"

	"electivas/internal/model"
	"electivas/internal/repository"

	"gorm.io/datatypes"
)

// AuditEntry is one recorded state change. Actor is "system" for CLI actions.
type AuditEntry struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id,omitempty"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	EntityID   string         `json:"entity_id"`
	EntityName string         `json:"entity_name,omitempty"`
	Details    datatypes.JSON `json:"details,omitempty" swaggertype:"object"`
	CreatedAt  string         `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, action, entityID string, page, limit int) ([]AuditEntry, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// GetAuditLogs returns the newest entries first, optionally narrowed to one action or entity.
func (s *auditService) GetAuditLogs(ctx context.Context, action, entityID string, page, limit int) ([]AuditEntry, int64, error) {
	filter := repository.AuditFilter{
		Action:   strings.ToUpper(strings.TrimSpace(action)),
		EntityID: strings.TrimSpace(entityID),
	}
	logs, total, err := s.auditRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}

	entries := make([]AuditEntry, 0, len(logs))
	for _, l := range logs {
		entries = append(entries, toAuditEntry(l))
	}
	return entries, total, nil
}

func toAuditEntry(l model.AuditLog) AuditEntry {
	entry := AuditEntry{
		ID:         l.ID.String(),
		Actor:      "system",
		Action:     l.Action,
		EntityID:   l.EntityID,
		EntityName: l.EntityName,
		Details:    l.Details,
		CreatedAt:  formatTimestamp(l.CreatedAt),
	}
	if l.UserID != nil {
		entry.ActorID = l.UserID.String()
		// the directory row may be gone; keep the id
		entry.Actor = entry.ActorID
	}
	if l.User != nil {
		entry.Actor = l.User.Username
	}
	return entry
}
