package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"electivas/internal/apperror"
	"electivas/internal/model"
	"electivas/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Clock returns the current instant in the institution's time zone.
type Clock func() time.Time

// SystemClock reads the wall clock in loc.
func SystemClock(loc *time.Location) Clock {
	return func() time.Time { return time.Now().In(loc) }
}

// Websocket event names
const (
	EventQuotaUpdated   = "quota.updated"
	EventRequestUpdated = "request.updated"
	EventPeriodUpdated  = "period.updated"
)

// Notifier publishes events to live subscribers after a transaction commits.
type Notifier interface {
	Publish(event string, data interface{})
}

type nopNotifier struct{}

func (nopNotifier) Publish(string, interface{}) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid %s", field)
	}
	return id, nil
}

// actorID parses the authenticated user id; CLI callers pass an empty string.
func actorID(userID string) *uuid.UUID {
	if parsed, err := uuid.Parse(userID); err == nil {
		return &parsed
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// lookupErr turns a missing row into a NotFound error and anything else into an opaque failure.
func lookupErr(err error, format string, args ...interface{}) error {
	if isNotFound(err) {
		return apperror.NotFound(format, args...)
	}
	return fmt.Errorf("database error: %w", err)
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, userID *uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	entry := &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    datatypes.JSON(payload),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatOptionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
