package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nijjara/erp/internal/apperror"
)

// perPage is the number of audit events returned per page.
const perPage = 50

// AuditService handles recording and querying of security events.
type AuditService interface {
	// Record persists a security event. Fire-and-forget friendly: errors
	// are already logged when this returns, so callers may ignore them.
	Record(ctx context.Context, eventType, userID, ip, userAgent string, details map[string]any) error

	// ListEvents returns paginated events, optionally filtered by type.
	ListEvents(ctx context.Context, eventType string, page int) ([]Event, int, error)
}

// auditService implements AuditService.
type auditService struct {
	repo EventRepository
}

// NewAuditService creates an audit service with the given repository.
func NewAuditService(repo EventRepository) AuditService {
	return &auditService{repo: repo}
}

// Record validates and persists a security event.
func (s *auditService) Record(ctx context.Context, eventType, userID, ip, userAgent string, details map[string]any) error {
	if eventType == "" {
		return apperror.NewBadRequest("event type is required")
	}

	event := &Event{
		EventID:   uuid.NewString(),
		EventType: eventType,
		UserID:    userID,
		IPAddress: ip,
		UserAgent: userAgent,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, event); err != nil {
		slog.Error("failed to record audit event",
			slog.String("event_type", eventType),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return apperror.NewInternal(fmt.Errorf("recording audit event: %w", err))
	}
	return nil
}

// ListEvents returns paginated events. Pages are 1-indexed; invalid page
// numbers are clamped to 1.
func (s *auditService) ListEvents(ctx context.Context, eventType string, page int) ([]Event, int, error) {
	if page < 1 {
		page = 1
	}

	offset := (page - 1) * perPage
	events, total, err := s.repo.List(ctx, eventType, perPage, offset)
	if err != nil {
		return nil, 0, apperror.NewInternal(fmt.Errorf("listing audit events: %w", err))
	}
	return events, total, nil
}
