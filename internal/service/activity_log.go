package service

import (
	"context"

	"github.com/mediconnect/platform-api/internal/domain/entity"
	"github.com/mediconnect/platform-api/internal/domain/repository"

	"github.com/google/uuid"
)

// Entry is a single audit record: who did what to which resource.
type Entry struct {
	UserID   *uuid.UUID
	Action   string
	Resource string
	Detail   string
	Metadata entity.JSON
}

// ActivityLog is the audit sink. Implementations must be safe for
// concurrent use; a failed write must never abort the operation that
// produced it.
type ActivityLog interface {
	Record(ctx context.Context, entry Entry) error
}

type dbActivityLog struct {
	auditRepo repository.AuditLogRepository
}

// NewActivityLog returns an ActivityLog backed by the audit_logs table.
func NewActivityLog(auditRepo repository.AuditLogRepository) ActivityLog {
	return &dbActivityLog{auditRepo: auditRepo}
}

func (s *dbActivityLog) Record(ctx context.Context, entry Entry) error {
	metadata := entity.JSON{}
	for k, v := range entry.Metadata {
		metadata[k] = v
	}
	if entry.Detail != "" {
		metadata["detail"] = entry.Detail
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	return s.auditRepo.Create(ctx, &entity.AuditLog{
		UserID:   entry.UserID,
		Action:   entry.Action,
		Resource: entry.Resource,
		Metadata: metadata,
	})
}
