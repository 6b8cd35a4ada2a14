package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	"github.com/rmoreno-dev/mesa-backend/pkg/logger"
	pkgpagination "github.com/rmoreno-dev/mesa-backend/pkg/pagination"
)

// Entry is the write-side shape other services record with.
type Entry struct {
	ActorID    *uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	Metadata   any
}

// ListParams holds admin list filters plus pagination inputs.
type ListParams struct {
	Action     string
	EntityType string
	ActorID    *uuid.UUID
	pkgpagination.Params
}

// ListResult pages audit entries newest first.
type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID         uuid.UUID       `json:"id"`
	ActorID    *uuid.UUID      `json:"actor_id,omitempty"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   *uuid.UUID      `json:"entity_id,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Service records and exposes the audit trail.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
	List(ctx context.Context, actorRole enums.Role, params ListParams) (*ListResult, error)
	TrimOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

// NewService builds the audit service.
func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if strings.TrimSpace(entry.Action) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit action required")
	}
	if strings.TrimSpace(entry.EntityType) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit entity type required")
	}

	var metadata json.RawMessage
	if entry.Metadata != nil {
		payload, err := json.Marshal(entry.Metadata)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal audit metadata")
		}
		metadata = payload
	}

	row := &models.AuditEntry{
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   metadata,
	}
	if err := s.repo.Insert(ctx, tx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert audit entry")
	}
	return nil
}

func (s *service) List(ctx context.Context, actorRole enums.Role, params ListParams) (*ListResult, error) {
	if actorRole != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		action:     strings.TrimSpace(params.Action),
		entityType: strings.TrimSpace(params.EntityType),
		actorID:    params.ActorID,
		limit:      pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = ListItem{
			ID:         row.ID,
			ActorID:    row.ActorID,
			Action:     row.Action,
			EntityType: row.EntityType,
			EntityID:   row.EntityID,
			Metadata:   row.Metadata,
			CreatedAt:  row.CreatedAt,
		}
	}

	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

func (s *service) TrimOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	removed, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "trim audit entries")
	}
	if removed > 0 && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"removed": removed, "cutoff": cutoff})
		s.logg.Info(logCtx, "audit entries trimmed")
	}
	return removed, nil
}
