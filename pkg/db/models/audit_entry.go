package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditEntry is an append-only trace of privileged and state-changing actions.
type AuditEntry struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ActorID    *uuid.UUID      `gorm:"column:actor_id;type:uuid"`
	Action     string          `gorm:"column:action;not null"`
	EntityType string          `gorm:"column:entity_type;not null"`
	EntityID   *uuid.UUID      `gorm:"column:entity_id;type:uuid"`
	Metadata   json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
