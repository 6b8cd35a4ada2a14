package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	pkgpagination "github.com/rmoreno-dev/mesa-backend/pkg/pagination"
)

type ListParams struct {
	UserID uuid.UUID
	Status *enums.OrderStatus
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID            uuid.UUID         `json:"id"`
	Status        enums.OrderStatus `json:"status"`
	SubtotalCents int               `json:"subtotal_cents"`
	TaxCents      int               `json:"tax_cents"`
	TotalCents    int               `json:"total_cents"`
	LineCount     int               `json:"line_count"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	CanceledAt    *time.Time        `json:"canceled_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

type listQuery struct {
	userID uuid.UUID
	status *enums.OrderStatus
	limit  int
	cursor *pkgpagination.Cursor
}

func toListItem(m models.Order) ListItem {
	return ListItem{
		ID:            m.ID,
		Status:        m.Status,
		SubtotalCents: m.SubtotalCents,
		TaxCents:      m.TaxCents,
		TotalCents:    m.TotalCents,
		LineCount:     len(m.Lines),
		CompletedAt:   m.CompletedAt,
		CanceledAt:    m.CanceledAt,
		CreatedAt:     m.CreatedAt,
	}
}
