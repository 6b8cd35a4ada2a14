package menu

import (
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	pkgpagination "github.com/rmoreno-dev/mesa-backend/pkg/pagination"
)

// ListParams holds menu listing filters plus pagination inputs.
type ListParams struct {
	Category        *enums.MenuCategory
	IncludeInactive bool
	pkgpagination.Params
}

// ListResult pages menu items newest first.
type ListResult struct {
	Items  []MenuItemDTO `json:"items"`
	Cursor string        `json:"cursor"`
}

type listQuery struct {
	category        *enums.MenuCategory
	includeInactive bool
	limit           int
	cursor          *pkgpagination.Cursor
}
