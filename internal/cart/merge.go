package cart

import (
	"strings"

	"github.com/google/uuid"

	"github.com/rmoreno-dev/mesa-backend/internal/inventory"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
)

// Line is one purchasable configuration inside a cart: an item plus free-text
// preparation notes. Two lines with the same item but different notes are
// distinct and never combined.
type Line struct {
	ItemID         uuid.UUID `json:"item_id"`
	Notes          string    `json:"notes"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
	LineTotalCents int       `json:"line_total_cents"`
}

// ConflictEntry explains one quantity delta the merge applied.
type ConflictEntry struct {
	ItemID       uuid.UUID            `json:"item_id"`
	Name         string               `json:"name"`
	Notes        string               `json:"notes"`
	Reason       enums.ConflictReason `json:"reason"`
	RequestedQty int                  `json:"requested_qty"`
	AppliedQty   int                  `json:"applied_qty"`
}

// MergeResult carries the surviving lines plus the full conflict partition.
// Every quantity change visible to the caller is explained by exactly one
// dropped or clamped entry; merged entries are additionally emitted whenever
// two carts contributed to the same line.
type MergeResult struct {
	Lines   []Line
	Dropped []ConflictEntry
	Clamped []ConflictEntry
	Merged  []ConflictEntry
}

// lineKey is the composite identity of a cart line.
type lineKey struct {
	itemID uuid.UUID
	notes  string
}

type workingLine struct {
	key         lineKey
	name        string
	quantity    int
	existingQty int
	priceCents  int
	priceSet    bool
}

func normalizeNotes(notes string) string {
	return strings.TrimSpace(notes)
}

// Merge folds incoming lines into existing ones and resolves every resulting
// quantity against the inventory snapshot. Pure: no I/O, deterministic for
// identical inputs, existing-then-incoming line order preserved.
func Merge(incoming, existing []Line, snapshot map[uuid.UUID]inventory.Snapshot) (*MergeResult, error) {
	working := map[lineKey]*workingLine{}
	order := []lineKey{}

	seed := func(src Line, fromIncoming bool) error {
		if src.ItemID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart line missing item id")
		}
		if src.Quantity < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart line quantity must be non-negative")
		}
		key := lineKey{itemID: src.ItemID, notes: normalizeNotes(src.Notes)}
		entry, ok := working[key]
		if !ok {
			entry = &workingLine{key: key}
			working[key] = entry
			order = append(order, key)
		}
		entry.quantity += src.Quantity
		if !fromIncoming {
			entry.existingQty += src.Quantity
		}
		if src.Name != "" {
			entry.name = src.Name
		}
		if src.UnitPriceCents > 0 {
			entry.priceCents = src.UnitPriceCents
			entry.priceSet = true
		}
		return nil
	}

	for _, line := range existing {
		if err := seed(line, false); err != nil {
			return nil, err
		}
	}
	for _, line := range incoming {
		if err := seed(line, true); err != nil {
			return nil, err
		}
	}

	result := &MergeResult{
		Lines:   []Line{},
		Dropped: []ConflictEntry{},
		Clamped: []ConflictEntry{},
		Merged:  []ConflictEntry{},
	}

	for _, key := range order {
		entry := working[key]
		desired := entry.quantity
		if desired == 0 {
			continue
		}

		snap, tracked := snapshot[key.itemID]
		name := entry.name
		if tracked && snap.Name != "" {
			name = snap.Name
		}

		conflict := ConflictEntry{
			ItemID:       key.itemID,
			Name:         name,
			Notes:        key.notes,
			RequestedQty: desired,
		}

		// A line survives only when the item is known, active, and has stock.
		// An untracked quantity (null on-hand) cannot cap a merge, so it drops
		// the line rather than silently passing an unlimited amount through.
		if !tracked || !snap.Active || snap.QtyOnHand == nil || *snap.QtyOnHand <= 0 {
			conflict.Reason = enums.ConflictOutOfStock
			conflict.AppliedQty = 0
			result.Dropped = append(result.Dropped, conflict)
			continue
		}

		allowed := desired
		if *snap.QtyOnHand < allowed {
			allowed = *snap.QtyOnHand
		}
		if allowed <= 0 {
			conflict.Reason = enums.ConflictOutOfStock
			conflict.AppliedQty = 0
			result.Dropped = append(result.Dropped, conflict)
			continue
		}

		if allowed < desired {
			clamped := conflict
			clamped.Reason = enums.ConflictLimitedStock
			clamped.AppliedQty = allowed
			result.Clamped = append(result.Clamped, clamped)
		}

		// Dual-reported on purpose: the merged entry tells the caller two
		// carts contributed even when the same line was also clamped.
		if entry.existingQty > 0 && desired > entry.existingQty {
			merged := conflict
			merged.Reason = enums.ConflictMerged
			merged.AppliedQty = allowed
			result.Merged = append(result.Merged, merged)
		}

		price := snap.UnitPriceCents
		if price <= 0 && entry.priceSet {
			price = entry.priceCents
		}
		if price < 0 {
			price = 0
		}

		result.Lines = append(result.Lines, Line{
			ItemID:         key.itemID,
			Notes:          key.notes,
			Name:           name,
			Quantity:       allowed,
			UnitPriceCents: price,
			LineTotalCents: price * allowed,
		})
	}

	return result, nil
}
