package enums

// ConflictReason classifies a quantity adjustment made while reconciling
// cart lines against inventory.
type ConflictReason string

const (
	// ConflictOutOfStock marks a line dropped entirely: the item is missing,
	// inactive, or has no stock.
	ConflictOutOfStock ConflictReason = "out_of_stock"
	// ConflictLimitedStock marks a line whose quantity was clamped down to
	// the available stock.
	ConflictLimitedStock ConflictReason = "limited_stock"
	// ConflictMerged marks a line whose quantity grew because two carts were
	// combined.
	ConflictMerged ConflictReason = "merged"
)

// String implements fmt.Stringer.
func (c ConflictReason) String() string {
	return string(c)
}
