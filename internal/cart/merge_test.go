package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmoreno-dev/mesa-backend/internal/inventory"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
)

func intPtr(v int) *int {
	return &v
}

func snapshotEntry(qty *int, active bool, priceCents int, name string) inventory.Snapshot {
	return inventory.Snapshot{QtyOnHand: qty, Active: active, UnitPriceCents: priceCents, Name: name}
}

func TestMergeAdditiveClampAndDualReport(t *testing.T) {
	t.Parallel()

	itemA := uuid.New()
	snapshot := map[uuid.UUID]inventory.Snapshot{
		itemA: snapshotEntry(intPtr(2), true, 1000, "Al Pastor"),
	}

	existing := []Line{{ItemID: itemA, Quantity: 1}}
	incoming := []Line{{ItemID: itemA, Quantity: 3}}

	result, err := Merge(incoming, existing, snapshot)
	require.NoError(t, err)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, 2, result.Lines[0].Quantity)
	assert.Equal(t, 1000, result.Lines[0].UnitPriceCents)
	assert.Equal(t, 2000, result.Lines[0].LineTotalCents)

	require.Len(t, result.Clamped, 1)
	assert.Equal(t, enums.ConflictLimitedStock, result.Clamped[0].Reason)
	assert.Equal(t, 4, result.Clamped[0].RequestedQty)
	assert.Equal(t, 2, result.Clamped[0].AppliedQty)

	// clamped and merged both fire for the same line when two carts combined
	require.Len(t, result.Merged, 1)
	assert.Equal(t, enums.ConflictMerged, result.Merged[0].Reason)
	assert.Equal(t, 4, result.Merged[0].RequestedQty)
	assert.Equal(t, 2, result.Merged[0].AppliedQty)

	assert.Empty(t, result.Dropped)
}

func TestMergeDropsUnknownItem(t *testing.T) {
	t.Parallel()

	itemB := uuid.New()
	result, err := Merge([]Line{{ItemID: itemB, Quantity: 2}}, nil, map[uuid.UUID]inventory.Snapshot{})
	require.NoError(t, err)

	assert.Empty(t, result.Lines)
	require.Len(t, result.Dropped, 1)
	assert.Equal(t, enums.ConflictOutOfStock, result.Dropped[0].Reason)
	assert.Equal(t, 2, result.Dropped[0].RequestedQty)
	assert.Equal(t, 0, result.Dropped[0].AppliedQty)
	assert.Empty(t, result.Merged)
	assert.Empty(t, result.Clamped)
}

func TestMergeDropsInactiveAndUntracked(t *testing.T) {
	t.Parallel()

	inactive := uuid.New()
	untracked := uuid.New()
	zeroStock := uuid.New()
	snapshot := map[uuid.UUID]inventory.Snapshot{
		inactive:  snapshotEntry(intPtr(5), false, 700, "Retired Dish"),
		untracked: snapshotEntry(nil, true, 400, "Soda"),
		zeroStock: snapshotEntry(intPtr(0), true, 900, "Empanadas"),
	}

	incoming := []Line{
		{ItemID: inactive, Quantity: 1},
		{ItemID: untracked, Quantity: 1},
		{ItemID: zeroStock, Quantity: 1},
	}
	result, err := Merge(incoming, nil, snapshot)
	require.NoError(t, err)

	assert.Empty(t, result.Lines)
	assert.Len(t, result.Dropped, 3)
	for _, entry := range result.Dropped {
		assert.Equal(t, enums.ConflictOutOfStock, entry.Reason)
		assert.Equal(t, 0, entry.AppliedQty)
	}
}

func TestMergeKeepsDistinctNotesApart(t *testing.T) {
	t.Parallel()

	item := uuid.New()
	snapshot := map[uuid.UUID]inventory.Snapshot{
		item: snapshotEntry(intPtr(10), true, 1100, "Burger"),
	}

	incoming := []Line{
		{ItemID: item, Notes: "no onions", Quantity: 2},
		{ItemID: item, Notes: "", Quantity: 1},
	}
	existing := []Line{
		{ItemID: item, Notes: "no onions", Quantity: 1},
	}

	result, err := Merge(incoming, existing, snapshot)
	require.NoError(t, err)

	require.Len(t, result.Lines, 2)
	byNotes := map[string]Line{}
	for _, line := range result.Lines {
		byNotes[line.Notes] = line
	}
	assert.Equal(t, 3, byNotes["no onions"].Quantity)
	assert.Equal(t, 1, byNotes[""].Quantity)
}

func TestMergeNormalizesNotesWhitespace(t *testing.T) {
	t.Parallel()

	item := uuid.New()
	snapshot := map[uuid.UUID]inventory.Snapshot{
		item: snapshotEntry(intPtr(10), true, 500, "Fries"),
	}

	result, err := Merge(
		[]Line{{ItemID: item, Notes: " extra crispy ", Quantity: 1}},
		[]Line{{ItemID: item, Notes: "extra crispy", Quantity: 1}},
		snapshot,
	)
	require.NoError(t, err)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, 2, result.Lines[0].Quantity)
	assert.Equal(t, "extra crispy", result.Lines[0].Notes)
}

func TestMergeEmptyIncomingRevalidatesExisting(t *testing.T) {
	t.Parallel()

	stable := uuid.New()
	depleted := uuid.New()
	snapshot := map[uuid.UUID]inventory.Snapshot{
		stable:   snapshotEntry(intPtr(5), true, 800, "Quesadilla"),
		depleted: snapshotEntry(intPtr(0), true, 650, "Tamales"),
	}

	existing := []Line{
		{ItemID: stable, Quantity: 2},
		{ItemID: depleted, Quantity: 1},
	}
	result, err := Merge(nil, existing, snapshot)
	require.NoError(t, err)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, stable, result.Lines[0].ItemID)
	assert.Equal(t, 2, result.Lines[0].Quantity)

	require.Len(t, result.Dropped, 1)
	assert.Equal(t, depleted, result.Dropped[0].ItemID)
	// no quantity grew, so nothing reports as merged
	assert.Empty(t, result.Merged)
}

func TestMergeQuantityTotalsAreOrderIndependent(t *testing.T) {
	t.Parallel()

	itemA := uuid.New()
	itemB := uuid.New()
	snapshot := map[uuid.UUID]inventory.Snapshot{
		itemA: snapshotEntry(intPtr(4), true, 900, "Ceviche"),
		itemB: snapshotEntry(intPtr(10), true, 300, "Chips"),
	}

	setOne := []Line{{ItemID: itemA, Quantity: 3}, {ItemID: itemB, Quantity: 2}}
	setTwo := []Line{{ItemID: itemA, Quantity: 2}, {ItemID: itemB, Quantity: 1}}

	forward, err := Merge(setOne, setTwo, snapshot)
	require.NoError(t, err)
	reverse, err := Merge(setTwo, setOne, snapshot)
	require.NoError(t, err)

	quantities := func(result *MergeResult) map[uuid.UUID]int {
		out := map[uuid.UUID]int{}
		for _, line := range result.Lines {
			out[line.ItemID] += line.Quantity
		}
		return out
	}
	assert.Equal(t, quantities(forward), quantities(reverse))
}

func TestMergeNeverExceedsStock(t *testing.T) {
	t.Parallel()

	item := uuid.New()
	snapshot := map[uuid.UUID]inventory.Snapshot{
		item: snapshotEntry(intPtr(3), true, 1200, "Ribeye"),
	}

	result, err := Merge(
		[]Line{{ItemID: item, Quantity: 50}},
		[]Line{{ItemID: item, Quantity: 50}},
		snapshot,
	)
	require.NoError(t, err)

	total := 0
	for _, line := range result.Lines {
		total += line.Quantity
	}
	assert.LessOrEqual(t, total, 3)
}

func TestMergeCanonicalPriceOverridesSubmitted(t *testing.T) {
	t.Parallel()

	item := uuid.New()
	snapshot := map[uuid.UUID]inventory.Snapshot{
		item: snapshotEntry(intPtr(5), true, 1500, "Paella"),
	}

	result, err := Merge([]Line{{ItemID: item, Quantity: 1, UnitPriceCents: 1}}, nil, snapshot)
	require.NoError(t, err)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, 1500, result.Lines[0].UnitPriceCents)
}

func TestMergeRejectsMissingItemID(t *testing.T) {
	t.Parallel()

	_, err := Merge([]Line{{Quantity: 1}}, nil, map[uuid.UUID]inventory.Snapshot{})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestPricingTotals(t *testing.T) {
	t.Parallel()

	pricing, err := NewPricing("0.08")
	require.NoError(t, err)

	lines := []Line{
		{LineTotalCents: 2000},
		{LineTotalCents: 550},
	}
	subtotal, tax, total := pricing.Totals(lines)
	assert.Equal(t, 2550, subtotal)
	assert.Equal(t, 204, tax)
	assert.Equal(t, 2754, total)

	zeroRate, err := NewPricing("0")
	require.NoError(t, err)
	_, tax, total = zeroRate.Totals(lines)
	assert.Equal(t, 0, tax)
	assert.Equal(t, 2550, total)
}
