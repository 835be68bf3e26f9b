package checkout

import (
	"github.com/google/uuid"

	"github.com/mercaura/mercaura-backend/pkg/types"
)

// VendorGroup is one vendor's slice of a resolved cart.
type VendorGroup struct {
	VendorID      uuid.UUID
	Lines         []types.SnapshotLine
	SubtotalCents int
}

// SplitByVendor partitions resolved lines into per-vendor groups. Group order
// follows the first appearance of each vendor in the line list, so splitting
// the same input always yields the same groups and subtotals.
func SplitByVendor(lines []types.SnapshotLine) []VendorGroup {
	groups := make([]VendorGroup, 0, len(lines))
	index := make(map[uuid.UUID]int, len(lines))

	for _, line := range lines {
		pos, ok := index[line.VendorID]
		if !ok {
			pos = len(groups)
			index[line.VendorID] = pos
			groups = append(groups, VendorGroup{VendorID: line.VendorID})
		}
		groups[pos].Lines = append(groups[pos].Lines, line)
		groups[pos].SubtotalCents += line.TotalCents
	}
	return groups
}

// TotalCents sums the group subtotals; the parent order total is defined as
// exactly this sum.
func TotalCents(groups []VendorGroup) int {
	total := 0
	for _, g := range groups {
		total += g.SubtotalCents
	}
	return total
}
