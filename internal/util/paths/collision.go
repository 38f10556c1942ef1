// Package paths resolves destination-name collisions across a
// TransferPlan's FileMetadata rows.
package paths

import "github.com/gregakespret/sfagent/internal/model"

// Entry pairs a FileMetadata row with the source key it is filed
// under, so collisions can be reported back to the caller's map.
type Entry struct {
	SrcKey string
	File   *model.FileMetadata
}

// MarkDestNameCollisions groups entries by DestName in plan order and,
// for every group with more than one member, marks every member except
// the last-seen one as COLLISION. Unlike the destination-rename
// strategy some transfer tools use, this spec requires the earlier
// entry to lose: the later write is assumed to be the one that
// actually lands at that name.
//
// Entries already in a terminal, non-UNKNOWN state are left alone —
// classification collisions are only meaningful for files C2 still
// considers live candidates.
func MarkDestNameCollisions(entries []Entry) int {
	lastIndexForName := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.File.Status != model.StatusUnknown || e.File.DestName == "" {
			continue
		}
		lastIndexForName[e.File.DestName] = i
	}

	collisions := 0
	for i, e := range entries {
		if e.File.Status != model.StatusUnknown || e.File.DestName == "" {
			continue
		}
		if lastIndexForName[e.File.DestName] != i {
			e.File.Status = model.StatusCollision
			e.File.ErrorDetails = "destination name collides with another file in this transfer"
			collisions++
		}
	}
	return collisions
}
