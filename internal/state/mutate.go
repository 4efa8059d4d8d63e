package state

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/TobiSchelling/reviewdash/internal/feedback"
)

// ErrEmptyColor is returned when a brand color is blank.
var ErrEmptyColor = errors.New("brand color must not be empty")

// Patch is a shallow set of field updates keyed by wire name (for example
// "status" or "managerRating"). A nil value clears a nullable field. The id
// field is ignored.
type Patch map[string]any

// PatchItem returns a copy of snap with the item identified by id merged
// with patch. found is false, and snap is returned unchanged, when no item
// has that id.
func PatchItem(snap feedback.Snapshot, id string, patch Patch) (out feedback.Snapshot, found bool) {
	idx := snap.FindItem(id)
	if idx == -1 {
		return snap, false
	}

	fields, err := toFields(snap.Items[idx])
	if err != nil {
		return snap, false
	}
	// Typed Go values become plain JSON values before normalization.
	updates, err := toFields(patch)
	if err != nil {
		return snap, false
	}
	for k, v := range updates {
		if k == "id" {
			continue
		}
		fields[k] = v
	}

	out = snap.Clone()
	// The merged record passes through the same boundary as persisted data.
	out.Items[idx] = NormalizeItem(fields)
	return out, true
}

// SetBrandPrimary returns a copy of snap with the brand primary color replaced.
func SetBrandPrimary(snap feedback.Snapshot, color string) (feedback.Snapshot, error) {
	color = strings.TrimSpace(color)
	if color == "" {
		return snap, ErrEmptyColor
	}
	out := snap.Clone()
	out.Brand.Primary = color
	return out, nil
}

// MergeOptions controls how an ingested batch is merged.
type MergeOptions struct {
	// DropPrefix removes existing items whose id starts with it, typically
	// the generated demo items once real reviews arrive. Empty keeps all.
	DropPrefix string
}

// MergeResult reports what a merge did.
type MergeResult struct {
	Added      int
	Duplicates int
	Removed    int
}

// MergeItems adds batch items whose id is not already present and re-sorts
// the result newest first. Existing items always win over batch items.
func MergeItems(snap feedback.Snapshot, batch []feedback.Item, opts MergeOptions) (feedback.Snapshot, MergeResult) {
	var r MergeResult
	out := snap.Clone()

	if opts.DropPrefix != "" {
		kept := out.Items[:0]
		for _, it := range out.Items {
			if strings.HasPrefix(it.ID, opts.DropPrefix) {
				r.Removed++
				continue
			}
			kept = append(kept, it)
		}
		out.Items = kept
	}

	seen := make(map[string]struct{}, len(out.Items)+len(batch))
	for _, it := range out.Items {
		seen[it.ID] = struct{}{}
	}
	for _, it := range batch {
		if _, dup := seen[it.ID]; dup {
			r.Duplicates++
			continue
		}
		seen[it.ID] = struct{}{}
		out.Items = append(out.Items, it.Clone())
		r.Added++
	}

	sort.SliceStable(out.Items, func(i, j int) bool {
		return out.Items[i].CreatedAt.After(out.Items[j].CreatedAt)
	})
	return out, r
}

func toFields(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
