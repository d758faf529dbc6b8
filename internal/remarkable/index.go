package remarkable

import (
	"fmt"
	"sort"
)

// DuplicateRecordError reports two visible records claiming the same
// (name, parent) slot. The store cannot be matched against safely past
// this point, so index construction fails before anything is decided.
type DuplicateRecordError struct {
	Name     string
	ParentID string
	IDs      [2]string
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("duplicate records %s and %s share name %q under parent %q",
		e.IDs[0], e.IDs[1], e.Name, e.ParentID)
}

type nameParentKey struct {
	name   string
	parent string
}

// Index holds lookup structures over the visible records of one
// snapshot. It is immutable after construction; every component
// needing lookups shares the same value.
type Index struct {
	byID         map[string]*Record
	byName       map[string][]*Record
	byParent     map[string][]*Record
	byNameParent map[nameParentKey]*Record
}

// NewIndex filters a snapshot down to its visible records and builds
// the lookup maps. Matching keys use normalized display names.
func NewIndex(records []*Record) (*Index, error) {
	idx := &Index{
		byID:         make(map[string]*Record),
		byName:       make(map[string][]*Record),
		byParent:     make(map[string][]*Record),
		byNameParent: make(map[nameParentKey]*Record),
	}

	for _, rec := range records {
		if !rec.Visible() {
			continue
		}

		name := NormalizeName(rec.VisibleName)

		key := nameParentKey{name: name, parent: rec.Parent}
		if prev, ok := idx.byNameParent[key]; ok {
			return nil, &DuplicateRecordError{
				Name:     rec.VisibleName,
				ParentID: rec.Parent,
				IDs:      [2]string{prev.ID, rec.ID},
			}
		}

		idx.byNameParent[key] = rec
		idx.byID[rec.ID] = rec
		idx.byName[name] = append(idx.byName[name], rec)
		idx.byParent[rec.Parent] = append(idx.byParent[rec.Parent], rec)
	}

	// Deterministic enumeration order regardless of fetch order.
	for _, recs := range idx.byName {
		sortRecords(recs)
	}

	for _, recs := range idx.byParent {
		sortRecords(recs)
	}

	return idx, nil
}

func sortRecords(recs []*Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].VisibleName != recs[j].VisibleName {
			return recs[i].VisibleName < recs[j].VisibleName
		}

		return recs[i].ID < recs[j].ID
	})
}

// ByID returns the visible record with the given identifier, or nil.
func (idx *Index) ByID(id string) *Record {
	return idx.byID[id]
}

// ByName returns all visible records carrying the given display name,
// anywhere in the store, in name then id order.
func (idx *Index) ByName(name string) []*Record {
	return idx.byName[NormalizeName(name)]
}

// ByParent returns the visible children of a container, in name then
// id order. RootID enumerates the top level.
func (idx *Index) ByParent(parentID string) []*Record {
	return idx.byParent[parentID]
}

// ByNameAndParent returns the single visible record at (name, parent),
// or nil. Uniqueness holds by construction.
func (idx *Index) ByNameAndParent(name, parentID string) *Record {
	return idx.byNameParent[nameParentKey{name: NormalizeName(name), parent: parentID}]
}

// Len returns the number of visible records indexed.
func (idx *Index) Len() int {
	return len(idx.byID)
}
