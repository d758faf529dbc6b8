package remarkable

import (
	"path"
	"sort"
	"strings"
)

// CleanPlan lists what a cleanup pass would remove from the store:
// objects whose metadata carries the deleted flag, and orphaned files
// left behind without any metadata record.
type CleanPlan struct {
	// DeletedIDs are ids whose metadata is flagged deleted.
	DeletedIDs []string

	// OrphanStems are file stems with no metadata record whose
	// prefix deletion pattern is unambiguous.
	OrphanStems []string

	// AmbiguousStems are orphan stems skipped because their prefix
	// pattern would also catch entries belonging to other stems.
	// These are left for the user to inspect.
	AmbiguousStems []string

	entries []string
}

// BuildCleanPlan analyzes a store listing against its parsed metadata
// records. records must be the unfiltered snapshot, deleted included.
// Metadata presence is judged from the listing, not from the parsed
// records, so an unparseable metadata file still protects its entries
// from orphan cleanup.
func BuildCleanPlan(records []*Record, entries []string) *CleanPlan {
	plan := &CleanPlan{entries: entries}

	metaStems := make(map[string]struct{})

	for _, name := range entries {
		if strings.HasSuffix(name, ".metadata") {
			metaStems[strings.TrimSuffix(name, ".metadata")] = struct{}{}
		}
	}

	for _, rec := range records {
		if rec.Deleted {
			plan.DeletedIDs = append(plan.DeletedIDs, rec.ID)
		}
	}

	sort.Strings(plan.DeletedIDs)

	allStems := make(map[string]struct{})
	for _, name := range entries {
		allStems[stem(name)] = struct{}{}
	}

	var orphans []string

	for s := range allStems {
		if _, ok := metaStems[s]; !ok {
			orphans = append(orphans, s)
		}
	}

	sort.Strings(orphans)

	for _, s := range orphans {
		stems := make(map[string]struct{})

		for _, name := range entries {
			if strings.HasPrefix(name, s) {
				stems[stem(name)] = struct{}{}
			}
		}

		if len(stems) > 1 {
			plan.AmbiguousStems = append(plan.AmbiguousStems, s)
			continue
		}

		plan.OrphanStems = append(plan.OrphanStems, s)
	}

	return plan
}

// Removals returns the store entries a stem's deletion pattern covers.
func (p *CleanPlan) Removals(s string) []string {
	var names []string

	for _, name := range p.entries {
		if strings.HasPrefix(name, s) {
			names = append(names, name)
		}
	}

	return names
}

func stem(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}
