package parequest

import (
	"github.com/rs/zerolog/log"
)

// EvaluateChecklist returns the required items whose evidence is still
// outstanding, preserving input order. An empty result means the request is
// submission-ready from a checklist perspective; an empty input yields an
// empty result, so a request with no checklist items is submittable.
func EvaluateChecklist(items []*ChecklistItem) []*ChecklistItem {
	var missing []*ChecklistItem
	for _, item := range items {
		if !item.Required {
			continue
		}
		if item.Status == ItemAttached || item.Status == ItemWaived {
			continue
		}
		missing = append(missing, item)
	}
	return missing
}

// HasSummary reports whether at least one medical necessity summary exists.
func HasSummary(summaries []*Summary) bool {
	return len(summaries) > 0
}

// CurrentSummary picks the summary with the highest version. Versions are
// strictly increasing by invariant; a duplicate is a data anomaly and is
// logged as an integrity warning, with the first-seen row winning
// deterministically.
func CurrentSummary(summaries []*Summary) *Summary {
	var current *Summary
	for _, s := range summaries {
		if current == nil || s.Version > current.Version {
			current = s
			continue
		}
		if s.Version == current.Version {
			log.Warn().
				Str("request_id", s.RequestID.String()).
				Int("version", s.Version).
				Msg("duplicate summary version detected")
		}
	}
	return current
}

// NextSummaryVersion returns the version to assign to a newly generated
// summary.
func NextSummaryVersion(summaries []*Summary) int {
	if current := CurrentSummary(summaries); current != nil {
		return current.Version + 1
	}
	return 1
}
