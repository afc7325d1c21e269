// Package annotate merges rendered PNG metadata into item annotations.
//
// Merging is idempotent: text that is already contained in an annotation
// is never appended again, so running over the same items twice changes
// nothing the second time.
package annotate

import "strings"

// Separator goes between an existing annotation and appended metadata.
const Separator = "\n\n"

// Outcome describes what happened to one item.
type Outcome int

const (
	// Updated means the rendered text was appended and stored.
	Updated Outcome = iota
	// Skipped means the annotation already contained the rendered text.
	Skipped
	// NoMetadata means the image had no text chunks.
	NoMetadata
	// Failed means the file could not be read or scanned, or the
	// annotation could not be stored. The annotation is unchanged.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Updated:
		return "updated"
	case Skipped:
		return "skipped"
	case NoMetadata:
		return "no_metadata"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Merge appends rendered to current unless current already contains it.
// The separator is only inserted when current is non-empty.
func Merge(current, rendered string) (string, Outcome) {
	if strings.Contains(current, rendered) {
		return current, Skipped
	}
	if current == "" {
		return rendered, Updated
	}
	return current + Separator + rendered, Updated
}
