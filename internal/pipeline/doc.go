// Package pipeline coordinates a full cratedig run: it secures the chart
// export, refreshes the canonical catalog when the export changed, and
// fetches whatever clips the library is still missing. A file lock keeps
// runs from overlapping.
package pipeline
