package sanitizer

import "strings"

// collapseSpace folds every whitespace run, newlines included, into one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TrimAndNormalize is used for single-line values such as names and labels.
func TrimAndNormalize(s string) string {
	return Pipeline{collapseSpace}.Apply(s)
}
