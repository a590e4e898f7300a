package listing

import (
	"fmt"
	"strings"
)

// facetParam is the indexed query parameter carrying one discipline facet.
// The brackets are pre-encoded as the listing site expects; %% escapes them
// for fmt.
const facetParam = "academicDisciplineFacet%%5B%d%%5D"

// BuildQuery returns the listing URL for facets with pageSize results per page.
// Facets are appended in order with their position as index; duplicates and
// malformed values are passed through untouched.
func BuildQuery(base string, facets []string, pageSize int) string {
	var b strings.Builder
	b.WriteString(base)
	fmt.Fprintf(&b, "&pageSize=%d&startIndex=1", pageSize)
	for i, facet := range facets {
		b.WriteByte('&')
		fmt.Fprintf(&b, facetParam, i)
		b.WriteByte('=')
		b.WriteString(facet)
	}
	return b.String()
}
