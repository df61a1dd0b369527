// Package sidebar holds the client-side behavior of the workflow sidebar:
// search filtering and the confirm-then-delete flow.
package sidebar

import (
	"strings"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
)

// Filter returns the workflows whose name or id contains term, ignoring case.
// A blank term returns list unchanged. Workflows without a name match on id only.
func Filter(list []*models.SidebarWorkflow, term string) []*models.SidebarWorkflow {
	term = strings.TrimSpace(term)
	if term == "" {
		return list
	}
	term = strings.ToLower(term)

	matched := make([]*models.SidebarWorkflow, 0, len(list))
	for _, w := range list {
		if w.Name != nil && strings.Contains(strings.ToLower(*w.Name), term) {
			matched = append(matched, w)
			continue
		}
		if strings.Contains(w.ID.String(), term) {
			matched = append(matched, w)
		}
	}
	return matched
}
