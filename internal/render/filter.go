package render

import (
	"strings"

	"machine-dashboard-client/internal/model"
)

// Filters narrows the board. Empty fields and "all" match everything.
type Filters struct {
	Location string `form:"location" json:"location"`
	Status   string `form:"status" json:"status"`
	Search   string `form:"q" json:"q"`
}

func isAll(v string) bool {
	return v == "" || strings.EqualFold(v, "all")
}

// MatchLocation applies the location filter.
func (f Filters) MatchLocation(name string) bool {
	return isAll(f.Location) || f.Location == name
}

// MatchMachine applies the status filter and then the free-text search,
// which looks at the display name and the current job's work order.
func (f Filters) MatchMachine(m model.Machine) bool {
	if !isAll(f.Status) && string(m.Status) != f.Status {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(m.Label()), q) {
		return true
	}
	return m.Job != nil && strings.Contains(strings.ToLower(m.Job.WorkOrder), q)
}
