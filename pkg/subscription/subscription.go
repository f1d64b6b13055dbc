package subscription

import (
	"time"

	"github.com/calmirror/calmirror/pkg/filter"
)

// FilterRule is the raw rule as stored on the subscription. It is compiled
// into a filter.Rule once per reconciliation run.
type FilterRule struct {
	Kind    filter.RuleKind
	Pattern string
}

type Subscription struct {
	ID               int
	ProfileID        int
	SourceCalendarID string
	TargetCalendarID string
	Filter           FilterRule
	Enabled          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
