package screening

import (
	"github.com/wikimedia/contest-api/internal/types"
)

// One screening event as seen by the aggregator
type Event struct {
	Decision types.Decision
	Flags    []types.FlagCode
}

// Folds an event history, oldest first, into the current screening state.
//
// Decisions keep every eligible/ineligible vote in event order. Flags are the union of all
// event flags in first-seen order.
func Aggregate(events []Event) types.ScreeningAggregate {
	agg := types.ScreeningAggregate{
		Decisions: []types.Decision{},
		Flags:     []types.FlagCode{},
	}
	seen := map[types.FlagCode]struct{}{}

	for _, e := range events {
		if e.Decision.IsVote() {
			agg.Decisions = append(agg.Decisions, e.Decision)
		}
		for _, f := range e.Flags {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			agg.Flags = append(agg.Flags, f)
		}
	}

	return agg
}
