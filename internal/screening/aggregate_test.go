package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wikimedia/contest-api/internal/types"
)

func TestAggregate(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		agg := Aggregate(nil)
		assert.Equal(t, []types.Decision{}, agg.Decisions)
		assert.Equal(t, []types.FlagCode{}, agg.Flags)
	})

	t.Run("DecisionsAndFlagUnion", func(t *testing.T) {
		agg := Aggregate([]Event{
			{Decision: types.DecisionEligible, Flags: []types.FlagCode{"a"}},
			{Decision: types.DecisionIneligible, Flags: []types.FlagCode{"b"}},
			{Decision: types.DecisionNone, Flags: []types.FlagCode{"a", "c"}},
		})

		assert.Equal(t, []types.Decision{types.DecisionEligible, types.DecisionIneligible}, agg.Decisions)
		assert.Equal(t, []types.FlagCode{"a", "b", "c"}, agg.Flags)
	})

	t.Run("RepeatedVotesKept", func(t *testing.T) {
		agg := Aggregate([]Event{
			{Decision: types.DecisionEligible},
			{Decision: ""},
			{Decision: types.DecisionEligible},
		})

		assert.Equal(t, []types.Decision{types.DecisionEligible, types.DecisionEligible}, agg.Decisions)
		assert.Empty(t, agg.Flags)
	})
}
