package ask

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memora-api/internal/domain/entity"
)

func TestPlan_ValidJSON(t *testing.T) {
	chat := &fakeChatModel{reply: `{"time_intent":"range","entities":["Eiffel Tower"],"filters":{"date_range":{"from":"2024-01-01"}},"sort":"asc","size":5}`}
	planner := NewPlanner(&fakeFactory{model: chat}, nil, newTestConfig())

	out := planner.Plan(context.Background(), "u1", "when did I visit the Eiffel Tower")
	require.False(t, out.Degraded)

	plan := out.Value
	assert.Equal(t, entity.TimeIntentRange, plan.TimeIntent)
	assert.Equal(t, []string{"Eiffel Tower"}, plan.Entities)
	assert.Equal(t, entity.SortAsc, plan.Sort)
	assert.Equal(t, 5, plan.Size)
	require.NotNil(t, plan.Filters)
	require.NotNil(t, plan.Filters.DateRange)
	assert.Equal(t, "2024-01-01", plan.Filters.DateRange.From)
}

func TestPlan_NoisyOutputStillParses(t *testing.T) {
	chat := &fakeChatModel{reply: "Here is the plan:\n```json\n{\"time_intent\":\"last\",\"entities\":[],\"sort\":\"desc\",\"size\":1}\n```"}
	planner := NewPlanner(&fakeFactory{model: chat}, nil, newTestConfig())

	out := planner.Plan(context.Background(), "u1", "latest memory")
	require.False(t, out.Degraded)
	assert.Equal(t, entity.TimeIntentLast, out.Value.TimeIntent)
}

func TestPlan_MalformedOutputFallsBack(t *testing.T) {
	cases := map[string]string{
		"not json":        "I could not build a plan, sorry.",
		"json array":      `["last","desc"]`,
		"truncated":       `{"time_intent":"last","sort":`,
		"empty response":  "",
		"plain scalar":    `42`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			chat := &fakeChatModel{reply: reply}
			planner := NewPlanner(&fakeFactory{model: chat}, nil, newTestConfig())

			out := planner.Plan(context.Background(), "u1", "anything")
			require.True(t, out.Degraded)
			assert.NotEmpty(t, out.Reason)
			assert.Equal(t, entity.DefaultQueryPlan(), out.Value)
		})
	}
}

func TestPlan_ServiceErrorFallsBack(t *testing.T) {
	chat := &fakeChatModel{err: errors.New("provider down")}
	planner := NewPlanner(&fakeFactory{model: chat}, nil, newTestConfig())

	out := planner.Plan(context.Background(), "u1", "anything")
	require.True(t, out.Degraded)
	assert.Contains(t, out.Reason, "provider down")
	assert.Equal(t, entity.DefaultQueryPlan(), out.Value)
}

func TestPlan_FactoryErrorFallsBack(t *testing.T) {
	planner := NewPlanner(&fakeFactory{err: errors.New("no such provider")}, nil, newTestConfig())

	out := planner.Plan(context.Background(), "u1", "anything")
	require.True(t, out.Degraded)
	assert.Equal(t, entity.DefaultQueryPlan(), out.Value)
}

func TestPlan_EmptyQuestionUsesDefaults(t *testing.T) {
	chat := &fakeChatModel{reply: `{"size":3}`}
	planner := NewPlanner(&fakeFactory{model: chat}, nil, newTestConfig())

	out := planner.Plan(context.Background(), "u1", "   ")
	require.True(t, out.Degraded)
	assert.Equal(t, entity.DefaultQueryPlan(), out.Value)
	assert.Zero(t, chat.calls)
}

func TestPlan_CoercesInvalidFields(t *testing.T) {
	chat := &fakeChatModel{reply: `{"time_intent":"whenever","entities":null,"sort":"sideways","size":-3}`}
	planner := NewPlanner(&fakeFactory{model: chat}, nil, newTestConfig())

	out := planner.Plan(context.Background(), "u1", "anything")
	require.False(t, out.Degraded)

	plan := out.Value
	assert.Equal(t, entity.TimeIntentLast, plan.TimeIntent)
	assert.Equal(t, entity.SortDesc, plan.Sort)
	assert.Equal(t, 1, plan.Size)
	assert.NotNil(t, plan.Entities)
	assert.Empty(t, plan.Entities)
}

func TestPlan_ClampsOversizedPlans(t *testing.T) {
	chat := &fakeChatModel{reply: `{"time_intent":"last","sort":"desc","size":500}`}
	planner := NewPlanner(&fakeFactory{model: chat}, nil, newTestConfig())

	out := planner.Plan(context.Background(), "u1", "everything ever")
	require.False(t, out.Degraded)
	assert.Equal(t, 25, out.Value.Size)
}

type memoryPlanCache struct {
	plans map[string]*entity.QueryPlan
	hits  int
	sets  int
}

func (c *memoryPlanCache) GetPlan(_ context.Context, userID, question string) (*entity.QueryPlan, bool) {
	p, ok := c.plans[userID+"|"+question]
	if ok {
		c.hits++
	}
	return p, ok
}

func (c *memoryPlanCache) SetPlan(_ context.Context, userID, question string, plan *entity.QueryPlan) {
	c.sets++
	c.plans[userID+"|"+question] = plan
}

func TestPlan_CacheShortCircuitsLLM(t *testing.T) {
	chat := &fakeChatModel{reply: `{"time_intent":"last","sort":"desc","size":1}`}
	cache := &memoryPlanCache{plans: map[string]*entity.QueryPlan{}}
	planner := NewPlanner(&fakeFactory{model: chat}, cache, newTestConfig())

	first := planner.Plan(context.Background(), "u1", "latest memory")
	require.False(t, first.Degraded)
	assert.Equal(t, 1, chat.calls)
	assert.Equal(t, 1, cache.sets)

	second := planner.Plan(context.Background(), "u1", "latest memory")
	require.False(t, second.Degraded)
	assert.Equal(t, 1, chat.calls)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.Value, second.Value)
}
