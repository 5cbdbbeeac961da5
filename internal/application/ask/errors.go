package ask

import "errors"

var (
	errPlannerDisabled  = errors.New("planner llm factory not configured")
	errEmptyLLMResponse = errors.New("empty llm response")
	errNonObjectPlan    = errors.New("planner output is not a json object")
)
