package executor

import (
	"context"

	"github.com/nbflow-io/nbflow/pkg/scheduler"
)

type Config map[scheduler.TaskInstanceType]Operator

// WithOperator returns a copy of the config with every instance type routed
// to the given operator.
func (c Config) WithOperator(op Operator) Config {
	overridden := make(Config, len(c))
	for taskType := range c {
		overridden[taskType] = op
	}

	return overridden
}

// DefaultExecutors maps every instance type to a no-op, callers override the
// types they actually want to run.
var DefaultExecutors = Config{
	scheduler.TaskInstanceTypeMain:        NoOpOperator{},
	scheduler.TaskInstanceTypeOutputCheck: NoOpOperator{},
}

type NoOpOperator struct{}

func (NoOpOperator) Run(_ context.Context, _ scheduler.TaskInstance) error {
	return nil
}
