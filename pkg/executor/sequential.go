package executor

import (
	"context"

	"github.com/nbflow-io/nbflow/pkg/scheduler"
	"github.com/pkg/errors"
)

type Operator interface {
	Run(ctx context.Context, ti scheduler.TaskInstance) error
}

type Sequential struct {
	TaskTypeMap Config
}

func (s Sequential) RunSingleTask(ctx context.Context, instance scheduler.TaskInstance) error {
	operator, ok := s.TaskTypeMap[instance.GetType()]
	if !ok {
		return errors.New("there is no executor configured for the task type, task cannot be run: " + instance.GetType().String())
	}

	return operator.Run(ctx, instance)
}
