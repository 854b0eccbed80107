package executor

import (
	"context"
	"testing"

	"github.com/nbflow-io/nbflow/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultExecutors(t *testing.T) {
	t.Parallel()

	assert.Contains(t, DefaultExecutors, scheduler.TaskInstanceTypeMain)
	assert.Contains(t, DefaultExecutors, scheduler.TaskInstanceTypeOutputCheck)

	for _, op := range DefaultExecutors {
		require.NoError(t, op.Run(context.Background(), newTestInstance("noop")))
	}
}

func TestConfigWithOperator(t *testing.T) {
	t.Parallel()

	operator := new(mockOperator)

	overridden := DefaultExecutors.WithOperator(operator)
	require.Len(t, overridden, len(DefaultExecutors))

	for _, op := range overridden {
		assert.Same(t, operator, op)
	}

	// the base config keeps its no-ops
	for _, op := range DefaultExecutors {
		assert.IsType(t, NoOpOperator{}, op)
	}
}
