package executor

import (
	"context"
	"testing"

	"github.com/nbflow-io/nbflow/pkg/scheduler"
	"github.com/nbflow-io/nbflow/pkg/tutorial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockOperator struct {
	mock.Mock
}

func (m *mockOperator) Run(ctx context.Context, ti scheduler.TaskInstance) error {
	args := m.Called(ctx, ti)
	return args.Error(0)
}

func newTestInstance(name string) scheduler.TaskInstance {
	c := &tutorial.Collection{
		Name:      "test-collection",
		Tutorials: []*tutorial.Tutorial{{Name: name}},
	}

	s := scheduler.NewScheduler(zap.NewNop().Sugar(), c, nil)
	return s.GetTaskInstancesByStatus(scheduler.Pending)[0]
}

func TestSequentialRunSingleTask(t *testing.T) {
	t.Parallel()

	instance := newTestInstance("fault_scarp")

	t.Run("dispatches to the configured operator", func(t *testing.T) {
		t.Parallel()

		operator := new(mockOperator)
		operator.On("Run", mock.Anything, instance).Return(nil)

		s := Sequential{TaskTypeMap: Config{
			scheduler.TaskInstanceTypeMain:        operator,
			scheduler.TaskInstanceTypeOutputCheck: NoOpOperator{},
		}}

		err := s.RunSingleTask(context.Background(), instance)
		require.NoError(t, err)
		operator.AssertExpectations(t)
	})

	t.Run("errors when no operator is configured", func(t *testing.T) {
		t.Parallel()

		s := Sequential{TaskTypeMap: Config{}}

		err := s.RunSingleTask(context.Background(), instance)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no executor configured")
	})
}

func TestConcurrentStart(t *testing.T) {
	t.Parallel()

	taskCount := 5
	instances := make([]scheduler.TaskInstance, 0, taskCount)
	operator := new(mockOperator)
	for range taskCount {
		instance := newTestInstance("tutorial")
		instances = append(instances, instance)
		operator.On("Run", mock.Anything, instance).Return(nil)
	}

	concurrent, err := NewConcurrent(zap.NewNop().Sugar(), Config{
		scheduler.TaskInstanceTypeMain:        operator,
		scheduler.TaskInstanceTypeOutputCheck: NoOpOperator{},
	}, 3)
	require.NoError(t, err)

	input := make(chan scheduler.TaskInstance, taskCount)
	results := make(chan *scheduler.TaskExecutionResult, taskCount)

	concurrent.Start(context.Background(), input, results)

	for _, instance := range instances {
		input <- instance
	}
	close(input)

	for range taskCount {
		result := <-results
		assert.NoError(t, result.Error)
	}

	operator.AssertExpectations(t)
}

func TestNoOpOperator(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NoOpOperator{}.Run(context.Background(), newTestInstance("x")))
}
