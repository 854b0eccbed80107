package cmd

import (
	"testing"

	"github.com/fatih/color"
	"github.com/nbflow-io/nbflow/pkg/scheduler"
	"github.com/nbflow-io/nbflow/pkg/tutorial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func runTestCollection(tutorials ...*tutorial.Tutorial) *tutorial.Collection {
	c := &tutorial.Collection{
		Name:      "test-collection",
		Tutorials: tutorials,
	}
	c.ConnectRequires()

	return c
}

func TestApplyAllFilters(t *testing.T) {
	t.Parallel()

	newCollection := func() *tutorial.Collection {
		return runTestCollection(
			&tutorial.Tutorial{Name: "prepare", Tags: []string{"setup"}},
			&tutorial.Tutorial{Name: "analyze", Requires: []string{"prepare"}},
			&tutorial.Tutorial{Name: "plot", Requires: []string{"analyze"}, Tags: []string{"slow"}},
		)
	}

	tests := []struct {
		name            string
		filter          func(c *tutorial.Collection) *Filter
		wantErr         string
		expectedPending int
	}{
		{
			name:            "no filters leaves everything pending",
			filter:          func(c *tutorial.Collection) *Filter { return &Filter{} },
			expectedPending: 6,
		},
		{
			name: "single tutorial skips the rest",
			filter: func(c *tutorial.Collection) *Filter {
				return &Filter{SingleTutorial: c.GetTutorialByName("prepare")}
			},
			expectedPending: 2,
		},
		{
			name: "single tutorial with downstream includes the dependents",
			filter: func(c *tutorial.Collection) *Filter {
				return &Filter{SingleTutorial: c.GetTutorialByName("prepare"), IncludeDownstream: true}
			},
			expectedPending: 6,
		},
		{
			name: "downstream without a single tutorial is rejected",
			filter: func(c *tutorial.Collection) *Filter {
				return &Filter{IncludeDownstream: true}
			},
			wantErr: "cannot use the --downstream flag",
		},
		{
			name: "include tag keeps only the tagged tutorials",
			filter: func(c *tutorial.Collection) *Filter {
				return &Filter{IncludeTag: "setup"}
			},
			expectedPending: 2,
		},
		{
			name: "unknown include tag is rejected",
			filter: func(c *tutorial.Collection) *Filter {
				return &Filter{IncludeTag: "nope"}
			},
			wantErr: "no tutorials found with include tag 'nope'",
		},
		{
			name: "exclude tag skips the tagged tutorials",
			filter: func(c *tutorial.Collection) *Filter {
				return &Filter{ExcludeTag: "slow"}
			},
			expectedPending: 4,
		},
		{
			name: "unknown exclude tag is rejected",
			filter: func(c *tutorial.Collection) *Filter {
				return &Filter{ExcludeTag: "nope"}
			},
			wantErr: "no tutorials found with exclude tag 'nope'",
		},
		{
			name: "single tutorial cannot be combined with an include tag",
			filter: func(c *tutorial.Collection) *Filter {
				return &Filter{SingleTutorial: c.GetTutorialByName("prepare"), IncludeTag: "setup"}
			},
			wantErr: "you cannot use the '--tag' flag",
		},
		{
			name: "single tutorial with exclude tag requires downstream",
			filter: func(c *tutorial.Collection) *Filter {
				return &Filter{SingleTutorial: c.GetTutorialByName("prepare"), ExcludeTag: "slow"}
			},
			wantErr: "you must also use the '--downstream' flag",
		},
		{
			name: "only main skips the output checks",
			filter: func(c *tutorial.Collection) *Filter {
				return &Filter{OnlyTaskTypes: []string{"main"}}
			},
			expectedPending: 3,
		},
		{
			name: "only output-check skips the main executions",
			filter: func(c *tutorial.Collection) *Filter {
				return &Filter{OnlyTaskTypes: []string{"output-check"}}
			},
			expectedPending: 3,
		},
		{
			name: "invalid only value is rejected",
			filter: func(c *tutorial.Collection) *Filter {
				return &Filter{OnlyTaskTypes: []string{"banana"}}
			},
			wantErr: "invalid value for '--only' flag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newCollection()
			s := scheduler.NewScheduler(zap.NewNop().Sugar(), c, nil)

			err := ApplyAllFilters(tt.filter(c), s, c)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedPending, s.InstanceCountByStatus(scheduler.Pending))
		})
	}
}

func TestAnalyzeResults(t *testing.T) {
	t.Parallel()

	c := runTestCollection(
		&tutorial.Tutorial{Name: "prepare"},
		&tutorial.Tutorial{Name: "analyze"},
	)
	s := scheduler.NewScheduler(zap.NewNop().Sugar(), c, nil)

	results := make([]*scheduler.TaskExecutionResult, 0, 4)
	for _, instance := range s.GetTaskInstancesByStatus(scheduler.Pending) {
		var err error
		if instance.GetTutorial().Name == "analyze" && instance.GetType() == scheduler.TaskInstanceTypeMain {
			err = assert.AnError
		}

		results = append(results, &scheduler.TaskExecutionResult{Instance: instance, Error: err})
	}

	summary := analyzeResults(results, s)

	assert.Equal(t, 4, summary.TotalTasks)
	assert.Equal(t, 3, summary.SuccessfulTasks)
	assert.Equal(t, 1, summary.FailedTasks)

	assert.Equal(t, 2, summary.Tutorials.Total)
	assert.Equal(t, 1, summary.Tutorials.Succeeded)
	assert.Equal(t, 1, summary.Tutorials.Failed)

	assert.Equal(t, 2, summary.OutputChecks.Total)
	assert.Equal(t, 2, summary.OutputChecks.Succeeded)
}

func TestFormatCountWithSkipped(t *testing.T) {
	color.NoColor = true

	tests := []struct {
		name     string
		total    int
		failed   int
		checks   int
		skipped  int
		expected string
	}{
		{"all succeeded", 3, 0, 0, 0, "3"},
		{"with failures", 4, 2, 0, 0, "2 failed / 2 succeeded"},
		{"with check failures", 3, 0, 1, 0, "1 failed due to checks / 2 succeeded"},
		{"with skips", 3, 1, 0, 1, "1 failed / 1 succeeded / 1 skipped"},
		{"nothing ran", 0, 0, 0, 0, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatCountWithSkipped(tt.total, tt.failed, tt.checks, tt.skipped))
		})
	}
}
