package cmd

import (
	"testing"

	"github.com/fatih/color"
	"github.com/nbflow-io/nbflow/pkg/tutorial"
	"github.com/stretchr/testify/assert"
)

func TestDescribeTutorial(t *testing.T) {
	color.NoColor = true

	tests := []struct {
		name     string
		tutorial *tutorial.Tutorial
		expected string
	}{
		{
			name:     "plain tutorial",
			tutorial: &tutorial.Tutorial{Name: "fault_scarp"},
			expected: "fault_scarp",
		},
		{
			name:     "with tags",
			tutorial: &tutorial.Tutorial{Name: "fault_scarp", Tags: []string{"geomorphology", "slow"}},
			expected: "fault_scarp (tags: geomorphology, slow)",
		},
		{
			name:     "with requires and skip",
			tutorial: &tutorial.Tutorial{Name: "plot", Requires: []string{"prepare"}, Skip: true},
			expected: "plot (requires: prepare; skipped)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, describeTutorial(tt.tutorial))
		})
	}
}

func TestRenderCollectionTree(t *testing.T) {
	color.NoColor = true

	c := &tutorial.Collection{
		Name: "landlab-tutorials",
		DefinitionFile: tutorial.DefinitionFile{
			Name: "collection.yml",
			Path: "/repo/tutorials/collection.yml",
		},
		Tutorials: []*tutorial.Tutorial{
			{Name: "fault_scarp", NotebookPath: "/repo/tutorials/fault_scarp/fault_scarp.ipynb"},
			{Name: "overland_flow", NotebookPath: "/repo/tutorials/overland_flow/overland_flow.ipynb"},
		},
	}

	rendered := renderCollectionTree(c)

	assert.Contains(t, rendered, "landlab-tutorials (2 tutorials)")
	assert.Contains(t, rendered, "fault_scarp")
	assert.Contains(t, rendered, "overland_flow")
}
