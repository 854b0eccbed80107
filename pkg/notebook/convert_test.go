package notebook

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToScript(t *testing.T) {
	t.Parallel()

	nb := &Notebook{
		Cells: []Cell{
			{Type: CellTypeMarkdown, Source: "# Fault scarp\n\nDiffuse a scarp."},
			{Type: CellTypeCode, Source: "%matplotlib inline\nimport numpy as np"},
			{Type: CellTypeCode, Source: "np.zeros?\n!pip install terrainbento\nz = np.zeros(5)"},
		},
		Format:      4,
		FormatMinor: 5,
	}

	script := nb.ToScript()

	assert.True(t, strings.HasPrefix(script, "#!/usr/bin/env python\n# coding: utf-8\n"))
	assert.Contains(t, script, "# # Fault scarp\n#\n# Diffuse a scarp.\n")
	assert.Contains(t, script, "# In[1]:\n\n# %matplotlib auto\nimport numpy as np\n")
	assert.Contains(t, script, "# In[2]:\n\n# np.zeros?\n# !pip install terrainbento\nz = np.zeros(5)\n")
	assert.NotContains(t, script, "%matplotlib inline")
}

func TestRewriteMagics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain code untouched", "x = 1", "x = 1"},
		{"matplotlib pinned to auto", "%matplotlib notebook", "# %matplotlib auto"},
		{"line magic commented", "%timeit run()", "# %timeit run()"},
		{"cell magic commented", "%%bash", "# %%bash"},
		{"shell escape commented", "!ls data/", "# !ls data/"},
		{"pinfo commented", "grid.add_field?", "# grid.add_field?"},
		{"double pinfo commented", "np.zeros??", "# np.zeros??"},
		{"ternary expression untouched", "y = a if b else c # ok?", "y = a if b else c # ok?"},
		{"bare question mark untouched", "?", "?"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, rewriteMagics(tt.input))
		})
	}
}
