package cmd

import (
	"testing"

	"github.com/nbflow-io/nbflow/pkg/notebook"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notebookWithOutputs = `{
  "cells": [
    {
      "cell_type": "code",
      "execution_count": 3,
      "metadata": {},
      "outputs": [
        {
          "output_type": "stream",
          "name": "stdout",
          "text": ["hello\n"]
        }
      ],
      "source": ["print(\"hello\")"]
    }
  ],
  "metadata": {},
  "nbformat": 4,
  "nbformat_minor": 5
}`

func TestStripNotebookInPlace(t *testing.T) {
	t.Parallel()

	memFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(memFs, "/collection/a/a.ipynb", []byte(notebookWithOutputs), 0o644))

	written, err := stripNotebook(memFs, "/collection/a/a.ipynb")
	require.NoError(t, err)
	assert.Equal(t, "/collection/a/a.ipynb", written)

	nb, err := notebook.Open(memFs, "/collection/a/a.ipynb")
	require.NoError(t, err)

	assert.False(t, nb.HasOutputs())
}

func TestStripNotebookWritesSourceFromExecutedCounterpart(t *testing.T) {
	t.Parallel()

	memFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(memFs, "/collection/a/a.expanded.ipynb", []byte(notebookWithOutputs), 0o644))

	written, err := stripNotebook(memFs, "/collection/a/a.expanded.ipynb")
	require.NoError(t, err)
	assert.Equal(t, "/collection/a/a.ipynb", written)

	nb, err := notebook.Open(memFs, "/collection/a/a.ipynb")
	require.NoError(t, err)
	assert.False(t, nb.HasOutputs())

	// the executed counterpart keeps its outputs
	executed, err := notebook.Open(memFs, "/collection/a/a.expanded.ipynb")
	require.NoError(t, err)
	assert.True(t, executed.HasOutputs())
}
