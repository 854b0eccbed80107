package lint

import (
	"testing"

	"github.com/nbflow-io/nbflow/pkg/tutorial"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validNotebookContent = `{
 "cells": [
  {
   "cell_type": "code",
   "execution_count": null,
   "metadata": {},
   "outputs": [],
   "source": "print('hi')"
  }
 ],
 "metadata": {},
 "nbformat": 4,
 "nbformat_minor": 5
}`

const notebookWithOutputs = `{
 "cells": [
  {
   "cell_type": "code",
   "execution_count": 3,
   "metadata": {},
   "outputs": [{"output_type": "stream", "name": "stdout", "text": "hi"}],
   "source": "print('hi')"
  }
 ],
 "metadata": {},
 "nbformat": 4,
 "nbformat_minor": 5
}`

const notebookWithError = `{
 "cells": [
  {
   "cell_type": "code",
   "execution_count": 1,
   "metadata": {},
   "outputs": [{"output_type": "error", "ename": "NameError", "evalue": "name 'x' is not defined", "traceback": []}],
   "source": "x"
  }
 ],
 "metadata": {},
 "nbformat": 4,
 "nbformat_minor": 5
}`

func collectionWithTutorials(tutorials ...*tutorial.Tutorial) *tutorial.Collection {
	c := &tutorial.Collection{
		Name:      "test-collection",
		Tutorials: tutorials,
		DefinitionFile: tutorial.DefinitionFile{
			Name: "collection.yml",
			Path: "/collection/collection.yml",
		},
	}
	c.ConnectRequires()

	return c
}

func TestEnsureCollectionNameIsValid(t *testing.T) {
	t.Parallel()

	issues, err := EnsureCollectionNameIsValid(collectionWithTutorials())
	require.NoError(t, err)
	assert.Empty(t, issues)

	issues, err = EnsureCollectionNameIsValid(&tutorial.Collection{})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, collectionNameCannotBeEmpty, issues[0].Description)

	issues, err = EnsureCollectionNameIsValid(&tutorial.Collection{Name: "has spaces"})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, collectionNameMustBeAlphanumeric, issues[0].Description)
}

func TestEnsureScheduleIsValidCron(t *testing.T) {
	t.Parallel()

	tests := []struct {
		schedule   string
		issueCount int
	}{
		{"", 0},
		{"0 6 * * 1", 0},
		{"daily", 0},
		{"weekly", 0},
		{"not a cron", 1},
		{"61 25 * * *", 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.schedule, func(t *testing.T) {
			t.Parallel()

			issues, err := EnsureScheduleIsValidCron(&tutorial.Collection{Schedule: tt.schedule})
			require.NoError(t, err)
			assert.Len(t, issues, tt.issueCount)
		})
	}
}

func TestEnsureRequiresExist(t *testing.T) {
	t.Parallel()

	a := &tutorial.Tutorial{Name: "a"}
	b := &tutorial.Tutorial{Name: "b", Requires: []string{"a", "ghost"}}
	c := collectionWithTutorials(a, b)

	issues, err := EnsureRequiresExistForASingleTutorial(c, b)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "Required tutorial 'ghost' does not exist", issues[0].Description)
	assert.Equal(t, b, issues[0].Tutorial)
}

func TestEnsureCollectionHasNoCycles(t *testing.T) {
	t.Parallel()

	t.Run("acyclic collection passes", func(t *testing.T) {
		t.Parallel()

		c := collectionWithTutorials(
			&tutorial.Tutorial{Name: "a"},
			&tutorial.Tutorial{Name: "b", Requires: []string{"a"}},
		)

		issues, err := EnsureCollectionHasNoCycles(c)
		require.NoError(t, err)
		assert.Empty(t, issues)
	})

	t.Run("self requirement is a cycle", func(t *testing.T) {
		t.Parallel()

		c := collectionWithTutorials(
			&tutorial.Tutorial{Name: "a", Requires: []string{"a"}},
		)

		issues, err := EnsureCollectionHasNoCycles(c)
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, []string{"Tutorial `a` requires itself"}, issues[0].Context)
	})

	t.Run("two-node cycle is reported", func(t *testing.T) {
		t.Parallel()

		c := collectionWithTutorials(
			&tutorial.Tutorial{Name: "a", Requires: []string{"b"}},
			&tutorial.Tutorial{Name: "b", Requires: []string{"a"}},
		)

		issues, err := EnsureCollectionHasNoCycles(c)
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, collectionContainsCycle, issues[0].Description)
		assert.Len(t, issues[0].Context, 2)
	})
}

func TestEnsureReadmeExists(t *testing.T) {
	t.Parallel()

	withReadme := &tutorial.Tutorial{Name: "a", ReadmePath: "/collection/a/README.md"}
	withoutReadme := &tutorial.Tutorial{Name: "b"}
	c := collectionWithTutorials(withReadme, withoutReadme)

	issues, err := EnsureReadmeExistsForASingleTutorial(c, withReadme)
	require.NoError(t, err)
	assert.Empty(t, issues)

	issues, err = EnsureReadmeExistsForASingleTutorial(c, withoutReadme)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, readmeMustExist, issues[0].Description)
}

func TestEnsureHeaderImageExists(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/collection/media/header.png", []byte("png"), 0o644))

	validate := EnsureHeaderImageExists(fs)

	c := collectionWithTutorials()
	c.HeaderImage = "media/header.png"
	issues, err := validate(c)
	require.NoError(t, err)
	assert.Empty(t, issues)

	c.HeaderImage = "media/missing.png"
	issues, err = validate(c)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Description, "media/missing.png")
}

func TestEnsureReadmeReferencesHeaderImage(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/collection/a/README.md", []byte("# A\n\n![header](../media/header.png)\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/collection/b/README.md", []byte("# B\n\nsee media/header.png\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/collection/c/README.md", []byte("# C\n\n![header](media/header.png)\n"), 0o644))

	validate := EnsureReadmeReferencesHeaderImageForASingleTutorial(fs)

	c := collectionWithTutorials()
	c.HeaderImage = "media/header.png"

	referencing := &tutorial.Tutorial{Name: "a", ReadmePath: "/collection/a/README.md"}
	issues, err := validate(c, referencing)
	require.NoError(t, err)
	assert.Empty(t, issues)

	// a bare mention is not an image reference
	mentioning := &tutorial.Tutorial{Name: "b", ReadmePath: "/collection/b/README.md"}
	issues, err = validate(c, mentioning)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Description, "media/header.png")

	// the path is resolved from the README's directory, not the collection root
	misresolving := &tutorial.Tutorial{Name: "c", ReadmePath: "/collection/c/README.md"}
	issues, err = validate(c, misresolving)
	require.NoError(t, err)
	require.Len(t, issues, 1)

	issues, err = validate(c, &tutorial.Tutorial{Name: "d"})
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestEnsureArtifactKinds(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/collection/a/a.ipynb", []byte("{}"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/collection/a/a.py", []byte("print('hi')"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/collection/a/README.md", []byte("[input](data/input.csv)\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/collection/a/data/input.csv", []byte("x\n"), 0o644))

	validate := EnsureArtifactKindsForASingleTutorial(fs)

	complete := &tutorial.Tutorial{Name: "a", NotebookPath: "/collection/a/a.ipynb", ReadmePath: "/collection/a/README.md"}
	issues, err := validate(nil, complete)
	require.NoError(t, err)
	assert.Empty(t, issues)

	require.NoError(t, afero.WriteFile(fs, "/collection/b/b.ipynb", []byte("{}"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/collection/b/README.md", []byte("[input](data/missing.csv) and [site](https://example.com/data/ok)\n"), 0o644))

	broken := &tutorial.Tutorial{Name: "b", NotebookPath: "/collection/b/b.ipynb", ReadmePath: "/collection/b/README.md"}
	issues, err = validate(nil, broken)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, tutorialHasNoCodeArtifact, issues[0].Description)
	assert.Contains(t, issues[1].Description, "data/missing.csv")
}

func TestEnsureExcludedPathsExist(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/collection/archived/old.ipynb", []byte("{}"), 0o644))

	c := collectionWithTutorials()
	c.Exclude = []string{"archived", "never_existed"}

	issues, err := EnsureExcludedPathsExist(fs)(c)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Description, "never_existed")
}

func TestEnsureNotebookPairExists(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/collection/a/a.expanded.ipynb", []byte(validNotebookContent), 0o644))

	validate := EnsureNotebookPairExistsForASingleTutorial(fs)

	paired := &tutorial.Tutorial{
		Name:         "a",
		NotebookPath: "/collection/a/a.ipynb",
		ExpandedPath: "/collection/a/a.expanded.ipynb",
	}
	issues, err := validate(nil, paired)
	require.NoError(t, err)
	assert.Empty(t, issues)

	unpaired := &tutorial.Tutorial{
		Name:         "b",
		NotebookPath: "/collection/b/b.ipynb",
		ExpandedPath: "/collection/b/b.expanded.ipynb",
	}
	issues, err = validate(nil, unpaired)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, expandedNotebookMustExist, issues[0].Description)
}

func TestEnsureNotebookParses(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/collection/a/a.ipynb", []byte(validNotebookContent), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/collection/b/b.ipynb", []byte("{broken"), 0o644))

	validate := EnsureNotebookParsesForASingleTutorial(fs)

	issues, err := validate(nil, &tutorial.Tutorial{
		Name:         "a",
		NotebookPath: "/collection/a/a.ipynb",
		ExpandedPath: "/collection/a/a.expanded.ipynb",
	})
	require.NoError(t, err)
	assert.Empty(t, issues)

	issues, err = validate(nil, &tutorial.Tutorial{
		Name:         "b",
		NotebookPath: "/collection/b/b.ipynb",
		ExpandedPath: "/collection/b/b.expanded.ipynb",
	})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Description, "Failed to parse the notebook 'b.ipynb'")
}

func TestEnsureNotebookMatchesSchema(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/collection/a/a.ipynb", []byte(validNotebookContent), 0o644))

	// a code cell missing the outputs and execution_count keys
	require.NoError(t, afero.WriteFile(fs, "/collection/b/b.ipynb", []byte(`{
 "cells": [{"cell_type": "code", "metadata": {}, "source": "x = 1"}],
 "metadata": {},
 "nbformat": 4,
 "nbformat_minor": 5
}`), 0o644))

	validate := EnsureNotebookMatchesSchemaForASingleTutorial(fs)

	issues, err := validate(nil, &tutorial.Tutorial{Name: "a", NotebookPath: "/collection/a/a.ipynb"})
	require.NoError(t, err)
	assert.Empty(t, issues)

	issues, err = validate(nil, &tutorial.Tutorial{Name: "b", NotebookPath: "/collection/b/b.ipynb"})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Description, "does not match the nbformat v4 schema")
	assert.NotEmpty(t, issues[0].Context)
}

func TestEnsureKernelIsResolvable(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/collection/a/a.ipynb", []byte(validNotebookContent), 0o644))

	validate := EnsureKernelIsResolvableForASingleTutorial(fs)
	bare := &tutorial.Tutorial{Name: "a", NotebookPath: "/collection/a/a.ipynb"}

	issues, err := validate(&tutorial.Collection{}, bare)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, kernelMustBeResolvable, issues[0].Description)

	issues, err = validate(&tutorial.Collection{Kernel: "python3"}, bare)
	require.NoError(t, err)
	assert.Empty(t, issues)

	withKernel := &tutorial.Tutorial{Name: "a", Kernel: "julia-1.10", NotebookPath: "/collection/a/a.ipynb"}
	issues, err = validate(&tutorial.Collection{}, withKernel)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestEnsureSourceNotebookHasNoOutputs(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/collection/a/a.ipynb", []byte(validNotebookContent), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/collection/b/b.ipynb", []byte(notebookWithOutputs), 0o644))

	validate := EnsureSourceNotebookHasNoOutputsForASingleTutorial(fs)

	issues, err := validate(nil, &tutorial.Tutorial{Name: "a", NotebookPath: "/collection/a/a.ipynb"})
	require.NoError(t, err)
	assert.Empty(t, issues)

	issues, err = validate(nil, &tutorial.Tutorial{Name: "b", NotebookPath: "/collection/b/b.ipynb"})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, sourceNotebookHasOutputs, issues[0].Description)
}

func TestEnsureExpandedNotebookIsErrorFree(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/collection/a/a.expanded.ipynb", []byte(notebookWithOutputs), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/collection/b/b.expanded.ipynb", []byte(notebookWithError), 0o644))

	validate := EnsureExpandedNotebookIsErrorFreeForASingleTutorial(fs)

	issues, err := validate(nil, &tutorial.Tutorial{Name: "a", ExpandedPath: "/collection/a/a.expanded.ipynb"})
	require.NoError(t, err)
	assert.Empty(t, issues)

	issues, err = validate(nil, &tutorial.Tutorial{Name: "b", ExpandedPath: "/collection/b/b.expanded.ipynb"})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Context[0], "NameError")

	// a tutorial that was never run is not this rule's business
	issues, err = validate(nil, &tutorial.Tutorial{Name: "c", ExpandedPath: "/collection/c/c.expanded.ipynb"})
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCallFuncForEveryTutorial(t *testing.T) {
	t.Parallel()

	a := &tutorial.Tutorial{Name: "a", Requires: []string{"ghost"}}
	b := &tutorial.Tutorial{Name: "b", Requires: []string{"phantom"}}
	c := collectionWithTutorials(a, b)

	validate := CallFuncForEveryTutorial(EnsureRequiresExistForASingleTutorial)

	issues, err := validate(c)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "Required tutorial 'ghost' does not exist", issues[0].Description)
	assert.Equal(t, "Required tutorial 'phantom' does not exist", issues[1].Description)
}

func TestFilterRules(t *testing.T) {
	t.Parallel()

	rules, err := GetRules(afero.NewMemMapFs())
	require.NoError(t, err)
	require.NotEmpty(t, rules)

	tutorialLevel := FilterRulesByLevel(rules, LevelTutorial)
	for _, rule := range tutorialLevel {
		assert.Contains(t, rule.GetApplicableLevels(), LevelTutorial)
	}

	fast := FilterRulesBySpeed(rules, true)
	assert.Less(t, len(fast), len(rules))
	for _, rule := range fast {
		assert.True(t, rule.IsFast())
	}

	assert.Len(t, FilterRulesBySpeed(rules, false), len(rules))
}
