package tutorial

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBuilderConfig = BuilderConfig{
	CollectionFileNames: []string{"collection.yml", "collection.yaml"},
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func scaffoldCollection(t *testing.T) string {
	t.Helper()

	root := t.TempDir()

	writeFile(t, filepath.Join(root, "collection.yml"), `
name: landlab-tutorials
header_image: media/header.png
kernel: python3
timeout: 600
schedule: "0 6 * * 1"
exclude:
  - archived
`)

	writeFile(t, filepath.Join(root, "fault_scarp", "fault_scarp.ipynb"), "{}")
	writeFile(t, filepath.Join(root, "fault_scarp", "fault_scarp.expanded.ipynb"), "{}")
	writeFile(t, filepath.Join(root, "fault_scarp", "README.md"), "# Fault scarp")
	writeFile(t, filepath.Join(root, "fault_scarp", "tutorial.yml"), `
name: fault-scarp
timeout: 1200
requires:
  - grid_basics
tags:
  - geomorphology
`)

	writeFile(t, filepath.Join(root, "grid_basics", "grid_basics.ipynb"), "{}")
	writeFile(t, filepath.Join(root, "archived", "old_tutorial.ipynb"), "{}")
	writeFile(t, filepath.Join(root, "nested", "collection.yml"), "name: nested")
	writeFile(t, filepath.Join(root, "nested", "inner", "inner.ipynb"), "{}")

	return root
}

func TestCreateCollectionFromPath(t *testing.T) {
	t.Parallel()

	root := scaffoldCollection(t)
	builder := NewBuilder(testBuilderConfig, afero.NewOsFs())

	collection, err := builder.CreateCollectionFromPath(root)
	require.NoError(t, err)

	assert.Equal(t, "landlab-tutorials", collection.Name)
	assert.Equal(t, "0 6 * * 1", collection.Schedule)
	require.Len(t, collection.Tutorials, 2)

	faultScarp := collection.GetTutorialByName("fault-scarp")
	require.NotNil(t, faultScarp)
	assert.Equal(t, 1200, faultScarp.Timeout)
	assert.Equal(t, []string{"grid_basics"}, faultScarp.Requires)
	assert.True(t, faultScarp.HasTag("geomorphology"))
	assert.NotEmpty(t, faultScarp.ReadmePath)
	assert.Equal(t, ExpandedCounterpart(faultScarp.NotebookPath), faultScarp.ExpandedPath)

	gridBasics := collection.GetTutorialByName("grid_basics")
	require.NotNil(t, gridBasics)
	assert.Empty(t, gridBasics.ReadmePath)

	// requires wiring
	require.Len(t, faultScarp.GetUpstream(), 1)
	assert.Equal(t, "grid_basics", faultScarp.GetUpstream()[0].Name)
	require.Len(t, gridBasics.GetDownstream(), 1)
	assert.Equal(t, "fault-scarp", gridBasics.GetDownstream()[0].Name)

	// excluded and nested subtrees stay out
	assert.Nil(t, collection.GetTutorialByName("old_tutorial"))
	assert.Nil(t, collection.GetTutorialByName("inner"))
}

func TestNestedCollectionExclusionKeepsRootTutorials(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "collection.yml"), "name: outer")
	writeFile(t, filepath.Join(root, "intro", "intro.ipynb"), "{}")
	writeFile(t, filepath.Join(root, "nested", "collection.yml"), "name: inner")
	writeFile(t, filepath.Join(root, "nested", "deep", "deep.ipynb"), "{}")

	builder := NewBuilder(testBuilderConfig, afero.NewOsFs())
	collection, err := builder.CreateCollectionFromPath(root)
	require.NoError(t, err)

	require.Len(t, collection.Tutorials, 1)
	assert.Equal(t, "intro", collection.Tutorials[0].Name)
	assert.Nil(t, collection.GetTutorialByName("deep"))
}

func TestCreateCollectionFromFilePath(t *testing.T) {
	t.Parallel()

	root := scaffoldCollection(t)
	builder := NewBuilder(testBuilderConfig, afero.NewOsFs())

	collection, err := builder.CreateCollectionFromPath(filepath.Join(root, "collection.yml"))
	require.NoError(t, err)
	assert.Equal(t, "landlab-tutorials", collection.Name)
}

func TestCreateCollectionMissingDefinition(t *testing.T) {
	t.Parallel()

	builder := NewBuilder(testBuilderConfig, afero.NewOsFs())
	_, err := builder.CreateCollectionFromPath(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no collection definition file")
}

func TestCreateCollectionUnknownRequires(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "collection.yml"), "name: broken")
	writeFile(t, filepath.Join(root, "solo", "solo.ipynb"), "{}")
	writeFile(t, filepath.Join(root, "solo", "tutorial.yml"), "requires: [missing]")

	builder := NewBuilder(testBuilderConfig, afero.NewOsFs())

	// unknown requires are left for validation to report
	collection, err := builder.CreateCollectionFromPath(root)
	require.NoError(t, err)

	solo := collection.GetTutorialByName("solo")
	require.NotNil(t, solo)
	assert.Equal(t, []string{"missing"}, solo.Requires)
	assert.Empty(t, solo.GetUpstream())
}

func TestCreateCollectionDuplicateNames(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "collection.yml"), "name: dupes")
	writeFile(t, filepath.Join(root, "a", "intro.ipynb"), "{}")
	writeFile(t, filepath.Join(root, "b", "intro.ipynb"), "{}")

	builder := NewBuilder(testBuilderConfig, afero.NewOsFs())
	_, err := builder.CreateCollectionFromPath(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate tutorial name 'intro'")
}

func TestKernelAndTimeoutResolution(t *testing.T) {
	t.Parallel()

	collection := &Collection{Kernel: "python3", Timeout: 600}
	withOverrides := &Tutorial{Kernel: "julia-1.10", Timeout: 1200}
	bare := &Tutorial{}

	assert.Equal(t, "julia-1.10", collection.KernelFor(withOverrides))
	assert.Equal(t, "python3", collection.KernelFor(bare))
	assert.Equal(t, 20*time.Minute, collection.TimeoutFor(withOverrides))
	assert.Equal(t, 10*time.Minute, collection.TimeoutFor(bare))

	empty := &Collection{}
	assert.Equal(t, "python3", empty.KernelFor(bare))
	assert.Equal(t, DefaultTimeout, empty.TimeoutFor(bare))
}

func TestExpandedCounterparts(t *testing.T) {
	t.Parallel()

	assert.True(t, IsExpandedNotebook("/x/a.expanded.ipynb"))
	assert.False(t, IsExpandedNotebook("/x/a.ipynb"))
	assert.Equal(t, "/x/a.expanded.ipynb", ExpandedCounterpart("/x/a.ipynb"))
	assert.Equal(t, "/x/a.ipynb", UnexpandedCounterpart("/x/a.expanded.ipynb"))
}

func TestGetFullDownstream(t *testing.T) {
	t.Parallel()

	a := &Tutorial{Name: "a"}
	b := &Tutorial{Name: "b", Requires: []string{"a"}}
	c := &Tutorial{Name: "c", Requires: []string{"b"}}

	collection := &Collection{Tutorials: []*Tutorial{a, b, c}}
	collection.ConnectRequires()

	names := make([]string, 0)
	for _, d := range a.GetFullDownstream() {
		names = append(names, d.Name)
	}

	assert.ElementsMatch(t, []string{"b", "c"}, names)
}
