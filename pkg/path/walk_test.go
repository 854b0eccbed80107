package path

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustWriteFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
}

func TestFindNotebooks(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	mustWriteFile(t, filepath.Join(root, "fault_scarp", "fault_scarp.ipynb"))
	mustWriteFile(t, filepath.Join(root, "fault_scarp", "fault_scarp.py"))
	mustWriteFile(t, filepath.Join(root, "flexure", "nested", "lots_of_loads.ipynb"))
	mustWriteFile(t, filepath.Join(root, ".ipynb_checkpoints", "fault_scarp-checkpoint.ipynb"))
	mustWriteFile(t, filepath.Join(root, "mappers", ".ipynb_checkpoints", "mappers-checkpoint.ipynb"))
	mustWriteFile(t, filepath.Join(root, "venv", "lib", "some.ipynb"))

	notebooks, err := FindNotebooks(root, nil)
	require.NoError(t, err)

	names := make([]string, 0, len(notebooks))
	for _, nb := range notebooks {
		names = append(names, filepath.Base(nb))
	}

	assert.ElementsMatch(t, []string{"fault_scarp.ipynb", "lots_of_loads.ipynb"}, names)
}

func TestFindNotebooksWithExclusions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "keep", "keep.ipynb"))
	mustWriteFile(t, filepath.Join(root, "skipme", "skipped.ipynb"))

	notebooks, err := FindNotebooks(root, []string{filepath.Join(root, "skipme")})
	require.NoError(t, err)
	require.Len(t, notebooks, 1)
	assert.Equal(t, "keep.ipynb", filepath.Base(notebooks[0]))
}

func TestGetCollectionPaths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "tutorials", "collection.yml"))
	mustWriteFile(t, filepath.Join(root, "tutorials", "fault_scarp", "fault_scarp.ipynb"))
	mustWriteFile(t, filepath.Join(root, "other", "collection.yaml"))

	paths, err := GetCollectionPaths(root, []string{"collection.yml", "collection.yaml"})
	require.NoError(t, err)
	require.Len(t, paths, 2)
}

func TestGetCollectionRootFromPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "collection.yml"))
	mustWriteFile(t, filepath.Join(root, "fault_scarp", "fault_scarp.ipynb"))

	found, err := GetCollectionRootFromPath(filepath.Join(root, "fault_scarp", "fault_scarp.ipynb"), []string{"collection.yml"})
	require.NoError(t, err)

	expected, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	foundResolved, err := filepath.EvalSymlinks(found)
	require.NoError(t, err)
	assert.Equal(t, expected, foundResolved)
}

func TestGetCollectionRootFromPathMissing(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "fault_scarp", "fault_scarp.ipynb"))

	_, err := GetCollectionRootFromPath(filepath.Join(root, "fault_scarp"), []string{"collection.yml"})
	assert.Error(t, err)
}

func TestShouldExcludePath(t *testing.T) {
	t.Parallel()

	assert.False(t, shouldExcludePath("/foo/bar", nil))
	assert.True(t, shouldExcludePath("/foo/bar", []string{"/foo/bar"}))
	assert.True(t, shouldExcludePath("/foo/bar/baz", []string{"/foo/bar"}))
	assert.False(t, shouldExcludePath("/foo/barbaz", []string{"/foo/bar"}))
}
