package path

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// SkipDirs are never descended into during discovery. Hidden directories are
// skipped separately, which also covers .ipynb_checkpoints.
var SkipDirs = []string{"node_modules", "dist", "build", "target", "vendor", "venv", "env", "logs"}

const NotebookSuffix = ".ipynb"

func shouldSkipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}

	return slices.Contains(SkipDirs, name)
}

// shouldExcludePath checks if a given path should be excluded based on the exclude patterns.
// Both absolute and relative prefixes are honored, always on whole path components.
func shouldExcludePath(path string, excludePaths []string) bool {
	if len(excludePaths) == 0 {
		return false
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	for _, excludePattern := range excludePaths {
		absExcludePattern, err := filepath.Abs(excludePattern)
		if err != nil {
			absExcludePattern = excludePattern
		}

		if absPath == absExcludePattern || strings.HasPrefix(absPath, absExcludePattern+string(filepath.Separator)) {
			return true
		}

		if path == excludePattern || strings.HasPrefix(path, excludePattern+string(filepath.Separator)) {
			return true
		}
	}

	return false
}

// FindNotebooks walks the tree under root and returns the paths of all
// notebooks found, skipping hidden directories and checkpoint copies.
func FindNotebooks(root string, excludePaths []string) ([]string, error) {
	notebooks := make([]string, 0)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}

			if shouldExcludePath(path, excludePaths) {
				return filepath.SkipDir
			}

			return nil
		}

		if !strings.HasSuffix(d.Name(), NotebookSuffix) {
			return nil
		}

		// checkpoint copies are editor artifacts, never tutorials
		if strings.Contains(d.Name(), "checkpoint") {
			return nil
		}

		if shouldExcludePath(filepath.Dir(path), excludePaths) {
			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			return errors.Wrapf(err, "failed to get absolute path for %s", path)
		}

		notebooks = append(notebooks, abs)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "error walking directory")
	}

	return notebooks, nil
}

func GetCollectionPaths(root string, collectionDefinitionFile []string) ([]string, error) {
	return GetCollectionPathsWithExclusions(root, collectionDefinitionFile, nil)
}

// GetCollectionPathsWithExclusions returns the directories under root that
// contain a collection definition file, skipping the excluded path prefixes.
func GetCollectionPathsWithExclusions(root string, collectionDefinitionFile []string, excludePaths []string) ([]string, error) {
	collectionPaths := make([]string, 0)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}

			if shouldExcludePath(path, excludePaths) {
				return filepath.SkipDir
			}

			return nil
		}

		if shouldExcludePath(filepath.Dir(path), excludePaths) {
			return nil
		}

		for _, definitionFile := range collectionDefinitionFile {
			if d.Name() != definitionFile {
				continue
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				return errors.Wrapf(err, "failed to get absolute path for %s", path)
			}

			collectionDir := filepath.Dir(abs)
			if !shouldExcludePath(collectionDir, excludePaths) {
				collectionPaths = append(collectionPaths, collectionDir)
			}
			break
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "error walking directory")
	}

	return collectionPaths, nil
}

// GetCollectionRootFromPath searches upwards from the given path for a
// directory containing a collection definition file.
func GetCollectionRootFromPath(startPath string, collectionDefinitionFile []string) (string, error) {
	absolutePath, err := filepath.Abs(startPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to convert the given path to an absolute path")
	}

	currentFolder := absolutePath
	if info, err := os.Stat(absolutePath); err == nil && !info.IsDir() {
		currentFolder = filepath.Dir(absolutePath)
	}

	rootPath := filepath.VolumeName(currentFolder) + string(os.PathSeparator)
	for currentFolder != rootPath && currentFolder != "/" {
		for _, definitionFile := range collectionDefinitionFile {
			tryPath := filepath.Join(currentFolder, definitionFile)
			if _, err := os.Stat(tryPath); err == nil {
				return currentFolder, nil
			}
		}

		currentFolder = filepath.Dir(currentFolder)
	}

	return "", errors.New("cannot find a collection the given path belongs to, are you sure there is a collection.yml above it?")
}

// GetAllFilesRecursive returns all files under root matching any of the given
// suffixes, honoring the shared skip rules.
func GetAllFilesRecursive(root string, suffixes []string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}

			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			return errors.Wrapf(err, "failed to get absolute path for %s", path)
		}

		for _, s := range suffixes {
			if strings.HasSuffix(abs, s) {
				paths = append(paths, abs)
			}
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "error walking directory")
	}

	return paths, nil
}
