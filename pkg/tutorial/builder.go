package tutorial

import (
	"path/filepath"
	"strings"

	"github.com/nbflow-io/nbflow/pkg/path"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const tutorialDefinitionFile = "tutorial.yml"

type BuilderConfig struct {
	CollectionFileNames []string
}

type Builder struct {
	config BuilderConfig
	fs     afero.Fs
}

type ParseError struct {
	Msg string
}

func (e ParseError) Error() string {
	return e.Msg
}

func NewBuilder(config BuilderConfig, fs afero.Fs) *Builder {
	return &Builder{
		config: config,
		fs:     fs,
	}
}

// tutorialOverrides is the shape of a tutorial.yml file. The name override
// only applies when the directory holds a single notebook.
type tutorialOverrides struct {
	Name     string   `yaml:"name"`
	Kernel   string   `yaml:"kernel"`
	Timeout  int      `yaml:"timeout"`
	Requires []string `yaml:"requires"`
	Skip     bool     `yaml:"skip"`
	Tags     []string `yaml:"tags"`
}

// CreateCollectionFromPath builds the full collection rooted at the given
// path, which may point at the collection file itself or its directory.
func (b *Builder) CreateCollectionFromPath(pathToCollection string) (*Collection, error) {
	collectionFilePath, err := b.resolveCollectionFile(pathToCollection)
	if err != nil {
		return nil, err
	}

	var collection Collection
	if err := path.ReadYaml(b.fs, collectionFilePath, &collection); err != nil {
		return nil, &ParseError{Msg: errors.Wrapf(err, "failed to parse collection file at '%s'", collectionFilePath).Error()}
	}

	absCollectionFilePath, err := filepath.Abs(collectionFilePath)
	if err != nil {
		return nil, errors.Wrapf(err, "error getting absolute path for collection file at '%s'", collectionFilePath)
	}

	collection.DefinitionFile = DefinitionFile{
		Name: filepath.Base(absCollectionFilePath),
		Path: absCollectionFilePath,
	}

	root := filepath.Dir(absCollectionFilePath)

	excludes, err := b.resolveExcludedPaths(root, &collection)
	if err != nil {
		return nil, err
	}

	notebooks, err := path.FindNotebooks(root, excludes)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to discover notebooks under '%s'", root)
	}

	notebooksByDir := make(map[string][]string)
	for _, nb := range notebooks {
		if IsExpandedNotebook(nb) {
			continue
		}

		dir := filepath.Dir(nb)
		notebooksByDir[dir] = append(notebooksByDir[dir], nb)
	}

	collection.Tutorials = make([]*Tutorial, 0, len(notebooks))
	collection.tutorialsByName = make(map[string]*Tutorial)

	for _, nb := range notebooks {
		if IsExpandedNotebook(nb) {
			continue
		}

		t, err := b.createTutorialFromNotebook(nb, len(notebooksByDir[filepath.Dir(nb)]) == 1)
		if err != nil {
			return nil, err
		}

		if existing, ok := collection.tutorialsByName[t.Name]; ok {
			return nil, errors.Errorf(
				"duplicate tutorial name '%s' used by both '%s' and '%s', set an explicit name in a %s file",
				t.Name, existing.NotebookPath, t.NotebookPath, tutorialDefinitionFile,
			)
		}

		collection.Tutorials = append(collection.Tutorials, t)
		collection.tutorialsByName[t.Name] = t
	}

	collection.ConnectRequires()

	return &collection, nil
}

func (b *Builder) resolveCollectionFile(pathToCollection string) (string, error) {
	for _, fileName := range b.config.CollectionFileNames {
		if strings.HasSuffix(pathToCollection, fileName) {
			return pathToCollection, nil
		}
	}

	for _, fileName := range b.config.CollectionFileNames {
		candidate := filepath.Join(pathToCollection, fileName)
		if path.FileExists(b.fs, candidate) {
			return candidate, nil
		}
	}

	return "", errors.Errorf("no collection definition file found under '%s', looked for: %s", pathToCollection, strings.Join(b.config.CollectionFileNames, ", "))
}

// resolveExcludedPaths turns the collection's exclude entries into absolute
// paths and adds the roots of any nested collections, which are never part
// of the enclosing one.
func (b *Builder) resolveExcludedPaths(root string, collection *Collection) ([]string, error) {
	excludes := make([]string, 0, len(collection.Exclude))
	for _, entry := range collection.Exclude {
		if filepath.IsAbs(entry) {
			excludes = append(excludes, entry)
			continue
		}

		excludes = append(excludes, filepath.Join(root, entry))
	}

	nested, err := path.GetCollectionPaths(root, b.config.CollectionFileNames)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan for nested collections under '%s'", root)
	}

	for _, nestedRoot := range nested {
		if nestedRoot == root {
			continue
		}

		excludes = append(excludes, nestedRoot)
	}

	return excludes, nil
}

func (b *Builder) createTutorialFromNotebook(notebookPath string, aloneInDir bool) (*Tutorial, error) {
	absNotebookPath, err := filepath.Abs(notebookPath)
	if err != nil {
		return nil, errors.Wrapf(err, "error getting absolute path for notebook at '%s'", notebookPath)
	}

	dir := filepath.Dir(absNotebookPath)
	stem := strings.TrimSuffix(filepath.Base(absNotebookPath), path.NotebookSuffix)

	t := &Tutorial{
		Name:         stem,
		NotebookPath: absNotebookPath,
		ExpandedPath: ExpandedCounterpart(absNotebookPath),
		ReadmePath:   readmeForDir(b.fs, dir),
		upstream:     make([]*Tutorial, 0),
		downstream:   make([]*Tutorial, 0),
	}

	overridesPath := filepath.Join(dir, tutorialDefinitionFile)
	if !path.FileExists(b.fs, overridesPath) {
		return t, nil
	}

	var overrides tutorialOverrides
	if err := path.ReadYaml(b.fs, overridesPath, &overrides); err != nil {
		return nil, &ParseError{Msg: errors.Wrapf(err, "failed to parse tutorial file at '%s'", overridesPath).Error()}
	}

	if overrides.Name != "" && aloneInDir {
		t.Name = overrides.Name
	}

	t.Kernel = overrides.Kernel
	t.Timeout = overrides.Timeout
	t.Requires = overrides.Requires
	t.Skip = overrides.Skip
	t.Tags = overrides.Tags
	t.DefinitionFile = DefinitionFile{
		Name: filepath.Base(overridesPath),
		Path: overridesPath,
	}

	return t, nil
}
