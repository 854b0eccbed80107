package tutorial

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/nbflow-io/nbflow/pkg/path"
	"github.com/spf13/afero"
)

const (
	// ExpandedSuffix marks the executed counterpart of a notebook.
	ExpandedSuffix = ".expanded.ipynb"

	// DefaultTimeout bounds the execution of a single notebook when neither
	// the tutorial nor the collection declares one.
	DefaultTimeout = 10 * time.Minute

	readmeFileName = "README.md"
)

type DefinitionFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Tutorial is a single runnable notebook inside a collection, together with
// the artifacts that live next to it.
type Tutorial struct {
	Name     string   `json:"name" yaml:"name,omitempty"`
	Kernel   string   `json:"kernel" yaml:"kernel,omitempty"`
	Timeout  int      `json:"timeout" yaml:"timeout,omitempty"`
	Requires []string `json:"requires" yaml:"requires,omitempty"`
	Skip     bool     `json:"skip" yaml:"skip,omitempty"`
	Tags     []string `json:"tags" yaml:"tags,omitempty"`

	NotebookPath   string         `json:"notebook_path" yaml:"-"`
	ExpandedPath   string         `json:"expanded_path" yaml:"-"`
	ReadmePath     string         `json:"readme_path,omitempty" yaml:"-"`
	DefinitionFile DefinitionFile `json:"definition_file" yaml:"-"`

	upstream   []*Tutorial
	downstream []*Tutorial
}

func (t *Tutorial) AddUpstream(other *Tutorial) {
	t.upstream = append(t.upstream, other)
}

func (t *Tutorial) AddDownstream(other *Tutorial) {
	t.downstream = append(t.downstream, other)
}

func (t *Tutorial) GetUpstream() []*Tutorial {
	return t.upstream
}

func (t *Tutorial) GetDownstream() []*Tutorial {
	return t.downstream
}

// GetFullUpstream walks the requirements transitively, deduplicated by name.
func (t *Tutorial) GetFullUpstream() []*Tutorial {
	upstream := make([]*Tutorial, 0)
	seen := make(map[string]bool)

	var walk func(tut *Tutorial)
	walk = func(tut *Tutorial) {
		for _, u := range tut.upstream {
			if seen[u.Name] {
				continue
			}
			seen[u.Name] = true
			upstream = append(upstream, u)
			walk(u)
		}
	}
	walk(t)

	return upstream
}

// GetFullDownstream walks the dependents transitively, deduplicated by name.
func (t *Tutorial) GetFullDownstream() []*Tutorial {
	downstream := make([]*Tutorial, 0)
	seen := make(map[string]bool)

	var walk func(tut *Tutorial)
	walk = func(tut *Tutorial) {
		for _, d := range tut.downstream {
			if seen[d.Name] {
				continue
			}
			seen[d.Name] = true
			downstream = append(downstream, d)
			walk(d)
		}
	}
	walk(t)

	return downstream
}

// HasTag reports whether the tutorial carries the given tag.
func (t *Tutorial) HasTag(tag string) bool {
	for _, candidate := range t.Tags {
		if candidate == tag {
			return true
		}
	}

	return false
}

// Collection is the set of tutorials rooted at a single collection
// definition file.
type Collection struct {
	Name        string   `yaml:"name" json:"name"`
	HeaderImage string   `yaml:"header_image" json:"header_image"`
	Kernel      string   `yaml:"kernel" json:"kernel"`
	Timeout     int      `yaml:"timeout" json:"timeout"`
	Schedule    string   `yaml:"schedule" json:"schedule"`
	Exclude     []string `yaml:"exclude" json:"exclude"`

	DefinitionFile DefinitionFile `yaml:"-" json:"definition_file"`
	Tutorials      []*Tutorial    `yaml:"-" json:"tutorials"`

	tutorialsByName map[string]*Tutorial
}

func (c *Collection) ensureNameMapIsFilled() {
	if c.tutorialsByName != nil {
		return
	}

	c.tutorialsByName = make(map[string]*Tutorial)
	for _, t := range c.Tutorials {
		c.tutorialsByName[t.Name] = t
	}
}

func (c *Collection) GetTutorialByName(name string) *Tutorial {
	c.ensureNameMapIsFilled()

	t, ok := c.tutorialsByName[name]
	if !ok {
		return nil
	}

	return t
}

func (c *Collection) GetTutorialByPath(notebookPath string) *Tutorial {
	notebookPath, err := filepath.Abs(notebookPath)
	if err != nil {
		return nil
	}

	for _, t := range c.Tutorials {
		if t.NotebookPath == notebookPath || t.ExpandedPath == notebookPath {
			return t
		}
	}

	return nil
}

func (c *Collection) GetTutorialsByTag(tag string) []*Tutorial {
	tutorials := make([]*Tutorial, 0)
	for _, t := range c.Tutorials {
		if t.HasTag(tag) {
			tutorials = append(tutorials, t)
		}
	}

	return tutorials
}

// RelativeTutorialPath returns the notebook path relative to the collection
// root, for display purposes.
func (c *Collection) RelativeTutorialPath(t *Tutorial) string {
	root := filepath.Dir(c.DefinitionFile.Path)

	rel, err := filepath.Rel(root, t.NotebookPath)
	if err != nil {
		return t.NotebookPath
	}

	return rel
}

// KernelFor resolves the kernel for a tutorial, falling back to the
// collection default and finally to python3.
func (c *Collection) KernelFor(t *Tutorial) string {
	if t.Kernel != "" {
		return t.Kernel
	}

	if c.Kernel != "" {
		return c.Kernel
	}

	return "python3"
}

// TimeoutFor resolves the execution timeout for a tutorial.
func (c *Collection) TimeoutFor(t *Tutorial) time.Duration {
	if t.Timeout > 0 {
		return time.Duration(t.Timeout) * time.Second
	}

	if c.Timeout > 0 {
		return time.Duration(c.Timeout) * time.Second
	}

	return DefaultTimeout
}

// MarshalJSON includes the resolved root directory alongside the raw fields.
func (c *Collection) MarshalJSON() ([]byte, error) {
	type alias Collection

	return json.Marshal(&struct {
		*alias
		Root string `json:"root"`
	}{
		alias: (*alias)(c),
		Root:  filepath.Dir(c.DefinitionFile.Path),
	})
}

// IsExpandedNotebook reports whether the given path is the executed
// counterpart of a tutorial notebook.
func IsExpandedNotebook(notebookPath string) bool {
	return strings.HasSuffix(notebookPath, ExpandedSuffix)
}

// ExpandedCounterpart maps an unexpanded notebook path to its executed
// counterpart path.
func ExpandedCounterpart(notebookPath string) string {
	return strings.TrimSuffix(notebookPath, path.NotebookSuffix) + ExpandedSuffix
}

// UnexpandedCounterpart maps an executed notebook path back to its source
// notebook path.
func UnexpandedCounterpart(expandedPath string) string {
	return strings.TrimSuffix(expandedPath, ExpandedSuffix) + path.NotebookSuffix
}

func readmeForDir(fs afero.Fs, dir string) string {
	candidate := filepath.Join(dir, readmeFileName)
	if path.FileExists(fs, candidate) {
		return candidate
	}

	return ""
}

// ConnectRequires wires the upstream and downstream pointers from the
// declared requires lists. Unknown names are skipped here and reported by
// the validation rules instead.
func (c *Collection) ConnectRequires() {
	c.ensureNameMapIsFilled()

	for _, t := range c.Tutorials {
		for _, dep := range t.Requires {
			upstream, ok := c.tutorialsByName[dep]
			if !ok {
				continue
			}

			t.AddUpstream(upstream)
			upstream.AddDownstream(t)
		}
	}
}
