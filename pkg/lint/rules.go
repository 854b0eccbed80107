package lint

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nbflow-io/nbflow/pkg/notebook"
	path2 "github.com/nbflow-io/nbflow/pkg/path"
	"github.com/nbflow-io/nbflow/pkg/tutorial"
	"github.com/robfig/cron/v3"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
	"github.com/yourbasic/graph"
)

const (
	validIDRegex = `^[\w.-]+$`

	collectionNameCannotBeEmpty      = "The collection name cannot be empty, it must be a valid name made of alphanumeric characters, dashes, dots and underscores"
	collectionNameMustBeAlphanumeric = "The collection name must be made of alphanumeric characters, dashes, dots and underscores"

	collectionContainsCycle = "The collection has a cycle in its requires declarations, make sure there are no cyclic dependencies"

	readmeMustExist           = "The tutorial directory must contain a README.md file"
	tutorialHasNoCodeArtifact = "The tutorial directory carries no code files, convert the notebook to keep a script next to it"
	expandedNotebookMustExist = "The tutorial has no executed counterpart, run the tutorial to produce one"
	sourceNotebookHasOutputs  = "The source notebook carries outputs, strip them to keep the executed counterpart authoritative"
	kernelMustBeResolvable    = "The notebook declares no kernelspec and no kernel is configured for the tutorial or the collection"
)

var (
	validIDRegexCompiled = regexp.MustCompile(validIDRegex)

	markdownImageRegex = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)`)
	markdownLinkRegex  = regexp.MustCompile(`\]\(([^)\s]+)`)
)

// CallFuncForEveryTutorial lifts a tutorial validator to the collection
// level, running it across the tutorials in parallel.
func CallFuncForEveryTutorial(callable TutorialValidator) CollectionValidator {
	return func(c *tutorial.Collection) ([]*Issue, error) {
		p := pool.NewWithResults[[]*Issue]().WithErrors()
		for _, t := range c.Tutorials {
			t := t
			p.Go(func() ([]*Issue, error) {
				return callable(c, t)
			})
		}

		results, err := p.Wait()
		if err != nil {
			return nil, err
		}

		issues := make([]*Issue, 0)
		for _, res := range results {
			issues = append(issues, res...)
		}

		return issues, nil
	}
}

func EnsureCollectionNameIsValid(c *tutorial.Collection) ([]*Issue, error) {
	issues := make([]*Issue, 0)

	if c.Name == "" {
		issues = append(issues, &Issue{
			Description: collectionNameCannotBeEmpty,
		})

		return issues, nil
	}

	if match := validIDRegexCompiled.MatchString(c.Name); !match {
		issues = append(issues, &Issue{
			Description: collectionNameMustBeAlphanumeric,
		})
	}

	return issues, nil
}

func EnsureScheduleIsValidCron(c *tutorial.Collection) ([]*Issue, error) {
	issues := make([]*Issue, 0)
	if c.Schedule == "" {
		return issues, nil
	}

	schedule := c.Schedule
	if schedule == "daily" || schedule == "hourly" || schedule == "weekly" || schedule == "monthly" {
		schedule = "@" + schedule
	}

	_, err := cron.ParseStandard(schedule)
	if err != nil {
		issues = append(issues, &Issue{
			Description: fmt.Sprintf("Invalid cron schedule '%s'", c.Schedule),
		})
	}

	return issues, nil
}

func EnsureRequiresExistForASingleTutorial(c *tutorial.Collection, t *tutorial.Tutorial) ([]*Issue, error) {
	issues := make([]*Issue, 0)
	for _, dep := range t.Requires {
		if c.GetTutorialByName(dep) == nil {
			issues = append(issues, &Issue{
				Tutorial:    t,
				Description: fmt.Sprintf("Required tutorial '%s' does not exist", dep),
			})
		}
	}

	return issues, nil
}

// EnsureCollectionHasNoCycles ensures the requires declarations form a DAG.
// Strongly connected components of size greater than one are cycles, and
// self-requires need a separate check since a single vertex is always a
// strong component of its own.
func EnsureCollectionHasNoCycles(c *tutorial.Collection) ([]*Issue, error) {
	issues := make([]*Issue, 0)

	for _, t := range c.Tutorials {
		for _, dep := range t.Requires {
			if t.Name == dep {
				issues = append(issues, &Issue{
					Description: collectionContainsCycle,
					Context:     []string{fmt.Sprintf("Tutorial `%s` requires itself", t.Name)},
				})
			}
		}
	}

	nameToIndex := make(map[string]int, len(c.Tutorials))
	for i, t := range c.Tutorials {
		nameToIndex[t.Name] = i
	}

	g := graph.New(len(c.Tutorials))
	for _, t := range c.Tutorials {
		for _, dep := range t.Requires {
			depIndex, ok := nameToIndex[dep]
			if !ok {
				continue
			}

			g.Add(nameToIndex[t.Name], depIndex)
		}
	}

	for _, cycle := range graph.StrongComponents(g) {
		cycleLength := len(cycle)
		if cycleLength == 1 {
			continue
		}

		inCycle := make(map[string]bool, cycleLength)
		for _, idx := range cycle {
			inCycle[c.Tutorials[idx].Name] = true
		}

		context := make([]string, 0, cycleLength)
		for _, idx := range cycle {
			t := c.Tutorials[idx]
			for _, dep := range t.Requires {
				if !inCycle[dep] {
					continue
				}

				context = append(context, fmt.Sprintf("%s -> %s", t.Name, dep))
			}
		}

		issues = append(issues, &Issue{
			Description: collectionContainsCycle,
			Context:     context,
		})
	}

	return issues, nil
}

func EnsureReadmeExistsForASingleTutorial(_ *tutorial.Collection, t *tutorial.Tutorial) ([]*Issue, error) {
	issues := make([]*Issue, 0)
	if t.ReadmePath == "" {
		issues = append(issues, &Issue{
			Tutorial:    t,
			Description: readmeMustExist,
		})
	}

	return issues, nil
}

func EnsureHeaderImageExists(fs afero.Fs) CollectionValidator {
	return func(c *tutorial.Collection) ([]*Issue, error) {
		issues := make([]*Issue, 0)
		if c.HeaderImage == "" {
			return issues, nil
		}

		imagePath := c.HeaderImage
		if !filepath.IsAbs(imagePath) {
			imagePath = filepath.Join(filepath.Dir(c.DefinitionFile.Path), imagePath)
		}

		if !path2.FileExists(fs, imagePath) {
			issues = append(issues, &Issue{
				Description: fmt.Sprintf("The header image '%s' does not exist", c.HeaderImage),
			})
		}

		return issues, nil
	}
}

func EnsureReadmeReferencesHeaderImageForASingleTutorial(fs afero.Fs) TutorialValidator {
	return func(c *tutorial.Collection, t *tutorial.Tutorial) ([]*Issue, error) {
		issues := make([]*Issue, 0)
		if c == nil || c.HeaderImage == "" || t.ReadmePath == "" {
			return issues, nil
		}

		headerImagePath := c.HeaderImage
		if !filepath.IsAbs(headerImagePath) {
			headerImagePath = filepath.Join(filepath.Dir(c.DefinitionFile.Path), headerImagePath)
		}
		headerImagePath = filepath.Clean(headerImagePath)

		content, err := afero.ReadFile(fs, t.ReadmePath)
		if err != nil {
			return nil, err
		}

		readmeDir := filepath.Dir(t.ReadmePath)
		for _, match := range markdownImageRegex.FindAllStringSubmatch(string(content), -1) {
			target := match[1]
			if !filepath.IsAbs(target) {
				target = filepath.Join(readmeDir, target)
			}

			if filepath.Clean(target) == headerImagePath {
				return issues, nil
			}
		}

		issues = append(issues, &Issue{
			Tutorial:    t,
			Description: fmt.Sprintf("The README does not reference the header image '%s' through a relative path that resolves", c.HeaderImage),
		})

		return issues, nil
	}
}

func EnsureArtifactKindsForASingleTutorial(fs afero.Fs) TutorialValidator {
	return func(_ *tutorial.Collection, t *tutorial.Tutorial) ([]*Issue, error) {
		issues := make([]*Issue, 0)

		dir := filepath.Dir(t.NotebookPath)
		entries, err := afero.ReadDir(fs, dir)
		if err != nil {
			return nil, err
		}

		hasCode := false
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".py") {
				hasCode = true
				break
			}
		}

		if !hasCode {
			issues = append(issues, &Issue{
				Tutorial:    t,
				Description: tutorialHasNoCodeArtifact,
			})
		}

		if t.ReadmePath == "" {
			return issues, nil
		}

		content, err := afero.ReadFile(fs, t.ReadmePath)
		if err != nil {
			return nil, err
		}

		readmeDir := filepath.Dir(t.ReadmePath)
		for _, match := range markdownLinkRegex.FindAllStringSubmatch(string(content), -1) {
			target := match[1]
			if filepath.IsAbs(target) || strings.Contains(target, "://") {
				continue
			}

			if !strings.HasPrefix(target, "data/") && !strings.Contains(target, "/data/") {
				continue
			}

			if !path2.FileExists(fs, filepath.Join(readmeDir, target)) {
				issues = append(issues, &Issue{
					Tutorial:    t,
					Description: fmt.Sprintf("The README references '%s' which does not exist", target),
				})
			}
		}

		return issues, nil
	}
}

func EnsureExcludedPathsExist(fs afero.Fs) CollectionValidator {
	return func(c *tutorial.Collection) ([]*Issue, error) {
		issues := make([]*Issue, 0)
		root := filepath.Dir(c.DefinitionFile.Path)

		for _, entry := range c.Exclude {
			excludedPath := entry
			if !filepath.IsAbs(excludedPath) {
				excludedPath = filepath.Join(root, excludedPath)
			}

			if !path2.FileExists(fs, excludedPath) {
				issues = append(issues, &Issue{
					Description: fmt.Sprintf("The excluded path '%s' does not exist", entry),
				})
			}
		}

		return issues, nil
	}
}

func EnsureNotebookPairExistsForASingleTutorial(fs afero.Fs) TutorialValidator {
	return func(_ *tutorial.Collection, t *tutorial.Tutorial) ([]*Issue, error) {
		issues := make([]*Issue, 0)
		if !path2.FileExists(fs, t.ExpandedPath) {
			issues = append(issues, &Issue{
				Tutorial:    t,
				Description: expandedNotebookMustExist,
			})
		}

		return issues, nil
	}
}

func EnsureNotebookParsesForASingleTutorial(fs afero.Fs) TutorialValidator {
	return func(_ *tutorial.Collection, t *tutorial.Tutorial) ([]*Issue, error) {
		issues := make([]*Issue, 0)

		for _, nbPath := range []string{t.NotebookPath, t.ExpandedPath} {
			if !path2.FileExists(fs, nbPath) {
				continue
			}

			if _, err := notebook.Open(fs, nbPath); err != nil {
				issues = append(issues, &Issue{
					Tutorial:    t,
					Description: fmt.Sprintf("Failed to parse the notebook '%s'", filepath.Base(nbPath)),
					Context:     []string{err.Error()},
				})
			}
		}

		return issues, nil
	}
}

func EnsureNotebookMatchesSchemaForASingleTutorial(fs afero.Fs) TutorialValidator {
	return func(_ *tutorial.Collection, t *tutorial.Tutorial) ([]*Issue, error) {
		issues := make([]*Issue, 0)

		for _, nbPath := range []string{t.NotebookPath, t.ExpandedPath} {
			if !path2.FileExists(fs, nbPath) {
				continue
			}

			content, err := afero.ReadFile(fs, nbPath)
			if err != nil {
				return nil, err
			}

			violations, err := validateNotebookAgainstSchema(content)
			if err != nil {
				// unparseable documents are reported by the parse rule
				continue
			}

			if len(violations) > 0 {
				issues = append(issues, &Issue{
					Tutorial:    t,
					Description: fmt.Sprintf("The notebook '%s' does not match the nbformat v4 schema", filepath.Base(nbPath)),
					Context:     violations,
				})
			}
		}

		return issues, nil
	}
}

func EnsureKernelIsResolvableForASingleTutorial(fs afero.Fs) TutorialValidator {
	return func(c *tutorial.Collection, t *tutorial.Tutorial) ([]*Issue, error) {
		issues := make([]*Issue, 0)
		if t.Kernel != "" || c.Kernel != "" {
			return issues, nil
		}

		nb, err := notebook.Open(fs, t.NotebookPath)
		if err != nil {
			return issues, nil
		}

		if nb.Kernelspec() == nil {
			issues = append(issues, &Issue{
				Tutorial:    t,
				Description: kernelMustBeResolvable,
			})
		}

		return issues, nil
	}
}

func EnsureSourceNotebookHasNoOutputsForASingleTutorial(fs afero.Fs) TutorialValidator {
	return func(_ *tutorial.Collection, t *tutorial.Tutorial) ([]*Issue, error) {
		issues := make([]*Issue, 0)

		nb, err := notebook.Open(fs, t.NotebookPath)
		if err != nil {
			return issues, nil
		}

		if nb.HasOutputs() {
			issues = append(issues, &Issue{
				Tutorial:    t,
				Description: sourceNotebookHasOutputs,
			})
		}

		return issues, nil
	}
}

func EnsureExpandedNotebookIsErrorFreeForASingleTutorial(fs afero.Fs) TutorialValidator {
	return func(_ *tutorial.Collection, t *tutorial.Tutorial) ([]*Issue, error) {
		issues := make([]*Issue, 0)
		if !path2.FileExists(fs, t.ExpandedPath) {
			return issues, nil
		}

		nb, err := notebook.Open(fs, t.ExpandedPath)
		if err != nil {
			return issues, nil
		}

		cellErrors := nb.Errors()
		if len(cellErrors) == 0 {
			return issues, nil
		}

		context := make([]string, 0, len(cellErrors))
		for _, cellError := range cellErrors {
			context = append(context, cellError.Error())
		}

		issues = append(issues, &Issue{
			Tutorial:    t,
			Description: fmt.Sprintf("The executed notebook '%s' contains error outputs", filepath.Base(t.ExpandedPath)),
			Context:     context,
		})

		return issues, nil
	}
}
