package lint

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/nbflow-io/nbflow/pkg/logger"
	"github.com/nbflow-io/nbflow/pkg/tutorial"
	"github.com/pkg/errors"
)

type Level int

const (
	// LevelCollection rules validate the collection as a whole.
	LevelCollection Level = iota

	// LevelTutorial rules validate a single tutorial.
	LevelTutorial
)

type ValidatorSeverity int

const (
	ValidatorSeverityCritical ValidatorSeverity = iota
	ValidatorSeverityWarning
)

type (
	collectionFinder    func(root string, collectionDefinitionFiles []string) ([]string, error)
	CollectionValidator func(collection *tutorial.Collection) ([]*Issue, error)
	TutorialValidator   func(collection *tutorial.Collection, t *tutorial.Tutorial) ([]*Issue, error)
)

type collectionBuilder interface {
	CreateCollectionFromPath(pathToCollection string) (*tutorial.Collection, error)
}

type Issue struct {
	Tutorial    *tutorial.Tutorial
	Description string
	Context     []string
}

type Rule interface {
	Name() string
	IsFast() bool
	Validate(collection *tutorial.Collection) ([]*Issue, error)
	ValidateTutorial(collection *tutorial.Collection, t *tutorial.Tutorial) ([]*Issue, error)
	GetApplicableLevels() []Level
	GetSeverity() ValidatorSeverity
}

type SimpleRule struct {
	Identifier        string
	Fast              bool
	Validator         CollectionValidator
	TutorialValidator TutorialValidator
	ApplicableLevels  []Level
	Severity          ValidatorSeverity
}

func (g *SimpleRule) Validate(collection *tutorial.Collection) ([]*Issue, error) {
	return g.Validator(collection)
}

func (g *SimpleRule) IsFast() bool {
	return g.Fast
}

func (g *SimpleRule) ValidateTutorial(collection *tutorial.Collection, t *tutorial.Tutorial) ([]*Issue, error) {
	if g.TutorialValidator == nil {
		return []*Issue{}, errors.Errorf("the rule '%s' cannot be used to validate single tutorials, please open an issue", g.Identifier)
	}

	return g.TutorialValidator(collection, t)
}

func (g *SimpleRule) Name() string {
	return g.Identifier
}

func (g *SimpleRule) GetApplicableLevels() []Level {
	return g.ApplicableLevels
}

func (g *SimpleRule) GetSeverity() ValidatorSeverity {
	return g.Severity
}

type Linter struct {
	findCollections collectionFinder
	builder         collectionBuilder
	rules           []Rule
	logger          logger.Logger
}

func NewLinter(findCollections collectionFinder, builder collectionBuilder, rules []Rule, logger logger.Logger) *Linter {
	return &Linter{
		findCollections: findCollections,
		builder:         builder,
		rules:           rules,
		logger:          logger,
	}
}

func (l *Linter) Lint(rootPath string, collectionDefinitionFiles []string, excludeTag string) (*CollectionAnalysisResult, error) {
	collections, err := l.extractCollectionsFromPath(rootPath, collectionDefinitionFiles)
	if err != nil {
		return nil, err
	}

	return l.LintCollections(collections, excludeTag)
}

// LintTutorial validates a single tutorial, found by notebook path or by name
// across the collections under the root.
func (l *Linter) LintTutorial(rootPath string, collectionDefinitionFiles []string, tutorialNameOrPath string) (*CollectionAnalysisResult, error) {
	collections, err := l.extractCollectionsFromPath(rootPath, collectionDefinitionFiles)
	if err != nil {
		return nil, err
	}

	var owner *tutorial.Collection
	var t *tutorial.Tutorial
	for _, c := range collections {
		t = c.GetTutorialByPath(tutorialNameOrPath)
		if t != nil {
			owner = c
			l.logger.Debugf("found a tutorial with path under the collection '%s'", c.DefinitionFile.Path)
			break
		}
	}

	if t == nil {
		l.logger.Debugf("couldn't find a tutorial with the path '%s', trying it as a name instead", tutorialNameOrPath)

		matchedCount := 0
		for _, c := range collections {
			maybe := c.GetTutorialByName(tutorialNameOrPath)
			if maybe != nil {
				matchedCount++
				t = maybe
				owner = c
			}
		}

		if matchedCount > 1 {
			return nil, errors.Errorf("there are %d tutorials with the name '%s', you'll have to use a notebook path or go to the collection directory", matchedCount, tutorialNameOrPath)
		}
	}

	if t == nil {
		return nil, errors.Errorf("failed to find a tutorial with the path or name '%s' under the path '%s'", tutorialNameOrPath, rootPath)
	}

	collectionResult := &CollectionIssues{
		Collection: owner,
		Issues:     make(map[Rule][]*Issue),
	}

	for _, rule := range l.rules {
		if !slices.Contains(rule.GetApplicableLevels(), LevelTutorial) {
			continue
		}

		issues, err := rule.ValidateTutorial(owner, t)
		if err != nil {
			return nil, err
		}

		if len(issues) > 0 {
			collectionResult.Issues[rule] = issues
		}
	}

	return &CollectionAnalysisResult{
		Collections: []*CollectionIssues{collectionResult},
	}, nil
}

func (l *Linter) extractCollectionsFromPath(rootPath string, collectionDefinitionFiles []string) ([]*tutorial.Collection, error) {
	collectionPaths, err := l.findCollections(rootPath, collectionDefinitionFiles)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.New("the given collection path does not exist, please make sure you gave the right path")
		}

		return nil, errors.Wrap(err, "error getting collection paths")
	}

	if len(collectionPaths) == 0 {
		return nil, fmt.Errorf("no collections found in path '%s'", rootPath)
	}

	l.logger.Debugf("found %d collections", len(collectionPaths))
	sort.Strings(collectionPaths)

	err = EnsureNoNestedCollections(collectionPaths)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("no nested collections found, moving forward")
	collections := make([]*tutorial.Collection, 0, len(collectionPaths))
	for _, collectionPath := range collectionPaths {
		l.logger.Debugf("creating collection from path '%s'", collectionPath)

		c, err := l.builder.CreateCollectionFromPath(collectionPath)
		if err != nil {
			return nil, errors.Wrapf(err, "error creating collection from path '%s'", collectionPath)
		}
		collections = append(collections, c)
	}

	l.logger.Debugf("constructed %d collections", len(collections))
	return collections, nil
}

type CollectionAnalysisResult struct {
	Collections                 []*CollectionIssues `json:"collections"`
	TutorialWithExcludeTagCount int
}

func (p *CollectionAnalysisResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Collections)
}

// ErrorCount returns the number of errors found in an analysis result.
func (p *CollectionAnalysisResult) ErrorCount() int {
	count := 0
	for _, collectionIssues := range p.Collections {
		for rule, issues := range collectionIssues.Issues {
			if rule.GetSeverity() == ValidatorSeverityCritical {
				count += len(issues)
			}
		}
	}

	return count
}

// WarningCount returns the number of warnings, a.k.a non-critical issues found in an analysis result.
func (p *CollectionAnalysisResult) WarningCount() int {
	count := 0
	for _, collectionIssues := range p.Collections {
		for rule, issues := range collectionIssues.Issues {
			if rule.GetSeverity() == ValidatorSeverityWarning {
				count += len(issues)
			}
		}
	}

	return count
}

type CollectionIssues struct {
	Collection *tutorial.Collection
	Issues     map[Rule][]*Issue
}

func (p *CollectionIssues) MarshalJSON() ([]byte, error) {
	type IssueSummary struct {
		Tutorial    string   `json:"tutorial"`
		Description string   `json:"description"`
		Context     []string `json:"context"`
		Severity    string   `json:"severity"`
	}

	severityNames := map[ValidatorSeverity]string{
		ValidatorSeverityCritical: "critical",
		ValidatorSeverityWarning:  "warning",
	}

	issuesByTutorial := make(map[string][]*IssueSummary)

	for rule, issues := range p.Issues {
		for _, issue := range issues {
			if issue.Tutorial == nil {
				continue
			}

			ctx := make([]string, 0, len(issue.Context))
			if issue.Context != nil {
				ctx = issue.Context
			}

			issuesByTutorial[issue.Tutorial.Name] = append(issuesByTutorial[issue.Tutorial.Name], &IssueSummary{
				Tutorial:    issue.Tutorial.Name,
				Description: issue.Description,
				Context:     ctx,
				Severity:    severityNames[rule.GetSeverity()],
			})
		}
	}

	return json.Marshal(struct {
		Collection string                     `json:"collection"`
		Issues     map[string][]*IssueSummary `json:"issues"`
	}{
		Collection: p.Collection.Name,
		Issues:     issuesByTutorial,
	})
}

func (l *Linter) LintCollections(collections []*tutorial.Collection, excludeTag string) (*CollectionAnalysisResult, error) {
	excludedCount := 0
	for _, c := range collections {
		for _, t := range c.Tutorials {
			if ContainsTag(t.Tags, excludeTag) {
				excludedCount++
			}
		}
	}

	result := &CollectionAnalysisResult{
		TutorialWithExcludeTagCount: excludedCount,
	}

	for _, c := range collections {
		collectionResult, err := l.LintCollection(c, excludeTag)
		if err != nil {
			return nil, err
		}
		result.Collections = append(result.Collections, collectionResult)
	}

	return result, nil
}

func (l *Linter) LintCollection(c *tutorial.Collection, excludeTag string) (*CollectionIssues, error) {
	return RunLintRulesOnCollection(c, l.rules, excludeTag)
}

func ContainsTag(tags []string, target string) bool {
	if target == "" {
		return false
	}
	for _, tag := range tags {
		if tag == target {
			return true
		}
	}
	return false
}

func RunLintRulesOnCollection(c *tutorial.Collection, rules []Rule, excludeTag string) (*CollectionIssues, error) {
	collectionResult := &CollectionIssues{
		Collection: c,
		Issues:     make(map[Rule][]*Issue),
	}

	for _, rule := range rules {
		levels := rule.GetApplicableLevels()
		if slices.Contains(levels, LevelCollection) {
			issues, err := rule.Validate(c)
			if err != nil {
				return nil, err
			}
			if len(issues) > 0 {
				collectionResult.Issues[rule] = append(collectionResult.Issues[rule], issues...)
			}
		} else if slices.Contains(levels, LevelTutorial) {
			for _, t := range c.Tutorials {
				if ContainsTag(t.Tags, excludeTag) {
					continue
				}
				issues, err := rule.ValidateTutorial(c, t)
				if err != nil {
					return nil, err
				}
				if len(issues) > 0 {
					collectionResult.Issues[rule] = append(collectionResult.Issues[rule], issues...)
				}
			}
		}
	}
	return collectionResult, nil
}

func EnsureNoNestedCollections(collectionPaths []string) error {
	var previousPath string
	for i, path := range collectionPaths {
		if i != 0 && strings.HasPrefix(path, previousPath+"/") {
			return fmt.Errorf("nested collections are not allowed: seems like '%s' is already a parent collection for '%s'", previousPath, path)
		}

		previousPath = path
	}

	return nil
}
