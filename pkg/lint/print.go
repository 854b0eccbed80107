package lint

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/nbflow-io/nbflow/pkg/tutorial"
	"github.com/pkg/errors"
)

type Printer struct {
	RootCheckPath string
}

type (
	ruleIssue struct {
		rule  Rule
		issue *Issue
	}
)

var (
	faint             = color.New(color.Faint).SprintFunc()
	successPrinter    = color.New(color.FgGreen)
	collectionPrinter = color.New(color.FgBlue, color.Bold)
	tutorialPrinter   = color.New(color.FgWhite, color.Bold)
	issuePrinter      = color.New(color.FgRed)
	warningPrinter    = color.New(color.FgYellow)
)

func (l *Printer) PrintIssues(analysis *CollectionAnalysisResult) {
	for _, collectionIssues := range analysis.Collections {
		l.printCollectionSummary(collectionIssues)
	}
}

func (l *Printer) PrintJSON(analysis *CollectionAnalysisResult) error {
	jsonRes, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to convert lint result to JSON")
	}

	fmt.Println(string(jsonRes))
	return nil
}

func (l *Printer) printCollectionSummary(collectionIssues *CollectionIssues) {
	successPrinter.Println()

	collectionDirectory := l.relativeCollectionPath(collectionIssues.Collection)
	collectionPrinter.Printf("Collection: %s %s\n", collectionIssues.Collection.Name, faint(fmt.Sprintf("(%s)", collectionDirectory)))

	if len(collectionIssues.Issues) == 0 {
		successPrinter.Println("  No issues found")
		return
	}

	genericIssues := make(map[Rule][]*Issue, 0)
	tutorialIssueMap := make(map[*tutorial.Tutorial][]*ruleIssue, 0)

	for rule, issues := range collectionIssues.Issues {
		for _, issue := range issues {
			if issue.Tutorial == nil {
				if _, ok := genericIssues[rule]; !ok {
					genericIssues[rule] = make([]*Issue, 0)
				}

				genericIssues[rule] = append(genericIssues[rule], issue)
				continue
			}

			if _, ok := tutorialIssueMap[issue.Tutorial]; !ok {
				tutorialIssueMap[issue.Tutorial] = make([]*ruleIssue, 0)
			}

			tutorialIssueMap[issue.Tutorial] = append(tutorialIssueMap[issue.Tutorial], &ruleIssue{rule, issue})
		}
	}

	printGenericIssues(genericIssues)
	if len(genericIssues) > 0 && len(tutorialIssueMap) > 0 {
		issuePrinter.Println()
	}

	for t, summary := range tutorialIssueMap {
		relativePath := collectionIssues.Collection.RelativeTutorialPath(t)
		tutorialPrinter.Printf("  %s %s\n", t.Name, faint(fmt.Sprintf("(%s)", relativePath)))
		printTutorialIssues(summary)

		issuePrinter.Println()
	}
}

func (l Printer) relativeCollectionPath(c *tutorial.Collection) string {
	absoluteCollectionRoot := filepath.Dir(c.DefinitionFile.Path)

	absRootPath, err := filepath.Abs(l.RootCheckPath)
	if err != nil {
		return absoluteCollectionRoot
	}

	collectionDirectory, err := filepath.Rel(absRootPath, absoluteCollectionRoot)
	if err != nil {
		return absoluteCollectionRoot
	}

	return collectionDirectory
}

func printGenericIssues(genericIssues map[Rule][]*Issue) {
	totalIssueCount := 0
	for _, issues := range genericIssues {
		totalIssueCount += len(issues)
	}

	printedIssueCount := 0
	for rule, issues := range genericIssues {
		pp := issuePrinter
		if rule.GetSeverity() == ValidatorSeverityWarning {
			pp = warningPrinter
		}

		for _, issue := range issues {
			printedIssueCount++

			connector := "├──"
			if printedIssueCount == totalIssueCount {
				connector = "└──"
			}

			pp.Printf("    %s %s %s\n", connector, issue.Description, faint(fmt.Sprintf("(%s)", rule.Name())))
			printIssueContext(pp, issue.Context, printedIssueCount == totalIssueCount)
		}
	}
}

func printTutorialIssues(tutorialIssues []*ruleIssue) {
	issueCount := len(tutorialIssues)
	for index, ruleIssue := range tutorialIssues {
		rule := ruleIssue.rule
		issue := ruleIssue.issue

		pp := issuePrinter
		if rule.GetSeverity() == ValidatorSeverityWarning {
			pp = warningPrinter
		}

		connector := "├──"
		if index == issueCount-1 {
			connector = "└──"
		}

		pp.Printf("    %s %s %s\n", connector, issue.Description, faint(fmt.Sprintf("(%s)", rule.Name())))
		printIssueContext(pp, issue.Context, index == issueCount-1)
	}
}

func printIssueContext(printer *color.Color, context []string, lastIssue bool) {
	issueCount := len(context)
	beginning := "│"
	if lastIssue {
		beginning = " "
	}

	for index, row := range context {
		connector := "├─"
		if index == issueCount-1 {
			connector = "└─"
		}

		printer.Printf("    %s   %s %s\n", beginning, connector, padLinesIfMultiline(row, 11))
	}
}

func padLinesIfMultiline(str string, padding int) string {
	lines := strings.Split(str, "\n")
	if len(lines) == 1 {
		return str
	}

	paddedLines := make([]string, 0, len(lines))
	for i, line := range lines {
		if i == 0 {
			paddedLines = append(paddedLines, line)
			continue
		}

		paddedLines = append(paddedLines, fmt.Sprintf("%s%s", strings.Repeat(" ", padding), line))
	}

	return strings.Join(paddedLines, "\n")
}
