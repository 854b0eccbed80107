package cmd

import (
	"fmt"
	"io"
	"os"
	path2 "path"
	"strings"

	"github.com/fatih/color"
	"github.com/nbflow-io/nbflow/pkg/config"
	"github.com/nbflow-io/nbflow/pkg/git"
	"github.com/nbflow-io/nbflow/pkg/lint"
	"github.com/nbflow-io/nbflow/pkg/path"
	"github.com/nbflow-io/nbflow/pkg/telemetry"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var ErrExcludeTagNotSupported = errors.New("exclude-tag flag is not supported for single-tutorial validation")

// createCollectionFinderWithExclusions creates a collection finder function that excludes specified paths.
func createCollectionFinderWithExclusions(excludePaths []string) func(string, []string) ([]string, error) {
	return func(root string, collectionDefinitionFiles []string) ([]string, error) {
		return path.GetCollectionPathsWithExclusions(root, collectionDefinitionFiles, excludePaths)
	}
}

func Lint(isDebug *bool) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate the tutorial collections in a given directory",
		ArgsUsage: "[path to collections, or a tutorial name/notebook]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "environment",
				Aliases: []string{"e", "env"},
				Usage:   "the environment to use",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "force the validation even if the environment is a production environment",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "the output type, possible values are: plain, json",
			},
			&cli.StringFlag{
				Name:    "config-file",
				EnvVars: []string{"NBFLOW_CONFIG_FILE"},
				Usage:   "the path to the .nbflow.yml file",
			},
			&cli.StringFlag{
				Name:  "exclude-tag",
				Usage: "exclude tutorials with the given tag from the validation",
			},
			&cli.BoolFlag{
				Name:  "fast",
				Usage: "run only fast validation rules, skips parsing and executing notebooks",
			},
			&cli.BoolFlag{
				Name:  "exclude-warnings",
				Usage: "skip the warning-level validation rules",
			},
			&cli.StringSliceFlag{
				Name:  "exclude-paths",
				Usage: "exclude the given list of paths from the folders that are searched during validation",
			},
		},
		Before: telemetry.BeforeCommand,
		After:  telemetry.AfterCommand,
		Action: func(c *cli.Context) error {
			// if the output is JSON then we intend to discard all the nicer pretty-print statements
			// and only print the JSON output directly to the stdout
			if c.String("output") == "json" {
				color.Output = io.Discard
			} else {
				fmt.Println()
			}

			logger := makeLogger(*isDebug)

			rootOrTutorial := c.Args().Get(0)
			if rootOrTutorial == "" {
				rootOrTutorial = "."
			}
			rootPath := rootOrTutorial
			tutorialRef := ""
			if isPathReferencingNotebook(rootOrTutorial) {
				tutorialRef = rootOrTutorial
				collectionRoot, err := path.GetCollectionRootFromPath(rootOrTutorial, CollectionDefinitionFiles)
				if err != nil {
					printError(err, c.String("output"), "Failed to find the collection root for the given notebook")
					return cli.Exit("", 1)
				}
				rootPath = collectionRoot
			}

			logger.Debugf("using root path '%s'", rootPath)

			configFilePath := c.String("config-file")
			if configFilePath == "" {
				repoRoot, err := git.FindRepoFromPath(rootPath)
				if err != nil {
					printError(err, c.String("output"), "Failed to find the git repository root")
					return cli.Exit("", 1)
				}
				logger.Debugf("found repo root '%s'", repoRoot.Path)

				configFilePath = path2.Join(repoRoot.Path, ".nbflow.yml")
			}

			cm, err := config.LoadOrCreate(afero.NewOsFs(), configFilePath)
			if err != nil {
				printError(err, c.String("output"), fmt.Sprintf("Failed to load the config file at '%s'", configFilePath))
				return cli.Exit("", 1)
			}

			logger.Debugf("loaded the config from path '%s'", configFilePath)

			err = switchEnvironment(c.String("environment"), c.Bool("force"), cm, os.Stdin)
			if err != nil {
				return err
			}

			logger.Debugf("switched to the environment '%s'", cm.SelectedEnvironmentName)

			rules, err := lint.GetRules(fs)
			if err != nil {
				printError(err, c.String("output"), "An error occurred while building the validation rules")
				return cli.Exit("", 1)
			}

			if c.Bool("fast") {
				rules = lint.FilterRulesBySpeed(rules, true)
				logger.Debugf("filtered to %d fast rules", len(rules))
			} else {
				logger.Debugf("successfully loaded %d rules", len(rules))
			}

			if c.Bool("exclude-warnings") {
				rules = lo.Filter(rules, func(rule lint.Rule, _ int) bool {
					return rule.GetSeverity() != lint.ValidatorSeverityWarning
				})
				logger.Debugf("excluded the warning rules, %d rules remain", len(rules))
			}

			collectionFinder := createCollectionFinderWithExclusions(c.StringSlice("exclude-paths"))

			var result *lint.CollectionAnalysisResult
			var errr error
			if tutorialRef == "" {
				linter := lint.NewLinter(collectionFinder, DefaultCollectionBuilder, rules, logger)
				logger.Debugf("running %d rules for collection validation", len(rules))
				infoPrinter.Printf("Validating collections in '%s' for '%s' environment...\n", rootPath, cm.SelectedEnvironmentName)
				result, errr = linter.Lint(rootPath, CollectionDefinitionFiles, c.String("exclude-tag"))
			} else {
				if c.String("exclude-tag") != "" {
					printError(ErrExcludeTagNotSupported, c.String("output"), "Exclude tag flag is not supported for single-tutorial validation")
					return cli.Exit("", 1)
				}

				filteredRules := lint.FilterRulesByLevel(rules, lint.LevelTutorial)
				linter := lint.NewLinter(collectionFinder, DefaultCollectionBuilder, filteredRules, logger)
				logger.Debugf("running %d rules for single-tutorial validation", len(filteredRules))
				result, errr = linter.LintTutorial(rootPath, CollectionDefinitionFiles, tutorialRef)
			}

			printer := lint.Printer{RootCheckPath: rootPath}
			if errr != nil || result == nil {
				printError(errr, c.String("output"), "An error occurred")
				return cli.Exit("", 1)
			}

			if strings.ToLower(strings.TrimSpace(c.String("output"))) == "json" {
				err = printer.PrintJSON(result)
				if err != nil {
					printError(err, c.String("output"), "An error occurred")
					return cli.Exit("", 1)
				}
				return nil
			}

			err = reportLintErrors(result, printer, tutorialRef)
			if err != nil {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func reportLintErrors(result *lint.CollectionAnalysisResult, printer lint.Printer, tutorialRef string) error {
	printer.PrintIssues(result)

	// prepare the final message
	errorCount := result.ErrorCount()
	warningCount := result.WarningCount()
	collectionCount := len(result.Collections)
	collectionStr := "collection"
	if collectionCount > 1 {
		collectionStr += "s"
	}

	if errorCount > 0 || warningCount > 0 {
		issueStr := "issue"
		if errorCount > 1 {
			issueStr += "s"
		}

		warningStr := "warning"
		if warningCount > 1 {
			warningStr += "s"
		}

		foundMessage := "found"
		if errorCount > 0 {
			errorColoredMessage := color.New(color.FgRed).SprintFunc()
			foundMessage += errorColoredMessage(fmt.Sprintf(" %d %s", errorCount, issueStr))
		}

		if warningCount > 0 {
			if errorCount > 0 {
				foundMessage += " and"
			}
			warningColoredMessage := color.New(color.FgYellow).SprintFunc()
			foundMessage += warningColoredMessage(fmt.Sprintf(" %d %s", warningCount, warningStr))
		}

		if tutorialRef == "" {
			infoPrinter.Printf("\n✘ Checked %d %s and %s, please check above.\n", collectionCount, collectionStr, foundMessage)
		} else {
			infoPrinter.Printf("\n✘ Checked '%s' and found %s, please check above.\n", tutorialRef, foundMessage)
		}

		if errorCount > 0 {
			return errors.New("validation failed")
		}

		// warnings should not return failure
		return nil
	}

	tutorialCount := 0
	for _, c := range result.Collections {
		tutorialCount += len(c.Collection.Tutorials)
	}
	validatedCount := tutorialCount - result.TutorialWithExcludeTagCount
	if tutorialRef == "" {
		successPrinter.Printf("\n✓ Successfully validated %d tutorials across %d %s, all good.\n", validatedCount, collectionCount, collectionStr)
	} else {
		successPrinter.Printf("\n✓ Successfully validated '%s', all good.\n", tutorialRef)
	}
	return nil
}

func isPathReferencingNotebook(ref string) bool {
	return strings.HasSuffix(ref, path.NotebookSuffix)
}
