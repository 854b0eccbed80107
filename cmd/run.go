package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	path2 "path"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/nbflow-io/nbflow/pkg/config"
	"github.com/nbflow-io/nbflow/pkg/executor"
	"github.com/nbflow-io/nbflow/pkg/git"
	"github.com/nbflow-io/nbflow/pkg/history"
	"github.com/nbflow-io/nbflow/pkg/jupyter"
	"github.com/nbflow-io/nbflow/pkg/lint"
	"github.com/nbflow-io/nbflow/pkg/path"
	"github.com/nbflow-io/nbflow/pkg/scheduler"
	"github.com/nbflow-io/nbflow/pkg/telemetry"
	"github.com/nbflow-io/nbflow/pkg/tutorial"
	"github.com/nbflow-io/nbflow/pkg/user"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"github.com/xlab/treeprint"
	"go.uber.org/zap"
)

const LogsFolder = "logs"

type ExecutionSummary struct {
	TotalTasks      int
	SuccessfulTasks int
	FailedTasks     int
	SkippedTasks    int

	Tutorials    TaskTypeStats
	OutputChecks TaskTypeStats

	Duration time.Duration
}

type TaskTypeStats struct {
	Total             int
	Succeeded         int
	Failed            int // Failed in main execution
	FailedDueToChecks int // Failed only due to output checks (main execution succeeded)
	Skipped           int
}

func (s TaskTypeStats) HasAny() bool {
	return s.Total > 0
}

func printExecutionTable(results []*scheduler.TaskExecutionResult, s *scheduler.Scheduler) {
	// Group results by tutorial
	tutorialResults := make(map[string]map[string]*scheduler.TaskExecutionResult)
	tutorialOrder := make([]string, 0)

	addResult := func(result *scheduler.TaskExecutionResult) {
		name := result.Instance.GetTutorial().Name
		if _, exists := tutorialResults[name]; !exists {
			tutorialResults[name] = make(map[string]*scheduler.TaskExecutionResult)
			tutorialOrder = append(tutorialOrder, name)
		}

		switch result.Instance.(type) {
		case *scheduler.OutputCheckInstance:
			tutorialResults[name]["output-check"] = result
		default:
			tutorialResults[name]["main"] = result
		}
	}

	for _, result := range results {
		addResult(result)
	}

	// Only add upstream failed tutorials (skip the "skipped" ones entirely)
	upstreamFailedTasks := s.GetTaskInstancesByStatus(scheduler.UpstreamFailed)
	for _, task := range upstreamFailedTasks {
		addResult(&scheduler.TaskExecutionResult{Instance: task})
	}

	if len(tutorialOrder) == 0 {
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 50) + "\n")

	for _, name := range tutorialOrder {
		results := tutorialResults[name]
		mainResult := results["main"]

		var status string
		var statusColor *color.Color

		if mainResult == nil { //nolint:gocritic
			status = "SKIP"
			statusColor = color.New(color.Faint)
		} else if mainResult.Error == nil {
			_, isUpstreamFailed := find(upstreamFailedTasks, mainResult.Instance)

			if isUpstreamFailed {
				status = "UPSTREAM FAILED"
				statusColor = color.New(color.FgYellow)
			} else {
				status = "PASS"
				statusColor = color.New(color.FgGreen)
			}
		} else {
			status = "FAIL"
			statusColor = color.New(color.FgRed)
		}

		fmt.Printf("%s %s ", statusColor.Sprint(status), name)

		if checkResult, ok := results["output-check"]; ok {
			if checkResult.Error == nil { //nolint:gocritic
				_, isUpstreamFailed := find(upstreamFailedTasks, checkResult.Instance)
				if isUpstreamFailed {
					fmt.Print(color.New(color.FgYellow).Sprint("U"))
				} else {
					fmt.Print(color.New(color.FgGreen).Sprint("."))
				}
			} else {
				fmt.Print(color.New(color.FgRed).Sprint("F"))
			}
		}

		fmt.Println()
	}
}

func find(slice []scheduler.TaskInstance, item scheduler.TaskInstance) (int, bool) { //nolint:unparam
	for i, v := range slice {
		if v == item {
			return i, true
		}
	}
	return -1, false
}

func printExecutionSummary(results []*scheduler.TaskExecutionResult, s *scheduler.Scheduler, duration time.Duration) {
	summary := analyzeResults(results, s)
	summary.Duration = duration

	printExecutionTable(results, s)

	hasFailures := summary.FailedTasks > 0
	if hasFailures {
		summaryPrinter.Printf("\n\nnbflow run completed with %s in %s\n\n",
			color.New(color.FgRed).Sprint("failures"),
			duration.Truncate(time.Millisecond).String())
	} else {
		summaryPrinter.Printf("\n\nnbflow run completed %s in %s\n\n",
			color.New(color.FgGreen).Sprint("successfully"),
			duration.Truncate(time.Millisecond).String())
	}

	if summary.Tutorials.HasAny() {
		if summary.Tutorials.Failed > 0 || summary.Tutorials.FailedDueToChecks > 0 || summary.Tutorials.Skipped > 0 {
			summaryPrinter.Printf(" %s Tutorials executed     %s\n",
				color.New(color.FgRed).Sprint("✗"),
				formatCountWithSkipped(summary.Tutorials.Total, summary.Tutorials.Failed, summary.Tutorials.FailedDueToChecks, summary.Tutorials.Skipped))
		} else {
			summaryPrinter.Printf(" %s Tutorials executed     %s\n",
				color.New(color.FgGreen).Sprint("✓"),
				color.New(color.FgGreen).Sprintf("%d succeeded", summary.Tutorials.Succeeded))
		}
	}

	if summary.OutputChecks.HasAny() {
		if summary.OutputChecks.Failed > 0 || summary.OutputChecks.Skipped > 0 {
			summaryPrinter.Printf(" %s Output checks          %s\n",
				color.New(color.FgRed).Sprint("✗"),
				formatCountWithSkipped(summary.OutputChecks.Total, summary.OutputChecks.Failed, 0, summary.OutputChecks.Skipped))
		} else {
			summaryPrinter.Printf(" %s Output checks          %s\n",
				color.New(color.FgGreen).Sprint("✓"),
				color.New(color.FgGreen).Sprintf("%d succeeded", summary.OutputChecks.Succeeded))
		}
	}
}

func formatCountWithSkipped(total, failed, failedDueToChecks, skipped int) string {
	succeeded := total - failed - failedDueToChecks - skipped

	var parts []string
	if failed > 0 {
		parts = append(parts, color.New(color.FgRed).Sprintf("%d failed", failed))
	}
	if failedDueToChecks > 0 {
		parts = append(parts, color.New(color.FgYellow).Sprintf("%d failed due to checks", failedDueToChecks))
	}
	if succeeded > 0 {
		parts = append(parts, color.New(color.FgGreen).Sprintf("%d succeeded", succeeded))
	}
	if skipped > 0 {
		parts = append(parts, color.New(color.Faint).Sprintf("%d skipped", skipped))
	}

	if len(parts) == 0 {
		return "0"
	}
	if len(parts) == 1 && failed == 0 && failedDueToChecks == 0 && skipped == 0 {
		return strconv.Itoa(succeeded)
	}

	return strings.Join(parts, " / ")
}

func analyzeResults(results []*scheduler.TaskExecutionResult, s *scheduler.Scheduler) ExecutionSummary {
	summary := ExecutionSummary{}

	tutorialMainStatus := make(map[string]bool)       // true if main execution succeeded
	tutorialHasCheckFailures := make(map[string]bool) // true if the output check failed
	tutorialNames := make(map[string]bool)

	for _, result := range results {
		summary.TotalTasks++

		succeeded := result.Error == nil
		if succeeded {
			summary.SuccessfulTasks++
		} else {
			summary.FailedTasks++
		}

		name := result.Instance.GetTutorial().Name
		tutorialNames[name] = true

		switch result.Instance.(type) {
		case *scheduler.OutputCheckInstance:
			if !succeeded {
				tutorialHasCheckFailures[name] = true
			}
			summary.OutputChecks.Total++
			if succeeded {
				summary.OutputChecks.Succeeded++
			} else {
				summary.OutputChecks.Failed++
			}
		default:
			tutorialMainStatus[name] = succeeded
		}
	}

	for name := range tutorialNames {
		summary.Tutorials.Total++
		mainSucceeded := tutorialMainStatus[name]
		hasCheckFailures := tutorialHasCheckFailures[name]

		if mainSucceeded && !hasCheckFailures { //nolint:gocritic
			summary.Tutorials.Succeeded++
		} else if !mainSucceeded {
			summary.Tutorials.Failed++
		} else {
			summary.Tutorials.FailedDueToChecks++
		}
	}

	// upstream failed tasks are reported as skipped, tasks filtered out are not counted at all
	upstreamFailedTasks := s.GetTaskInstancesByStatus(scheduler.UpstreamFailed)
	upstreamFailedTutorials := make(map[string]bool)
	for _, t := range upstreamFailedTasks {
		summary.SkippedTasks++

		name := t.GetTutorial().Name
		switch t.(type) {
		case *scheduler.OutputCheckInstance:
			summary.OutputChecks.Total++
			summary.OutputChecks.Skipped++
		default:
			if !upstreamFailedTutorials[name] {
				upstreamFailedTutorials[name] = true
				summary.Tutorials.Total++
				summary.Tutorials.Skipped++
			}
		}
	}

	summary.TotalTasks += summary.SkippedTasks

	return summary
}

func Run(isDebug *bool) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "run the tutorials of a collection and write their executed counterparts",
		ArgsUsage: "[path to the collection, or a notebook file]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "downstream",
				Usage: "pass this flag if you'd like to run all the downstream tutorials as well",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "number of workers to run the tutorials in parallel",
				Value: 4,
			},
			&cli.StringFlag{
				Name:    "environment",
				Aliases: []string{"e", "env"},
				Usage:   "the environment to use",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "skip the confirmation prompt even if the environment is a production environment",
			},
			&cli.StringFlag{
				Name:    "kernel",
				Aliases: []string{"k"},
				Usage:   "override the kernel used for every tutorial in this run",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Usage: "per-cell execution timeout in seconds, overrides the environment default",
			},
			&cli.BoolFlag{
				Name:  "no-log-file",
				Usage: "do not create a log file for this run",
			},
			&cli.BoolFlag{
				Name:  "continue",
				Usage: "resume the collection from the last failed tutorial",
			},
			&cli.StringFlag{
				Name:    "tag",
				Aliases: []string{"t"},
				Usage:   "pick the tutorials with the given tag",
			},
			&cli.StringFlag{
				Name:    "exclude-tag",
				Aliases: []string{"x"},
				Usage:   "exclude the tutorials with the given tag",
			},
			&cli.StringSliceFlag{
				Name:        "only",
				DefaultText: "'main', 'output-check'",
				Usage:       "limit the types of tasks to run",
			},
			&cli.BoolFlag{
				Name:  "strict-outputs",
				Usage: "fail the output check when the committed outputs drifted from the notebook sources",
			},
			&cli.StringFlag{
				Name:    "config-file",
				EnvVars: []string{"NBFLOW_CONFIG_FILE"},
				Usage:   "the path to the .nbflow.yml file",
			},
			&cli.BoolFlag{
				Name:  "no-validation",
				Usage: "skip validation for this run",
			},
			&cli.StringSliceFlag{
				Name:  "var",
				Usage: "extra environment variables for the kernels, in key=value form",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "the output type, possible values are: plain, json",
			},
		},
		Before: telemetry.BeforeCommand,
		After:  telemetry.AfterCommand,
		Action: func(c *cli.Context) error {
			defer RecoverFromPanic()

			logger := makeLogger(*isDebug)

			inputPath := c.Args().Get(0)
			if inputPath == "" {
				inputPath = "."
			}

			runningForANotebook := isPathReferencingNotebook(inputPath)
			rootPath := inputPath
			if runningForANotebook {
				collectionRoot, err := path.GetCollectionRootFromPath(inputPath, CollectionDefinitionFiles)
				if err != nil {
					errorPrinter.Printf("Failed to find the collection root for the given notebook: %v\n", err)
					return cli.Exit("", 1)
				}
				rootPath = collectionRoot
			}

			repoRoot, err := git.FindRepoFromPath(rootPath)
			if err != nil {
				errorPrinter.Printf("Failed to find the git repository root: %v\n", err)
				return cli.Exit("", 1)
			}

			configFilePath := c.String("config-file")
			if configFilePath == "" {
				configFilePath = path2.Join(repoRoot.Path, ".nbflow.yml")
			}
			cm, err := config.LoadOrCreate(afero.NewOsFs(), configFilePath)
			if err != nil {
				errorPrinter.Printf("Failed to load the config file at '%s': %v\n", configFilePath, err)
				return cli.Exit("", 1)
			}
			err = switchEnvironment(c.String("environment"), c.Bool("force"), cm, os.Stdin)
			if err != nil {
				return err
			}

			if kernel := c.String("kernel"); kernel != "" {
				cm.SelectedEnvironment.Kernel = kernel
			}
			if timeout := c.Int("timeout"); timeout > 0 {
				cm.SelectedEnvironment.Timeout = timeout
			}

			foundCollection, err := DefaultCollectionBuilder.CreateCollectionFromPath(rootPath)
			if err != nil {
				errorPrinter.Printf("Failed to build the collection: %v\n", err)
				return cli.Exit("", 1)
			}

			var singleTutorial *tutorial.Tutorial
			if runningForANotebook {
				absNotebookPath, err := filepath.Abs(inputPath)
				if err != nil {
					errorPrinter.Printf("Failed to resolve the notebook path: %v\n", err)
					return cli.Exit("", 1)
				}

				singleTutorial = foundCollection.GetTutorialByPath(absNotebookPath)
				if singleTutorial == nil {
					errorPrinter.Printf("Failed to find the tutorial for the notebook '%s'\n", inputPath)
					return cli.Exit("", 1)
				}
			}

			runID := NewRunID()
			statePath := filepath.Join(repoRoot.Path, LogsFolder, "runs", foundCollection.Name+".json")
			err = git.EnsureGivenPatternIsInGitignore(afero.NewOsFs(), repoRoot.Path, LogsFolder+"/runs")
			if err != nil {
				errorPrinter.Printf("Failed to add the run state folder to .gitignore: %v\n", err)
				return cli.Exit("", 1)
			}

			var previousState *scheduler.RunState
			if c.Bool("continue") {
				previousState, err = scheduler.ReadRunState(afero.NewOsFs(), statePath)
				if err != nil {
					errorPrinter.Printf("Failed to read the previous run state, you may not have a run to continue: %v\n", err)
					return cli.Exit("", 1)
				}
			}

			infoPrinter.Printf("Analyzed the collection '%s' with %d tutorials.\n", foundCollection.Name, len(foundCollection.Tutorials))
			if singleTutorial != nil {
				infoPrinter.Printf("Running only the tutorial '%s'\n", singleTutorial.Name)
			}

			shouldValidate := singleTutorial == nil && !c.Bool("no-validation")
			if shouldValidate {
				if err := CheckLint(foundCollection, rootPath, logger); err != nil {
					return err
				}
			}

			if !c.Bool("no-log-file") {
				logFileName := fmt.Sprintf("%s__%s", runID, foundCollection.Name)
				if singleTutorial != nil {
					logFileName = fmt.Sprintf("%s__%s__%s", runID, foundCollection.Name, singleTutorial.Name)
				}

				logPath, err := filepath.Abs(fmt.Sprintf("%s/%s/%s.log", repoRoot.Path, LogsFolder, logFileName))
				if err != nil {
					errorPrinter.Printf("Failed to create log file: %v\n", err)
					return cli.Exit("", 1)
				}

				fn, err2 := logOutput(logPath)
				if err2 != nil {
					errorPrinter.Printf("Failed to create log file: %v\n", err2)
					return cli.Exit("", 1)
				}

				defer fn()
				color.Output = os.Stdout

				err = git.EnsureGivenPatternIsInGitignore(afero.NewOsFs(), repoRoot.Path, LogsFolder+"/*.log")
				if err != nil {
					errorPrinter.Printf("Failed to add the log file to .gitignore: %v\n", err)
					return cli.Exit("", 1)
				}
			}

			runState := scheduler.NewRunState(afero.NewOsFs(), statePath, runID, foundCollection.Name, map[string]string{
				"tag":         c.String("tag"),
				"exclude-tag": c.String("exclude-tag"),
				"downstream":  strconv.FormatBool(c.Bool("downstream")),
				"only":        strings.Join(c.StringSlice("only"), ","),
			})

			s := scheduler.NewScheduler(logger, foundCollection, runState)

			if c.Bool("continue") {
				s.RestoreState(previousState)
			} else {
				filter := &Filter{
					IncludeTag:        c.String("tag"),
					ExcludeTag:        c.String("exclude-tag"),
					OnlyTaskTypes:     c.StringSlice("only"),
					IncludeDownstream: c.Bool("downstream"),
					SingleTutorial:    singleTutorial,
				}

				if err := ApplyAllFilters(filter, s, foundCollection); err != nil {
					errorPrinter.Printf("Failed to filter tutorials: %v\n", err)
					return cli.Exit("", 1)
				}
			}

			if s.InstanceCountByStatus(scheduler.Pending) == 0 {
				warningPrinter.Println("No tasks to run.")
				return nil
			}
			sendTelemetry(s, c)

			infoPrinter.Printf("\nStarting the collection execution...\n\n")

			envVariables, err := parseEnvVariables(c.StringSlice("var"))
			if err != nil {
				errorPrinter.Printf("%v\n", err)
				return cli.Exit("", 1)
			}

			operator, err := jupyter.NewNotebookOperator(cm, envVariables, c.Bool("strict-outputs"))
			if err != nil {
				errorPrinter.Printf("Failed to set up the notebook operator: %v\n", err)
				return cli.Exit("", 1)
			}

			mainExecutors := executor.DefaultExecutors.WithOperator(operator)

			ex, err := executor.NewConcurrent(logger, mainExecutors, c.Int("workers"))
			if err != nil {
				errorPrinter.Printf("Failed to create executor: %v\n", err)
				return cli.Exit("", 1)
			}

			exeCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			ex.Start(exeCtx, s.WorkQueue, s.Results)

			start := time.Now()
			results := s.Run(exeCtx)
			duration := time.Since(start)

			recordRunInHistory(s, foundCollection, runID, start, duration, logger)

			errorsInTaskResults := make([]*scheduler.TaskExecutionResult, 0)
			for _, res := range results {
				if res.Error != nil {
					errorsInTaskResults = append(errorsInTaskResults, res)
				}
			}

			if len(errorsInTaskResults) > 0 {
				printExecutionSummary(results, s, duration)
				printErrorsInResults(errorsInTaskResults)
				return cli.Exit("", 1)
			}

			printExecutionSummary(results, s, duration)
			return nil
		},
	}
}

// CheckLint runs the fast validation rules before execution so broken
// collections fail before any kernel is started.
func CheckLint(c *tutorial.Collection, rootPath string, logger *zap.SugaredLogger) error {
	rules, err := lint.GetRules(fs)
	if err != nil {
		errorPrinter.Printf("An error occurred while building the validation rules: %v\n", err)
		return cli.Exit("", 1)
	}
	rules = lint.FilterRulesBySpeed(rules, true)

	logger.Debugf("validating the collection with %d fast rules", len(rules))

	linter := lint.NewLinter(path.GetCollectionPaths, DefaultCollectionBuilder, rules, logger)
	result, err := linter.LintCollections([]*tutorial.Collection{c}, "")
	if err != nil {
		errorPrinter.Printf("An error occurred while validating the collection: %v\n", err)
		return cli.Exit("", 1)
	}

	if result.ErrorCount() > 0 {
		printer := lint.Printer{RootCheckPath: rootPath}
		printer.PrintIssues(result)
		errorPrinter.Println("\nPlease fix the errors above and try again, or run with --no-validation to skip validation.")
		return cli.Exit("", 1)
	}

	return nil
}

func recordRunInHistory(s *scheduler.Scheduler, c *tutorial.Collection, runID string, start time.Time, duration time.Duration, logger *zap.SugaredLogger) {
	cm := user.NewConfigManager(afero.NewOsFs())
	if err := cm.EnsureHomeDirExists(); err != nil {
		logger.Errorf("failed to prepare the nbflow home directory: %v", err)
		return
	}

	store, err := history.Open(cm.HistoryDBPath())
	if err != nil {
		logger.Errorf("failed to open the run history: %v", err)
		return
	}
	defer store.Close()

	failed := s.InstanceCountByStatus(scheduler.Failed) + s.InstanceCountByStatus(scheduler.UpstreamFailed)
	status := "succeeded"
	if failed > 0 {
		status = "failed"
	}

	err = store.Record(&history.Run{
		ID:         runID,
		Collection: c.Name,
		StartedAt:  start,
		Duration:   duration,
		Total:      s.InstanceCount(),
		Succeeded:  s.InstanceCountByStatus(scheduler.Succeeded),
		Failed:     failed,
		Skipped:    s.InstanceCountByStatus(scheduler.Skipped),
		Status:     status,
	})
	if err != nil {
		logger.Errorf("failed to record the run in the history: %v", err)
	}
}

func printErrorsInResults(errorsInTaskResults []*scheduler.TaskExecutionResult) {
	data := make(map[string][]*scheduler.TaskExecutionResult, len(errorsInTaskResults))
	names := make([]string, 0)
	for _, result := range errorsInTaskResults {
		name := result.Instance.GetTutorial().Name
		if _, ok := data[name]; !ok {
			names = append(names, name)
		}
		data[name] = append(data[name], result)
	}

	fmt.Println()
	tree := treeprint.NewWithRoot(color.New(color.FgRed).Sprintf("%d tutorials failed", len(data)))
	for _, name := range names {
		branch := tree.AddBranch(color.New(color.FgYellow).Sprint(name))

		for _, result := range data[name] {
			switch result.Instance.(type) {
			case *scheduler.OutputCheckInstance:
				branch.AddNode(fmt.Sprintf("%s - %s",
					faint("output check"),
					color.New(color.FgRed).Sprintf("%s", result.Error)))
			default:
				branch.AddNode(color.New(color.FgRed).Sprintf("%s", result.Error))
			}
		}
	}
	fmt.Println()
	fmt.Println(tree.String())
}

func parseEnvVariables(vars []string) (map[string]string, error) {
	variables := make(map[string]string, len(vars))
	for _, v := range vars {
		segments := strings.SplitN(v, "=", 2)
		if len(segments) != 2 {
			return nil, errors.Errorf("invalid value for the '--var' flag: '%s', it must be of form key=value", v)
		}

		variables[strings.TrimSpace(segments[0])] = segments[1]
	}

	return variables, nil
}

func sendTelemetry(s *scheduler.Scheduler, c *cli.Context) {
	stats := make(map[string]int)
	for _, instance := range s.GetTaskInstancesByStatus(scheduler.Pending) {
		stats[instance.GetType().String()]++
	}

	telemetry.SendEventWithRunStats("run_tutorials", stats, c)
}

type Filter struct {
	IncludeTag        string   // Tag to include tutorials (from `--tag`)
	ExcludeTag        string   // Tag to exclude tutorials (from `--exclude-tag`)
	OnlyTaskTypes     []string // Task types to include (from `--only`)
	IncludeDownstream bool     // Whether to include downstream tutorials (from `--downstream`)
	SingleTutorial    *tutorial.Tutorial
}

func HandleSingleTutorial(f *Filter, s *scheduler.Scheduler, c *tutorial.Collection) error {
	if f.SingleTutorial == nil {
		if f.IncludeDownstream {
			return errors.New("cannot use the --downstream flag when running the whole collection")
		}
		return nil
	}
	s.MarkAll(scheduler.Skipped)
	s.MarkTutorial(f.SingleTutorial, scheduler.Pending, f.IncludeDownstream)
	if f.IncludeTag != "" {
		return errors.New("you cannot use the '--tag' flag when running a single tutorial")
	}
	if f.ExcludeTag != "" {
		if !f.IncludeDownstream {
			return errors.New("when running a single tutorial with '--exclude-tag', you must also use the '--downstream' flag")
		}
		excluded := c.GetTutorialsByTag(f.ExcludeTag)
		if len(excluded) == 0 {
			return fmt.Errorf("no tutorials found with exclude tag '%s'", f.ExcludeTag)
		}
		s.MarkByTag(f.ExcludeTag, scheduler.Skipped, false)
	}
	return nil
}

func HandleIncludeTags(f *Filter, s *scheduler.Scheduler, c *tutorial.Collection) error {
	if f.IncludeTag == "" {
		return nil
	}
	s.MarkAll(scheduler.Skipped)
	included := c.GetTutorialsByTag(f.IncludeTag)
	if len(included) == 0 {
		return fmt.Errorf("no tutorials found with include tag '%s'", f.IncludeTag)
	}
	s.MarkByTag(f.IncludeTag, scheduler.Pending, false)

	return nil
}

func HandleExcludeTags(f *Filter, s *scheduler.Scheduler, c *tutorial.Collection) error {
	if f.SingleTutorial != nil {
		return nil
	}
	if f.ExcludeTag == "" {
		return nil
	}
	excluded := c.GetTutorialsByTag(f.ExcludeTag)
	if len(excluded) == 0 {
		return fmt.Errorf("no tutorials found with exclude tag '%s'", f.ExcludeTag)
	}
	s.MarkByTag(f.ExcludeTag, scheduler.Skipped, false)

	return nil
}

func FilterTaskTypes(f *Filter, s *scheduler.Scheduler, c *tutorial.Collection) error {
	if len(f.OnlyTaskTypes) == 0 {
		return nil
	}

	for _, taskType := range f.OnlyTaskTypes {
		if taskType != "main" && taskType != "output-check" {
			return fmt.Errorf("invalid value for '--only' flag: '%s', available values are 'main' and 'output-check'", taskType)
		}
	}

	if !slices.Contains(f.OnlyTaskTypes, "main") {
		s.MarkPendingInstancesByType(scheduler.TaskInstanceTypeMain, scheduler.Skipped)
	}
	if !slices.Contains(f.OnlyTaskTypes, "output-check") {
		s.MarkPendingInstancesByType(scheduler.TaskInstanceTypeOutputCheck, scheduler.Skipped)
	}

	return nil
}

type FilterMutator func(f *Filter, s *scheduler.Scheduler, c *tutorial.Collection) error

func ApplyAllFilters(f *Filter, s *scheduler.Scheduler, c *tutorial.Collection) error {
	funcs := []FilterMutator{
		HandleSingleTutorial,
		HandleIncludeTags,
		HandleExcludeTags,
		FilterTaskTypes,
	}

	for _, filterFunc := range funcs {
		if err := filterFunc(f, s, c); err != nil {
			return err
		}
	}
	return nil
}

type clearFileWriter struct {
	file *os.File
	m    sync.Mutex
}

func (c *clearFileWriter) Write(p []byte) (int, error) {
	c.m.Lock()
	defer c.m.Unlock()
	_, err := c.file.Write([]byte(Clean(string(p))))
	return len(p), err
}

func logOutput(logPath string) (func(), error) {
	err := os.MkdirAll(filepath.Dir(logPath), 0o755)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create log directory")
	}

	// open file read/write | create if not exist | clear file at open if exists
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open log file")
	}

	// save existing stdout | MultiWriter writes to saved stdout and file
	mw := io.MultiWriter(os.Stdout, &clearFileWriter{f, sync.Mutex{}})

	// get pipe reader and writer | writes to pipe writer come out pipe reader
	r, w, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create log pipe")
	}

	// replace stdout,stderr with pipe writer | all writes to stdout, stderr will go through pipe instead (fmt.print, log)
	os.Stdout = w
	os.Stderr = w

	// writes with log.Print should also write to mw
	log.SetOutput(mw)

	// create channel to control exit | will block until all copies are finished
	exit := make(chan bool)

	go func() {
		// copy all reads from pipe to multiwriter, which writes to stdout and file
		_, err := io.Copy(mw, r)
		if err != nil {
			panic(err)
		}
		// when r or w is closed copy will finish and true will be sent to channel
		exit <- true
	}()

	// function to be deferred in main until program exits
	return func() {
		// close writer then block on exit channel | this will let mw finish writing before the program exits
		_ = w.Close()
		<-exit
		// close file after all writes have finished
		_ = f.Close()
	}, nil
}

const ansi = "[\u001B\u009B][[\\]()#;?]*(?:(?:(?:[a-zA-Z\\d]*(?:;[a-zA-Z\\d]*)*)?\u0007)|(?:(?:\\d{1,4}(?:;\\d{0,4})*)?[\\dA-PRZcf-ntqry=><~]))"

var re = regexp.MustCompile(ansi)

func Clean(str string) string {
	return re.ReplaceAllString(str, "")
}
