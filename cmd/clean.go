package cmd

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/nbflow-io/nbflow/pkg/git"
	nbpath "github.com/nbflow-io/nbflow/pkg/path"
	"github.com/nbflow-io/nbflow/pkg/telemetry"
	"github.com/nbflow-io/nbflow/pkg/tutorial"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func CleanCmd() *cli.Command {
	return &cli.Command{
		Name:      "clean",
		Usage:     "clean the temporary artifacts such as logs and executed notebooks",
		ArgsUsage: "[path to project root]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "expanded",
				Usage: "also remove the executed notebook counterparts",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "skip the confirmation prompt when removing executed notebooks",
			},
		},
		Before: telemetry.BeforeCommand,
		After:  telemetry.AfterCommand,
		Action: func(c *cli.Context) error {
			inputPath := c.Args().Get(0)
			if inputPath == "" {
				inputPath = "."
			}

			r := CleanCommand{}

			return r.Run(inputPath, c.Bool("expanded"), c.Bool("force"))
		},
	}
}

type CleanCommand struct{}

func (r *CleanCommand) Run(inputPath string, cleanExpanded, force bool) error {
	repoRoot, err := git.FindRepoFromPath(inputPath)
	if err != nil {
		errorPrinter.Printf("Failed to find the git repository root: %v\n", err)
		return cli.Exit("", 1)
	}

	logsFolder := path.Join(repoRoot.Path, LogsFolder)

	contents, err := filepath.Glob(fmt.Sprintf("%s/*.log", logsFolder))
	if err != nil {
		return errors.Wrap(err, "failed to find the logs folder")
	}

	if len(contents) == 0 {
		infoPrinter.Println("No log files found, nothing to clean up...")
	} else {
		infoPrinter.Printf("Found %d log files, cleaning them up...\n", len(contents))

		for _, f := range contents {
			err := os.Remove(f)
			if err != nil {
				return errors.Wrapf(err, "failed to remove file: %s", f)
			}
		}

		infoPrinter.Printf("Successfully removed %d log files.\n", len(contents))
	}

	if !cleanExpanded {
		return nil
	}

	notebooks, err := nbpath.GetAllFilesRecursive(inputPath, []string{tutorial.ExpandedSuffix})
	if err != nil {
		return errors.Wrap(err, "failed to search for executed notebooks")
	}

	if len(notebooks) == 0 {
		infoPrinter.Println("No executed notebooks found, nothing to clean up...")
		return nil
	}

	if !force {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("This will remove %d executed notebooks. Are you sure you want to continue?", len(notebooks)),
			IsConfirm: true,
		}

		if _, err := prompt.Run(); err != nil {
			fmt.Printf("The operation is cancelled.\n")
			return cli.Exit("", 1)
		}
	}

	for _, f := range notebooks {
		err := os.Remove(f)
		if err != nil {
			return errors.Wrapf(err, "failed to remove file: %s", f)
		}
	}

	infoPrinter.Printf("Successfully removed %d executed notebooks.\n", len(notebooks))

	return nil
}
