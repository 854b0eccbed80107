package cmd

import (
	"fmt"
	"strings"

	"github.com/nbflow-io/nbflow/pkg/notebook"
	"github.com/nbflow-io/nbflow/pkg/path"
	"github.com/nbflow-io/nbflow/pkg/telemetry"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

func Convert() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "convert a notebook into a plain Python script",
		ArgsUsage: "[path to the notebook]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "stdout",
				Usage: "print the script to stdout instead of writing it next to the notebook",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "the path to write the script to, defaults to the notebook path with a .py extension",
			},
		},
		Before: telemetry.BeforeCommand,
		After:  telemetry.AfterCommand,
		Action: func(c *cli.Context) error {
			defer RecoverFromPanic()

			notebookPath := c.Args().Get(0)
			if notebookPath == "" {
				errorPrinter.Printf("Please give a notebook path to convert: nbflow convert <path to the notebook>\n")
				return cli.Exit("", 1)
			}

			osFs := afero.NewOsFs()
			nb, err := notebook.Open(osFs, notebookPath)
			if err != nil {
				errorPrinter.Printf("Failed to read the notebook: %v\n", err)
				return cli.Exit("", 1)
			}

			script := nb.ToScript()
			if c.Bool("stdout") {
				fmt.Print(script)
				return nil
			}

			scriptPath := c.String("out")
			if scriptPath == "" {
				scriptPath = strings.TrimSuffix(notebookPath, path.NotebookSuffix) + ".py"
			}
			if err := afero.WriteFile(osFs, scriptPath, []byte(script), 0o644); err != nil {
				errorPrinter.Printf("Failed to write the script: %v\n", err)
				return cli.Exit("", 1)
			}

			successPrinter.Printf("Converted '%s' to '%s'.\n", notebookPath, scriptPath)
			return nil
		},
	}
}
