package cmd

import (
	"github.com/nbflow-io/nbflow/pkg/notebook"
	"github.com/nbflow-io/nbflow/pkg/telemetry"
	"github.com/nbflow-io/nbflow/pkg/tutorial"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

func Strip() *cli.Command {
	return &cli.Command{
		Name:      "strip",
		Usage:     "remove the outputs and execution counts from the source notebooks",
		ArgsUsage: "[paths to notebooks, or a collection root]",
		Before:    telemetry.BeforeCommand,
		After:     telemetry.AfterCommand,
		Action: func(c *cli.Context) error {
			defer RecoverFromPanic()

			args := c.Args().Slice()
			if len(args) == 0 {
				args = []string{"."}
			}

			osFs := afero.NewOsFs()
			stripped := 0

			for _, arg := range args {
				if isPathReferencingNotebook(arg) {
					written, err := stripNotebook(osFs, arg)
					if err != nil {
						errorPrinter.Printf("Failed to strip the notebook: %v\n", err)
						return cli.Exit("", 1)
					}

					successPrinter.Printf("Stripped '%s' into '%s'.\n", arg, written)
					stripped++
					continue
				}

				foundCollection, err := DefaultCollectionBuilder.CreateCollectionFromPath(arg)
				if err != nil {
					errorPrinter.Printf("Failed to build the collection: %v\n", err)
					return cli.Exit("", 1)
				}

				for _, t := range foundCollection.Tutorials {
					if _, err := stripNotebook(osFs, t.NotebookPath); err != nil {
						errorPrinter.Printf("Failed to strip the notebook of '%s': %v\n", t.Name, err)
						return cli.Exit("", 1)
					}
					stripped++
				}

				successPrinter.Printf("Stripped the source notebooks of the collection '%s'.\n", foundCollection.Name)
			}

			if stripped == 0 {
				infoPrinter.Println("No notebooks found to strip.")
			}

			return nil
		},
	}
}

// stripNotebook clears the outputs of the given notebook. Source notebooks are
// rewritten in place, executed counterparts are written back to their source
// path so the pair stays consistent. Returns the path that was written.
func stripNotebook(fs afero.Fs, notebookPath string) (string, error) {
	nb, err := notebook.Open(fs, notebookPath)
	if err != nil {
		return "", err
	}

	nb.Strip()

	target := notebookPath
	if tutorial.IsExpandedNotebook(notebookPath) {
		target = tutorial.UnexpandedCounterpart(notebookPath)
	}

	return target, nb.Save(fs, target)
}
