package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/nbflow-io/nbflow/pkg/path"
	"github.com/nbflow-io/nbflow/pkg/tutorial"
	"github.com/urfave/cli/v2"
)

func Lineage() *cli.Command {
	return &cli.Command{
		Name:      "lineage",
		Usage:     "dump the run order dependencies of a given tutorial",
		ArgsUsage: "[path to the notebook]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "full",
				Usage: "display all the upstream and downstream dependencies even if they are not direct dependencies",
			},
		},
		Action: func(c *cli.Context) error {
			r := LineageCommand{
				infoPrinter:  infoPrinter,
				errorPrinter: errorPrinter,
			}

			return r.Run(c.Args().Get(0), c.Bool("full"))
		},
	}
}

type printer interface {
	Println(a ...interface{}) (n int, err error)
	Printf(format string, a ...interface{}) (n int, err error)
	Print(a ...interface{}) (n int, err error)
}

type LineageCommand struct {
	infoPrinter  printer
	errorPrinter printer
}

func (r *LineageCommand) Run(notebookPath string, fullLineage bool) error {
	if notebookPath == "" {
		r.errorPrinter.Printf("Please give a notebook path to get lineage of: nbflow lineage <path to the notebook>\n")
		return cli.Exit("", 1)
	}

	collectionPath, err := path.GetCollectionRootFromPath(notebookPath, CollectionDefinitionFiles)
	if err != nil {
		r.errorPrinter.Printf("Failed to find the collection this notebook belongs to: '%s'\n", notebookPath)
		return cli.Exit("", 1)
	}

	foundCollection, err := DefaultCollectionBuilder.CreateCollectionFromPath(collectionPath)
	if err != nil {
		r.errorPrinter.Println("failed to build the collection, are you sure you have referred the right path?")
		r.errorPrinter.Println("\nHint: You need to run this command with a path to the notebook file itself, and it needs to be inside a collection.")

		return cli.Exit("", 1)
	}

	absNotebookPath, err := filepath.Abs(notebookPath)
	if err != nil {
		r.errorPrinter.Printf("Failed to resolve the notebook path: %v\n", err)
		return cli.Exit("", 1)
	}

	foundTutorial := foundCollection.GetTutorialByPath(absNotebookPath)
	if foundTutorial == nil {
		r.errorPrinter.Println("failed to find the tutorial with the given path, are you sure you have referred the right file?")
		r.errorPrinter.Println("\nHint: You need to run this command with a path to the notebook file itself, and it needs to be inside a collection.")

		return cli.Exit("", 1)
	}
	r.infoPrinter.Printf("\nLineage: '%s'", foundTutorial.Name)

	upstream := foundTutorial.GetUpstream()
	downstream := foundTutorial.GetDownstream()
	if fullLineage {
		upstream = foundTutorial.GetFullUpstream()
		downstream = foundTutorial.GetFullDownstream()
	}

	r.printLineageSummary(foundCollection, upstream, "Upstream Dependencies", "Tutorial has no upstream dependencies.")
	r.printLineageSummary(foundCollection, downstream, "Downstream Dependencies", "Tutorial has no downstream dependencies.")

	return nil
}

func (r *LineageCommand) printLineageSummary(c *tutorial.Collection, tutorials []*tutorial.Tutorial, title string, absenceMessage string) {
	r.infoPrinter.Print("\n\n")
	r.infoPrinter.Println(title)
	r.infoPrinter.Println("========================")
	if len(tutorials) == 0 {
		r.infoPrinter.Println(absenceMessage)
	} else {
		for _, u := range tutorials {
			r.infoPrinter.Printf("- %s %s\n", u.Name, faint(fmt.Sprintf("(%s)", c.RelativeTutorialPath(u))))
		}
		r.infoPrinter.Printf("\nTotal: %d\n", len(tutorials))
	}
}
