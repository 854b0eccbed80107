package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nbflow-io/nbflow/pkg/telemetry"
	"github.com/nbflow-io/nbflow/pkg/tutorial"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"github.com/xlab/treeprint"
)

func ListTutorials() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "list the tutorials of a collection as a tree",
		ArgsUsage: "[path to the collection root]",
		Flags: []cli.Flag{
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

			inputPath := c.Args().Get(0)
			if inputPath == "" {
				inputPath = "."
			}

			foundCollection, err := DefaultCollectionBuilder.CreateCollectionFromPath(inputPath)
			if err != nil {
				errorPrinter.Printf("Failed to build the collection: %v\n", err)
				return cli.Exit("", 1)
			}

			if c.String("output") == "json" {
				js, err := json.Marshal(foundCollection)
				if err != nil {
					printErrorJSON(err)
					return cli.Exit("", 1)
				}

				fmt.Println(string(js))
				return nil
			}

			fmt.Println(renderCollectionTree(foundCollection))
			return nil
		},
	}
}

// renderCollectionTree groups the tutorials by the directory they live in,
// relative to the collection root.
func renderCollectionTree(c *tutorial.Collection) string {
	tree := treeprint.NewWithRoot(infoPrinter.Sprintf("%s (%d tutorials)", c.Name, len(c.Tutorials)))

	byDir := lo.GroupBy(c.Tutorials, func(t *tutorial.Tutorial) string {
		return filepath.Dir(c.RelativeTutorialPath(t))
	})

	dirs := lo.Keys(byDir)
	sort.Strings(dirs)

	for _, dir := range dirs {
		branch := tree
		if dir != "." {
			branch = tree.AddBranch(dir)
		}

		for _, t := range byDir[dir] {
			branch.AddNode(describeTutorial(t))
		}
	}

	return tree.String()
}

func describeTutorial(t *tutorial.Tutorial) string {
	notes := make([]string, 0, 3)
	if len(t.Tags) > 0 {
		notes = append(notes, "tags: "+strings.Join(t.Tags, ", "))
	}
	if len(t.Requires) > 0 {
		notes = append(notes, "requires: "+strings.Join(t.Requires, ", "))
	}
	if t.Skip {
		notes = append(notes, "skipped")
	}

	if len(notes) == 0 {
		return t.Name
	}

	return fmt.Sprintf("%s %s", t.Name, faint("("+strings.Join(notes, "; ")+")"))
}
