package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/nbflow-io/nbflow/pkg/git"
	"github.com/nbflow-io/nbflow/pkg/path"
	"github.com/nbflow-io/nbflow/pkg/tutorial"
	"github.com/urfave/cli/v2"
)

func Internal() *cli.Command {
	return &cli.Command{
		Name:   "internal",
		Hidden: true,
		Subcommands: []*cli.Command{
			ParseTutorial(),
			ParseCollection(),
			CollectionSchema(),
		},
	}
}

func ParseTutorial() *cli.Command {
	return &cli.Command{
		Name:      "parse-tutorial",
		Usage:     "parse a single tutorial",
		ArgsUsage: "[path to the notebook]",
		Action: func(c *cli.Context) error {
			r := ParseCommand{}

			return r.Run(c.Args().Get(0))
		},
	}
}

func ParseCollection() *cli.Command {
	return &cli.Command{
		Name:      "parse-collection",
		Usage:     "parse a full tutorial collection",
		ArgsUsage: "[path to any notebook or anywhere in the collection]",
		Action: func(c *cli.Context) error {
			r := ParseCommand{}

			return r.ParseCollection(c.Args().Get(0))
		},
	}
}

// CollectionSchema returns the JSON schema of the collection and tutorial
// definition files so editors can offer completion.
func CollectionSchema() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "return the JSON schema of the collection definition files",
		Action: func(c *cli.Context) error {
			reflector := jsonschema.Reflector{ExpandedStruct: true}
			schema := reflector.Reflect(&tutorial.Collection{})

			js, err := json.MarshalIndent(schema, "", "  ")
			if err != nil {
				printErrorJSON(err)
				return cli.Exit("", 1)
			}

			fmt.Println(string(js))
			return nil
		},
	}
}

type ParseCommand struct{}

func (r *ParseCommand) ParseCollection(notebookPath string) error {
	defer RecoverFromPanic()

	if notebookPath == "" {
		errorPrinter.Printf("Please give a notebook path to parse: nbflow internal parse-collection <path to the notebook>\n")
		return cli.Exit("", 1)
	}

	collectionPath, err := path.GetCollectionRootFromPath(notebookPath, CollectionDefinitionFiles)
	if err != nil {
		printErrorJSON(err)
		return cli.Exit("", 1)
	}

	foundCollection, err := DefaultCollectionBuilder.CreateCollectionFromPath(collectionPath)
	if err != nil {
		printErrorJSON(err)
		return cli.Exit("", 1)
	}

	js, err := json.Marshal(foundCollection)
	if err != nil {
		printErrorJSON(err)
		return cli.Exit("", 1)
	}

	fmt.Println(string(js))

	return nil
}

func (r *ParseCommand) Run(notebookPath string) error {
	defer RecoverFromPanic()

	if notebookPath == "" {
		errorPrinter.Printf("Please give a notebook path to parse: nbflow internal parse-tutorial <path to the notebook>\n")
		return cli.Exit("", 1)
	}

	collectionPath, err := path.GetCollectionRootFromPath(notebookPath, CollectionDefinitionFiles)
	if err != nil {
		printErrorJSON(err)
		return cli.Exit("", 1)
	}

	repoRoot, err := git.FindRepoFromPath(notebookPath)
	if err != nil {
		printErrorJSON(err)
		return cli.Exit("", 1)
	}

	foundCollection, err := DefaultCollectionBuilder.CreateCollectionFromPath(collectionPath)
	if err != nil {
		printErrorJSON(err)
		return cli.Exit("", 1)
	}

	absNotebookPath, err := filepath.Abs(notebookPath)
	if err != nil {
		printErrorJSON(err)
		return cli.Exit("", 1)
	}

	foundTutorial := foundCollection.GetTutorialByPath(absNotebookPath)
	foundCollection.Tutorials = nil

	js, err := json.Marshal(struct {
		Tutorial   *tutorial.Tutorial   `json:"tutorial"`
		Collection *tutorial.Collection `json:"collection"`
		Repo       *git.Repo            `json:"repo"`
	}{
		Tutorial:   foundTutorial,
		Collection: foundCollection,
		Repo:       repoRoot,
	})
	if err != nil {
		printErrorJSON(err)
		return cli.Exit("", 1)
	}

	fmt.Println(string(js))

	return nil
}
