package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/nbflow-io/nbflow/pkg/notebook"
	"github.com/nbflow-io/nbflow/pkg/telemetry"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

func Render() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "render the code of a notebook as a highlighted Python script",
		ArgsUsage: "[path to the notebook]",
		Before:    telemetry.BeforeCommand,
		After:     telemetry.AfterCommand,
		Action: func(c *cli.Context) error {
			defer RecoverFromPanic()

			notebookPath := c.Args().Get(0)
			if notebookPath == "" {
				errorPrinter.Printf("Please give a notebook path to render: nbflow render <path to the notebook>\n")
				return cli.Exit("", 1)
			}

			nb, err := notebook.Open(afero.NewOsFs(), notebookPath)
			if err != nil {
				errorPrinter.Printf("Failed to read the notebook: %v\n", err)
				return cli.Exit("", 1)
			}

			fmt.Println(highlightCode(nb.ToScript(), "python"))
			return nil
		},
	}
}

// highlightCode highlights the given code if stdout is a terminal, and returns
// the raw code otherwise so pipes stay clean.
func highlightCode(code string, language string) string {
	o, err := os.Stdout.Stat()
	if err != nil {
		return code
	}

	if (o.Mode() & os.ModeCharDevice) != os.ModeCharDevice {
		return code
	}
	b := new(strings.Builder)
	err = quick.Highlight(b, code, language, "terminal16m", "monokai")
	if err != nil {
		errorPrinter.Printf("Failed to highlight the code: %v\n", err.Error())
		return code
	}

	return b.String()
}
