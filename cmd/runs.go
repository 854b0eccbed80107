package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nbflow-io/nbflow/pkg/history"
	"github.com/nbflow-io/nbflow/pkg/telemetry"
	"github.com/nbflow-io/nbflow/pkg/user"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

func Runs() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "list the recorded collection runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "the maximum number of runs to show",
				Value: 20,
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

			cm := user.NewConfigManager(afero.NewOsFs())
			if err := cm.EnsureHomeDirExists(); err != nil {
				errorPrinter.Printf("Failed to prepare the nbflow home directory: %v\n", err)
				return cli.Exit("", 1)
			}

			store, err := history.Open(cm.HistoryDBPath())
			if err != nil {
				errorPrinter.Printf("Failed to open the run history: %v\n", err)
				return cli.Exit("", 1)
			}
			defer store.Close()

			runs, err := store.List(c.Int("limit"))
			if err != nil {
				errorPrinter.Printf("Failed to list the runs: %v\n", err)
				return cli.Exit("", 1)
			}

			if c.String("output") == "json" {
				js, err := json.Marshal(runs)
				if err != nil {
					printErrorJSON(err)
					return cli.Exit("", 1)
				}

				fmt.Println(string(js))
				return nil
			}

			if len(runs) == 0 {
				infoPrinter.Println("No runs recorded yet.")
				return nil
			}

			printRunsTable(runs)
			return nil
		},
	}
}

func printRunsTable(runs []*history.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)

	t.AppendHeader(table.Row{"Run ID", "Collection", "Started", "Duration", "Total", "Succeeded", "Failed", "Skipped", "Status"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID,
			run.Collection,
			run.StartedAt.Local().Format(time.DateTime),
			run.Duration.Truncate(time.Millisecond).String(),
			run.Total,
			run.Succeeded,
			run.Failed,
			run.Skipped,
			run.Status,
		})
	}

	t.Render()
}
