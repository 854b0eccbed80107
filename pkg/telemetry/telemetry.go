package telemetry

import (
	"runtime"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/rudderlabs/analytics-go/v4"
	"github.com/urfave/cli/v2"
)

const url = "https://nbflowwjqkxz.dataplane.rudderstack.com"

var (
	TelemetryKey = ""
	OptOut       = false
	AppVersion   = ""
)

func SendEvent(event string, properties analytics.Properties) {
	if OptOut || TelemetryKey == "" {
		return
	}
	id, _ := machineid.ID()

	client := analytics.New(TelemetryKey, url)
	// Enqueues a track event that will be sent asynchronously.
	_ = client.Enqueue(analytics.Track{
		AnonymousId:       id,
		Event:             event,
		OriginalTimestamp: time.Now().In(time.UTC),
		Context: &analytics.Context{
			App: analytics.AppInfo{
				Name:    "nbflow CLI",
				Version: AppVersion,
			},
			OS: analytics.OSInfo{
				Name: runtime.GOOS + " " + runtime.GOARCH,
			},
		},
		Properties: properties,
	})
}

func SendEventWithRunStats(event string, stats map[string]int, context *cli.Context) {
	properties := analytics.Properties{
		"tutorials":      stats,
		"downstream":     context.Bool("downstream"),
		"continue":       context.Bool("continue"),
		"strict_outputs": context.Bool("strict-outputs"),
		"workers":        context.Int("workers"),
	}

	SendEvent(event, properties)
}

func BeforeCommand(context *cli.Context) error {
	SendEvent("command_triggered", analytics.Properties{
		"command": context.Command.Name,
	})

	return nil
}

func AfterCommand(context *cli.Context) error {
	SendEvent("command_finished", analytics.Properties{
		"command": context.Command.Name,
	})

	return nil
}
