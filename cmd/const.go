package cmd

import (
	"github.com/fatih/color"
	"github.com/nbflow-io/nbflow/pkg/tutorial"
	"github.com/spf13/afero"
)

var CollectionDefinitionFiles = []string{"collection.yml", "collection.yaml"}

var (
	fs = afero.NewCacheOnReadFs(afero.NewOsFs(), afero.NewMemMapFs(), 0)

	faint          = color.New(color.Faint).SprintFunc()
	infoPrinter    = color.New(color.Bold)
	errorPrinter   = color.New(color.FgRed, color.Bold)
	warningPrinter = color.New(color.FgYellow, color.Bold)
	successPrinter = color.New(color.FgGreen, color.Bold)
	summaryPrinter = color.New(color.Bold)

	builderConfig = tutorial.BuilderConfig{
		CollectionFileNames: CollectionDefinitionFiles,
	}

	DefaultCollectionBuilder = tutorial.NewBuilder(builderConfig, fs)
)
