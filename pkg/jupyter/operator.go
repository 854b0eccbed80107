package jupyter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nbflow-io/nbflow/pkg/config"
	"github.com/nbflow-io/nbflow/pkg/executor"
	"github.com/nbflow-io/nbflow/pkg/notebook"
	"github.com/nbflow-io/nbflow/pkg/path"
	"github.com/nbflow-io/nbflow/pkg/scheduler"
	"github.com/nbflow-io/nbflow/pkg/tutorial"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type notebookRunner interface {
	Execute(ctx context.Context, notebookPath string, opts *ExecutionOptions) (*ExecutionResult, error)
}

// NotebookOperator runs the main execution and the output check of tutorial
// task instances.
type NotebookOperator struct {
	runner       notebookRunner
	fs           afero.Fs
	envVariables map[string]string

	fallbackKernel  string
	fallbackTimeout time.Duration
	strictOutputs   bool
}

func NewNotebookOperator(cfg *config.Config, envVariables map[string]string, strictOutputs bool) (*NotebookOperator, error) {
	fs := afero.NewOsFs()

	environment := cfg.SelectedEnvironment
	runner, err := NewRunner(fs, environment.JupyterPath)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]string, len(environment.Variables)+len(envVariables))
	for k, v := range environment.Variables {
		merged[k] = v
	}
	for k, v := range envVariables {
		merged[k] = v
	}

	return &NotebookOperator{
		runner:          runner,
		fs:              fs,
		envVariables:    merged,
		fallbackKernel:  environment.Kernel,
		fallbackTimeout: time.Duration(environment.Timeout) * time.Second,
		strictOutputs:   strictOutputs,
	}, nil
}

func (o *NotebookOperator) Run(ctx context.Context, ti scheduler.TaskInstance) error {
	switch ti.GetType() {
	case scheduler.TaskInstanceTypeMain:
		return o.runMain(ctx, ti.GetCollection(), ti.GetTutorial())
	case scheduler.TaskInstanceTypeOutputCheck:
		return o.runOutputCheck(ctx, ti.GetTutorial())
	default:
		return errors.Errorf("the notebook operator cannot run task instances of type '%s'", ti.GetType())
	}
}

func (o *NotebookOperator) runMain(ctx context.Context, c *tutorial.Collection, t *tutorial.Tutorial) error {
	logger := zap.NewNop().Sugar()
	if ctx.Value(executor.ContextLogger) != nil {
		logger = ctx.Value(executor.ContextLogger).(*zap.SugaredLogger)
	}

	source, err := notebook.Open(o.fs, t.NotebookPath)
	if err != nil {
		return errors.Wrapf(err, "failed to open the notebook for tutorial '%s'", t.Name)
	}

	kernel := o.resolveKernel(c, t, source)
	timeout := o.resolveTimeout(c, t)
	logger.Debugf("running tutorial %s with kernel %s and timeout %s", t.Name, kernel, timeout)

	envVariables := make(map[string]string, len(o.envVariables)+1)
	for k, v := range o.envVariables {
		envVariables[k] = v
	}
	envVariables["NBFLOW_TUTORIAL"] = t.Name

	result, err := o.runner.Execute(ctx, t.NotebookPath, &ExecutionOptions{
		Kernel:       kernel,
		Timeout:      timeout,
		EnvVariables: envVariables,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to execute tutorial '%s'", t.Name)
	}

	if err := result.Notebook.Save(o.fs, t.ExpandedPath); err != nil {
		return errors.Wrapf(err, "failed to write the executed notebook for tutorial '%s'", t.Name)
	}

	if len(result.CellErrors) > 0 {
		return errors.Errorf("tutorial '%s' raised errors during execution:\n%s", t.Name, formatCellErrors(result.CellErrors))
	}

	log(ctx, fmt.Sprintf("executed %d cells in %s", len(result.Notebook.Cells), result.Duration.Truncate(time.Millisecond)))
	return nil
}

func (o *NotebookOperator) runOutputCheck(ctx context.Context, t *tutorial.Tutorial) error {
	if !path.FileExists(o.fs, t.ExpandedPath) {
		return errors.Errorf("tutorial '%s' has no executed counterpart to check", t.Name)
	}

	expanded, err := notebook.Open(o.fs, t.ExpandedPath)
	if err != nil {
		return errors.Wrapf(err, "failed to open the executed notebook for tutorial '%s'", t.Name)
	}

	if cellErrors := expanded.Errors(); len(cellErrors) > 0 {
		return errors.Errorf("the executed notebook of tutorial '%s' contains errors:\n%s", t.Name, formatCellErrors(cellErrors))
	}

	if !o.strictOutputs {
		log(ctx, "output check passed")
		return nil
	}

	source, err := notebook.Open(o.fs, t.NotebookPath)
	if err != nil {
		return errors.Wrapf(err, "failed to open the notebook for tutorial '%s'", t.Name)
	}

	if err := ensureSourcesMatch(source, expanded); err != nil {
		return errors.Wrapf(err, "the executed notebook of tutorial '%s' drifted from its source", t.Name)
	}

	log(ctx, "output check passed")
	return nil
}

// resolveKernel picks the kernel in order of specificity: the tutorial, the
// collection, the notebook's own kernelspec, the configured environment.
func (o *NotebookOperator) resolveKernel(c *tutorial.Collection, t *tutorial.Tutorial, nb *notebook.Notebook) string {
	if t.Kernel != "" {
		return t.Kernel
	}

	if c.Kernel != "" {
		return c.Kernel
	}

	if spec := nb.Kernelspec(); spec != nil && spec.Name != "" {
		return spec.Name
	}

	if o.fallbackKernel != "" {
		return o.fallbackKernel
	}

	return "python3"
}

func (o *NotebookOperator) resolveTimeout(c *tutorial.Collection, t *tutorial.Tutorial) time.Duration {
	if t.Timeout > 0 {
		return time.Duration(t.Timeout) * time.Second
	}

	if c.Timeout > 0 {
		return time.Duration(c.Timeout) * time.Second
	}

	if o.fallbackTimeout > 0 {
		return o.fallbackTimeout
	}

	return tutorial.DefaultTimeout
}

// ensureSourcesMatch verifies the executed notebook still corresponds to the
// source cell by cell, so stale committed outputs are caught.
func ensureSourcesMatch(source, expanded *notebook.Notebook) error {
	sourceCells := source.CodeCells()
	expandedCells := expanded.CodeCells()

	if len(sourceCells) != len(expandedCells) {
		return errors.Errorf("the source has %d code cells but the executed notebook has %d", len(sourceCells), len(expandedCells))
	}

	for i := range sourceCells {
		sourceText := strings.TrimSpace(source.Cells[sourceCells[i]].Source.String())
		expandedText := strings.TrimSpace(expanded.Cells[expandedCells[i]].Source.String())
		if sourceText != expandedText {
			return errors.Errorf("code cell %d differs between the source and the executed notebook", i+1)
		}
	}

	return nil
}

func formatCellErrors(cellErrors []notebook.CellError) string {
	lines := make([]string, 0, len(cellErrors))
	for _, cellError := range cellErrors {
		lines = append(lines, "  - "+cellError.Error())
	}

	return strings.Join(lines, "\n")
}
