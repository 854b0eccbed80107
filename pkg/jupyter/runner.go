package jupyter

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/nbflow-io/nbflow/pkg/notebook"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// executionGracePeriod is added on top of the kernel-level timeout so that
// nbconvert gets a chance to shut the kernel down cleanly before the process
// itself is killed.
const executionGracePeriod = time.Minute

type ExecutionOptions struct {
	Kernel       string
	Timeout      time.Duration
	EnvVariables map[string]string
}

type ExecutionResult struct {
	Notebook   *notebook.Notebook
	CellErrors []notebook.CellError
	Duration   time.Duration
}

// Runner executes notebooks through `jupyter nbconvert`, the same engine the
// notebook UI uses, so the committed outputs match what a reader would see.
type Runner struct {
	cmd    cmd
	fs     afero.Fs
	binary string
}

func NewRunner(fs afero.Fs, jupyterPath string) (*Runner, error) {
	binary := jupyterPath
	if binary == "" {
		found, err := findPathToExecutable([]string{"jupyter"})
		if err != nil {
			return nil, errors.Wrap(err, "no executable found for 'jupyter', are you sure Jupyter is installed?")
		}

		binary = found
	}

	return &Runner{
		cmd:    &commandRunner{},
		fs:     fs,
		binary: binary,
	}, nil
}

// Execute runs the notebook in its own directory and returns the executed
// document. Cell errors do not fail the execution itself, they are collected
// in the result for the caller to judge.
func (r *Runner) Execute(ctx context.Context, notebookPath string, opts *ExecutionOptions) (*ExecutionResult, error) {
	dir := filepath.Dir(notebookPath)
	tmpName := fmt.Sprintf(".%s.nbflow.ipynb", uuid.New().String())
	tmpPath := filepath.Join(dir, tmpName)
	defer func() { _ = r.fs.Remove(tmpPath) }()

	args := []string{
		"nbconvert",
		"--to", "notebook",
		"--execute",
		"--allow-errors",
		"--output", tmpName,
		"--output-dir", dir,
	}

	if opts.Kernel != "" {
		args = append(args, fmt.Sprintf("--ExecutePreprocessor.kernel_name=%s", opts.Kernel))
	}

	if opts.Timeout > 0 {
		args = append(args, fmt.Sprintf("--ExecutePreprocessor.timeout=%d", int(opts.Timeout.Seconds())))

		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout+executionGracePeriod)
		defer cancel()
	}

	args = append(args, notebookPath)

	log(ctx, fmt.Sprintf("executing the notebook with kernel '%s'...", opts.Kernel))

	start := time.Now()
	err := r.cmd.Run(ctx, dir, &command{
		Name:    r.binary,
		Args:    args,
		EnvVars: opts.EnvVariables,
	})
	duration := time.Since(start)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to execute the notebook '%s'", notebookPath)
	}

	nb, err := notebook.Open(r.fs, tmpPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read back the executed notebook for '%s'", notebookPath)
	}

	return &ExecutionResult{
		Notebook:   nb,
		CellErrors: nb.Errors(),
		Duration:   duration,
	}, nil
}
