package notebook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const (
	CellTypeCode     = "code"
	CellTypeMarkdown = "markdown"
	CellTypeRaw      = "raw"

	OutputTypeStream        = "stream"
	OutputTypeDisplayData   = "display_data"
	OutputTypeExecuteResult = "execute_result"
	OutputTypeError         = "error"

	// SupportedFormat is the nbformat major version this package understands.
	SupportedFormat = 4
)

// MultilineString accepts both encodings nbformat allows for text fields:
// a plain string or a list of line strings.
type MultilineString string

func (m *MultilineString) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*m = MultilineString(single)
		return nil
	}

	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}

	*m = MultilineString(strings.Join(lines, ""))
	return nil
}

func (m MultilineString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(m))
}

func (m MultilineString) String() string {
	return string(m)
}

type Output struct {
	OutputType     string                     `json:"output_type"`
	Name           string                     `json:"name,omitempty"`
	Text           MultilineString            `json:"text,omitempty"`
	Data           map[string]json.RawMessage `json:"data,omitempty"`
	Metadata       map[string]interface{}     `json:"metadata,omitempty"`
	ExecutionCount *int                       `json:"execution_count,omitempty"`
	Ename          string                     `json:"ename,omitempty"`
	Evalue         string                     `json:"evalue,omitempty"`
	Traceback      []string                   `json:"traceback,omitempty"`
}

type Cell struct {
	Type           string                 `json:"cell_type"`
	Source         MultilineString        `json:"source"`
	Metadata       map[string]interface{} `json:"metadata"`
	ExecutionCount *int                   `json:"execution_count,omitempty"`
	Outputs        []Output               `json:"outputs,omitempty"`
}

// MarshalJSON keeps code cells schema-valid: nbformat requires them to carry
// the outputs and execution_count keys even when empty.
func (c Cell) MarshalJSON() ([]byte, error) {
	metadata := c.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	if c.Type != CellTypeCode {
		return json.Marshal(struct {
			Type     string                 `json:"cell_type"`
			Source   MultilineString        `json:"source"`
			Metadata map[string]interface{} `json:"metadata"`
		}{c.Type, c.Source, metadata})
	}

	outputs := c.Outputs
	if outputs == nil {
		outputs = []Output{}
	}

	return json.Marshal(struct {
		Type           string                 `json:"cell_type"`
		Source         MultilineString        `json:"source"`
		Metadata       map[string]interface{} `json:"metadata"`
		ExecutionCount *int                   `json:"execution_count"`
		Outputs        []Output               `json:"outputs"`
	}{c.Type, c.Source, metadata, c.ExecutionCount, outputs})
}

type Kernelspec struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Language    string `json:"language"`
}

type Notebook struct {
	Cells []Cell `json:"cells"`

	// Metadata is kept as a raw map so unknown keys survive a rewrite.
	Metadata    map[string]json.RawMessage `json:"metadata"`
	Format      int                        `json:"nbformat"`
	FormatMinor int                        `json:"nbformat_minor"`
}

// CellError is a single error output, located by the index of the code cell
// that produced it.
type CellError struct {
	CellIndex int      `json:"cell_index"`
	Ename     string   `json:"ename"`
	Evalue    string   `json:"evalue"`
	Traceback []string `json:"traceback,omitempty"`
}

func (e CellError) Error() string {
	return fmt.Sprintf("cell %d: %s: %s", e.CellIndex, e.Ename, e.Evalue)
}

func Parse(content []byte) (*Notebook, error) {
	var nb Notebook
	if err := json.Unmarshal(content, &nb); err != nil {
		return nil, errors.Wrap(err, "failed to parse notebook JSON")
	}

	if nb.Format != 0 && nb.Format != SupportedFormat {
		return nil, errors.Errorf("unsupported nbformat version %d, only version %d is supported", nb.Format, SupportedFormat)
	}

	return &nb, nil
}

func Open(fs afero.Fs, path string) (*Notebook, error) {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read notebook %s", path)
	}

	nb, err := Parse(content)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid notebook %s", path)
	}

	return nb, nil
}

func (n *Notebook) Save(fs afero.Fs, path string) error {
	content, err := n.Marshal()
	if err != nil {
		return err
	}

	return errors.Wrapf(afero.WriteFile(fs, path, content, 0o644), "failed to write notebook %s", path)
}

func (n *Notebook) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", " ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(n); err != nil {
		return nil, errors.Wrap(err, "failed to serialize notebook")
	}

	return buf.Bytes(), nil
}

// Kernelspec returns the kernelspec from the notebook metadata, or nil when
// none is declared.
func (n *Notebook) Kernelspec() *Kernelspec {
	raw, ok := n.Metadata["kernelspec"]
	if !ok {
		return nil
	}

	var spec Kernelspec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil
	}

	return &spec
}

// Errors collects the error outputs across all code cells.
func (n *Notebook) Errors() []CellError {
	cellErrors := make([]CellError, 0)
	for i, cell := range n.Cells {
		for _, output := range cell.Outputs {
			if output.OutputType != OutputTypeError {
				continue
			}

			cellErrors = append(cellErrors, CellError{
				CellIndex: i,
				Ename:     output.Ename,
				Evalue:    output.Evalue,
				Traceback: output.Traceback,
			})
		}
	}

	return cellErrors
}

// HasOutputs reports whether any code cell carries outputs or an execution count.
func (n *Notebook) HasOutputs() bool {
	for _, cell := range n.Cells {
		if cell.Type != CellTypeCode {
			continue
		}

		if len(cell.Outputs) > 0 || cell.ExecutionCount != nil {
			return true
		}
	}

	return false
}

// Strip clears outputs, execution counts and transient cell metadata,
// producing the unexpanded form of the notebook.
func (n *Notebook) Strip() {
	for i := range n.Cells {
		cell := &n.Cells[i]
		if cell.Type != CellTypeCode {
			continue
		}

		cell.Outputs = []Output{}
		cell.ExecutionCount = nil
		delete(cell.Metadata, "execution")
		delete(cell.Metadata, "collapsed")
		delete(cell.Metadata, "scrolled")
	}
}

// CodeCells returns the indices of the code cells in order.
func (n *Notebook) CodeCells() []int {
	indices := make([]int, 0, len(n.Cells))
	for i, cell := range n.Cells {
		if cell.Type == CellTypeCode {
			indices = append(indices, i)
		}
	}

	return indices
}
