package notebook

import (
	"fmt"
	"strings"
)

var scriptHeader = "#!/usr/bin/env python\n# coding: utf-8\n"

// ToScript renders the notebook as a plain Python script. Markdown and raw
// cells become comment blocks, code cells keep their source with IPython
// magics neutralized so the script stays importable.
func (n *Notebook) ToScript() string {
	var sb strings.Builder
	sb.WriteString(scriptHeader)

	codeCellIndex := 0
	for _, cell := range n.Cells {
		source := strings.TrimRight(cell.Source.String(), "\n")

		switch cell.Type {
		case CellTypeCode:
			codeCellIndex++
			sb.WriteString(fmt.Sprintf("\n# In[%d]:\n\n", codeCellIndex))
			sb.WriteString(rewriteMagics(source))
			sb.WriteString("\n")
		case CellTypeMarkdown, CellTypeRaw:
			sb.WriteString("\n")
			for _, line := range strings.Split(source, "\n") {
				if line == "" {
					sb.WriteString("#\n")
					continue
				}
				sb.WriteString("# " + line + "\n")
			}
		}
	}

	return sb.String()
}

// rewriteMagics neutralizes the IPython-only constructs inside a code cell:
// matplotlib backends are pinned to auto so headless runs don't block on GUI
// windows, remaining line and shell magics are commented out, and pinfo
// queries (trailing "?") are commented as well.
func rewriteMagics(source string) string {
	lines := strings.Split(source, "\n")
	rewritten := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "%matplotlib"):
			rewritten = append(rewritten, "# %matplotlib auto")
		case strings.HasPrefix(trimmed, "%%"), strings.HasPrefix(trimmed, "%"), strings.HasPrefix(trimmed, "!"):
			rewritten = append(rewritten, "# "+trimmed)
		case isPinfoQuery(trimmed):
			rewritten = append(rewritten, "# "+trimmed)
		default:
			rewritten = append(rewritten, line)
		}
	}

	return strings.Join(rewritten, "\n")
}

// isPinfoQuery matches lines like "obj?" or "obj??" that request IPython help.
func isPinfoQuery(line string) bool {
	if !strings.HasSuffix(line, "?") {
		return false
	}

	name := strings.TrimRight(line, "?")
	if name == "" {
		return false
	}

	for _, r := range name {
		if r != '.' && r != '_' && !isAlphanumeric(r) {
			return false
		}
	}

	return true
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
