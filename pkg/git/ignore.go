package git

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// EnsureGivenPatternIsInGitignore appends the pattern to the repo's .gitignore
// unless an identical line is already present.
func EnsureGivenPatternIsInGitignore(fs afero.Fs, repoRoot string, pattern string) (err error) {
	gitignorePath := path.Join(repoRoot, ".gitignore")
	exists, err := afero.Exists(fs, gitignorePath)
	if err != nil {
		return err
	}

	if !exists {
		return afero.WriteFile(fs, gitignorePath, []byte(pattern), 0o644)
	}

	file, err := fs.OpenFile(gitignorePath, os.O_APPEND|os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer func(open afero.File) {
		tempErr := open.Close()
		if tempErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close file: %w", tempErr))
		}
	}(file)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == pattern {
			return nil
		}
	}

	_, err = file.Write([]byte("\n" + pattern))
	return err
}
