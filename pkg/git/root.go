package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var rwLock = sync.RWMutex{}
var knownRepoRoots = make(map[string]bool)

// RepoFinder is a wrapper for finding the root path of a git repository.
type RepoFinder struct{}

// Repo represents the path of a given git repository.
type Repo struct {
	Path string `json:"path"`
}

func (*RepoFinder) Repo(path string) (*Repo, error) {
	return FindRepoFromPath(path)
}

func FindRepoFromPath(path string) (*Repo, error) {
	rwLock.RLock()
	for knownPath := range knownRepoRoots {
		if strings.HasPrefix(path, knownPath+string(filepath.Separator)) {
			rwLock.RUnlock()
			return &Repo{Path: knownPath}, nil
		}
	}
	rwLock.RUnlock()

	d, err := detectGitPath(path)
	if err != nil {
		return nil, err
	}

	if runtime.GOOS == "windows" {
		d = strings.ReplaceAll(d, "/", "\\")
	}

	rwLock.Lock()
	knownRepoRoots[d] = true
	rwLock.Unlock()

	return &Repo{
		Path: d,
	}, nil
}

func detectGitPath(path string) (string, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	for {
		gitPath := filepath.Join(path, ".git")
		fi, err := os.Stat(gitPath)
		if err == nil {
			if fi.IsDir() {
				return path, nil
			}

			return "", errors.New(".git exists but is not a directory")
		}

		parent := filepath.Dir(path)
		if parent == path {
			return "", errors.New("no git repository found")
		}
		path = parent
	}
}

func CurrentCommit(path string) (string, error) {
	command := exec.Command("git", "rev-parse", "HEAD")
	command.Dir = path
	res, err := command.Output()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(res)), nil
}
