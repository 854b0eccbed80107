package user

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/nbflow-io/nbflow/pkg/path"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const (
	nbflowHomeDir      = ".nbflow"
	homeDirPermissions = 0o755
	logsDirName        = "logs"
	historyDBName      = "history.db"
)

type ConfigManager struct {
	fs afero.Fs

	lock sync.Mutex

	userHomeDir   string
	nbflowHomeDir string
}

func NewConfigManager(fs afero.Fs) *ConfigManager {
	return &ConfigManager{
		fs: fs,
	}
}

func (c *ConfigManager) EnsureHomeDirExists() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	nbflowConfigPath := filepath.Join(homeDir, nbflowHomeDir)
	if !path.DirExists(c.fs, nbflowConfigPath) {
		err = c.fs.MkdirAll(nbflowConfigPath, homeDirPermissions)
		if err != nil {
			return errors.Wrap(err, "failed to create nbflow home directory")
		}
	}

	c.userHomeDir = homeDir
	c.nbflowHomeDir = nbflowConfigPath

	return nil
}

// EnsureAndGetHomeDir creates the nbflow home directory if needed and
// returns its path.
func (c *ConfigManager) EnsureAndGetHomeDir() (string, error) {
	if err := c.EnsureHomeDirExists(); err != nil {
		return "", err
	}

	return c.nbflowHomeDir, nil
}

func (c *ConfigManager) makePathUnderConfig(name string) string {
	return filepath.Join(c.nbflowHomeDir, name)
}

// HistoryDBPath returns the location of the run history database under the
// nbflow home directory.
func (c *ConfigManager) HistoryDBPath() string {
	return c.makePathUnderConfig(historyDBName)
}

func (c *ConfigManager) MakeLogPath(name string) string {
	return filepath.Join(c.nbflowHomeDir, logsDirName, name)
}

func (c *ConfigManager) EnsureLogsDirExists() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	err := c.EnsureHomeDirExists()
	if err != nil {
		return err
	}

	logsPath := c.makePathUnderConfig(logsDirName)
	if !path.DirExists(c.fs, logsPath) {
		err = c.fs.MkdirAll(logsPath, homeDirPermissions)
		if err != nil {
			return errors.Wrap(err, "failed to create logs directory under nbflow home")
		}
	}

	return nil
}
