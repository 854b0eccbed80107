package scheduler

import (
	"encoding/json"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var stateVersion = "1.0.0"

// TutorialInstanceState is the persisted status of a single task instance,
// used to resume an interrupted run.
type TutorialInstanceState struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

type Metadata struct {
	Version string `json:"version"`
	OS      string `json:"os"`
}

type RunState struct {
	mu   sync.RWMutex
	fs   afero.Fs
	path string

	Parameters map[string]string        `json:"parameters"`
	Metadata   Metadata                 `json:"metadata"`
	State      []*TutorialInstanceState `json:"state"`
	Version    string                   `json:"version"`
	TimeStamp  time.Time                `json:"timestamp"`
	RunID      string                   `json:"run_id"`
	Collection string                   `json:"collection"`
}

func NewRunState(fs afero.Fs, path string, runID string, collection string, parameters map[string]string) *RunState {
	return &RunState{
		fs:   fs,
		path: path,

		Parameters: parameters,
		Metadata: Metadata{
			Version: stateVersion,
			OS:      runtime.GOOS,
		},
		State:      []*TutorialInstanceState{},
		Version:    stateVersion,
		RunID:      runID,
		Collection: collection,
	}
}

func (s *RunState) SetState(states []*TutorialInstanceState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.State = states
	s.TimeStamp = time.Now()
}

func (s *RunState) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize the run state")
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create the run state directory")
	}

	return errors.Wrapf(afero.WriteFile(s.fs, s.path, content, 0o644), "failed to write the run state to '%s'", s.path)
}

// ReadRunState loads a previously saved run state, returning an error when
// none exists at the given path.
func ReadRunState(fs afero.Fs, path string) (*RunState, error) {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read the run state from '%s'", path)
	}

	var state RunState
	if err := json.Unmarshal(content, &state); err != nil {
		return nil, errors.Wrapf(err, "failed to parse the run state at '%s'", path)
	}

	state.fs = fs
	state.path = path

	return &state, nil
}
