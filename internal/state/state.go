// Package state holds the result of a profiling run and persists it between commands.
package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dbsmedya/goerd/internal/filter"
	"github.com/dbsmedya/goerd/internal/ind"
	"github.com/dbsmedya/goerd/internal/pk"
	"github.com/dbsmedya/goerd/internal/types"
	"github.com/dbsmedya/goerd/internal/verifier"
)

// ErrNoState is returned by Load when the state file does not exist.
var ErrNoState = errors.New("state: no saved state")

// State is the outcome of one profiling run.
//
// Filtered is the working set narrowed by filter stages; InclusionDependencies
// is the raw discovery output and never changes after the run.
type State struct {
	RunID       uuid.UUID `json:"run_id" yaml:"run_id"`
	Dataset     string    `json:"dataset" yaml:"dataset"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`

	Tables                []types.Summary       `json:"tables" yaml:"tables"`
	PrimaryKeys           pk.Keys               `json:"primary_keys" yaml:"primary_keys"`
	InclusionDependencies []ind.Pair            `json:"inclusion_dependencies" yaml:"inclusion_dependencies"`
	Filtered              []ind.Pair            `json:"filtered" yaml:"filtered"`
	Fingerprint           *verifier.Fingerprint `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	StageLog              []filter.StageResult  `json:"stage_log" yaml:"stage_log"`
}

// New starts a state for a run.
func New(dataset string) *State {
	return &State{
		RunID:       uuid.New(),
		Dataset:     dataset,
		StartedAt:   time.Now().UTC(),
		PrimaryKeys: pk.Keys{},
	}
}

// TableNames returns the profiled table names in profiling order.
func (s *State) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// WithFiltered returns a copy of s whose Filtered set is pairs and whose stage
// log is extended by results. s itself is not modified.
func (s *State) WithFiltered(pairs []ind.Pair, results []filter.StageResult) *State {
	out := *s
	out.Filtered = append([]ind.Pair(nil), pairs...)
	out.StageLog = append(append([]filter.StageResult(nil), s.StageLog...), results...)
	out.Tables = append([]types.Summary(nil), s.Tables...)
	out.InclusionDependencies = append([]ind.Pair(nil), s.InclusionDependencies...)

	out.PrimaryKeys = make(pk.Keys, len(s.PrimaryKeys))
	for t, k := range s.PrimaryKeys {
		out.PrimaryKeys[t] = k
	}
	return &out
}

// isYAML reports whether path names a YAML state file.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func encode(path string, s *State) ([]byte, error) {
	if isYAML(path) {
		var buf bytes.Buffer
		if err := ExportYAML(&buf, s); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes s as indented JSON, or as YAML when path ends in .yaml or
// .yml. The file is written to a temporary name in the same directory and
// renamed into place.
func Save(path string, s *State) error {
	data, err := encode(path, s)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".goerd-state-*")
	if err != nil {
		return fmt.Errorf("failed to create state file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to save state to %s: %w", path, err)
	}
	return nil
}

// Load reads a state written by Save.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoState, path)
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var s State
	unmarshal := json.Unmarshal
	if isYAML(path) {
		unmarshal = yaml.Unmarshal
	}
	if err := unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	if s.PrimaryKeys == nil {
		s.PrimaryKeys = pk.Keys{}
	}
	return &s, nil
}

// ExportYAML writes s as YAML.
func ExportYAML(w io.Writer, s *State) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode state as yaml: %w", err)
	}
	return enc.Close()
}
