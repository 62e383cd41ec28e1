package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StateFileName is the transfer record inside the export directory.
const StateFileName = "transfer_state.json"

// TransferState records every destination id handed out so far. It is
// persisted after each destination write so an interrupted import resumes
// without duplicating entities.
type TransferState struct {
	StartedAt    time.Time `json:"started_at"`
	CheckpointAt time.Time `json:"checkpoint_at"`
	// Labels maps label names to destination label ids.
	Labels map[string]int64 `json:"labels"`
	// Milestones maps milestone titles to destination milestone numbers.
	Milestones map[string]int `json:"milestones"`
	// Issues maps source issue ids to destination issue numbers.
	Issues map[int64]int `json:"issues"`
	// Comments maps source issue ids to how many of their comments already
	// exist on the destination.
	Comments map[int64]int `json:"comments"`
	// ClosedIssues marks source issue ids whose destination issue has been closed.
	ClosedIssues map[int64]bool `json:"closed_issues"`
}

// NewTransferState returns an empty transfer record.
func NewTransferState(now time.Time) *TransferState {
	return &TransferState{
		StartedAt:    now,
		CheckpointAt: now,
		Labels:       map[string]int64{},
		Milestones:   map[string]int{},
		Issues:       map[int64]int{},
		Comments:     map[int64]int{},
		ClosedIssues: map[int64]bool{},
	}
}

// LoadTransferState reads the transfer record. A missing file is reported as
// a NotFoundError so callers can start a fresh record.
func LoadTransferState(dir string) (*TransferState, error) {
	path := filepath.Join(dir, StateFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Resource: path, Err: err}
		}
		return nil, fmt.Errorf("failed to read transfer state: %w", err)
	}
	var state TransferState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode transfer state %s: %w", path, err)
	}
	state.ensureMaps()
	return &state, nil
}

// Save writes the transfer record and stamps the checkpoint time.
func (s *TransferState) Save(dir string, now time.Time) error {
	s.CheckpointAt = now
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode transfer state: %w", err)
	}
	path := filepath.Join(dir, StateFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write transfer state: %w", err)
	}
	return nil
}

// ensureMaps guards against hand-trimmed state files with missing sections.
func (s *TransferState) ensureMaps() {
	if s.Labels == nil {
		s.Labels = map[string]int64{}
	}
	if s.Milestones == nil {
		s.Milestones = map[string]int{}
	}
	if s.Issues == nil {
		s.Issues = map[int64]int{}
	}
	if s.Comments == nil {
		s.Comments = map[int64]int{}
	}
	if s.ClosedIssues == nil {
		s.ClosedIssues = map[int64]bool{}
	}
}
