package core

import (
	"fmt"

	"github.com/google/uuid"
)

// RunID identifies one study or pipeline run in logs and outputs. Run IDs are
// UUID v7, so they sort by creation time.
type RunID string

// NewRunID creates a time-ordered run ID.
func NewRunID() RunID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return RunID(id.String())
}

func (id RunID) String() string { return string(id) }

// ParseRunID validates a run ID read back from an output file name.
func ParseRunID(s string) (RunID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid run ID %q: %w", s, err)
	}
	return RunID(id.String()), nil
}
