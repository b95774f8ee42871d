package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RunID represents a UUIDv7 run identifier from orchestration.
type RunID string

// Validate checks that the RunID is a valid UUIDv7.
func (r RunID) Validate() error {
	if r == "" {
		return fmt.Errorf("run-id cannot be empty")
	}
	id, err := uuid.Parse(string(r))
	if err != nil {
		return fmt.Errorf("run-id must be a valid UUID: %w", err)
	}
	if id.Version() != uuid.Version(7) {
		return fmt.Errorf("run-id must be a UUIDv7, got v%d", id.Version())
	}
	return nil
}

// String returns the run ID as a string.
func (r RunID) String() string {
	return string(r)
}

// ParseVariables splits a comma-separated variable list, dropping blanks and duplicates.
func ParseVariables(s string) ([]string, error) {
	var vars []string
	seen := make(map[string]bool)
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		vars = append(vars, v)
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("at least one variable is required")
	}
	return vars, nil
}
