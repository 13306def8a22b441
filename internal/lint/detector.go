package lint

import (
	"context"
)

// SourceFile is one file handed to a detector
type SourceFile struct {
	Path    string
	Content []byte
}

// Detector is the main interface for lint checks
type Detector interface {
	// Name returns the unique identifier for this detector
	Name() string

	// Rule returns the rule this detector enforces
	Rule() RuleType

	// Check analyzes a file and returns its findings
	Check(ctx context.Context, file *SourceFile) (*Result, error)
}
