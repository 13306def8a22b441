package lint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

var ErrDetectorNotFound = errors.New("detector not found")

// DetectorRegistry manages all lint detectors
type DetectorRegistry struct {
	detectors map[string]Detector
	logger    *zap.Logger
	mu        sync.RWMutex
}

// NewDetectorRegistry creates a new detector registry
func NewDetectorRegistry(logger *zap.Logger) *DetectorRegistry {
	return &DetectorRegistry{
		detectors: make(map[string]Detector),
		logger:    logger,
	}
}

// Register adds a detector to the registry
func (r *DetectorRegistry) Register(detector Detector) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.detectors[detector.Name()] = detector
	r.logger.Info("Registered lint detector",
		zap.String("detector", detector.Name()),
		zap.String("rule", string(detector.Rule())))
}

// Get retrieves a detector by name
func (r *DetectorRegistry) Get(name string) (Detector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	detector, ok := r.detectors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDetectorNotFound, name)
	}
	return detector, nil
}

// CheckAll runs every registered detector on a file. Failed detectors are
// logged and skipped; their errors are joined into the returned error.
func (r *DetectorRegistry) CheckAll(ctx context.Context, file *SourceFile) ([]*Result, error) {
	detectors := r.GetAllDetectors()

	results := make([]*Result, 0, len(detectors))
	var errs []error

	for _, detector := range detectors {
		result, err := detector.Check(ctx, file)
		if err != nil {
			r.logger.Warn("Detector failed",
				zap.String("detector", detector.Name()),
				zap.String("file", file.Path),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		results = append(results, result)
	}

	return results, errors.Join(errs...)
}

// GetAllDetectors returns all registered detectors ordered by name
func (r *DetectorRegistry) GetAllDetectors() []Detector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	detectors := make([]Detector, 0, len(r.detectors))
	for _, detector := range r.detectors {
		detectors = append(detectors, detector)
	}
	sort.Slice(detectors, func(i, j int) bool { return detectors[i].Name() < detectors[j].Name() })
	return detectors
}
