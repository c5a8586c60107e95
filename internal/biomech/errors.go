package biomech

import (
	"errors"
	"fmt"
)

// ErrAnalysisFailed matches every *AnalysisError via errors.Is.
var ErrAnalysisFailed = errors.New("biomechanical analysis failed")

// AnalysisError reports a frame the analyzer could not process.
type AnalysisError struct {
	Tier        Tier
	TimestampMs int64
	Cause       error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analyze frame %d at %s: %v", e.TimestampMs, e.Tier, e.Cause)
}

func (e *AnalysisError) Unwrap() error { return e.Cause }

func (e *AnalysisError) Is(target error) bool { return target == ErrAnalysisFailed }

// recovered converts a recovered panic value into an error.
func recovered(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
