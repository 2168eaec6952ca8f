package domain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrUnreadableAudio     = errors.New("unreadable audio")
	ErrConfiguration       = errors.New("configuration error")
	ErrExtractionFailed    = errors.New("segment extraction failed")
	ErrTranscriptionFailed = errors.New("segment transcription failed")
	ErrNotFound            = errors.New("not found")
)

// EngineError is a speech-to-text engine failure tagged with whether
// repeating the same request may succeed.
type EngineError struct {
	Err       error
	Retryable bool
}

func (e *EngineError) Error() string {
	if e.Retryable {
		return "transient engine error: " + e.Err.Error()
	}
	return "engine error: " + e.Err.Error()
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func IsRetryable(err error) bool {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Retryable
	}
	return false
}

// AggregateFailure reports the segments of one file that could not be transcribed.
// Results holds every segment result in planned order, including the successful ones.
type AggregateFailure struct {
	Results []SegmentResult
	errs    *multierror.Error
}

func NewAggregateFailure(results []SegmentResult) *AggregateFailure {
	var errs *multierror.Error
	for _, r := range results {
		if !r.Succeeded() {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", r.Range, r.Err))
		}
	}
	if errs == nil {
		return nil
	}
	errs.ErrorFormat = func(es []error) string {
		parts := make([]string, 0, len(es))
		for _, e := range es {
			parts = append(parts, e.Error())
		}
		return strings.Join(parts, "; ")
	}
	return &AggregateFailure{Results: results, errs: errs}
}

// FailedIndices returns zero-based indices of failed segments in ascending order.
func (a *AggregateFailure) FailedIndices() []int {
	var idx []int
	for _, r := range a.Results {
		if !r.Succeeded() {
			idx = append(idx, r.Index())
		}
	}
	sort.Ints(idx)
	return idx
}

// FailedSegmentNumbers renders failed indices one-based, e.g. "2, 4".
func (a *AggregateFailure) FailedSegmentNumbers() string {
	idx := a.FailedIndices()
	nums := make([]string, 0, len(idx))
	for _, i := range idx {
		nums = append(nums, strconv.Itoa(i+1))
	}
	return strings.Join(nums, ", ")
}

func (a *AggregateFailure) Error() string {
	return fmt.Sprintf("%d of %d segments failed: %s", len(a.errs.Errors), len(a.Results), a.errs.Error())
}

func (a *AggregateFailure) Unwrap() error {
	return a.errs.ErrorOrNil()
}
