package domain

import (
	"fmt"
	"time"
)

// SegmentRange is a time window [Start, End) of the source audio.
// Index is the position of the range in the planned sequence.
type SegmentRange struct {
	Index int
	Start time.Duration
	End   time.Duration
}

func (r SegmentRange) Duration() time.Duration {
	return r.End - r.Start
}

func (r SegmentRange) String() string {
	return fmt.Sprintf("segment %d [%.1fs-%.1fs]", r.Index+1, r.Start.Seconds(), r.End.Seconds())
}

// SegmentPayload is the encoded audio of a single range.
type SegmentPayload struct {
	Range SegmentRange
	Name  string
	Data  []byte
}

type SegmentStatus int

const (
	SegmentSucceeded SegmentStatus = iota
	SegmentFailed
)

func (s SegmentStatus) String() string {
	switch s {
	case SegmentSucceeded:
		return "success"
	case SegmentFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SegmentResult is produced exactly once per planned range.
type SegmentResult struct {
	Range  SegmentRange
	Status SegmentStatus
	Text   string
	Err    error
}

func (r SegmentResult) Index() int {
	return r.Range.Index
}

func (r SegmentResult) Succeeded() bool {
	return r.Status == SegmentSucceeded
}

func SegmentSuccess(r SegmentRange, text string) SegmentResult {
	return SegmentResult{Range: r, Status: SegmentSucceeded, Text: text}
}

func SegmentFailure(r SegmentRange, err error) SegmentResult {
	return SegmentResult{Range: r, Status: SegmentFailed, Err: err}
}
