package domain

import "time"

const (
	// MaxInlineTextLength is the longest transcript, in characters, delivered as a message.
	MaxInlineTextLength = 4096

	// MaxUploadSize is the largest audio attachment the bot accepts.
	MaxUploadSize = 50 * 1024 * 1024

	// LargeUploadSize triggers the "this may take a while" notice.
	LargeUploadSize = 5 * 1024 * 1024

	// MaxModelSegmentLength is the hard per-request audio limit of the engine.
	MaxModelSegmentLength = 1400 * time.Second
)

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCanceled  RunStatus = "canceled"
)

// TranscriptRecord is the history entry stored for every pipeline run.
type TranscriptRecord struct {
	RunID          string
	ChatID         int64
	SourceName     string
	Duration       time.Duration
	Segments       int
	FailedSegments []int
	Status         RunStatus
	TextLength     int
	CreatedAt      time.Time
}

// TranscriptionRequest asks for one audio file to be transcribed.
// Name is the user-facing file name; it defaults to the base of Path.
type TranscriptionRequest struct {
	ChatID int64
	Path   string
	Name   string
}
