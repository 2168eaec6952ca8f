package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dskvich/speech-transcriber-bot/pkg/dispatcher"
	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
	"github.com/dskvich/speech-transcriber-bot/pkg/logger"
	"github.com/dskvich/speech-transcriber-bot/pkg/segment"
	"github.com/dskvich/speech-transcriber-bot/pkg/stitcher"
)

type AudioProber interface {
	Probe(ctx context.Context, path string) (domain.AudioSource, error)
}

// ExtractorFactory returns an extractor that keeps its temporary files in workDir.
type ExtractorFactory func(workDir string) dispatcher.Extractor

type SegmentDispatcher interface {
	Dispatch(ctx context.Context, extractor dispatcher.Extractor, src domain.AudioSource, ranges []domain.SegmentRange) []domain.SegmentResult
}

type TranscriptRepository interface {
	Save(ctx context.Context, record domain.TranscriptRecord) error
}

type SegmentationConfig struct {
	SegmentLength time.Duration
	Overlap       time.Duration
	TempDir       string
}

type transcriptionService struct {
	prober       AudioProber
	newExtractor ExtractorFactory
	dispatcher   SegmentDispatcher
	repo         TranscriptRepository
	cfg          SegmentationConfig
}

func NewTranscriptionService(
	prober AudioProber,
	newExtractor ExtractorFactory,
	dispatcher SegmentDispatcher,
	repo TranscriptRepository,
	cfg SegmentationConfig,
) (*transcriptionService, error) {
	if err := segment.Validate(cfg.SegmentLength, cfg.Overlap); err != nil {
		return nil, err
	}
	if cfg.SegmentLength > domain.MaxModelSegmentLength {
		return nil, fmt.Errorf("%w: segment length %v exceeds the model limit of %v",
			domain.ErrConfiguration, cfg.SegmentLength, domain.MaxModelSegmentLength)
	}

	return &transcriptionService{
		prober:       prober,
		newExtractor: newExtractor,
		dispatcher:   dispatcher,
		repo:         repo,
		cfg:          cfg,
	}, nil
}

// SubmitAudio runs the whole pipeline for one file: probe, plan, extract and
// transcribe every segment, then stitch. If any segment fails the result is a
// *domain.AggregateFailure and no transcript is returned.
func (s *transcriptionService) SubmitAudio(ctx context.Context, req domain.TranscriptionRequest) (string, error) {
	runID := uuid.NewString()
	ctx = logger.ContextWithRunID(ctx, runID)

	record := domain.TranscriptRecord{
		RunID:      runID,
		ChatID:     req.ChatID,
		SourceName: req.Name,
		Status:     domain.RunFailed,
		CreatedAt:  time.Now(),
	}
	if record.SourceName == "" {
		record.SourceName = filepath.Base(req.Path)
	}
	defer s.saveRecord(ctx, &record)

	text, err := s.run(ctx, req, &record)
	if err != nil {
		if ctx.Err() != nil {
			record.Status = domain.RunCanceled
			slog.WarnContext(ctx, "Transcription canceled", "source", record.SourceName)
			return "", ctx.Err()
		}
		slog.ErrorContext(ctx, "Transcription failed", "source", record.SourceName, logger.Err(err))
		return "", err
	}

	record.Status = domain.RunSucceeded
	record.TextLength = len([]rune(text))

	slog.InfoContext(ctx, "Transcription complete", "source", record.SourceName, "segments", record.Segments, "chars", record.TextLength)

	return text, nil
}

func (s *transcriptionService) run(ctx context.Context, req domain.TranscriptionRequest, record *domain.TranscriptRecord) (string, error) {
	src, err := s.prober.Probe(ctx, req.Path)
	if err != nil {
		return "", err
	}
	src.Name = record.SourceName
	record.Duration = src.Duration

	ranges, err := segment.Plan(src.Duration, s.cfg.SegmentLength, s.cfg.Overlap)
	if err != nil {
		return "", fmt.Errorf("planning segments: %w", err)
	}
	record.Segments = len(ranges)

	if len(ranges) == 1 {
		slog.InfoContext(ctx, "Audio fits into a single segment", "duration", src.Duration)
	} else {
		slog.InfoContext(ctx, "Audio split into segments", "duration", src.Duration, "segments", len(ranges),
			"segmentLength", s.cfg.SegmentLength, "overlap", s.cfg.Overlap)
	}

	workDir, err := os.MkdirTemp(s.cfg.TempDir, "transcribe-"+record.RunID+"-")
	if err != nil {
		return "", fmt.Errorf("%w: creating work dir: %w", domain.ErrExtractionFailed, err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			slog.WarnContext(ctx, "Removing work dir", "path", workDir, logger.Err(err))
		}
	}()

	results := s.dispatcher.Dispatch(ctx, s.newExtractor(workDir), src, ranges)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if failure := domain.NewAggregateFailure(results); failure != nil {
		record.FailedSegments = failure.FailedIndices()
		return "", failure
	}

	text, err := stitcher.Stitch(ctx, results)
	if err != nil {
		return "", fmt.Errorf("stitching transcript: %w", err)
	}

	return text, nil
}

func (s *transcriptionService) saveRecord(ctx context.Context, record *domain.TranscriptRecord) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Save(context.WithoutCancel(ctx), *record); err != nil {
		slog.ErrorContext(ctx, "Saving transcript record", logger.Err(err))
	}
}

// FailureMessage renders err for a person waiting on the result.
func FailureMessage(err error) string {
	var failure *domain.AggregateFailure
	switch {
	case errors.As(err, &failure):
		return fmt.Sprintf("Could not transcribe segment(s) %s of %d. No transcript was produced.",
			failure.FailedSegmentNumbers(), len(failure.Results))
	case errors.Is(err, domain.ErrUnreadableAudio):
		return "Could not read the audio. The file may be damaged or in an unsupported format."
	case errors.Is(err, domain.ErrConfiguration):
		return "The transcriber is misconfigured. Please contact the administrator."
	default:
		return "An error occurred while transcribing the audio."
	}
}
