package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
	"github.com/dskvich/speech-transcriber-bot/pkg/logger"
)

type Extractor interface {
	Extract(ctx context.Context, src domain.AudioSource, r domain.SegmentRange) (domain.SegmentPayload, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, payload domain.SegmentPayload) (string, error)
}

type RetryConfig struct {
	// MaxAttempts counts the first call too.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Dispatcher extracts and transcribes the segments of a file. Engine calls from
// every Dispatch made through the same Dispatcher share one concurrency limit.
type Dispatcher struct {
	transcriber Transcriber
	engineSlots *semaphore.Weighted
	limit       int
	retry       RetryConfig
}

func New(transcriber Transcriber, concurrencyLimit int, retry RetryConfig) (*Dispatcher, error) {
	if concurrencyLimit < 1 {
		return nil, fmt.Errorf("%w: concurrency limit %d must be at least 1", domain.ErrConfiguration, concurrencyLimit)
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}

	return &Dispatcher{
		transcriber: transcriber,
		engineSlots: semaphore.NewWeighted(int64(concurrencyLimit)),
		limit:       concurrencyLimit,
		retry:       retry,
	}, nil
}

// Dispatch returns one result per range, in range order. A failing segment
// never stops its siblings. Results of a cancelled ctx carry ctx's error.
func (d *Dispatcher) Dispatch(ctx context.Context, extractor Extractor, src domain.AudioSource, ranges []domain.SegmentRange) []domain.SegmentResult {
	results := make([]domain.SegmentResult, len(ranges))

	var g errgroup.Group
	g.SetLimit(d.limit)

	for i, r := range ranges {
		g.Go(func() error {
			results[i] = d.process(ctx, extractor, src, r)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (d *Dispatcher) process(ctx context.Context, extractor Extractor, src domain.AudioSource, r domain.SegmentRange) domain.SegmentResult {
	if err := ctx.Err(); err != nil {
		return domain.SegmentFailure(r, err)
	}

	payload, err := extractor.Extract(ctx, src, r)
	if err != nil {
		slog.ErrorContext(ctx, "Segment extraction failed", "segment", r.String(), logger.Err(err))
		return domain.SegmentFailure(r, err)
	}

	text, err := d.transcribe(ctx, payload)
	if err != nil {
		slog.ErrorContext(ctx, "Segment transcription failed", "segment", r.String(), logger.Err(err))
		return domain.SegmentFailure(r, err)
	}

	slog.InfoContext(ctx, "Segment transcribed", "segment", r.String(), "chars", len(text))

	return domain.SegmentSuccess(r, text)
}

func (d *Dispatcher) transcribe(ctx context.Context, payload domain.SegmentPayload) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.retry.InitialBackoff
	b.MaxInterval = d.retry.MaxBackoff

	attempt := 0
	operation := func() (string, error) {
		attempt++
		if err := d.engineSlots.Acquire(ctx, 1); err != nil {
			return "", backoff.Permanent(err)
		}
		defer d.engineSlots.Release(1)

		text, err := d.transcriber.Transcribe(ctx, payload)
		if err != nil {
			if ctx.Err() != nil || !domain.IsRetryable(err) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		return text, nil
	}

	notify := func(err error, wait time.Duration) {
		slog.WarnContext(ctx, "Retrying segment transcription",
			"segment", payload.Range.String(),
			"attempt", attempt,
			"wait", wait.Round(time.Millisecond),
			logger.Err(err),
		)
	}

	text, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(d.retry.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w after %d attempt(s): %w", domain.ErrTranscriptionFailed, attempt, err)
	}

	return text, nil
}
