package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
	"github.com/dskvich/speech-transcriber-bot/pkg/logger"
	"github.com/dskvich/speech-transcriber-bot/pkg/output"
)

const previewLength = 1000

// BatchSummary counts the outcome of a batch run.
type BatchSummary struct {
	Succeeded    int
	Failed       int
	CombinedPath string
}

type batchService struct {
	transcriber     Transcriber
	fileConcurrency int
	out             io.Writer
	now             func() time.Time

	mu sync.Mutex
}

func NewBatchService(transcriber Transcriber, fileConcurrency int, out io.Writer) (*batchService, error) {
	if fileConcurrency < 1 {
		return nil, fmt.Errorf("%w: file concurrency must be at least 1, got %d", domain.ErrConfiguration, fileConcurrency)
	}

	return &batchService{
		transcriber:     transcriber,
		fileConcurrency: fileConcurrency,
		out:             out,
		now:             time.Now,
	}, nil
}

// TranscribeFiles transcribes every path, saving each transcript next to its
// source, and combines the successful ones when there are several.
func (b *batchService) TranscribeFiles(ctx context.Context, paths []string) (BatchSummary, error) {
	texts := make([]string, len(paths))
	ok := make([]bool, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.fileConcurrency)

	for i, path := range paths {
		g.Go(func() error {
			text, err := b.transcriber.SubmitAudio(gctx, domain.TranscriptionRequest{
				Path: path,
				Name: filepath.Base(path),
			})
			if err != nil {
				slog.ErrorContext(gctx, "Transcribing file", "path", path, logger.Err(err))
				b.printf("\n%s\nFAILED: %s\n", path, FailureMessage(err))
				return nil
			}

			saved, err := output.SaveTranscription(text, path, b.now())
			if err != nil {
				slog.ErrorContext(gctx, "Saving transcription", "path", path, logger.Err(err))
				b.printf("\n%s\nFAILED: %v\n", path, err)
				return nil
			}

			texts[i], ok[i] = text, true
			preview, truncated := output.Preview(text, previewLength)
			if truncated {
				preview += "..."
			}
			b.printf("\n%s\nSaved to %s\n\n%s\n", path, saved, preview)
			return nil
		})
	}
	_ = g.Wait()

	var summary BatchSummary
	var entries []output.BatchEntry
	for i, path := range paths {
		if !ok[i] {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		entries = append(entries, output.BatchEntry{SourcePath: path, Text: texts[i]})
	}

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	if len(entries) > 1 {
		combined, err := output.SaveBatch(entries, b.now())
		if err != nil {
			return summary, fmt.Errorf("saving combined transcription: %w", err)
		}
		summary.CombinedPath = combined
		b.printf("\nCombined transcription saved to %s\n", combined)
	}

	b.printf("\nProcessed %d file(s): %d succeeded, %d failed.\n", len(paths), summary.Succeeded, summary.Failed)

	if summary.Failed > 0 {
		return summary, fmt.Errorf("%d of %d file(s) failed", summary.Failed, len(paths))
	}
	return summary, nil
}

func (b *batchService) printf(format string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintf(b.out, format, args...)
}
