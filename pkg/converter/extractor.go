package converter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
	"github.com/dskvich/speech-transcriber-bot/pkg/logger"
)

const (
	segmentSampleRate = "16000"
	segmentBitrate    = "64k"
	segmentExt        = ".mp3"
)

// Extract cuts r out of src as a standalone mono 16 kHz MP3.
// The temporary file is removed before Extract returns.
func (f *FFmpeg) Extract(ctx context.Context, src domain.AudioSource, r domain.SegmentRange) (domain.SegmentPayload, error) {
	tmp, err := os.CreateTemp(f.workDir, fmt.Sprintf("segment-%03d-*%s", r.Index+1, segmentExt))
	if err != nil {
		return domain.SegmentPayload{}, fmt.Errorf("%w: creating temp file: %w", domain.ErrExtractionFailed, err)
	}
	outputPath := tmp.Name()
	tmp.Close()

	defer func() {
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			slog.WarnContext(ctx, "Removing segment temp file", "path", outputPath, logger.Err(err))
		}
	}()

	slog.DebugContext(ctx, "Extracting segment", "segment", r.String())

	if _, err := f.runner.Run(ctx, f.ffmpegPath, extractArgs(src.Path, outputPath, r)...); err != nil {
		return domain.SegmentPayload{}, fmt.Errorf("%w: %s: %w", domain.ErrExtractionFailed, r, err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return domain.SegmentPayload{}, fmt.Errorf("%w: reading %s: %w", domain.ErrExtractionFailed, r, err)
	}
	if len(data) == 0 {
		return domain.SegmentPayload{}, fmt.Errorf("%w: %s produced no audio", domain.ErrExtractionFailed, r)
	}

	return domain.SegmentPayload{
		Range: r,
		Name:  segmentName(src, r),
		Data:  data,
	}, nil
}

func extractArgs(inputPath, outputPath string, r domain.SegmentRange) []string {
	return []string{
		"-v", "error",
		"-y",
		"-ss", formatSeconds(r.Start),
		"-t", formatSeconds(r.Duration()),
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", segmentSampleRate,
		"-b:a", segmentBitrate,
		"-f", "mp3",
		outputPath,
	}
}

func segmentName(src domain.AudioSource, r domain.SegmentRange) string {
	base := strings.TrimSuffix(src.Name, filepath.Ext(src.Name))
	if base == "" {
		base = "audio"
	}
	return fmt.Sprintf("%s_part_%d%s", base, r.Index+1, segmentExt)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
