package converter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
)

type probeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

// Probe reads the container duration of the file at path.
func (f *FFmpeg) Probe(ctx context.Context, path string) (domain.AudioSource, error) {
	out, err := f.runner.Run(ctx, f.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		path,
	)
	if err != nil {
		return domain.AudioSource{}, fmt.Errorf("%w: probing %s: %w", domain.ErrUnreadableAudio, path, err)
	}

	src, err := parseProbeOutput(out)
	if err != nil {
		return domain.AudioSource{}, fmt.Errorf("%w: probing %s: %w", domain.ErrUnreadableAudio, path, err)
	}
	src.Path = path
	src.Name = filepath.Base(path)

	slog.InfoContext(ctx, "Audio probed", "path", path, "format", src.Format, "duration", src.Duration)

	return src, nil
}

func parseProbeOutput(out []byte) (domain.AudioSource, error) {
	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return domain.AudioSource{}, fmt.Errorf("decoding ffprobe output: %w", err)
	}

	if probe.Format.Duration == "" || probe.Format.Duration == "N/A" {
		return domain.AudioSource{}, fmt.Errorf("ffprobe reported no duration")
	}

	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return domain.AudioSource{}, fmt.Errorf("parsing duration '%s': %w", probe.Format.Duration, err)
	}
	if seconds <= 0 {
		return domain.AudioSource{}, fmt.Errorf("non-positive duration %s", probe.Format.Duration)
	}

	return domain.AudioSource{
		Format:   probe.Format.FormatName,
		Duration: time.Duration(seconds * float64(time.Second)),
	}, nil
}
