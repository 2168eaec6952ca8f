package converter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("running `%s`: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("running `%s`: %w", name, err)
	}

	return stdout.Bytes(), nil
}

// FFmpeg probes and slices audio with the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	workDir     string
	runner      commandRunner
}

// NewFFmpeg resolves both binaries. Empty paths are looked up in PATH.
func NewFFmpeg(ffmpegPath, ffprobePath string) (*FFmpeg, error) {
	ffmpeg, err := lookPath(ffmpegPath, "ffmpeg")
	if err != nil {
		return nil, err
	}
	ffprobe, err := lookPath(ffprobePath, "ffprobe")
	if err != nil {
		return nil, err
	}

	return &FFmpeg{
		ffmpegPath:  ffmpeg,
		ffprobePath: ffprobe,
		runner:      execRunner{},
	}, nil
}

func lookPath(configured, name string) (string, error) {
	if configured == "" {
		configured = name
	}
	path, err := exec.LookPath(configured)
	if err != nil {
		return "", fmt.Errorf("looking for `%s`: %w", name, err)
	}
	return path, nil
}

// InDir returns a copy of f that writes temporary segment files into dir.
func (f *FFmpeg) InDir(dir string) *FFmpeg {
	c := *f
	c.workDir = dir
	return &c
}
