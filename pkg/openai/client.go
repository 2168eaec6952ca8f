package openai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
)

const DefaultTranscriptionModel = "gpt-4o-mini-transcribe"

type Config struct {
	Token    string
	BaseURL  string
	Model    string
	Language string
	// RequestTimeout bounds a single transcription call, retries excluded.
	RequestTimeout time.Duration
}

type transcriptionAPI interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

type client struct {
	api      transcriptionAPI
	model    string
	language string
	timeout  time.Duration
}

func NewClient(cfg Config) (*client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("token is empty")
	}

	config := openai.DefaultConfig(cfg.Token)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultTranscriptionModel
	}

	return &client{
		api:      openai.NewClientWithConfig(config),
		model:    model,
		language: cfg.Language,
		timeout:  cfg.RequestTimeout,
	}, nil
}

// Transcribe sends one segment to the transcription endpoint. Failures are
// returned as *domain.EngineError unless ctx itself was cancelled.
func (c *client) Transcribe(ctx context.Context, payload domain.SegmentPayload) (string, error) {
	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.AudioRequest{
		Model:    c.model,
		FilePath: payload.Name,
		Reader:   bytes.NewReader(payload.Data),
		Language: c.language,
	}

	started := time.Now()
	resp, err := c.api.CreateTranscription(callCtx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", classify(fmt.Errorf("creating transcription: %w", err))
	}

	slog.DebugContext(ctx, "Transcription received",
		"segment", payload.Range.Index+1,
		"model", c.model,
		"bytes", len(payload.Data),
		"chars", len(resp.Text),
		"took", time.Since(started).Round(time.Millisecond),
	)

	return resp.Text, nil
}
