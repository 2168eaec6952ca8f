package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"

	"github.com/dskvich/speech-transcriber-bot/pkg/auth"
	"github.com/dskvich/speech-transcriber-bot/pkg/converter"
	"github.com/dskvich/speech-transcriber-bot/pkg/database"
	"github.com/dskvich/speech-transcriber-bot/pkg/dispatcher"
	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
	"github.com/dskvich/speech-transcriber-bot/pkg/logger"
	"github.com/dskvich/speech-transcriber-bot/pkg/openai"
	"github.com/dskvich/speech-transcriber-bot/pkg/repository"
	"github.com/dskvich/speech-transcriber-bot/pkg/services"
	"github.com/dskvich/speech-transcriber-bot/pkg/telegram"
	"github.com/dskvich/speech-transcriber-bot/pkg/workers"
)

type Config struct {
	OpenAIToken         string        `env:"OPENAI_API_KEY,required"`
	OpenAIBaseURL       string        `env:"OPENAI_BASE_URL"`
	Model               string        `env:"TRANSCRIPTION_MODEL" envDefault:"gpt-4o-mini-transcribe"`
	Language            string        `env:"TRANSCRIPTION_LANGUAGE"`
	SegmentLength       time.Duration `env:"SEGMENT_LENGTH" envDefault:"900s"`
	SegmentOverlap      time.Duration `env:"SEGMENT_OVERLAP" envDefault:"5s"`
	SegmentConcurrency  int           `env:"SEGMENT_CONCURRENCY" envDefault:"3"`
	FileConcurrency     int           `env:"FILE_CONCURRENCY" envDefault:"3"`
	MaxAttempts         int           `env:"TRANSCRIPTION_MAX_ATTEMPTS" envDefault:"4"`
	InitialBackoff      time.Duration `env:"TRANSCRIPTION_INITIAL_BACKOFF" envDefault:"1s"`
	MaxBackoff          time.Duration `env:"TRANSCRIPTION_MAX_BACKOFF" envDefault:"30s"`
	RequestTimeout      time.Duration `env:"TRANSCRIPTION_REQUEST_TIMEOUT" envDefault:"5m"`
	FFmpegPath          string        `env:"FFMPEG_PATH"`
	FFprobePath         string        `env:"FFPROBE_PATH"`
	TempDir             string        `env:"TEMP_DIR"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	EnableDialogLogging bool          `env:"ENABLE_DIALOG_LOGGING" envDefault:"true"`
	PgURL               string        `env:"DATABASE_URL"`
}

type BotConfig struct {
	TelegramBotToken               string  `env:"TELEGRAM_BOT_TOKEN,required"`
	TelegramAllowedChatIDs         []int64 `env:"TELEGRAM_ALLOWED_CHAT_IDS" envSeparator:" "`
	TelegramUpdateListenerPoolSize int     `env:"TELEGRAM_UPDATE_LISTENER_POOL_SIZE" envDefault:"5"`
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := runMain(os.Args[1:]); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func runMain(paths []string) error {
	cfg, err := parseConfig(env.Options{})
	if err != nil {
		return err
	}

	opts := *logger.DefaultOptions
	opts.Level = logger.ParseLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, &opts)))

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	repo, closeRepo, err := setupRepository(ctx, cfg.PgURL)
	if err != nil {
		return err
	}
	defer closeRepo()

	transcriptionService, err := setupTranscription(cfg, repo)
	if err != nil {
		return err
	}

	if len(paths) > 0 {
		batchService, err := services.NewBatchService(transcriptionService, cfg.FileConcurrency, os.Stdout)
		if err != nil {
			return err
		}
		_, err = batchService.TranscribeFiles(ctx, paths)
		return err
	}

	botCfg, err := parseBotConfig(env.Options{})
	if err != nil {
		return err
	}

	workerGroup, err := setupWorkers(cfg, botCfg, transcriptionService, repo)
	if err != nil {
		return err
	}

	return workerGroup.Start(ctx)
}

func parseConfig(opts env.Options) (Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("%w: parsing env config: %w", domain.ErrConfiguration, err)
	}
	if cfg.FileConcurrency < 1 {
		return Config{}, fmt.Errorf("%w: FILE_CONCURRENCY must be at least 1", domain.ErrConfiguration)
	}
	return cfg, nil
}

func parseBotConfig(opts env.Options) (BotConfig, error) {
	cfg := BotConfig{}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return BotConfig{}, fmt.Errorf("%w: parsing bot env config: %w", domain.ErrConfiguration, err)
	}
	if len(cfg.TelegramAllowedChatIDs) == 0 {
		return BotConfig{}, fmt.Errorf("%w: TELEGRAM_ALLOWED_CHAT_IDS must list at least one chat", domain.ErrConfiguration)
	}
	return cfg, nil
}

type transcriptStore interface {
	services.TranscriptRepository
	services.HistoryRepository
}

func setupRepository(ctx context.Context, dsn string) (transcriptStore, func(), error) {
	if dsn == "" {
		slog.Info("DATABASE_URL is not set, keeping transcript history in memory")
		return repository.NewMemoryTranscriptRepository(), func() {}, nil
	}

	db, err := database.NewPostgres(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("creating db: %w", err)
	}

	return repository.NewTranscriptRepository(db), func() { closeDB(db) }, nil
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		slog.Error("closing db", logger.Err(err))
	}
}

func setupTranscription(cfg Config, repo services.TranscriptRepository) (services.Transcriber, error) {
	ffmpeg, err := converter.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}

	openAIClient, err := openai.NewClient(openai.Config{
		Token:          cfg.OpenAIToken,
		BaseURL:        cfg.OpenAIBaseURL,
		Model:          cfg.Model,
		Language:       cfg.Language,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating open ai client: %w", err)
	}

	segmentDispatcher, err := dispatcher.New(openAIClient, cfg.SegmentConcurrency, dispatcher.RetryConfig{
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
	})
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	return services.NewTranscriptionService(
		ffmpeg,
		func(dir string) dispatcher.Extractor { return ffmpeg.InDir(dir) },
		segmentDispatcher,
		repo,
		services.SegmentationConfig{
			SegmentLength: cfg.SegmentLength,
			Overlap:       cfg.SegmentOverlap,
			TempDir:       cfg.TempDir,
		},
	)
}

func setupWorkers(
	cfg Config,
	botCfg BotConfig,
	transcriber services.Transcriber,
	history services.HistoryRepository,
) (workers.Group, error) {
	var workerGroup workers.Group

	telegramClient, err := telegram.NewClient(botCfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("creating telegram client: %w", err)
	}
	authenticator := auth.NewAuthenticator(botCfg.TelegramAllowedChatIDs)

	audioService := services.NewAudioService(
		telegramClient,
		transcriber,
		history,
		cfg.TempDir,
		cfg.EnableDialogLogging,
	)

	handler := telegram.NewHandler(audioService)

	worker, err := workers.NewTelegramUpdateListener(
		telegramClient,
		authenticator,
		handler,
		botCfg.TelegramUpdateListenerPoolSize,
	)
	if err != nil {
		return nil, err
	}
	workerGroup = append(workerGroup, worker)

	return workerGroup, nil
}
