package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/MarkSkews1/ai-vid-gen/internal/config"
	"github.com/MarkSkews1/ai-vid-gen/internal/platform"
	"github.com/MarkSkews1/ai-vid-gen/pipeline"
	"github.com/MarkSkews1/ai-vid-gen/processing"
	"github.com/MarkSkews1/ai-vid-gen/tasks"
	"github.com/MarkSkews1/ai-vid-gen/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	db := platform.NewDBConnection(cfg)
	rdb := platform.NewRedisClient(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collab, err := buildCollaborators(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build pipeline collaborators", zap.Error(err))
	}

	processor := worker.NewProcessor(db, rdb, collab, logger)
	processor.Register(tasks.QueueVideoGeneration, processor.HandleVideoGeneration)

	logger.Info("worker started, waiting for queue tasks")
	processor.Listen(ctx, tasks.QueueVideoGeneration)
}

func buildCollaborators(ctx context.Context, cfg config.Config, logger *zap.Logger) (pipeline.Collaborators, error) {
	store, err := processing.NewMediaStore(cfg.MediaDir, cfg.MediaBaseURL, logger)
	if err != nil {
		return pipeline.Collaborators{}, err
	}
	retry := processing.RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
	}

	script, err := processing.NewOpenAIScriptGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
	if err != nil {
		return pipeline.Collaborators{}, err
	}
	images, err := processing.NewReplicateImageGenerator(cfg.ReplicateToken, cfg.ReplicateModel, store, retry, logger)
	if err != nil {
		return pipeline.Collaborators{}, err
	}

	collab := pipeline.Collaborators{Script: script, Images: images}

	if cfg.UseMockAudio {
		collab.Speech = processing.NewSampleSpeechSynthesizer()
	} else {
		speech, err := processing.NewGoogleSpeechSynthesizer(ctx, cfg.GoogleAPIKey, cfg.TTSVoice, store, retry, logger)
		if err != nil {
			return pipeline.Collaborators{}, err
		}
		collab.Speech = speech
	}

	if cfg.UseMockCaptions {
		collab.Transcripts = processing.NewSampleTranscriber()
	} else {
		transcripts, err := processing.NewAssemblyAITranscriber(cfg.AssemblyAIKey, cfg.AssemblyPollInterval, retry, logger)
		if err != nil {
			return pipeline.Collaborators{}, err
		}
		collab.Transcripts = transcripts
	}

	return collab, nil
}
