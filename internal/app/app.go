package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/paperstack-io/paperstack/internal/config"
	db "github.com/paperstack-io/paperstack/internal/core/database"
	"github.com/paperstack-io/paperstack/internal/core/extract"
	"github.com/paperstack-io/paperstack/internal/core/ingest"
	"github.com/paperstack-io/paperstack/internal/core/llm"
	"github.com/paperstack-io/paperstack/internal/core/metadata"
	"github.com/paperstack-io/paperstack/internal/core/objectstore"
	"github.com/paperstack-io/paperstack/internal/core/preview"
	"github.com/paperstack-io/paperstack/internal/services"
)

type App struct {
	Store    *db.Store
	Objects  *objectstore.S3Store
	Gemini   *llm.GeminiExtractor
	Pipeline *ingest.Pipeline
	Docs     *services.DocumentService
	Sweeper  *services.ArchiveSweeper
	Server   *Server

	log *zap.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	store, err := db.NewStore(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("database initialized and ready")

	objects, err := objectstore.NewS3Store(appCtx, cfg, log)
	if err != nil {
		return nil, err
	}

	gemini, err := llm.NewGeminiExtractor(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, err
	}
	extractor := metadata.NewService(gemini, cfg.MetadataAttempts, log)

	renderer := preview.NewRenderer(cfg.MaxPreviewPages, cfg.ClearPages, log)
	pipeline := ingest.NewPipeline(store, objects, extractor, extract.NewDocconvExtractor(), renderer, log)

	docs := services.NewDocumentService(store, objects, cfg.PresignTTL, log)
	sweeper := services.NewArchiveSweeper(store, cfg.ArchiveAfter, log)
	if err := sweeper.Start(); err != nil {
		return nil, err
	}

	server := NewServer(cfg, pipeline, docs, log)

	return &App{
		Store:    store,
		Objects:  objects,
		Gemini:   gemini,
		Pipeline: pipeline,
		Docs:     docs,
		Sweeper:  sweeper,
		Server:   server,
		log:      log,
	}, nil
}

func (a *App) Close() {
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	if a.Gemini != nil {
		_ = a.Gemini.Close()
	}
	if a.Store != nil {
		_ = a.Store.Close()
	}
}
