package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vbonduro/photato/internal/config"
	"github.com/vbonduro/photato/internal/db"
	"github.com/vbonduro/photato/internal/domain"
	"github.com/vbonduro/photato/internal/logging"
	"github.com/vbonduro/photato/internal/photostore/local"
	"github.com/vbonduro/photato/internal/service"
	"github.com/vbonduro/photato/internal/store"
	"github.com/vbonduro/photato/internal/store/badgerstore"
	"github.com/vbonduro/photato/internal/web"
)

type metadataStore interface {
	Create(ctx context.Context, photo *domain.Photo) (*domain.Photo, error)
	GetByFilename(ctx context.Context, filename string) (*domain.Photo, error)
	List(ctx context.Context) ([]*domain.Photo, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the photo API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer cleanup()

		meta, closeMeta, err := openMetadata(cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeMeta(); err != nil {
				logger.Error("failed to close metadata store", "error", err)
			}
		}()

		photoStg, err := local.NewLocalPhotoStore(cfg.UploadDir)
		if err != nil {
			return fmt.Errorf("failed to initialize photo store: %w", err)
		}

		photoService := service.NewPhotoService(meta, photoStg, logger)
		server := web.NewServer(photoService, cfg.MaxUploadBytes, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Serve(ctx, cfg.ListenAddr())
	},
}

// openMetadata opens the configured metadata backend and returns its closer.
func openMetadata(cfg *config.Config, logger *slog.Logger) (metadataStore, func() error, error) {
	switch cfg.MetadataBackend {
	case config.BackendBadger:
		logger.Info("using badger metadata backend", "path", cfg.BadgerPath)
		kv, err := badgerstore.Open(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	case config.BackendSQL:
		logger.Info("using sql metadata backend", "dialect", cfg.DB.Dialect)
		database, err := db.Open(cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return store.NewPhotoStore(database, cfg.DB.Dialect), database.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown metadata backend %q", cfg.MetadataBackend)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
