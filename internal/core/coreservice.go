package core

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/gophotos/internal/backend/auth"
	"github.com/jo-hoe/gophotos/internal/backend/commands"
	"github.com/jo-hoe/gophotos/internal/backend/commandstructure"
	"github.com/jo-hoe/gophotos/internal/backend/database"
	"github.com/jo-hoe/gophotos/internal/backend/geocoder"
	"github.com/jo-hoe/gophotos/internal/backend/storage"
	"github.com/redis/go-redis/v9"
)

type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	storage         storage.Storage
	geocoder        *geocoder.Client
	tokens          *auth.TokenIssuer
	redisClient     *redis.Client
}

func NewCoreService(ctx context.Context, config *ServiceConfig) (*CoreService, error) {
	databaseService, err := getDatabaseService(config)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStorage(ctx, storage.Config{
		Type: config.Storage.Type,
		Root: config.Storage.Root,
		Minio: storage.MinioConfig{
			Endpoint:  config.Storage.Minio.Endpoint,
			AccessKey: config.Storage.Minio.AccessKey,
			SecretKey: config.Storage.Minio.SecretKey,
			Bucket:    config.Storage.Minio.Bucket,
			UseSSL:    config.Storage.Minio.UseSSL,
		},
	})
	if err != nil {
		_ = databaseService.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	slog.Info("storage initialized successfully", "type", config.Storage.Type)

	service := &CoreService{
		config:          config,
		databaseService: databaseService,
		storage:         store,
		tokens:          auth.NewTokenIssuer(config.Auth.JWTSecret, config.Auth.TokenTTL),
	}

	var cache geocoder.Cache
	if config.Redis.Address != "" {
		service.redisClient = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Address,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		cache = geocoder.NewRedisCache(service.redisClient, config.Geocoder.CacheTTL)
		slog.Info("geocode cache enabled", "address", config.Redis.Address)
	}
	service.geocoder = geocoder.NewClient(geocoder.Config{
		APIKey:  config.Geocoder.APIKey,
		BaseURL: config.Geocoder.BaseURL,
		Timeout: config.Geocoder.Timeout,
	}, cache)
	if !service.geocoder.Enabled() {
		slog.Info("reverse geocoding disabled, coordinates are kept in exif data")
	}

	return service, nil
}

// Storage exposes the file layer for serving uploads.
func (service *CoreService) Storage() storage.Storage {
	return service.storage
}

func (service *CoreService) Close() error {
	var errs []error
	if service.redisClient != nil {
		if err := service.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}
	if err := service.databaseService.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	return errors.Join(errs...)
}

// thumbnail fits img inside the configured bound.
func (service *CoreService) thumbnail(img image.Image) (image.Image, error) {
	return commandstructure.ExecuteCommands(img, []commandstructure.CommandConfig{{
		Name: commands.ThumbnailCommandName,
		Params: map[string]any{
			"width":  service.config.Thumbnail.Width,
			"height": service.config.Thumbnail.Height,
		},
	}})
}

func getDatabaseService(config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}
