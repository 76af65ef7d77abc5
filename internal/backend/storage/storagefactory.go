package storage

import (
	"context"
	"fmt"
)

type Config struct {
	Type  string
	Root  string
	Minio MinioConfig
}

func NewStorage(ctx context.Context, config Config) (Storage, error) {
	switch config.Type {
	case "", "local":
		return NewLocalStorage(config.Root)
	case "minio":
		return NewMinioStorage(ctx, config.Minio)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
}
