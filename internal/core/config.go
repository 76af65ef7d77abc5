package core

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

type Minio struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"useSSL"`
}

type Storage struct {
	Type  string `yaml:"type"` // local | minio
	Root  string `yaml:"root"`
	Minio Minio  `yaml:"minio"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwtSecret"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
}

type Geocoder struct {
	APIKey   string        `yaml:"apiKey"`
	BaseURL  string        `yaml:"baseURL"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

type Redis struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Thumbnail struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type Search struct {
	FallbackLimit int `yaml:"fallbackLimit"`
	MaxResults    int `yaml:"maxResults"`
}

type ServiceConfig struct {
	Port          int       `yaml:"port"`
	LogLevel      string    `yaml:"logLevel"`
	PublicBaseURL string    `yaml:"publicBaseURL"`
	BodyLimit     string    `yaml:"bodyLimit"`
	CORSOrigins   []string  `yaml:"corsOrigins"`
	Database      Database  `yaml:"database"`
	Storage       Storage   `yaml:"storage"`
	Auth          Auth      `yaml:"auth"`
	Geocoder      Geocoder  `yaml:"geocoder"`
	Redis         Redis     `yaml:"redis"`
	Thumbnail     Thumbnail `yaml:"thumbnail"`
	Search        Search    `yaml:"search"`

	// MaxImagePixels bounds width*height of accepted images before decoding.
	MaxImagePixels int64 `yaml:"maxImagePixels"`
}

const (
	defaultPort             = 8080
	defaultLogLevel         = "info"
	defaultBodyLimit        = "32M"
	defaultDatabaseType     = "sqlite"
	defaultDatabaseDSN      = "photos.db"
	defaultStorageType      = "local"
	defaultStorageRoot      = "uploads"
	defaultMinioBucket      = "photos"
	defaultTokenTTL         = 24 * time.Hour
	defaultGeocoderTimeout  = 5 * time.Second
	defaultGeocodeCacheTTL  = 30 * 24 * time.Hour
	defaultThumbnailSize    = 400
	defaultSearchFallback   = 10
	defaultSearchMaxResults = 20
	defaultMaxImagePixels   = 100_000_000
)

// LoadConfig loads configuration from the specified YAML file. A .env file in the
// working directory is loaded first; environment variables override secrets and
// connection settings from the file.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("LoadConfig: failed to load .env file", "error", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config ServiceConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	config.applyEnvironment()
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func (c *ServiceConfig) applyEnvironment() {
	overrides := map[string]*string{
		"JWT_SECRET":                 &c.Auth.JWTSecret,
		"GEOCODER_API_KEY":           &c.Geocoder.APIKey,
		"DATABASE_TYPE":              &c.Database.Type,
		"DATABASE_CONNECTION_STRING": &c.Database.ConnectionString,
		"REDIS_ADDRESS":              &c.Redis.Address,
		"MINIO_ACCESS_KEY":           &c.Storage.Minio.AccessKey,
		"MINIO_SECRET_KEY":           &c.Storage.Minio.SecretKey,
	}
	for key, target := range overrides {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			*target = value
		}
	}
}

func (c *ServiceConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.BodyLimit == "" {
		c.BodyLimit = defaultBodyLimit
	}
	if c.Database.Type == "" {
		c.Database.Type = defaultDatabaseType
	}
	if c.Database.ConnectionString == "" && c.Database.Type == defaultDatabaseType {
		c.Database.ConnectionString = defaultDatabaseDSN
	}
	if c.Storage.Type == "" {
		c.Storage.Type = defaultStorageType
	}
	if c.Storage.Root == "" {
		c.Storage.Root = defaultStorageRoot
	}
	if c.Storage.Minio.Bucket == "" {
		c.Storage.Minio.Bucket = defaultMinioBucket
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = defaultTokenTTL
	}
	if c.Geocoder.Timeout == 0 {
		c.Geocoder.Timeout = defaultGeocoderTimeout
	}
	if c.Geocoder.CacheTTL == 0 {
		c.Geocoder.CacheTTL = defaultGeocodeCacheTTL
	}
	if c.Thumbnail.Width == 0 {
		c.Thumbnail.Width = defaultThumbnailSize
	}
	if c.Thumbnail.Height == 0 {
		c.Thumbnail.Height = defaultThumbnailSize
	}
	if c.Search.FallbackLimit == 0 {
		c.Search.FallbackLimit = defaultSearchFallback
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = defaultSearchMaxResults
	}
	if c.MaxImagePixels == 0 {
		c.MaxImagePixels = defaultMaxImagePixels
	}
}

// Validate reports the first configuration problem found.
func (c *ServiceConfig) Validate() error {
	switch c.Database.Type {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.ConnectionString == "" {
		return fmt.Errorf("database connection string is required")
	}
	switch c.Storage.Type {
	case "local":
	case "minio":
		if c.Storage.Minio.Endpoint == "" {
			return fmt.Errorf("minio endpoint is required for minio storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("token ttl must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Thumbnail.Width < 0 || c.Thumbnail.Height < 0 {
		return fmt.Errorf("thumbnail bounds must be positive, got %dx%d", c.Thumbnail.Width, c.Thumbnail.Height)
	}
	if c.Search.FallbackLimit < 0 || c.Search.MaxResults < 0 {
		return fmt.Errorf("search limits must be positive")
	}
	if c.MaxImagePixels < 0 {
		return fmt.Errorf("max image pixels must be positive, got %d", c.MaxImagePixels)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func ParseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}
