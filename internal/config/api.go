package config

import (
	"fmt"

	"github.com/JaimeStill/sieve/pkg/formatting"
	"github.com/JaimeStill/sieve/pkg/middleware"
	"github.com/JaimeStill/sieve/pkg/pagination"
)

const (
	EnvAPIBasePath      = "SIEVE_API_BASE_PATH"
	EnvAPIMaxUploadSize = "SIEVE_API_MAX_UPLOAD_SIZE"

	defaultMaxUploadSize = 10 << 20
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "SIEVE_CORS_ENABLED",
	Origins:          "SIEVE_CORS_ORIGINS",
	AllowedMethods:   "SIEVE_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "SIEVE_CORS_ALLOWED_HEADERS",
	AllowCredentials: "SIEVE_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "SIEVE_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "SIEVE_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "SIEVE_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig configures the /api module. MaxUploadSize bounds the multipart
// formula lists accepted by run creation.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
}

// MaxUploadSizeBytes returns the parsed upload limit, or 10MB when the
// configured value does not parse.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return defaultMaxUploadSize
	}
	return size
}

func (c *APIConfig) Finalize() error {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "10MB"
	}
	envString(EnvAPIBasePath, &c.BasePath)
	envString(EnvAPIMaxUploadSize, &c.MaxUploadSize)

	if _, err := formatting.ParseBytes(c.MaxUploadSize); err != nil {
		return fmt.Errorf("max_upload_size: %w", err)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

func (c *APIConfig) Merge(overlay *APIConfig) {
	mergeString(&c.BasePath, overlay.BasePath)
	mergeString(&c.MaxUploadSize, overlay.MaxUploadSize)
	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}
