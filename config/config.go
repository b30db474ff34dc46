// Package config loads the service configuration from YAML.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/magnetodb/magneto/types"
	"gopkg.in/yaml.v3"
)

const (
	// RepositoryMemory keeps backups in process memory
	RepositoryMemory = "memory"
	// RepositoryDynamoDB keeps backups in a DynamoDB table
	RepositoryDynamoDB = "dynamodb"
)

// Config is the service configuration
type Config struct {
	Logging Logging `yaml:"logging"`
	Storage Storage `yaml:"storage"`
	Backup  Backup  `yaml:"backup"`
}

// Logging configures the service logger
type Logging struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level" validate:"oneof=debug info warn error"`
	Format  string `yaml:"format" validate:"oneof=json console"`
}

// Storage bounds the batch operations
type Storage struct {
	BatchGetLimit   int `yaml:"batch_get_limit" validate:"min=1,max=100"`
	BatchWriteLimit int `yaml:"batch_write_limit" validate:"min=1,max=25"`
}

// Backup configures the backup manager and its repository
type Backup struct {
	Location        string `yaml:"location" validate:"required"`
	Repository      string `yaml:"repository" validate:"oneof=memory dynamodb"`
	TableName       string `yaml:"table_name" validate:"required_if=Repository dynamodb"`
	Region          string `yaml:"region" validate:"required_if=Repository dynamodb"`
	Endpoint        string `yaml:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" validate:"required_with=AccessKeyID"`
}

// Default returns the configuration used for unset values
func Default() *Config {
	return &Config{
		Logging: Logging{
			Enabled: true,
			Level:   "info",
			Format:  "json",
		},
		Storage: Storage{
			BatchGetLimit:   100,
			BatchWriteLimit: 25,
		},
		Backup: Backup{
			Location:   "file:///var/lib/magnetodb/backups",
			Repository: RepositoryMemory,
		},
	}
}

// Load reads the YAML file at path. A .env file next to it, when present,
// is loaded first so ${VAR} references in the YAML can use it.
func Load(path string) (*Config, error) {
	envFile := filepath.Join(filepath.Dir(path), ".env")

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, types.NewValidationError("invalid env file %s: %s", envFile, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewValidationError("cannot read config %s: %s", path, err)
	}

	return Parse(data)
}

// Parse expands environment references in data, decodes it over the
// defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, types.NewValidationError("malformed config: %s", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration rules
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return types.NewValidationError("invalid config: %s", err)
	}

	msgs := make([]string, 0, len(validationErrors))

	for _, e := range validationErrors {
		msgs = append(msgs, e.Namespace()+" failed on the '"+e.Tag()+"' rule")
	}

	return types.NewValidationError("invalid config: %s", strings.Join(msgs, "; "))
}
