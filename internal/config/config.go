package config

import (
	"fmt"
	"sort"

	"github.com/phrazzld/vademecum-api/internal/domain"
)

// Storage drivers accepted by DatabaseConfig.Driver.
const (
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
	DriverFirestore = "firestore"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig                `mapstructure:"server" validate:"required"`
	Database    DatabaseConfig              `mapstructure:"database" validate:"required"`
	LLM         LLMConfig                   `mapstructure:"llm" validate:"required"`
	Collections map[string]CollectionConfig `mapstructure:"collections" validate:"dive"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                  int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel              string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" validate:"gte=0"`
}

// DatabaseConfig selects and configures the artifact store.
// Only the fields of the selected driver are required.
type DatabaseConfig struct {
	Driver              string `mapstructure:"driver" validate:"required,oneof=postgres sqlite firestore"`
	URL                 string `mapstructure:"url" validate:"required_if=Driver postgres"`
	SQLitePath          string `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
	FirestoreProjectID  string `mapstructure:"firestore_project_id" validate:"required_if=Driver firestore"`
	FirestoreDatabaseID string `mapstructure:"firestore_database_id"`
	MaxOpenConns        int    `mapstructure:"max_open_conns" validate:"gte=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey          string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName             string `mapstructure:"model_name" validate:"required"`
	PromptTemplateDir     string `mapstructure:"prompt_template_dir"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" validate:"gte=0"`
}

// CollectionConfig adds or overrides one entry of the collection registry.
// The map key in Config.Collections is the short code.
type CollectionConfig struct {
	Name  string `mapstructure:"name"`
	Table string `mapstructure:"table" validate:"required"`
}

// CollectionRegistry builds the registry from the built-in defaults with the
// configured collections layered on top.
func (c *Config) CollectionRegistry() (*domain.CollectionRegistry, error) {
	collections := domain.DefaultCollections()

	codes := make([]string, 0, len(c.Collections))
	for code := range c.Collections {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		cc := c.Collections[code]
		collections = append(collections, domain.Collection{
			Code:  code,
			Name:  cc.Name,
			Table: cc.Table,
		})
	}

	registry, err := domain.NewCollectionRegistry(collections...)
	if err != nil {
		return nil, fmt.Errorf("invalid collections configuration: %w", err)
	}
	return registry, nil
}
