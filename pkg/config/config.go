// Package config loads the process settings and applies per-run overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	SourceMySQL      = "mysql"
	SourcePostgres   = "postgres"
	SourcePostgreSQL = "postgresql"
	SourceSQLite     = "sqlite"
	SourceSQLServer  = "sqlserver"
	SourceMongoDB    = "mongodb"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Settings enumerates every recognized setting. Defaults are applied once,
// when the struct is loaded.
type Settings struct {
	Env               string `envconfig:"ENV"                default:"dev"               validate:"required"`
	LogFile           string `envconfig:"LOG_FILE"           default:"logs/events.jsonl" validate:"required"`
	ArtifactsDir      string `envconfig:"ARTIFACTS_DIR"      default:"artifacts"         validate:"required"`
	SchedulerTimezone string `envconfig:"SCHEDULER_TIMEZONE" default:"UTC"               validate:"required,timezone"`
	ExportXLSX        bool   `envconfig:"EXPORT_XLSX"        default:"false"`
	MemoryRedisURL    string `envconfig:"MEMORY_REDIS_URL"   validate:"omitempty,url"`

	LLM         LLM
	Mail        Mail
	Data        DataSource
	Store       Store
	ObjectStore ObjectStore
}

// LLM configures the translation service.
type LLM struct {
	APIKey string `envconfig:"GEMINI_API_KEY"`
	Model  string `envconfig:"LLM_MODEL" default:"gemini-2.5-flash"`
}

// Enabled reports whether a translation client can be built.
func (l LLM) Enabled() bool {
	return l.APIKey != ""
}

// Mail configures report delivery.
type Mail struct {
	APIKey string `envconfig:"SENDGRID_API_KEY"`
	From   string `envconfig:"EMAIL_FROM"`
	To     string `envconfig:"EMAIL_TO"`
}

// Recipients splits the comma separated EMAIL_TO list.
func (m Mail) Recipients() []string {
	var out []string

	for _, part := range strings.Split(m.To, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}

// Complete reports whether every field needed to send is present.
func (m Mail) Complete() bool {
	return m.APIKey != "" && m.From != "" && len(m.Recipients()) > 0
}

// DataSource describes the external data the pipeline queries.
type DataSource struct {
	Type     string `envconfig:"DATA_DB_TYPE"  validate:"omitempty,oneof=mysql postgres postgresql sqlite sqlserver mongodb"`
	Host     string `envconfig:"DATA_HOST"`
	Port     string `envconfig:"DATA_PORT"     validate:"omitempty,numeric"`
	Name     string `envconfig:"DATA_NAME"`
	User     string `envconfig:"DATA_USER"`
	Password string `envconfig:"DATA_PASSWORD"`
	Table    string `envconfig:"DATA_TABLE"`
	DSN      string `envconfig:"DATA_DSN"`
	SSLMode  string `envconfig:"DATA_SSLMODE"`
}

// Kind returns the normalized source type.
func (d DataSource) Kind() string {
	kind := strings.ToLower(strings.TrimSpace(d.Type))
	if kind == SourcePostgreSQL {
		return SourcePostgres
	}

	return kind
}

// IsDocumentStore reports whether the source is sampled rather than queried.
func (d DataSource) IsDocumentStore() bool {
	return d.Kind() == SourceMongoDB
}

// Store configures the internal log, run and memory store.
type Store struct {
	DatabaseURL string `envconfig:"DATABASE_URL"`
	PoolerDSN   string `envconfig:"SUPABASE_POOLER_DSN"`
	DirectDSN   string `envconfig:"SUPABASE_DIRECT_DSN"`
	PGHost      string `envconfig:"PGHOST"`
	PGPort      string `envconfig:"PGPORT"`
	PGDatabase  string `envconfig:"PGDATABASE"`
	PGUser      string `envconfig:"PGUSER"`
	PGPassword  string `envconfig:"PGPASSWORD"`
}

// DSN resolves the store location. Without any postgres settings the file
// store under ./data is used.
func (s Store) DSN() string {
	switch {
	case s.DatabaseURL != "":
		return s.DatabaseURL
	case s.PoolerDSN != "":
		return s.PoolerDSN
	case s.DirectDSN != "":
		return s.DirectDSN
	case s.PGHost != "":
		return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=require",
			s.PGHost,
			valueOr(s.PGPort, "5432"),
			valueOr(s.PGDatabase, "postgres"),
			valueOr(s.PGUser, "postgres"),
			s.PGPassword,
		)
	default:
		return "file://./data"
	}
}

// ObjectStore configures artifact publishing to an S3 compatible bucket.
type ObjectStore struct {
	Endpoint  string `envconfig:"ARTIFACT_ENDPOINT"`
	Bucket    string `envconfig:"ARTIFACT_BUCKET"`
	AccessKey string `envconfig:"ARTIFACT_ACCESS_KEY"`
	SecretKey string `envconfig:"ARTIFACT_SECRET_KEY"`
	UseSSL    bool   `envconfig:"ARTIFACT_USE_SSL" default:"false"`
}

// Enabled reports whether artifacts should be published.
func (o ObjectStore) Enabled() bool {
	return o.Endpoint != "" && o.Bucket != ""
}

// Load reads .env (when present) and the environment into Settings.
func Load() (Settings, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var settings Settings

	err = envconfig.Process("", &settings)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to process environment: %w", err)
	}

	err = settings.Validate()
	if err != nil {
		return Settings{}, err
	}

	return settings, nil
}

// Validate checks the struct tags of the settings.
func (s Settings) Validate() error {
	err := validate.Struct(s)
	if err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	return nil
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
