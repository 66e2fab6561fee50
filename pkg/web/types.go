// Package web provides HTTP request and response types for the data assistant API.
package web

import (
	"strconv"
	"strings"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/models"
)

// PreviewRows is the number of result rows returned by POST /run.
const PreviewRows = 5

// DBTestRows is the number of rows POST /db/test reads.
const DBTestRows = 5

// RunRequest represents the request body of POST /run. Connection and mail
// fields are optional per-run overrides of the server settings.
type RunRequest struct {
	Question  string  `json:"question"   validate:"required"`
	UserID    string  `json:"user_id"`
	DBType    string  `json:"db_type"    validate:"omitempty,oneof=mysql postgres postgresql sqlite sqlserver mongodb"`
	Host      *string `json:"host"`
	Port      *int    `json:"port"       validate:"omitempty,min=1,max=65535"`
	Name      *string `json:"name"`
	User      *string `json:"user"`
	Password  *string `json:"password"`
	Table     *string `json:"table"`
	DSN       *string `json:"dsn"`
	SSLMode   *string `json:"sslmode"`
	EmailFrom string  `json:"email_from"`
	EmailTo   string  `json:"email_to"`
	EmailKey  string  `json:"email_key"`
	UseEnv    bool    `json:"use_env"`
}

// Overrides builds the per-run override bag. With UseEnv the server's data
// connection seeds the bag and explicit fields still win.
func (r RunRequest) Overrides(env config.Settings) map[string]any {
	overrides := map[string]any{}

	if r.UseEnv {
		envConnection(overrides, env, true)
	}

	if r.DBType != "" {
		overrides["DATA_DB_TYPE"] = r.DBType
	}

	connectionFields(overrides, r.Host, r.Port, r.Name, r.User, r.Password, r.Table, r.SSLMode)

	if r.DSN != nil {
		overrides["DATA_DSN"] = *r.DSN
	}

	if r.EmailFrom != "" {
		overrides["EMAIL_FROM"] = r.EmailFrom
	}

	if r.EmailTo != "" {
		overrides["EMAIL_TO"] = r.EmailTo
	}

	if r.EmailKey != "" {
		overrides["SENDGRID_API_KEY"] = r.EmailKey
	}

	return overrides
}

// RunResponse is the body of a finished POST /run.
type RunResponse struct {
	Status    string                         `json:"status"`
	Reason    string                         `json:"reason,omitempty"`
	RunID     string                         `json:"run_id"`
	Query     string                         `json:"query,omitempty"`
	Artifacts models.Artifacts               `json:"artifacts"`
	Published map[models.ArtifactKind]string `json:"published,omitempty"`
	Preview   []models.Row                   `json:"preview"`
}

// DBTestRequest represents the request body of POST /db/test.
type DBTestRequest struct {
	DBType   string `json:"db_type"  validate:"required"`
	Host     string `json:"host"`
	Port     int    `json:"port"     validate:"omitempty,min=1,max=65535"`
	Name     string `json:"name"`
	User     string `json:"user"`
	Password string `json:"password"`
	Table    string `json:"table"`
	DSN      string `json:"dsn"`
	SSLMode  string `json:"sslmode"`
	UseEnv   bool   `json:"use_env"`
}

// DataSource resolves the connection to probe. With UseEnv the server's data
// settings are used and only the table may be overridden.
func (r DBTestRequest) DataSource(env config.Settings) config.DataSource {
	if r.UseEnv {
		data := env.Data
		data.Type = r.DBType

		if r.Table != "" {
			data.Table = r.Table
		}

		return data
	}

	data := config.DataSource{
		Type:     r.DBType,
		Host:     r.Host,
		Name:     r.Name,
		User:     r.User,
		Password: r.Password,
		Table:    r.Table,
		DSN:      r.DSN,
		SSLMode:  r.SSLMode,
	}

	if data.Host == "" {
		data.Host = "localhost"
	}

	// Other kinds keep an empty port so the DSN builders apply their own default.
	switch {
	case r.Port != 0:
		data.Port = strconv.Itoa(r.Port)
	case data.Kind() == config.SourceMySQL:
		data.Port = "3306"
	case data.Kind() == config.SourcePostgres:
		data.Port = "5432"
	}

	if data.SSLMode == "" && strings.HasSuffix(r.Host, "supabase.com") {
		data.SSLMode = "require"
	}

	return data
}

// DBTestResponse is the body of POST /db/test. Connection problems are
// reported with status "error" rather than an HTTP error.
type DBTestResponse struct {
	Status string       `json:"status"`
	Rows   []models.Row `json:"rows,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// ScheduleJobRequest represents the request body of POST /scheduler/add.
type ScheduleJobRequest struct {
	Question  string `json:"question"  validate:"required"`
	Frequency string `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	Time      string `json:"time"      validate:"required"`
	// UserID is accepted for compatibility; scheduled runs always belong to
	// the scheduler user.
	UserID   string  `json:"user_id"`
	DSN      string  `json:"dsn"`
	Host     *string `json:"host"`
	Port     *int    `json:"port"      validate:"omitempty,min=1,max=65535"`
	Name     *string `json:"name"`
	User     *string `json:"user"`
	Password *string `json:"password"`
	Table    *string `json:"table"`
	SSLMode  *string `json:"sslmode"`
	UseEnv   bool    `json:"use_env"`
}

// Overrides builds the override bag stored with the job. The source type
// defaults to postgres.
func (r ScheduleJobRequest) Overrides(env config.Settings) map[string]any {
	overrides := map[string]any{"DATA_DB_TYPE": config.SourcePostgres}

	if r.UseEnv {
		envConnection(overrides, env, false)
	}

	if r.DSN != "" {
		overrides["DATA_DSN"] = r.DSN
	}

	connectionFields(overrides, r.Host, r.Port, r.Name, r.User, r.Password, r.Table, r.SSLMode)

	return overrides
}

// envConnection copies the server's data connection: its DSN when one is
// set, the PG* parameters otherwise.
func envConnection(overrides map[string]any, env config.Settings, withType bool) {
	if withType && env.Data.Type != "" {
		overrides["DATA_DB_TYPE"] = env.Data.Type
	}

	dsn := firstNonEmpty(env.Data.DSN, env.Store.PoolerDSN, env.Store.DirectDSN)
	if dsn != "" {
		overrides["DATA_DSN"] = dsn

		return
	}

	setIfNotEmpty(overrides, "DATA_HOST", env.Store.PGHost)
	setIfNotEmpty(overrides, "DATA_PORT", env.Store.PGPort)
	setIfNotEmpty(overrides, "DATA_NAME", env.Store.PGDatabase)
	setIfNotEmpty(overrides, "DATA_USER", env.Store.PGUser)
	setIfNotEmpty(overrides, "DATA_PASSWORD", env.Store.PGPassword)

	overrides["DATA_SSLMODE"] = firstNonEmpty(env.Data.SSLMode, "require")
}

func connectionFields(overrides map[string]any, host *string, port *int, name, user, password, table, sslmode *string) {
	setIfPresent(overrides, "DATA_HOST", host)
	setIfPresent(overrides, "DATA_NAME", name)
	setIfPresent(overrides, "DATA_USER", user)
	setIfPresent(overrides, "DATA_PASSWORD", password)
	setIfPresent(overrides, "DATA_TABLE", table)
	setIfPresent(overrides, "DATA_SSLMODE", sslmode)

	if port != nil {
		overrides["DATA_PORT"] = strconv.Itoa(*port)
	}
}

func setIfPresent(overrides map[string]any, key string, value *string) {
	if value != nil {
		overrides[key] = *value
	}
}

func setIfNotEmpty(overrides map[string]any, key, value string) {
	if value != "" {
		overrides[key] = value
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}
