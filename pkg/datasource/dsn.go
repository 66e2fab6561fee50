package datasource

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/go-sql-driver/mysql"
)

const defaultHost = "localhost"

func hostPort(cfg config.DataSource, defaultPort string) string {
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}

	port := cfg.Port
	if port == "" {
		port = defaultPort
	}

	return net.JoinHostPort(host, port)
}

func userInfo(cfg config.DataSource) *url.Userinfo {
	if cfg.Password == "" {
		return url.User(cfg.User)
	}

	return url.UserPassword(cfg.User, cfg.Password)
}

// PostgresDSN returns DATA_DSN when set, otherwise a postgres:// URL. Hosts on
// supabase default to sslmode=require.
func PostgresDSN(cfg config.DataSource) (string, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, nil
	}

	if cfg.User == "" || cfg.Name == "" {
		return "", fmt.Errorf("%w: DATA_USER and DATA_NAME are required for postgres", ErrMissingSetting)
	}

	query := url.Values{}

	sslmode := strings.TrimSpace(cfg.SSLMode)
	if sslmode == "" && strings.Contains(strings.ToLower(cfg.Host), "supabase") {
		sslmode = "require"
	}

	if sslmode != "" {
		query.Set("sslmode", sslmode)
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     userInfo(cfg),
		Host:     hostPort(cfg, "5432"),
		Path:     "/" + cfg.Name,
		RawQuery: query.Encode(),
	}

	return dsn.String(), nil
}

// MySQLDSN formats a go-sql-driver DSN.
func MySQLDSN(cfg config.DataSource) (string, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, nil
	}

	if cfg.User == "" || cfg.Name == "" {
		return "", fmt.Errorf("%w: DATA_USER and DATA_NAME are required for mysql", ErrMissingSetting)
	}

	mysqlConfig := mysql.NewConfig()
	mysqlConfig.User = cfg.User
	mysqlConfig.Passwd = cfg.Password
	mysqlConfig.Net = "tcp"
	mysqlConfig.Addr = hostPort(cfg, "3306")
	mysqlConfig.DBName = cfg.Name
	mysqlConfig.ParseTime = true

	return mysqlConfig.FormatDSN(), nil
}

// SQLitePath returns the database file path held in DATA_NAME.
func SQLitePath(cfg config.DataSource) (string, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, nil
	}

	if cfg.Name == "" {
		return "", fmt.Errorf("%w: set DATA_NAME to the sqlite database file path", ErrMissingSetting)
	}

	return cfg.Name, nil
}

func SQLServerDSN(cfg config.DataSource) (string, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, nil
	}

	if cfg.User == "" || cfg.Name == "" {
		return "", fmt.Errorf("%w: DATA_USER and DATA_NAME are required for sqlserver", ErrMissingSetting)
	}

	query := url.Values{}
	query.Set("database", cfg.Name)

	dsn := url.URL{
		Scheme:   "sqlserver",
		User:     userInfo(cfg),
		Host:     hostPort(cfg, "1433"),
		RawQuery: query.Encode(),
	}

	return dsn.String(), nil
}

// MongoURI builds a mongodb:// URI. Credentials are included only when a user is set.
func MongoURI(cfg config.DataSource) string {
	if dsn := strings.TrimSpace(cfg.DSN); strings.HasPrefix(dsn, "mongodb") {
		return dsn
	}

	uri := url.URL{Scheme: "mongodb", Host: hostPort(cfg, "27017")}
	if cfg.User != "" {
		uri.User = userInfo(cfg)
	}

	return uri.String()
}
