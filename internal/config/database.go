package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// tlsConfigName is the name used to register custom TLS configs with the MySQL driver.
const tlsConfigName = "sqlmodel-graphql-custom"

// Supported database drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// NormalizedDriver returns the lower-cased driver with aliases folded.
func (d *DatabaseConfig) NormalizedDriver() string {
	switch driver := strings.ToLower(strings.TrimSpace(d.Driver)); driver {
	case "tidb", "mariadb":
		return DriverMySQL
	case "postgresql", "pg":
		return DriverPostgres
	case "sqlite3":
		return DriverSQLite
	default:
		return driver
	}
}

// DriverName returns the database/sql driver registration name.
func (d *DatabaseConfig) DriverName() string {
	return d.NormalizedDriver()
}

// DSN returns the driver-specific data source name.
// If ConnectionString is set it is used, with MySQL time and TLS settings
// applied; otherwise the DSN is built from the discrete fields.
func (d *DatabaseConfig) DSN() (string, error) {
	switch d.NormalizedDriver() {
	case DriverMySQL:
		return d.mysqlDSN()
	case DriverPostgres:
		return d.postgresDSN()
	case DriverSQLite:
		return d.sqliteDSN()
	default:
		return "", fmt.Errorf("unsupported database driver %q", d.Driver)
	}
}

func (d *DatabaseConfig) mysqlDSN() (string, error) {
	var cfg *mysql.Config
	if dsn := strings.TrimSpace(d.ConnectionString); dsn != "" {
		parsed, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("database.dsn is invalid: %w", err)
		}
		cfg = parsed
	} else {
		cfg = mysql.NewConfig()
		cfg.User = d.User
		cfg.Passwd = d.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.portOrDefault()))
		cfg.DBName = d.Database
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if param := d.effectiveTLSParam(); param != "" && cfg.TLSConfig == "" {
		cfg.TLSConfig = param
	}
	return cfg.FormatDSN(), nil
}

func (d *DatabaseConfig) postgresDSN() (string, error) {
	if dsn := strings.TrimSpace(d.ConnectionString); dsn != "" {
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			if _, err := pq.ParseURL(dsn); err != nil {
				return "", fmt.Errorf("database.dsn is invalid: %w", err)
			}
		}
		return dsn, nil
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.portOrDefault())),
		Path:   "/" + d.Database,
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	query := url.Values{}
	if mode := postgresSSLMode(d.TLS.Mode); mode != "" {
		query.Set("sslmode", mode)
	}
	if d.TLS.CAFile != "" {
		query.Set("sslrootcert", d.TLS.CAFile)
	}
	if d.TLS.CertFile != "" {
		query.Set("sslcert", d.TLS.CertFile)
	}
	if d.TLS.KeyFile != "" {
		query.Set("sslkey", d.TLS.KeyFile)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func (d *DatabaseConfig) sqliteDSN() (string, error) {
	if dsn := strings.TrimSpace(d.ConnectionString); dsn != "" {
		return dsn, nil
	}
	if strings.TrimSpace(d.Path) == "" {
		return "", fmt.Errorf("database.path is required for sqlite")
	}
	return "file:" + d.Path + "?mode=ro", nil
}

func (d *DatabaseConfig) portOrDefault() int {
	if d.Port > 0 {
		return d.Port
	}
	if d.NormalizedDriver() == DriverPostgres {
		return 5432
	}
	return 3306
}

func postgresSSLMode(mode string) string {
	switch mode {
	case "off":
		return "disable"
	case "skip-verify":
		return "require"
	case "verify-ca", "verify-full":
		return mode
	default:
		return ""
	}
}

// SchemaName returns the schema to introspect: database.schema when set,
// the MySQL database name, or the driver default.
func (d *DatabaseConfig) SchemaName() (string, error) {
	if schema := strings.TrimSpace(d.Schema); schema != "" {
		return schema, nil
	}
	switch d.NormalizedDriver() {
	case DriverMySQL:
		if name := strings.TrimSpace(d.Database); name != "" {
			return name, nil
		}
		if dsn := strings.TrimSpace(d.ConnectionString); dsn != "" {
			parsed, err := mysql.ParseDSN(dsn)
			if err != nil {
				return "", fmt.Errorf("database.dsn is invalid: %w", err)
			}
			if parsed.DBName != "" {
				return parsed.DBName, nil
			}
		}
		return "", fmt.Errorf("no database name configured: set database.database or include /<database> in database.dsn")
	case DriverPostgres:
		return "public", nil
	default:
		return "main", nil
	}
}

// effectiveTLSParam returns the MySQL tls parameter for the configured mode.
func (d *DatabaseConfig) effectiveTLSParam() string {
	switch d.TLS.Mode {
	case "":
		return ""
	case "off":
		return "false"
	case "skip-verify":
		return "skip-verify"
	case "verify-ca", "verify-full":
		return tlsConfigName
	default:
		return d.TLS.Mode
	}
}

// RegisterTLS registers a custom TLS configuration with the MySQL driver.
// It must run before the connection is opened in verify-ca or verify-full
// mode and is a no-op otherwise.
func (d *DatabaseConfig) RegisterTLS() error {
	if d.NormalizedDriver() != DriverMySQL {
		return nil
	}
	if d.TLS.Mode != "verify-ca" && d.TLS.Mode != "verify-full" {
		return nil
	}

	tlsCfg, err := d.buildTLSConfig()
	if err != nil {
		return fmt.Errorf("failed to build TLS config: %w", err)
	}
	if err := mysql.RegisterTLSConfig(tlsConfigName, tlsCfg); err != nil {
		return fmt.Errorf("failed to register TLS config: %w", err)
	}
	return nil
}

func (d *DatabaseConfig) buildTLSConfig() (*tls.Config, error) {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if d.TLS.CAFile != "" {
		caCert, err := os.ReadFile(d.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file %q: %w", d.TLS.CAFile, err)
		}
		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate from %q", d.TLS.CAFile)
		}
		tlsCfg.RootCAs = certPool
	}

	switch {
	case d.TLS.CertFile != "" && d.TLS.KeyFile != "":
		cert, err := tls.LoadX509KeyPair(d.TLS.CertFile, d.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	case d.TLS.CertFile != "" || d.TLS.KeyFile != "":
		return nil, fmt.Errorf("both cert_file and key_file must be specified for client certificate authentication")
	}

	if d.TLS.Mode == "verify-full" {
		tlsCfg.ServerName = d.TLS.ServerName
		if tlsCfg.ServerName == "" {
			tlsCfg.ServerName = d.Host
		}
	}

	return tlsCfg, nil
}
