package config

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"

	"sqlmodel-graphql/internal/introspection"
	"sqlmodel-graphql/internal/model"
	"sqlmodel-graphql/internal/naming"
	"sqlmodel-graphql/internal/schemafilter"
)

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult contains the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns a combined error message if there are validation errors.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors and returns validation results.
// Sections that the selected source does not use are skipped. serve enables
// the server checks.
func (c *Config) Validate(serve bool) *ValidationResult {
	result := &ValidationResult{}

	switch c.Source {
	case SourceDefinitions:
		if strings.TrimSpace(c.Definitions.Path) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "definitions.path",
				Message: "definitions path is required when source is definitions",
				Hint:    "set definitions.path or use --source=database",
			})
		}
	case SourceDatabase:
		c.Database.validate(result)
		validateSchemaFilters(result, c.SchemaFilters)
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "source",
			Message: fmt.Sprintf("invalid source %q", c.Source),
			Hint:    "valid values are: definitions, database",
		})
	}

	c.Mapping.validate(result)
	validateNamingConfig(result, c.Naming)
	c.Output.validate(result)
	if serve {
		c.Server.validate(result)
	}
	c.Observability.validate(result)

	return result
}

func (m *MappingConfig) validate(result *ValidationResult) {
	if !introspection.JunctionMode(m.JunctionMode).Valid() {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "mapping.junction_mode",
			Message: fmt.Sprintf("invalid junction mode %q", m.JunctionMode),
			Hint:    "valid values are: entity, hide, many_to_many",
		})
	}
	if m.JunctionMode == string(introspection.JunctionsManyToMany) {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "mapping.junction_mode",
			Message: "many_to_many relationships are rejected by the mapper",
			Hint:    "use entity or hide unless the failure is intended",
		})
	}
	if m.StrictSuffix && strings.TrimSpace(m.ModelSuffix) == "" {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "mapping.strict_suffix",
			Message: "strict_suffix has no effect without model_suffix",
		})
	}
	for tag, patterns := range m.TypeOverrides {
		if !model.ColumnType(tag).Known() {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "mapping.type_overrides",
				Message: fmt.Sprintf("unknown column type %q", tag),
			})
			continue
		}
		validateGlobList(result, "mapping.type_overrides."+tag, patterns)
	}
}

func (o *OutputConfig) validate(result *ValidationResult) {
	if o.Format != "text" && o.Format != "json" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "output.format",
			Message: fmt.Sprintf("invalid output format %q", o.Format),
			Hint:    "valid values are: text, json",
		})
	}
}

func validateSchemaFilters(result *ValidationResult, filters schemafilter.Config) {
	validateGlobList(result, "schema_filters.allow_tables", filters.AllowTables)
	validateGlobList(result, "schema_filters.deny_tables", filters.DenyTables)
	validatePatternMap(result, "schema_filters.allow_columns", filters.AllowColumns)
	validatePatternMap(result, "schema_filters.deny_columns", filters.DenyColumns)
}

func validateNamingConfig(result *ValidationResult, cfg naming.Config) {
	for singular, plural := range cfg.PluralOverrides {
		if strings.TrimSpace(singular) == "" || strings.TrimSpace(plural) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "naming.plural_overrides",
				Message: "override keys and values cannot be empty",
			})
		}
	}
	for plural, singular := range cfg.SingularOverrides {
		if strings.TrimSpace(singular) == "" || strings.TrimSpace(plural) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "naming.singular_overrides",
				Message: "override keys and values cannot be empty",
			})
		}
	}
}

func validatePatternMap(result *ValidationResult, field string, patternMap map[string][]string) {
	for tablePattern, columnPatterns := range patternMap {
		if strings.TrimSpace(tablePattern) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Message: "table pattern cannot be empty",
			})
			continue
		}
		if _, err := path.Match(strings.ToLower(tablePattern), "probe"); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid table glob pattern %q: %v", tablePattern, err),
			})
		}
		for _, columnPattern := range columnPatterns {
			if strings.TrimSpace(columnPattern) == "" {
				result.Errors = append(result.Errors, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("column pattern for table pattern %q cannot be empty", tablePattern),
				})
				continue
			}
			if _, err := path.Match(strings.ToLower(columnPattern), "probe"); err != nil {
				result.Errors = append(result.Errors, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("invalid column glob pattern %q for table pattern %q: %v", columnPattern, tablePattern, err),
				})
			}
		}
	}
}

func (d *DatabaseConfig) validate(result *ValidationResult) {
	driver := d.NormalizedDriver()
	switch driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.driver",
			Message: fmt.Sprintf("unsupported database driver %q", d.Driver),
			Hint:    "valid values are: mysql, postgres, sqlite",
		})
		return
	}

	if d.Port < 0 || d.Port > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.port",
			Message: fmt.Sprintf("port %d is out of valid range (1-65535)", d.Port),
		})
	}

	if _, err := d.DSN(); err != nil {
		field := "database.dsn"
		if driver == DriverSQLite {
			field = "database.path"
		}
		result.Errors = append(result.Errors, ValidationError{
			Field:   field,
			Message: err.Error(),
		})
	}

	if driver == DriverMySQL {
		if _, err := d.SchemaName(); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "database.database",
				Message: err.Error(),
				Hint:    "set database.database or include a /database in database.dsn",
			})
		}
	}

	if driver == DriverSQLite && d.TLS.Mode != "" {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "database.tls.mode",
			Message: "TLS settings are ignored for sqlite",
		})
	} else {
		d.TLS.validate(result)
	}

	if d.Pool.MaxOpen < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.pool.max_open",
			Message: "max_open cannot be negative",
		})
	}
	if d.Pool.MaxIdle < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.pool.max_idle",
			Message: "max_idle cannot be negative",
		})
	}
	if d.Pool.MaxIdle > d.Pool.MaxOpen && d.Pool.MaxOpen > 0 {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "database.pool.max_idle",
			Message: "max_idle is greater than max_open",
			Hint:    "idle connections will be limited to max_open",
		})
	}

	if d.ConnectionTimeout < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.connection_timeout",
			Message: "connection_timeout cannot be negative",
		})
	}
	if d.ConnectionRetryInterval < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.connection_retry_interval",
			Message: "connection_retry_interval cannot be negative",
		})
	}
	if d.ConnectionTimeout > 0 && d.ConnectionRetryInterval == 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.connection_retry_interval",
			Message: "connection_retry_interval must be greater than 0 when connection_timeout is set",
			Hint:    "set a retry interval such as 2s, or set connection_timeout to 0 to disable retries",
		})
	}
}

func (t *DatabaseTLSConfig) validate(result *ValidationResult) {
	validModes := map[string]bool{"": true, "off": true, "skip-verify": true, "verify-ca": true, "verify-full": true}
	if !validModes[t.Mode] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.tls.mode",
			Message: fmt.Sprintf("invalid TLS mode %q", t.Mode),
			Hint:    "valid values are: off, skip-verify, verify-ca, verify-full",
		})
	}

	if (t.Mode == "verify-ca" || t.Mode == "verify-full") && t.CAFile == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.tls.ca_file",
			Message: "CA file is required for verify-ca and verify-full modes",
		})
	}

	if (t.CertFile != "") != (t.KeyFile != "") {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.tls.cert_file",
			Message: "both cert_file and key_file must be specified for client certificate authentication",
			Hint:    "provide both cert_file and key_file, or neither",
		})
	}

	if t.Mode == "skip-verify" {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "database.tls.mode",
			Message: "skip-verify mode does not verify server certificates",
			Hint:    "use verify-ca or verify-full in production",
		})
	}
}

func (s *ServerConfig) validate(result *ValidationResult) {
	s.validateTLS(result)

	if s.GraphQLMaxDepth < 0 || s.GraphQLMaxFields < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.graphql_max_depth",
			Message: "GraphQL query limits cannot be negative",
			Hint:    "use 0 to disable a limit",
		})
	}

	if s.Port < 1 || s.Port > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port %d is out of valid range (1-65535)", s.Port),
		})
	}

	if s.SchemaRefreshMinInterval < 0 || s.SchemaRefreshMaxInterval < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.schema_refresh_min_interval",
			Message: "schema refresh intervals cannot be negative",
		})
	}
	if s.SchemaRefreshMaxInterval > 0 && s.SchemaRefreshMaxInterval < s.SchemaRefreshMinInterval {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "server.schema_refresh_max_interval",
			Message: "schema_refresh_max_interval is less than schema_refresh_min_interval",
			Hint:    "the minimum interval will be used for both",
		})
	}

	if s.Admin.SchemaReloadEnabled && strings.TrimSpace(s.Admin.AuthToken) == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.admin.auth_token",
			Message: "an admin auth token is required when schema reload is enabled",
			Hint:    "set server.admin.auth_token or server.admin.auth_token_file",
		})
	}

	if s.RateLimitEnabled {
		if s.RateLimitRPS <= 0 {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "server.rate_limit_rps",
				Message: "rate_limit_rps must be greater than 0 when rate limiting is enabled",
			})
		}
		if s.RateLimitBurst <= 0 {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "server.rate_limit_burst",
				Message: "rate_limit_burst must be greater than 0 when rate limiting is enabled",
			})
		}
	}
	if !s.RateLimitEnabled && (s.RateLimitRPS > 0 || s.RateLimitBurst > 0) {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "server.rate_limit_enabled",
			Message: "rate limit values are set but rate limiting is disabled",
			Hint:    "enable server.rate_limit_enabled to apply rate limits",
		})
	}

	if s.CORSEnabled {
		if len(s.CORSAllowedOrigins) == 0 {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "server.cors_allowed_origins",
				Message: "CORS enabled but no allowed origins configured",
				Hint:    "set cors_allowed_origins or disable CORS",
			})
		}

		hasWildcard := false
		for _, origin := range s.CORSAllowedOrigins {
			if strings.TrimSpace(origin) == "*" {
				hasWildcard = true
				break
			}
		}
		if hasWildcard && s.CORSAllowCredentials {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "server.cors_allowed_origins",
				Message: "wildcard origin (*) cannot be used with credentials",
				Hint:    "use specific origins with credentials, or wildcard without credentials",
			})
		}
		if hasWildcard {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Field:   "server.cors_allowed_origins",
				Message: "CORS wildcard origin enabled",
				Hint:    "use specific origins in production for better security",
			})
		}
	}
}

func validateGlobList(result *ValidationResult, field string, patterns []string) {
	for _, pattern := range patterns {
		if strings.TrimSpace(pattern) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Message: "glob pattern cannot be empty",
			})
			continue
		}
		if _, err := path.Match(strings.ToLower(pattern), "probe"); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid glob pattern %q: %v", pattern, err),
			})
		}
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[o.Logging.Level] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.level",
			Message: fmt.Sprintf("invalid log level %q", o.Logging.Level),
			Hint:    "valid values are: debug, info, warn, error",
		})
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[o.Logging.Format] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.format",
			Message: fmt.Sprintf("invalid log format %q", o.Logging.Format),
			Hint:    "valid values are: json, text",
		})
	}

	if o.TraceSampleRatio < 0 || o.TraceSampleRatio > 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.trace_sample_ratio",
			Message: fmt.Sprintf("trace_sample_ratio %v must be between 0 and 1", o.TraceSampleRatio),
		})
	}

	if o.SQLCommenterEnabled && !o.TracingEnabled {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "observability.sqlcommenter_enabled",
			Message: "sqlcommenter requires tracing to be enabled",
		})
	}

	o.OTLP.validate("observability.otlp", result)
	if o.Traces != nil {
		o.Traces.validate("observability.traces", result)
	}
	if o.Logs != nil {
		o.Logs.validate("observability.logs", result)
	}
}

func (o *OTLPConfig) validate(prefix string, result *ValidationResult) {
	validProtocols := map[string]bool{"": true, "grpc": true, "http": true, "http/protobuf": true}
	if !validProtocols[o.Protocol] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".protocol",
			Message: fmt.Sprintf("invalid OTLP protocol %q", o.Protocol),
			Hint:    "valid values are: grpc, http/protobuf",
		})
	}

	if o.Protocol == "http/protobuf" && !validOTLPEndpoint(o.Endpoint) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".endpoint",
			Message: fmt.Sprintf("invalid OTLP endpoint %q for http/protobuf", o.Endpoint),
			Hint:    "use host:port or a full URL",
		})
	}

	validCompressions := map[string]bool{"": true, "none": true, "gzip": true}
	if !validCompressions[o.Compression] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".compression",
			Message: fmt.Sprintf("invalid OTLP compression %q", o.Compression),
			Hint:    "valid values are: none, gzip",
		})
	}

	if o.RetryMaxAttempts < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".retry_max_attempts",
			Message: "retry_max_attempts cannot be negative",
		})
	}
}

func validOTLPEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	if strings.Contains(endpoint, "://") {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return parsed.Host != ""
	}
	_, _, err := net.SplitHostPort(endpoint)
	return err == nil
}

func (s *ServerConfig) validateTLS(result *ValidationResult) {
	switch strings.ToLower(strings.TrimSpace(s.TLSMode)) {
	case "", "off":
	case "file":
		if strings.TrimSpace(s.TLSCertFile) == "" || strings.TrimSpace(s.TLSKeyFile) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "server.tls_cert_file",
				Message: "tls_mode file requires both tls_cert_file and tls_key_file",
			})
		}
	case "auto":
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "server.tls_mode",
			Message: "self-signed certificates are for development only",
			Hint:    "use tls_mode file with a CA-issued certificate in production",
		})
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.tls_mode",
			Message: fmt.Sprintf("unsupported tls_mode %q", s.TLSMode),
			Hint:    "valid modes: off, file, auto",
		})
	}
}
