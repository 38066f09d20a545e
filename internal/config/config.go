package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/toolsascode/restorm/internal/version"

	"gopkg.in/yaml.v3"
)

// Env is the deployment environment name
type Env string

const (
	EnvLocal       Env = "local"
	EnvDevelopment Env = "development"
	EnvStaging     Env = "staging"
	EnvProduction  Env = "production"
)

const (
	// EnvPrefix is the prefix of every service specific environment variable
	EnvPrefix = "RESTORM_"
	// EnvPrefixDB is the prefix of database environment variables
	EnvPrefixDB = EnvPrefix + "DB_"

	defaultConfigFile = "configs/config.yml"
)

// Config holds the application configuration
type Config struct {
	Env     Env    `yaml:"env"`
	Debug   bool   `yaml:"debug"`
	TZ      string `yaml:"tz"`
	Version string `yaml:"-"`

	API        APIConfig        `yaml:"api"`
	App        AppConfig        `yaml:"app"`
	DB         DBConfig         `yaml:"db"`
	Logger     LoggerConfig     `yaml:"logger"`
	Migration  MigrationConfig  `yaml:"migration"`
	Events     EventsConfig     `yaml:"events"`
	GRPC       GRPCConfig       `yaml:"grpc"`
	Entrypoint EntrypointConfig `yaml:"entrypoint"`
}

// APIConfig holds the versioned API path settings
type APIConfig struct {
	Version string `yaml:"version"`
	Prefix  string `yaml:"prefix"` // may contain {api_version}
	Token   string `yaml:"token"`  // bearer token of the migration admin routes
}

// CORSConfig holds cross origin settings
type CORSConfig struct {
	AllowOrigins     []string `yaml:"allow_origins"`
	AllowMethods     []string `yaml:"allow_methods"`
	AllowHeaders     []string `yaml:"allow_headers"`
	ExposeHeaders    []string `yaml:"expose_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// DocsConfig holds interactive API documentation settings
type DocsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// AppConfig holds web server and filesystem layout settings
type AppConfig struct {
	Name           string     `yaml:"name"`
	Slug           string     `yaml:"slug"`
	BindHost       string     `yaml:"bind_host"`
	Port           int        `yaml:"port"`
	BehindProxy    bool       `yaml:"behind_proxy"`
	TrustedProxies []string   `yaml:"trusted_proxies"`
	Dir            string     `yaml:"dir"`
	DataDir        string     `yaml:"data_dir"` // may contain {app_slug}
	LogsDir        string     `yaml:"logs_dir"` // may contain {app_slug}
	CORS           CORSConfig `yaml:"cors"`
	Docs           DocsConfig `yaml:"docs"`
}

// DBConfig holds relational database settings
type DBConfig struct {
	Dialect               string `yaml:"dialect"` // "postgres" or "sqlite"
	Host                  string `yaml:"host"`
	Port                  string `yaml:"port"`
	Username              string `yaml:"username"`
	Password              string `yaml:"password"`
	Database              string `yaml:"database"`
	SSLMode               string `yaml:"sslmode"`
	DSNURL                string `yaml:"dsn_url"`
	ReadDSNURL            string `yaml:"read_dsn_url"`
	MaxTryConnect         int    `yaml:"max_try_connect"`
	WaitSecondsTryConnect int    `yaml:"wait_seconds_try_connect"`
	EchoSQL               bool   `yaml:"echo_sql"`
	PoolSize              int    `yaml:"pool_size"`
	MaxOverflow           int    `yaml:"max_overflow"`
	PoolRecycle           int    `yaml:"pool_recycle"` // seconds, -1 means never
	PoolTimeout           int    `yaml:"pool_timeout"` // seconds
	SelectLimit           int    `yaml:"select_limit"`
	SelectMaxLimit        int    `yaml:"select_max_limit"`
	SelectIsDesc          bool   `yaml:"select_is_desc"`
}

// LoggerConfig holds logging settings
type LoggerConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	FileEnabled bool   `yaml:"file_enabled"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAgeDays  int    `yaml:"max_age_days"`
}

// MigrationConfig holds schema migration settings
type MigrationConfig struct {
	Dir            string   `yaml:"dir"`  // empty means the embedded revisions
	Lock           string   `yaml:"lock"` // "none", "postgres" or "etcd"
	LockKey        int64    `yaml:"lock_key"`
	EtcdEndpoints  []string `yaml:"etcd_endpoints"`
	EtcdLockPrefix string   `yaml:"etcd_lock_prefix"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	RunOnStart     bool     `yaml:"run_on_start"`
}

// EventsConfig holds resource change event publishing settings
type EventsConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Type         string   `yaml:"type"` // "kafka" or "pulsar"
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
	PulsarURL    string   `yaml:"pulsar_url"`
	PulsarTopic  string   `yaml:"pulsar_topic"`
}

// GRPCConfig holds the gRPC health server settings
type GRPCConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// EntrypointConfig holds container startup settings
type EntrypointConfig struct {
	User       string `yaml:"user"`
	UID        int    `yaml:"uid"` // -1 keeps the current owner
	GID        int    `yaml:"gid"`
	SudoersDir string `yaml:"sudoers_dir"`
	Shell      string `yaml:"shell"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		Env:     EnvLocal,
		TZ:      "UTC",
		Version: version.Version,
		API: APIConfig{
			Version: "v1",
			Prefix:  "/api/{api_version}",
		},
		App: AppConfig{
			Name:        "REST ORM Template",
			Slug:        "restorm",
			BindHost:    "0.0.0.0",
			Port:        8000,
			BehindProxy: true,
			Dir:         "/app",
			DataDir:     "/var/lib/{app_slug}",
			LogsDir:     "/var/log/{app_slug}",
			CORS: CORSConfig{
				AllowOrigins: []string{"*"},
				AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowHeaders: []string{"*"},
				MaxAge:       600,
			},
			Docs: DocsConfig{
				Enabled: true,
				Title:   "REST ORM Template API",
			},
		},
		DB: DBConfig{
			Dialect:               "postgres",
			Host:                  "localhost",
			Port:                  "5432",
			Username:              "restorm_user",
			Password:              "restorm_password1",
			Database:              "restorm_db",
			SSLMode:               "disable",
			MaxTryConnect:         3,
			WaitSecondsTryConnect: 10,
			PoolSize:              10,
			MaxOverflow:           10,
			PoolRecycle:           10800,
			PoolTimeout:           30,
			SelectLimit:           100,
			SelectMaxLimit:        100000,
			SelectIsDesc:          true,
		},
		Logger: LoggerConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Migration: MigrationConfig{
			Lock:           "none",
			LockKey:        7231946028,
			EtcdEndpoints:  []string{"localhost:2379"},
			EtcdLockPrefix: "/restorm/migration-lock",
			TimeoutSeconds: 300,
		},
		Events: EventsConfig{
			Type:         "kafka",
			KafkaBrokers: []string{"localhost:9092"},
			KafkaTopic:   "restorm-events",
			PulsarURL:    "pulsar://localhost:6650",
			PulsarTopic:  "restorm-events",
		},
		GRPC: GRPCConfig{
			Port: 9090,
		},
		Entrypoint: EntrypointConfig{
			UID:        -1,
			GID:        -1,
			SudoersDir: "/etc/sudoers.d",
			Shell:      "/bin/bash",
		},
	}
}

// LoadFromEnv loads defaults, then the optional YAML config file, then environment variables
func LoadFromEnv() (*Config, error) {
	config := Default()

	path := os.Getenv(EnvPrefix + "CONFIG_FILE")
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		if err := LoadFile(path, config); err != nil {
			return nil, err
		}
	}

	envErr := applyEnv(config)
	config.finalize()

	if err := errors.Join(envErr, config.Validate()); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFile overlays the YAML file at path onto config
func LoadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays environment variables onto config and reports values that do not parse
func applyEnv(config *Config) error {
	env := &envReader{}
	config.Env = Env(strings.ToLower(getEnvOrDefault("ENV", string(config.Env))))
	// DEBUG is shared with other tools, so values that do not parse are ignored
	if debug, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil {
		config.Debug = debug
	}
	config.TZ = getEnvOrDefault("TZ", config.TZ)

	// API
	config.API.Version = getEnvOrDefault(EnvPrefix+"API_VERSION", config.API.Version)
	config.API.Prefix = getEnvOrDefault(EnvPrefix+"API_PREFIX", config.API.Prefix)
	config.API.Token = getEnvOrDefault(EnvPrefix+"API_TOKEN", config.API.Token)

	// App
	app := &config.App
	app.Name = getEnvOrDefault(EnvPrefix+"APP_NAME", app.Name)
	app.Slug = getEnvOrDefault(EnvPrefix+"APP_SLUG", app.Slug)
	app.BindHost = getEnvOrDefault(EnvPrefix+"APP_BIND_HOST", app.BindHost)
	app.Port = env.intValue(EnvPrefix+"APP_PORT", app.Port)
	app.BehindProxy = env.boolValue(EnvPrefix+"APP_BEHIND_PROXY", app.BehindProxy)
	app.TrustedProxies = getEnvList(EnvPrefix+"APP_TRUSTED_PROXIES", app.TrustedProxies)
	app.Dir = getEnvOrDefault(EnvPrefix+"APP_DIR", app.Dir)
	app.DataDir = getEnvOrDefault(EnvPrefix+"APP_DATA_DIR", app.DataDir)
	app.LogsDir = getEnvOrDefault(EnvPrefix+"APP_LOGS_DIR", app.LogsDir)
	app.CORS.AllowOrigins = getEnvList(EnvPrefix+"APP_CORS_ALLOW_ORIGINS", app.CORS.AllowOrigins)
	app.CORS.AllowMethods = getEnvList(EnvPrefix+"APP_CORS_ALLOW_METHODS", app.CORS.AllowMethods)
	app.CORS.AllowHeaders = getEnvList(EnvPrefix+"APP_CORS_ALLOW_HEADERS", app.CORS.AllowHeaders)
	app.CORS.ExposeHeaders = getEnvList(EnvPrefix+"APP_CORS_EXPOSE_HEADERS", app.CORS.ExposeHeaders)
	app.CORS.AllowCredentials = env.boolValue(EnvPrefix+"APP_CORS_ALLOW_CREDENTIALS", app.CORS.AllowCredentials)
	app.CORS.MaxAge = env.intValue(EnvPrefix+"APP_CORS_MAX_AGE", app.CORS.MaxAge)
	app.Docs.Enabled = env.boolValue(EnvPrefix+"APP_DOCS_ENABLED", app.Docs.Enabled)
	app.Docs.Title = getEnvOrDefault(EnvPrefix+"APP_DOCS_TITLE", app.Docs.Title)

	// Database
	db := &config.DB
	db.Dialect = strings.ToLower(getEnvOrDefault(EnvPrefixDB+"DIALECT", db.Dialect))
	db.Host = getEnvOrDefault(EnvPrefixDB+"HOST", db.Host)
	db.Port = getEnvOrDefault(EnvPrefixDB+"PORT", db.Port)
	db.Username = getEnvOrDefault(EnvPrefixDB+"USERNAME", db.Username)
	db.Password = getEnvOrDefault(EnvPrefixDB+"PASSWORD", db.Password)
	db.Database = getEnvOrDefault(EnvPrefixDB+"DATABASE", db.Database)
	db.SSLMode = getEnvOrDefault(EnvPrefixDB+"SSLMODE", db.SSLMode)
	db.DSNURL = getEnvOrDefault(EnvPrefixDB+"DSN_URL", db.DSNURL)
	db.ReadDSNURL = getEnvOrDefault(EnvPrefixDB+"READ_DSN_URL", db.ReadDSNURL)
	db.MaxTryConnect = env.intValue(EnvPrefixDB+"MAX_TRY_CONNECT", db.MaxTryConnect)
	db.WaitSecondsTryConnect = env.intValue(EnvPrefixDB+"WAIT_SECONDS_TRY_CONNECT", db.WaitSecondsTryConnect)
	db.EchoSQL = env.boolValue(EnvPrefixDB+"ECHO_SQL", db.EchoSQL)
	db.PoolSize = env.intValue(EnvPrefixDB+"POOL_SIZE", db.PoolSize)
	db.MaxOverflow = env.intValue(EnvPrefixDB+"MAX_OVERFLOW", db.MaxOverflow)
	db.PoolRecycle = env.intValue(EnvPrefixDB+"POOL_RECYCLE", db.PoolRecycle)
	db.PoolTimeout = env.intValue(EnvPrefixDB+"POOL_TIMEOUT", db.PoolTimeout)
	db.SelectLimit = env.intValue(EnvPrefixDB+"SELECT_LIMIT", db.SelectLimit)
	db.SelectMaxLimit = env.intValue(EnvPrefixDB+"SELECT_MAX_LIMIT", db.SelectMaxLimit)
	db.SelectIsDesc = env.boolValue(EnvPrefixDB+"SELECT_IS_DESC", db.SelectIsDesc)

	// Read replica from parts, only when all of them are present
	if db.ReadDSNURL == "" && hasAllEnv(EnvPrefixDB+"READ_", "HOST", "PORT", "USERNAME", "PASSWORD", "DATABASE") {
		db.ReadDSNURL = buildPostgresDSN(
			os.Getenv(EnvPrefixDB+"READ_USERNAME"),
			os.Getenv(EnvPrefixDB+"READ_PASSWORD"),
			os.Getenv(EnvPrefixDB+"READ_HOST"),
			os.Getenv(EnvPrefixDB+"READ_PORT"),
			os.Getenv(EnvPrefixDB+"READ_DATABASE"),
			db.SSLMode,
		)
	}

	// Logger
	lg := &config.Logger
	lg.Level = getEnvOrDefault(EnvPrefix+"LOGGER_LEVEL", lg.Level)
	lg.Format = getEnvOrDefault(EnvPrefix+"LOGGER_FORMAT", lg.Format)
	lg.FileEnabled = env.boolValue(EnvPrefix+"LOGGER_FILE_ENABLED", lg.FileEnabled)
	lg.MaxSizeMB = env.intValue(EnvPrefix+"LOGGER_MAX_SIZE_MB", lg.MaxSizeMB)
	lg.MaxBackups = env.intValue(EnvPrefix+"LOGGER_MAX_BACKUPS", lg.MaxBackups)
	lg.MaxAgeDays = env.intValue(EnvPrefix+"LOGGER_MAX_AGE_DAYS", lg.MaxAgeDays)

	// Migration
	mg := &config.Migration
	mg.Dir = getEnvOrDefault(EnvPrefix+"MIGRATION_DIR", mg.Dir)
	mg.Lock = strings.ToLower(getEnvOrDefault(EnvPrefix+"MIGRATION_LOCK", mg.Lock))
	mg.LockKey = int64(env.intValue(EnvPrefix+"MIGRATION_LOCK_KEY", int(mg.LockKey)))
	mg.EtcdEndpoints = getEnvList(EnvPrefix+"MIGRATION_ETCD_ENDPOINTS", mg.EtcdEndpoints)
	mg.EtcdLockPrefix = getEnvOrDefault(EnvPrefix+"MIGRATION_ETCD_LOCK_PREFIX", mg.EtcdLockPrefix)
	mg.TimeoutSeconds = env.intValue(EnvPrefix+"MIGRATION_TIMEOUT_SECONDS", mg.TimeoutSeconds)
	mg.RunOnStart = env.boolValue(EnvPrefix+"MIGRATION_RUN_ON_START", mg.RunOnStart)

	// Events
	ev := &config.Events
	ev.Enabled = env.boolValue(EnvPrefix+"EVENTS_ENABLED", ev.Enabled)
	ev.Type = strings.ToLower(getEnvOrDefault(EnvPrefix+"EVENTS_TYPE", ev.Type))
	if brokers := os.Getenv(EnvPrefix + "EVENTS_KAFKA_BROKERS"); brokers != "" {
		ev.KafkaBrokers = splitList(brokers)
	} else if host := os.Getenv(EnvPrefix + "EVENTS_KAFKA_HOST"); host != "" {
		port := getEnvOrDefault(EnvPrefix+"EVENTS_KAFKA_PORT", "9092")
		ev.KafkaBrokers = []string{fmt.Sprintf("%s:%s", host, port)}
	}
	ev.KafkaTopic = getEnvOrDefault(EnvPrefix+"EVENTS_KAFKA_TOPIC", ev.KafkaTopic)
	ev.PulsarURL = getEnvOrDefault(EnvPrefix+"EVENTS_PULSAR_URL", ev.PulsarURL)
	ev.PulsarTopic = getEnvOrDefault(EnvPrefix+"EVENTS_PULSAR_TOPIC", ev.PulsarTopic)

	// gRPC
	config.GRPC.Enabled = env.boolValue(EnvPrefix+"GRPC_ENABLED", config.GRPC.Enabled)
	config.GRPC.Port = env.intValue(EnvPrefix+"GRPC_PORT", config.GRPC.Port)

	// Entrypoint
	ep := &config.Entrypoint
	ep.User = getEnvOrDefault(EnvPrefix+"ENTRYPOINT_USER", ep.User)
	ep.UID = env.intValue(EnvPrefix+"ENTRYPOINT_UID", ep.UID)
	ep.GID = env.intValue(EnvPrefix+"ENTRYPOINT_GID", ep.GID)
	ep.SudoersDir = getEnvOrDefault(EnvPrefix+"ENTRYPOINT_SUDOERS_DIR", ep.SudoersDir)
	ep.Shell = getEnvOrDefault(EnvPrefix+"ENTRYPOINT_SHELL", ep.Shell)

	return errors.Join(env.errs...)
}

// finalize expands placeholders and fills derived values
func (c *Config) finalize() {
	c.Version = version.Version
	c.API.Prefix = strings.TrimRight(strings.ReplaceAll(c.API.Prefix, "{api_version}", c.API.Version), "/")
	c.App.DataDir = strings.ReplaceAll(c.App.DataDir, "{app_slug}", c.App.Slug)
	c.App.LogsDir = strings.ReplaceAll(c.App.LogsDir, "{app_slug}", c.App.Slug)

	if c.DB.DSNURL == "" {
		switch c.DB.Dialect {
		case "sqlite":
			c.DB.DSNURL = c.DB.Database
		default:
			c.DB.DSNURL = buildPostgresDSN(c.DB.Username, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
		}
	}
	if c.DB.ReadDSNURL == "" {
		c.DB.ReadDSNURL = c.DB.DSNURL
	}

	if c.Debug {
		c.DB.EchoSQL = true
		c.Logger.Level = "debug"
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var errs []error

	switch c.Env {
	case EnvLocal, EnvDevelopment, EnvStaging, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("invalid ENV %q (supported: local, development, staging, production)", c.Env))
	}

	if c.Env == EnvStaging || c.Env == EnvProduction {
		if _, ok := os.LookupEnv(EnvPrefixDB + "DSN_URL"); !ok && !hasAllEnv(EnvPrefixDB, "HOST", "PORT", "USERNAME", "PASSWORD", "DATABASE") {
			errs = append(errs, fmt.Errorf("missing required '%s*' environment variables for %s environment", EnvPrefixDB, c.Env))
		}
	}

	if c.API.Version == "" {
		errs = append(errs, errors.New("API version must not be empty"))
	}
	if c.App.Port < 80 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("app port %d out of range [80, 65535]", c.App.Port))
	}

	switch c.DB.Dialect {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported database dialect: %s (supported: postgres, sqlite)", c.DB.Dialect))
	}
	if c.DB.MaxTryConnect < 1 || c.DB.MaxTryConnect > 100 {
		errs = append(errs, fmt.Errorf("db max_try_connect %d out of range [1, 100]", c.DB.MaxTryConnect))
	}
	if c.DB.WaitSecondsTryConnect < 1 || c.DB.WaitSecondsTryConnect > 600 {
		errs = append(errs, fmt.Errorf("db wait_seconds_try_connect %d out of range [1, 600]", c.DB.WaitSecondsTryConnect))
	}
	if c.DB.SelectMaxLimit < 1 {
		errs = append(errs, errors.New("db select_max_limit must be positive"))
	}
	if c.DB.SelectLimit < 1 || c.DB.SelectLimit > c.DB.SelectMaxLimit {
		errs = append(errs, fmt.Errorf("db select_limit %d out of range [1, %d]", c.DB.SelectLimit, c.DB.SelectMaxLimit))
	}

	switch c.Migration.Lock {
	case "none", "postgres", "etcd":
	default:
		errs = append(errs, fmt.Errorf("unsupported migration lock: %s (supported: none, postgres, etcd)", c.Migration.Lock))
	}
	if c.Migration.Lock == "postgres" && c.DB.Dialect != "postgres" {
		errs = append(errs, errors.New("postgres migration lock requires the postgres dialect"))
	}

	if c.Events.Enabled {
		switch c.Events.Type {
		case "kafka", "pulsar":
		default:
			errs = append(errs, fmt.Errorf("unsupported events type: %s (supported: kafka, pulsar)", c.Events.Type))
		}
	}

	return errors.Join(errs...)
}

// IsProduction reports whether internal error details must be hidden
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction && !c.Debug
}

// buildPostgresDSN assembles a postgres URL, escaping credentials
func buildPostgresDSN(username, password, host, port, database, sslmode string) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(username, password),
		Host:   host + ":" + port,
		Path:   "/" + database,
	}
	if sslmode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(sslmode)
	}
	return u.String()
}

func hasAllEnv(prefix string, keys ...string) bool {
	for _, key := range keys {
		if _, ok := os.LookupEnv(prefix + key); !ok {
			return false
		}
	}
	return true
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed environment variables, collecting the values that do not parse
type envReader struct {
	errs []error
}

func (r *envReader) intValue(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid integer %s=%q", key, value))
		return defaultValue
	}
	return intValue
}

func (r *envReader) boolValue(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid boolean %s=%q", key, value))
		return defaultValue
	}
	return boolValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return splitList(value)
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
