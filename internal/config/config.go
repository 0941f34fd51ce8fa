package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

const (
	BackendSQL    = "sql"
	BackendBadger = "badger"

	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

type Config struct {
	Port            string   `yaml:"port"`
	UploadDir       string   `yaml:"upload_dir"`
	MaxUploadBytes  int64    `yaml:"max_upload_bytes"`
	MetadataBackend string   `yaml:"metadata_backend"`
	BadgerPath      string   `yaml:"badger_path"`
	DB              DBConfig `yaml:"database"`
	LogLevel        string   `yaml:"log_level"`
	LogFormat       string   `yaml:"log_format"`
	LogFile         string   `yaml:"log_file"`
}

// DBConfig holds the relational connection parameters. Path is only used by
// the sqlite dialect.
type DBConfig struct {
	Dialect  string `yaml:"dialect"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

func defaults() *Config {
	return &Config{
		Port:            "3001",
		UploadDir:       "./uploads",
		MaxUploadBytes:  50 * 1024 * 1024,
		MetadataBackend: BackendSQL,
		BadgerPath:      "./photato-meta",
		DB: DBConfig{
			Dialect:  DialectSQLite,
			Path:     "./photato.db",
			Host:     "localhost",
			Username: "root",
			Name:     "photato",
			SSLMode:  "disable",
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load returns the defaults overridden by the environment.
func Load() *Config {
	cfg := defaults()
	applyEnv(cfg)
	return cfg
}

// LoadFile reads a YAML config file on top of the defaults. Environment
// variables still take precedence over values from the file.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.UploadDir = getEnv("UPLOAD_DIR", cfg.UploadDir)
	cfg.MaxUploadBytes = getEnvInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.MetadataBackend = getEnv("METADATA_BACKEND", cfg.MetadataBackend)
	cfg.BadgerPath = getEnv("BADGER_PATH", cfg.BadgerPath)
	cfg.DB.Dialect = getEnv("DB_DIALECT", cfg.DB.Dialect)
	cfg.DB.Path = getEnv("DB_PATH", cfg.DB.Path)
	cfg.DB.Host = getEnv("DB_HOST", cfg.DB.Host)
	cfg.DB.Port = getEnv("DB_PORT", cfg.DB.Port)
	cfg.DB.Username = getEnv("DB_USERNAME", cfg.DB.Username)
	cfg.DB.Password = getEnv("DB_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = getEnv("DB_NAME", cfg.DB.Name)
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", cfg.DB.SSLMode)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
}

func (c *Config) ListenAddr() string {
	return ":" + c.Port
}

// DSN returns the database/sql driver name and data source name for the
// configured dialect.
func (c DBConfig) DSN() (driver, dsn string, err error) {
	switch c.Dialect {
	case DialectSQLite:
		return "sqlite", fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", c.Path), nil
	case DialectPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.Username, c.Password),
			Host:     net.JoinHostPort(c.Host, c.portOr("5432")),
			Path:     "/" + c.Name,
			RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
		}
		return "postgres", u.String(), nil
	case DialectMySQL:
		mc := mysql.NewConfig()
		mc.User = c.Username
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, c.portOr("3306"))
		mc.DBName = c.Name
		mc.ParseTime = true
		mc.MultiStatements = true
		return "mysql", mc.FormatDSN(), nil
	default:
		return "", "", fmt.Errorf("unsupported database dialect %q", c.Dialect)
	}
}

func (c DBConfig) portOr(def string) string {
	if c.Port == "" {
		return def
	}
	return c.Port
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultVal
	}
	return n
}
