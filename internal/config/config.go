// Package config loads the registration server's settings from environment
// variables. Every field carries its variable name, default and handling in
// struct tags (see setting); Load reports every invalid value at once.
package config

import (
	"strconv"
	"time"
)

// Store backends accepted by STORE_BACKEND.
const (
	BackendFile     = "file"
	BackendMongo    = "mongo"
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Mongo   MongoConfig
	Sheets  SheetsConfig
	SQL     SQLConfig
	Mail    MailConfig
	Rate    RateLimitConfig
	Admin   AdminConfig
	Proxy   ProxyConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: all interfaces)
	Host string `env:"SERVER_HOST"`

	// Port is the port to listen on (default: 5000)
	Port int `env:"PORT" envAlt:"SERVER_PORT" default:"5000"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds a single request through chi's Timeout middleware.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StoreConfig selects the record store used for the lifetime of the process.
type StoreConfig struct {
	// Backend is one of: file, mongo, sheets, postgres (default: file)
	Backend string `env:"STORE_BACKEND" default:"file" oneof:"file,mongo,sheets,postgres"`

	// DataFile is the spreadsheet path for the file backend.
	DataFile string `env:"DATA_FILE" default:"data/formData.xlsx"`
}

// MongoConfig holds document database settings.
type MongoConfig struct {
	URI        string `env:"MONGODB_URI" secret:"true"`
	Database   string `env:"MONGODB_DATABASE" default:"richway"`
	Collection string `env:"MONGODB_COLLECTION" default:"members"`
}

// SheetsConfig holds the service account and target of the remote spreadsheet.
// None of these are required: a misconfigured sheet is logged at startup and
// appends fail softly.
type SheetsConfig struct {
	ServiceAccountEmail string `env:"GOOGLE_SERVICE_ACCOUNT_EMAIL"`
	PrivateKey          string `env:"GOOGLE_PRIVATE_KEY" pem:"true" secret:"true"`
	SheetID             string `env:"GOOGLE_SHEET_ID"`
}

// SQLConfig holds PostgreSQL settings for the postgres backend.
type SQLConfig struct {
	URL          string `env:"DATABASE_URL" envAlt:"DB_URL" secret:"true"`
	MaxOpenConns int    `env:"DB_MAX_CONNS" default:"10"`
}

// MailConfig holds SMTP credentials and background dispatch limits.
type MailConfig struct {
	User     string `env:"EMAIL_USER"`
	Password string `env:"EMAIL_PASS" secret:"true"`
	Host     string `env:"SMTP_HOST" default:"smtp.gmail.com"`
	Port     int    `env:"SMTP_PORT" default:"587"`
	FromName string `env:"MAIL_FROM_NAME" default:"RICH WAY"`

	// MaxConcurrent caps in-flight welcome emails (default: 4)
	MaxConcurrent int `env:"MAIL_MAX_CONCURRENT" default:"4"`

	// SendTimeout bounds one delivery attempt (default: 30s)
	SendTimeout time.Duration `env:"MAIL_SEND_TIMEOUT" default:"30s"`
}

// Enabled reports whether SMTP credentials are configured.
func (c *MailConfig) Enabled() bool {
	return c.User != ""
}

// RateLimitConfig holds per-IP limits for the submit endpoint. Off unless enabled.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"false"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// AdminConfig guards the admin endpoints. The guard is off by default, which
// leaves /api/admin/* open to anyone who can reach the server.
type AdminConfig struct {
	RequireAPIKey bool     `env:"ADMIN_REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"ADMIN_API_KEYS" secret:"true"`
}

// ProxyConfig lists proxies whose X-Real-IP / X-Forwarded-For are trusted.
type ProxyConfig struct {
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info" oneof:"debug,info,warn,error"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text" oneof:"text,json"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
