package config

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backends accepted by DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
)

// Keys are the environment variable names, also used as viper keys.
const (
	KeyPort               = "PORT"
	KeyDataBackend        = "DATA_BACKEND"
	KeyLedgerCSVPath      = "LEDGER_CSV_PATH"
	KeyDataDir            = "DATA_DIR"
	KeySQLiteDBPath       = "SQLITE_DB_PATH"
	KeyAMQPURL            = "AMQP_URL"
	KeyAMQPExchange       = "AMQP_EXCHANGE"
	KeyAMQPQueue          = "AMQP_QUEUE"
	KeySpreadsheetID      = "GOOGLE_SPREADSHEET_ID"
	KeySheetName          = "GOOGLE_SHEET_NAME"
	KeyServiceAccountJSON = "GOOGLE_SERVICE_ACCOUNT_JSON"
	KeyServiceAccountFile = "GOOGLE_SERVICE_ACCOUNT_FILE"
	KeyMirrorBatchSize    = "MIRROR_BATCH_SIZE"
	KeyMirrorInterval     = "MIRROR_INTERVAL"
	KeyLogLevel           = "LOG_LEVEL"
	KeyLogFormat          = "LOG_FORMAT"
	KeyRateLimitPerSecond = "RATE_LIMIT_PER_SECOND"
	KeyRateLimitBurst     = "RATE_LIMIT_BURST"
	KeyWorkerMetricsAddr  = "WORKER_METRICS_ADDR"

	// KeyConfigFile optionally names a YAML/TOML/JSON file with the same keys.
	KeyConfigFile = "FINTRACK_CONFIG"
)

var validBackends = []string{BackendMemory, BackendCSV, BackendSQLite, BackendSheets}

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend   string
	LedgerCSVPath string
	DataDir       string
	SQLiteDBPath  string

	// AMQP; an empty URL disables event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Mirror worker
	MirrorBatchSize int
	MirrorInterval  time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Rate limiting of write requests
	RateLimitPerSecond float64
	RateLimitBurst     int

	// WorkerMetricsAddr is where the mirror worker serves /metrics; empty
	// disables it
	WorkerMetricsAddr string
}

// Defaults registers the default value of every key on v.
func Defaults(v *viper.Viper) {
	v.SetDefault(KeyPort, "8081")
	v.SetDefault(KeyDataBackend, BackendCSV)
	v.SetDefault(KeyLedgerCSVPath, "./data/ledger.csv")
	v.SetDefault(KeyDataDir, "data")
	v.SetDefault(KeySQLiteDBPath, "./data/fintrack.db")
	v.SetDefault(KeyAMQPURL, "")
	v.SetDefault(KeyAMQPExchange, "fintrack")
	v.SetDefault(KeyAMQPQueue, "ledger_mirror")
	v.SetDefault(KeySpreadsheetID, "")
	v.SetDefault(KeySheetName, "Ledger")
	v.SetDefault(KeyServiceAccountJSON, "")
	v.SetDefault(KeyServiceAccountFile, "")
	v.SetDefault(KeyMirrorBatchSize, 10)
	v.SetDefault(KeyMirrorInterval, 30*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyRateLimitPerSecond, 2.0)
	v.SetDefault(KeyRateLimitBurst, 10)
	v.SetDefault(KeyWorkerMetricsAddr, "")
}

// NewViper returns a viper instance with defaults, environment binding and,
// when FINTRACK_CONFIG is set, the named config file.
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	Defaults(v)
	v.AutomaticEnv()
	if file := v.GetString(KeyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}
	return v, nil
}

// Load reads the configuration from the environment and optional file.
func Load() (*Config, error) {
	v, err := NewViper()
	if err != nil {
		return nil, err
	}
	return LoadFrom(v), nil
}

// LoadFrom builds a Config from an already prepared viper instance, such as
// one with command-line flags bound to the keys above.
func LoadFrom(v *viper.Viper) *Config {
	return &Config{
		Port: v.GetString(KeyPort),

		DataBackend:   strings.ToLower(strings.TrimSpace(v.GetString(KeyDataBackend))),
		LedgerCSVPath: v.GetString(KeyLedgerCSVPath),
		DataDir:       v.GetString(KeyDataDir),
		SQLiteDBPath:  v.GetString(KeySQLiteDBPath),

		AMQPURL:      v.GetString(KeyAMQPURL),
		AMQPExchange: v.GetString(KeyAMQPExchange),
		AMQPQueue:    v.GetString(KeyAMQPQueue),

		GoogleSpreadsheetID:      v.GetString(KeySpreadsheetID),
		GoogleSheetName:          v.GetString(KeySheetName),
		GoogleServiceAccountJSON: v.GetString(KeyServiceAccountJSON),
		GoogleServiceAccountFile: v.GetString(KeyServiceAccountFile),

		MirrorBatchSize: v.GetInt(KeyMirrorBatchSize),
		MirrorInterval:  v.GetDuration(KeyMirrorInterval),

		LogLevel:  v.GetString(KeyLogLevel),
		LogFormat: v.GetString(KeyLogFormat),

		RateLimitPerSecond: v.GetFloat64(KeyRateLimitPerSecond),
		RateLimitBurst:     v.GetInt(KeyRateLimitBurst),

		WorkerMetricsAddr: v.GetString(KeyWorkerMetricsAddr),
	}
}

// HasSheets reports whether a spreadsheet is configured.
func (c *Config) HasSheets() bool {
	return strings.TrimSpace(c.GoogleSpreadsheetID) != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendCSV:
		if strings.TrimSpace(c.LedgerCSVPath) == "" {
			errors = append(errors, "ledger CSV path cannot be empty when using csv backend")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLiteDBPath) == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendSheets:
		if !c.HasSheets() {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.MirrorBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid mirror batch size %d: must be at least 1", c.MirrorBatchSize))
	} else if c.MirrorBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid mirror batch size %d: must be at most 1000", c.MirrorBatchSize))
	}

	if c.MirrorInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid mirror interval %v: must be at least 1 second", c.MirrorInterval))
	} else if c.MirrorInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid mirror interval %v: must be at most 24 hours", c.MirrorInterval))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if c.RateLimitPerSecond <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitPerSecond))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker checks the settings the mirror worker cannot run without.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required by the mirror worker")
	}
	if !c.HasSheets() {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required by the mirror worker")
	}
	if len(errors) > 0 {
		return fmt.Errorf("worker configuration invalid:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
