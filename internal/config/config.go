package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "replay_sampler.cfg.json"

// EnvPrefix prefixes environment overrides, e.g. REPLAY_SAMPLER_LOGLEVEL.
const EnvPrefix = "REPLAY_SAMPLER"

// SamplerConfig holds extraction settings
type SamplerConfig struct {
	IncludeAbilities bool `json:"includeAbilities" mapstructure:"includeAbilities"`
}

// OutputConfig holds snapshot stream settings
type OutputConfig struct {
	Compress bool `json:"compress" mapstructure:"compress"`
}

// DBConfig holds postgres connection settings
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// SQLiteConfig holds sqlite archive settings
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// ArchiveConfig selects the snapshot archive backend
type ArchiveConfig struct {
	Type   string       `json:"type" mapstructure:"type"` // none, sqlite or postgres
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
	DB     DBConfig     `json:"db" mapstructure:"db"`
}

// InfluxConfig holds timeline export settings
type InfluxConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Host      string `json:"host" mapstructure:"host"`
	Port      string `json:"port" mapstructure:"port"`
	Protocol  string `json:"protocol" mapstructure:"protocol"`
	Token     string `json:"token" mapstructure:"token"`
	Org       string `json:"org" mapstructure:"org"`
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	BackupDir string `json:"backupDir" mapstructure:"backupDir"`
}

// WebsocketConfig holds live snapshot streaming settings
type WebsocketConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	Secret  string `json:"secret" mapstructure:"secret"`
}

// GraylogConfig holds GELF log shipping settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// OTelConfig holds OpenTelemetry log export settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// MetricsConfig holds run metrics settings
type MetricsConfig struct {
	Textfile string `json:"textfile" mapstructure:"textfile"`
}

// MonitorConfig holds progress reporting settings
type MonitorConfig struct {
	StatusFile string        `json:"statusFile" mapstructure:"statusFile"`
	Interval   time.Duration `json:"interval" mapstructure:"interval"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./samplerlogs")

	viper.SetDefault("sampler.includeAbilities", false)
	viper.SetDefault("output.compress", false)

	viper.SetDefault("archive.type", "none")
	viper.SetDefault("archive.sqlite.path", "./archive.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "replays")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "replay-sampler")
	viper.SetDefault("influx.bucket", "match_timeline")
	viper.SetDefault("influx.backupDir", "./influxbackup")

	viper.SetDefault("websocket.enabled", false)
	viper.SetDefault("websocket.url", "ws://localhost:5000/api/live")
	viper.SetDefault("websocket.secret", "")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "replay-sampler")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("metrics.textfile", "")

	viper.SetDefault("monitor.statusFile", "")
	viper.SetDefault("monitor.interval", "10s")
}

// Load reads configuration from the JSON file in configDir and sets default values.
// A .env file next to it is loaded into the environment first; environment
// variables prefixed with REPLAY_SAMPLER_ override file values.
func Load(configDir string) error {
	setDefaults()

	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// BindFlags binds command line flags to their config keys. Flags that are not
// registered on fs are skipped.
func BindFlags(fs *pflag.FlagSet) error {
	bindings := map[string]string{
		"logLevel":                 "log-level",
		"output.compress":          "compress",
		"sampler.includeAbilities": "abilities",
	}
	for key, flag := range bindings {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSamplerConfig returns the extraction settings.
func GetSamplerConfig() SamplerConfig {
	return SamplerConfig{
		IncludeAbilities: viper.GetBool("sampler.includeAbilities"),
	}
}

// GetOutputConfig returns the snapshot stream settings.
func GetOutputConfig() OutputConfig {
	return OutputConfig{
		Compress: viper.GetBool("output.compress"),
	}
}

// GetArchiveConfig returns the archive backend settings.
func GetArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Type: viper.GetString("archive.type"),
		SQLite: SQLiteConfig{
			Path: viper.GetString("archive.sqlite.path"),
		},
		DB: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetInfluxConfig returns the timeline export settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:   viper.GetBool("influx.enabled"),
		Host:      viper.GetString("influx.host"),
		Port:      viper.GetString("influx.port"),
		Protocol:  viper.GetString("influx.protocol"),
		Token:     viper.GetString("influx.token"),
		Org:       viper.GetString("influx.org"),
		Bucket:    viper.GetString("influx.bucket"),
		BackupDir: viper.GetString("influx.backupDir"),
	}
}

// GetWebsocketConfig returns the live streaming settings.
func GetWebsocketConfig() WebsocketConfig {
	return WebsocketConfig{
		Enabled: viper.GetBool("websocket.enabled"),
		URL:     viper.GetString("websocket.url"),
		Secret:  viper.GetString("websocket.secret"),
	}
}

// GetGraylogConfig returns the GELF shipping settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetMetricsConfig returns the run metrics settings.
func GetMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Textfile: viper.GetString("metrics.textfile"),
	}
}

// GetMonitorConfig returns the progress reporting settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		StatusFile: viper.GetString("monitor.statusFile"),
		Interval:   viper.GetDuration("monitor.interval"),
	}
}
