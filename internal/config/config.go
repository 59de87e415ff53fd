package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the name of the JSON config file looked up in the config directory.
const FileName = "tarkov_dev.cfg.json"

// FileStorageConfig holds the file snapshot backend settings
type FileStorageConfig struct {
	Dir      string `json:"dir" mapstructure:"dir"`
	Compress bool   `json:"compress" mapstructure:"compress"`
}

// SQLiteStorageConfig holds the sqlite snapshot backend settings.
// An empty path selects an in-memory database, optionally dumped to DumpPath.
type SQLiteStorageConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// MirrorConfig points the data cache job at a remote websocket mirror.
// An empty URL disables mirroring.
type MirrorConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the snapshot storage backend
type StorageConfig struct {
	Type   string              `json:"type" mapstructure:"type"`
	File   FileStorageConfig   `json:"file" mapstructure:"file"`
	SQLite SQLiteStorageConfig `json:"sqlite" mapstructure:"sqlite"`
	Mirror MirrorConfig        `json:"mirror" mapstructure:"mirror"`
}

// DatabaseConfig holds postgres connection settings
type DatabaseConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// DSN renders the connection string understood by the postgres driver.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// APIConfig holds the remote GraphQL API settings
type APIConfig struct {
	URL     string        `json:"url" mapstructure:"url"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// SiteConfig holds the public addressing used in rendered pages
type SiteConfig struct {
	Origin    string `json:"origin" mapstructure:"origin"`
	PublicURL string `json:"publicUrl" mapstructure:"publicUrl"`
}

// OverlayConfig holds the overlay switches
type OverlayConfig struct {
	ShowAnnotations bool `json:"showAnnotations" mapstructure:"showAnnotations"`
	MarkersVisible  bool `json:"markersVisible" mapstructure:"markersVisible"`
}

// DataConfig points at the map catalog and annotation sources
type DataConfig struct {
	MapsFile string `json:"mapsFile" mapstructure:"mapsFile"`
	// AnnotationsFile is a fixture of per-map spawns and markers. A map listed in it
	// keeps the fixture set; annotations derived from the cached maps document only
	// fill in maps the fixture leaves out.
	AnnotationsFile string `json:"annotationsFile" mapstructure:"annotationsFile"`
}

// InfluxConfig locates the InfluxDB server that receives cache run and map view points.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// URL is the server address handed to the client.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled        bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName    string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout   time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	MetricInterval time.Duration `json:"metricInterval" mapstructure:"metricInterval"`
	Endpoint       string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `json:"insecure" mapstructure:"insecure"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.allowedOrigin", "")
	viper.SetDefault("server.refreshQuestsOnStart", true)

	viper.SetDefault("api.url", "https://api.tarkov.dev/graphql")
	viper.SetDefault("api.timeout", "30s")

	viper.SetDefault("assets.origin", "https://assets.tarkov.dev")

	viper.SetDefault("site.origin", "https://tarkov.dev")
	viper.SetDefault("site.publicUrl", "")

	viper.SetDefault("data.mapsFile", "")
	viper.SetDefault("data.annotationsFile", "")

	viper.SetDefault("overlays.showAnnotations", true)
	viper.SetDefault("overlays.markersVisible", false)

	viper.SetDefault("cache.languages", []string{"cs", "de", "es", "fr", "hu", "it", "ja", "pl", "pt", "ru", "sk", "tr", "zh"})
	viper.SetDefault("cache.timeout", "10m")

	viper.SetDefault("storage.type", "file")
	viper.SetDefault("storage.file.dir", "./public/data")
	viper.SetDefault("storage.file.compress", false)
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.mirror.url", "")
	viper.SetDefault("storage.mirror.secret", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "tarkovdev")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "tarkov-dev")
	viper.SetDefault("influx.bucket", "site")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "tarkov-dev")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.metricInterval", "1m")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
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

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetStringSlice returns a string slice config value.
func GetStringSlice(key string) []string {
	return viper.GetStringSlice(key)
}

// GetStorageConfig returns the snapshot storage section.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		File: FileStorageConfig{
			Dir:      viper.GetString("storage.file.dir"),
			Compress: viper.GetBool("storage.file.compress"),
		},
		SQLite: SQLiteStorageConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Mirror: MirrorConfig{
			URL:    viper.GetString("storage.mirror.url"),
			Secret: viper.GetString("storage.mirror.secret"),
		},
	}
}

// GetDatabaseConfig returns the postgres connection section.
func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetAPIConfig returns the remote API section.
func GetAPIConfig() APIConfig {
	return APIConfig{
		URL:     viper.GetString("api.url"),
		Timeout: viper.GetDuration("api.timeout"),
	}
}

// GetSiteConfig returns the public addressing section.
func GetSiteConfig() SiteConfig {
	return SiteConfig{
		Origin:    viper.GetString("site.origin"),
		PublicURL: viper.GetString("site.publicUrl"),
	}
}

// GetOverlayConfig returns the overlay switches.
func GetOverlayConfig() OverlayConfig {
	return OverlayConfig{
		ShowAnnotations: viper.GetBool("overlays.showAnnotations"),
		MarkersVisible:  viper.GetBool("overlays.markersVisible"),
	}
}

// GetDataConfig returns the catalog source section.
func GetDataConfig() DataConfig {
	return DataConfig{
		MapsFile:        viper.GetString("data.mapsFile"),
		AnnotationsFile: viper.GetString("data.annotationsFile"),
	}
}

// GetOTelConfig returns the OpenTelemetry section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
	}
}

func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Protocol: viper.GetString("influx.protocol"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}
