// Package config loads process settings with viper and decodes vehicle
// tuning files onto presets.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/cxd309/vds-engine/internal/vehicle"
)

// FileName is the settings file looked up in the config directory.
const FileName = "vds-engine.cfg.json"

// SimConfig holds defaults for runs started from the command line.
type SimConfig struct {
	Preset   string  `json:"preset" mapstructure:"preset"`
	TimeStep float64 `json:"timeStep" mapstructure:"timeStep"` // seconds
	MaxStep  float64 `json:"maxStep" mapstructure:"maxStep"`   // seconds
}

type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslMode" mapstructure:"sslMode"`
}

// StorageConfig selects the run recorder backend: none, sqlite or postgres.
type StorageConfig struct {
	Type      string         `json:"type" mapstructure:"type"`
	BatchSize int            `json:"batchSize" mapstructure:"batchSize"`
	SQLite    SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres  PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

type InfluxConfig struct {
	Enabled       bool          `json:"enabled" mapstructure:"enabled"`
	Host          string        `json:"host" mapstructure:"host"`
	Port          string        `json:"port" mapstructure:"port"`
	Protocol      string        `json:"protocol" mapstructure:"protocol"`
	Token         string        `json:"token" mapstructure:"token"`
	Org           string        `json:"org" mapstructure:"org"`
	Bucket        string        `json:"bucket" mapstructure:"bucket"`
	BatchSize     int           `json:"batchSize" mapstructure:"batchSize"`
	FlushInterval time.Duration `json:"flushInterval" mapstructure:"flushInterval"`
	BackupPath    string        `json:"backupPath" mapstructure:"backupPath"`
}

// URL is the server address built from protocol, host and port.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	LogFile      string        `json:"logFile" mapstructure:"logFile"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

type AudioConfig struct {
	Enabled    bool    `json:"enabled" mapstructure:"enabled"`
	SampleRate int     `json:"sampleRate" mapstructure:"sampleRate"` // Hz
	Cylinders  int     `json:"cylinders" mapstructure:"cylinders"`
	Volume     float64 `json:"volume" mapstructure:"volume"` // 0..1
	Output     string  `json:"output" mapstructure:"output"`
}

// Load sets defaults and reads FileName from configDir. A missing file
// leaves the defaults in place; a malformed one is an error. VDS_-prefixed
// environment variables override both.
func Load(configDir string) error {
	setDefaults()

	viper.SetEnvPrefix("VDS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.SetConfigType("json")
	viper.AddConfigPath(configDir)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logFile", "")

	viper.SetDefault("sim.preset", string(vehicle.PresetFamilySedan))
	viper.SetDefault("sim.timeStep", 0.02)
	viper.SetDefault("sim.maxStep", 0.05)

	viper.SetDefault("storage.type", "none")
	viper.SetDefault("storage.batchSize", 500)
	viper.SetDefault("storage.sqlite.path", "./vds-runs.db")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "vds")
	viper.SetDefault("storage.postgres.sslMode", "disable")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "vds")
	viper.SetDefault("influx.bucket", "vehicle_telemetry")
	viper.SetDefault("influx.batchSize", 500)
	viper.SetDefault("influx.flushInterval", "1s")
	viper.SetDefault("influx.backupPath", "./influx-backup.lp.gz")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "vds-engine")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.logFile", "./vds-engine.otel.jsonl")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("audio.enabled", false)
	viper.SetDefault("audio.sampleRate", 44100)
	viper.SetDefault("audio.cylinders", 4)
	viper.SetDefault("audio.volume", 0.6)
	viper.SetDefault("audio.output", "./engine.wav")
}

func GetString(key string) string { return viper.GetString(key) }
func GetInt(key string) int       { return viper.GetInt(key) }
func GetBool(key string) bool     { return viper.GetBool(key) }

func GetSimConfig() SimConfig {
	return SimConfig{
		Preset:   viper.GetString("sim.preset"),
		TimeStep: viper.GetFloat64("sim.timeStep"),
		MaxStep:  viper.GetFloat64("sim.maxStep"),
	}
}

func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:      strings.ToLower(viper.GetString("storage.type")),
		BatchSize: viper.GetInt("storage.batchSize"),
		SQLite:    SQLiteConfig{Path: viper.GetString("storage.sqlite.path")},
		Postgres: PostgresConfig{
			Host:     viper.GetString("storage.postgres.host"),
			Port:     viper.GetString("storage.postgres.port"),
			Username: viper.GetString("storage.postgres.username"),
			Password: viper.GetString("storage.postgres.password"),
			Database: viper.GetString("storage.postgres.database"),
			SSLMode:  viper.GetString("storage.postgres.sslMode"),
		},
	}
}

func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:       viper.GetBool("influx.enabled"),
		Host:          viper.GetString("influx.host"),
		Port:          viper.GetString("influx.port"),
		Protocol:      viper.GetString("influx.protocol"),
		Token:         viper.GetString("influx.token"),
		Org:           viper.GetString("influx.org"),
		Bucket:        viper.GetString("influx.bucket"),
		BatchSize:     viper.GetInt("influx.batchSize"),
		FlushInterval: viper.GetDuration("influx.flushInterval"),
		BackupPath:    viper.GetString("influx.backupPath"),
	}
}

func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		LogFile:      viper.GetString("otel.logFile"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

func GetAudioConfig() AudioConfig {
	return AudioConfig{
		Enabled:    viper.GetBool("audio.enabled"),
		SampleRate: viper.GetInt("audio.sampleRate"),
		Cylinders:  viper.GetInt("audio.cylinders"),
		Volume:     viper.GetFloat64("audio.volume"),
		Output:     viper.GetString("audio.output"),
	}
}

// LoadTuning reads a tuning file (any format viper understands) and decodes
// it over a preset. The preset is the file's "preset" key, falling back to
// fallback. Keys the file leaves out keep the preset's values.
func LoadTuning(path, fallback string) (vehicle.Tuning, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return vehicle.Tuning{}, fmt.Errorf("reading tuning %s: %w", path, err)
	}

	name := fallback
	if v.IsSet("preset") {
		name = v.GetString("preset")
	}
	preset, err := vehicle.ParsePreset(name)
	if err != nil {
		return vehicle.Tuning{}, err
	}
	t, err := preset.Tuning()
	if err != nil {
		return vehicle.Tuning{}, err
	}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&t, hook); err != nil {
		return vehicle.Tuning{}, fmt.Errorf("decoding tuning %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return vehicle.Tuning{}, fmt.Errorf("tuning %s: %w", path, err)
	}
	return t, nil
}
