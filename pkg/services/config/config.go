// Package config loads application settings from an optional file, the
// environment and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const EnvPrefix = "SALES_ATLAS"

type Settings struct {
	Server   ServerSettings   `mapstructure:"server"`
	Upload   UploadSettings   `mapstructure:"upload"`
	Analysis AnalysisSettings `mapstructure:"analysis"`
	Report   ReportSettings   `mapstructure:"report"`
	Publish  PublishSettings  `mapstructure:"publish"`
	Log      LogSettings      `mapstructure:"log"`
}

type ServerSettings struct {
	Host            string        `mapstructure:"host" validate:"required"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type UploadSettings struct {
	MaxBytes int64 `mapstructure:"max_bytes" validate:"gt=0"`
}

type AnalysisSettings struct {
	Engine      string `mapstructure:"engine" validate:"oneof=memory duckdb"`
	TopProducts int    `mapstructure:"top_products" validate:"min=1"`
	// Empty means an in-memory database.
	DuckDBPath string `mapstructure:"duckdb_path"`
}

// ReportSettings sizes are in points.
type ReportSettings struct {
	ChartWidth  float64       `mapstructure:"chart_width" validate:"gt=0"`
	ChartHeight float64       `mapstructure:"chart_height" validate:"gt=0"`
	DownloadTTL time.Duration `mapstructure:"download_ttl" validate:"gt=0"`
}

// PublishSettings enable uploading generated reports when Bucket is set.
type PublishSettings struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region" validate:"required_with=Bucket"`
}

type LogSettings struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
}

func (p PublishSettings) Enabled() bool {
	return p.Bucket != ""
}

// Load reads settings from path (when not empty), SALES_ATLAS_* environment
// variables and defaults, in increasing order of precedence: defaults, file,
// environment.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unprefixed names used by the .env file of the web server.
	_ = v.BindEnv("server.host", EnvPrefix+"_SERVER_HOST", "SERVER_HOST")
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "SERVER_PORT")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the struct tags on s.
func Validate(s *Settings) error {
	err := validator.New().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("upload.max_bytes", 32<<20)
	v.SetDefault("analysis.engine", "memory")
	v.SetDefault("analysis.top_products", 10)
	v.SetDefault("analysis.duckdb_path", "")
	v.SetDefault("report.chart_width", 720)
	v.SetDefault("report.chart_height", 288)
	v.SetDefault("report.download_ttl", 30*time.Minute)
	v.SetDefault("publish.bucket", "")
	v.SetDefault("publish.prefix", "reports")
	v.SetDefault("publish.region", "")
	v.SetDefault("log.level", "info")
}
