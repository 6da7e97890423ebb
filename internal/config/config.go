// Package config loads runtime configuration from an optional .env file, an
// optional YAML file and WAVE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"wave-platform/internal/models"
	"wave-platform/pkg/database"
	"wave-platform/pkg/logging"
)

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Grid     GridConfig     `yaml:"grid"`
	Source   SourceConfig   `yaml:"source"`
	Mask     MaskConfig     `yaml:"mask"`
	Output   OutputConfig   `yaml:"output"`
	Regrid   RegridConfig   `yaml:"regrid"`
	Schedule string         `yaml:"schedule"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	StaticDir    string        `yaml:"static_dir"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	Path            string        `yaml:"path"` // sqlite only
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// Connection converts the settings into a database connection config.
func (d DatabaseConfig) Connection() *database.Config {
	return &database.Config{
		Driver:          d.Driver,
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		Path:            d.Path,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// GridConfig is the target grid. Nx and Ny are derived from the bounds.
type GridConfig struct {
	La1 float64 `yaml:"la1"`
	La2 float64 `yaml:"la2"`
	Lo1 float64 `yaml:"lo1"`
	Lo2 float64 `yaml:"lo2"`
	Dx  float64 `yaml:"dx"`
	Dy  float64 `yaml:"dy"`
}

// Header converts the grid bounds into a velocity grid header.
func (g GridConfig) Header() models.VelocityGridHeader {
	return models.NewHeader(g.La1, g.La2, g.Lo1, g.Lo2, g.Dx, g.Dy)
}

type SourceConfig struct {
	Kind    string        `yaml:"kind"` // file | openmeteo
	File    string        `yaml:"file"`
	Window  float64       `yaml:"window"`
	Stride  int           `yaml:"stride"`
	Delay   time.Duration `yaml:"delay"`
	BaseURL string        `yaml:"base_url"`
}

type MaskConfig struct {
	Shapefile string `yaml:"shapefile"` // empty selects the built-in rules
}

type OutputConfig struct {
	Path string `yaml:"path"`
}

type RegridConfig struct {
	Workers int `yaml:"workers"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			Host:            "localhost",
			Port:            5432,
			User:            "wave",
			Database:        "wave_platform",
			SSLMode:         "disable",
			Path:            "data/wave-platform.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info"},
		Grid: GridConfig{
			La1: 90, La2: -90,
			Lo1: 0, Lo2: 357.5,
			Dx: 2.5, Dy: 2.5,
		},
		Source: SourceConfig{
			Kind:   "openmeteo",
			Stride: 4,
			Delay:  100 * time.Millisecond,
		},
		Output:   OutputConfig{Path: "data/gfs-wave-data.json"},
		Regrid:   RegridConfig{Workers: 4},
		Schedule: "0 15 4,10,16,22 * * *",
	}
}

// LoadConfig builds the configuration. A missing .env or YAML file is not an
// error; a malformed one is.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	configFile := os.Getenv("WAVE_CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	data, err := os.ReadFile(configFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnvString("WAVE_SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("WAVE_SERVER_PORT", c.Server.Port)
	c.Server.StaticDir = getEnvString("WAVE_STATIC_DIR", c.Server.StaticDir)

	c.Database.Driver = getEnvString("WAVE_DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnvString("WAVE_DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("WAVE_DB_PORT", c.Database.Port)
	c.Database.User = getEnvString("WAVE_DB_USER", c.Database.User)
	c.Database.Password = getEnvString("WAVE_DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnvString("WAVE_DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnvString("WAVE_DB_SSLMODE", c.Database.SSLMode)
	c.Database.Path = getEnvString("WAVE_DB_PATH", c.Database.Path)

	c.Logging.Level = getEnvString("WAVE_LOG_LEVEL", c.Logging.Level)

	c.Grid.Dx = getEnvFloat("WAVE_GRID_DX", c.Grid.Dx)
	c.Grid.Dy = getEnvFloat("WAVE_GRID_DY", c.Grid.Dy)

	c.Source.Kind = getEnvString("WAVE_SOURCE", c.Source.Kind)
	c.Source.File = getEnvString("WAVE_SOURCE_FILE", c.Source.File)
	c.Source.Stride = getEnvInt("WAVE_SOURCE_STRIDE", c.Source.Stride)
	c.Source.Delay = getEnvDuration("WAVE_SOURCE_DELAY", c.Source.Delay)
	c.Source.Window = getEnvFloat("WAVE_SOURCE_WINDOW", c.Source.Window)
	c.Source.BaseURL = getEnvString("WAVE_SOURCE_BASE_URL", c.Source.BaseURL)

	c.Mask.Shapefile = getEnvString("WAVE_MASK_SHAPEFILE", c.Mask.Shapefile)
	c.Output.Path = getEnvString("WAVE_OUTPUT_PATH", c.Output.Path)
	c.Regrid.Workers = getEnvInt("WAVE_REGRID_WORKERS", c.Regrid.Workers)
	c.Schedule = getEnvString("WAVE_SCHEDULE", c.Schedule)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.Database == "" {
			return fmt.Errorf("postgres requires database host and name (set WAVE_DB_HOST and WAVE_DB_NAME)")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("sqlite requires a database path (set WAVE_DB_PATH or database.path)")
		}
	default:
		return fmt.Errorf("unsupported database driver %q (want postgres or sqlite)", c.Database.Driver)
	}

	if c.Grid.Dx <= 0 || c.Grid.Dy <= 0 {
		return fmt.Errorf("grid spacing must be positive (dx=%v, dy=%v)", c.Grid.Dx, c.Grid.Dy)
	}
	if err := c.Grid.Header().Validate(); err != nil {
		return err
	}

	switch c.Source.Kind {
	case "file":
		if c.Source.File == "" {
			return fmt.Errorf("file source requires a sample file (set WAVE_SOURCE_FILE or source.file)")
		}
	case "openmeteo":
	default:
		return fmt.Errorf("unsupported source %q (want file or openmeteo)", c.Source.Kind)
	}
	if c.Source.Stride < 1 {
		return fmt.Errorf("source stride must be at least 1, got %d", c.Source.Stride)
	}

	if c.Source.Window < 0 {
		return fmt.Errorf("source window must not be negative, got %v", c.Source.Window)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("unsupported log level %q", c.Logging.Level)
	}

	if c.Output.Path == "" {
		return fmt.Errorf("output path is required")
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
