package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/crimescope/engine"
	"github.com/spektr-org/crimescope/schema"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CRIMESCOPE_"

type Data struct {
	Path    string         `yaml:"path"`
	Columns schema.Columns `yaml:"columns"`
}

type Report struct {
	Highlighted []string `yaml:"highlighted"`
	TopN        int      `yaml:"top_n"`
	TableLimit  int      `yaml:"table_limit"`
}

type Cache struct {
	Enabled    bool `yaml:"enabled"`
	MaxEntries int  `yaml:"max_entries"`
}

type Server struct {
	ListenAddress string        `yaml:"listen_address"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	RateLimit     float64       `yaml:"rate_limit"` // requests per second, 0 = unlimited
	RateBurst     int           `yaml:"rate_burst"`
}

type Reload struct {
	Schedule string `yaml:"schedule"` // cron spec, empty = never
}

type Config struct {
	Data   Data   `yaml:"data"`
	Report Report `yaml:"report"`
	Cache  Cache  `yaml:"cache"`
	Server Server `yaml:"server"`
	Reload Reload `yaml:"reload"`
}

// Default returns a config with every default applied.
func Default() *Config {
	c := &Config{Cache: Cache{Enabled: true}}
	c.applyDefaults()
	return c
}

// Load reads a YAML config file and applies defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML config bytes and applies defaults.
func Parse(b []byte) (*Config, error) {
	c := Config{Cache: Cache{Enabled: true}}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	c.Data.Columns = schema.DefaultColumns().Merge(c.Data.Columns)
	if len(c.Report.Highlighted) == 0 {
		c.Report.Highlighted = append([]string(nil), engine.DefaultHighlighted...)
	}
	if c.Report.TopN == 0 {
		c.Report.TopN = engine.DefaultTopN
	}
	if c.Report.TableLimit == 0 {
		c.Report.TableLimit = engine.DefaultTableLimit
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 256
	}
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst == 0 {
		c.Server.RateBurst = int(c.Server.RateLimit) + 1
	}
}

// LoadEnv loads a .env file into the process environment when one exists.
// A missing file is not an error; explicit files must exist.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values from CRIMESCOPE_* variables.
func (c *Config) ApplyEnv() error {
	if v, ok := lookup("DATA_PATH"); ok {
		c.Data.Path = v
	}
	if v, ok := lookup("LISTEN_ADDRESS"); ok {
		c.Server.ListenAddress = v
	}
	if v, ok := lookup("RELOAD_SCHEDULE"); ok {
		c.Reload.Schedule = v
	}
	if v, ok := lookup("HIGHLIGHTED"); ok {
		var cats []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cats = append(cats, s)
			}
		}
		c.Report.Highlighted = cats
	}
	if v, ok := lookup("TOP_N"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sTOP_N: %w", EnvPrefix, err)
		}
		c.Report.TopN = n
	}
	if v, ok := lookup("CACHE_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sCACHE_ENABLED: %w", EnvPrefix, err)
		}
		c.Cache.Enabled = b
	}
	if v, ok := lookup("RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sRATE_LIMIT: %w", EnvPrefix, err)
		}
		c.Server.RateLimit = f
		if c.Server.RateBurst == 0 {
			c.Server.RateBurst = int(f) + 1
		}
	}
	return nil
}

// EngineOptions converts the report section into engine options.
func (c *Config) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithHighlighted(c.Report.Highlighted...),
		engine.WithTopN(c.Report.TopN),
	}
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}
