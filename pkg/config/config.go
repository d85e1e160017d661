// Package config loads the configuration file of tabl.
//
// The configuration may be written in YAML or TOML; the format is chosen by
// the file extension.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"src.tabl.sh/pkg/env"
)

// Config is the content of a configuration file.
type Config struct {
	// DB is the path of the database formulas are saved to.
	DB string `yaml:"db" toml:"db"`
	// Log is the path of the debug log.
	Log string `yaml:"log" toml:"log"`
	// AutoRecalculate sets whether formulas are recalculated as soon as
	// their inputs change.
	AutoRecalculate bool `yaml:"auto-recalculate" toml:"auto-recalculate"`
	// Interval is the default interval of time series.
	Interval Duration `yaml:"interval" toml:"interval"`
	// Tables are created when the shell starts.
	Tables []Table `yaml:"tables" toml:"tables"`
}

// Table describes a table created at startup.
type Table struct {
	Name string `yaml:"name" toml:"name"`
	Rows int    `yaml:"rows" toml:"rows"`
	Cols int    `yaml:"cols" toml:"cols"`
	// Labels are the labels of the columns, in order.
	Labels []string `yaml:"labels" toml:"labels"`
	// Formulas maps addresses such as "col 3" to formulas.
	Formulas map[string]string `yaml:"formulas" toml:"formulas"`
}

// Duration is a time.Duration written as a string such as "1m30s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

func (d Duration) String() string { return time.Duration(d).String() }

// Default returns the configuration used when there is no configuration file.
func Default() *Config {
	return &Config{AutoRecalculate: true, Interval: Duration(time.Second)}
}

// ErrUnknownFormat is returned by Load for files with an unknown extension.
var ErrUnknownFormat = errors.New("unknown configuration format")

// Load reads a configuration file. Settings missing from the file keep their
// default values; unknown settings are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%s: unknown settings %v", path, undecoded)
		}
	default:
		return nil, fmt.Errorf("%s: %w %q", path, ErrUnknownFormat, ext)
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("%s: interval must be positive, got %v", path, cfg.Interval)
	}
	return cfg, nil
}

// Path returns the path of the configuration file: the value of $TABL_CONFIG
// if set, otherwise the first of config.yaml, config.yml and config.toml that
// exists in the tabl directory under $XDG_CONFIG_HOME, or ~/.config. It
// returns "" if there is no configuration file.
func Path() (string, error) {
	if p := os.Getenv(env.TABL_CONFIG); p != "" {
		return p, nil
	}
	dir := os.Getenv(env.XDG_CONFIG_HOME)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot find config directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		p := filepath.Join(dir, "tabl", name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}
