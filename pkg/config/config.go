// Package config loads cubeset settings from a YAML or TOML file and sets up
// logging from them.
//
// Example YAML:
//
//	index: rtree
//	check: false
//	limit: x=-50..50,y=-50..50,z=-50..50
//	log:
//	  level: debug
//	  logfile: /var/log/cubeset.log
//	  max_log_size: 10
//	  max_log_age: 7
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/chazu/cubeset/pkg/command"
	"github.com/chazu/cubeset/pkg/cuboid"
	"github.com/chazu/cubeset/pkg/index"
	"github.com/chazu/cubeset/pkg/volume"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned by Load for files that are neither YAML nor
// TOML by extension.
var ErrUnknownFormat = errors.New("unknown config format")

// Config holds everything a volume run can be tuned with.
type Config struct {
	// Index selects the spatial index backend ("face" or "rtree").
	Index index.Kind `yaml:"index" toml:"index"`

	// Check enables pairwise disjointness checks after every command.
	Check bool `yaml:"check" toml:"check"`

	// Limit is the clipping cuboid in step syntax. Empty means the
	// initialization area.
	Limit string `yaml:"limit" toml:"limit"`

	Log LogConfig `yaml:"log" toml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Index: index.KindFace,
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads path, choosing the decoder from its extension. Values missing
// from the file keep their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = decodeYAML(data, &cfg)
	case ".toml":
		err = decodeTOML(data, &cfg)
	default:
		return Config{}, fmt.Errorf("%w: %q (want .yaml, .yml or .toml)", ErrUnknownFormat, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeTOML(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys: %v", undecoded)
	}
	return nil
}

// Validate checks the index kind and the limit syntax.
func (c Config) Validate() error {
	if _, err := index.New(c.Index); err != nil {
		return err
	}
	if _, err := c.LimitCuboid(); err != nil {
		return err
	}
	return c.Log.validate()
}

// LimitCuboid parses Limit, defaulting to the initialization area.
func (c Config) LimitCuboid() (cuboid.Cuboid, error) {
	if strings.TrimSpace(c.Limit) == "" {
		return volume.InitializationArea, nil
	}
	lim, err := command.ParseCuboid(c.Limit)
	if err != nil {
		return cuboid.Cuboid{}, fmt.Errorf("limit: %w", err)
	}
	return lim, nil
}
