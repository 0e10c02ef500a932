package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config file locations, relative to the XDG config home and to the
// working directory.
const (
	GlobalConfigDir   = "searchanim"
	GlobalConfigFile  = "config.yaml"
	ProjectConfigDir  = ".searchanim"
	ProjectConfigFile = "config.yaml"
)

// fileLayer is one YAML file merged over the animation defaults.
type fileLayer struct {
	name     string
	path     string
	required bool
}

// LoadConfig resolves the animation settings for one invocation. Each
// source overrides the ones before it:
//
//   - the built-in schedule and thresholds from Default()
//   - $XDG_CONFIG_HOME/searchanim/config.yaml, shared by every project
//   - .searchanim/config.yaml in the working directory
//   - the file named by --config or SEARCHANIM_CONFIG
//   - SEARCHANIM_* environment variables and flags bound to v
//
// The shared and project files are optional; a named file must exist.
// The result has passed Validate.
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := Default()

	base, err := structToMap(cfg)
	if err != nil {
		return nil, err
	}
	if err := v.MergeConfigMap(base); err != nil {
		return nil, err
	}

	for _, l := range fileLayers(v) {
		if l.path == "" {
			continue
		}
		if l.required {
			if _, err := os.Stat(l.path); err != nil {
				return nil, fmt.Errorf("config file: %w", err)
			}
		}
		if err := loadConfigFile(v, l.path); err != nil {
			return nil, fmt.Errorf("%s config: %w", l.name, err)
		}
	}

	if err := v.Unmarshal(cfg, viperDecodeHook()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fileLayers lists the config files in merge order. Optional files that
// are absent have an empty path.
func fileLayers(v *viper.Viper) []fileLayer {
	return []fileLayer{
		{name: "global", path: globalConfigPath()},
		{name: "project", path: projectConfigPath()},
		{name: "explicit", path: v.GetString("config"), required: true},
	}
}

// globalConfigPath returns the shared config file, or "" if there is none.
func globalConfigPath() string {
	root := os.Getenv("XDG_CONFIG_HOME")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		root = filepath.Join(home, ".config")
	}
	return existing(filepath.Join(root, GlobalConfigDir, GlobalConfigFile))
}

// projectConfigPath returns the working directory's config file, or "".
func projectConfigPath() string {
	return existing(filepath.Join(ProjectConfigDir, ProjectConfigFile))
}

func existing(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// loadConfigFile parses one YAML file and merges its keys into v. A file
// that disappeared since it was found is skipped.
func loadConfigFile(v *viper.Viper, path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	layer := viper.New()
	layer.SetConfigType("yaml")
	if err := layer.ReadConfig(f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return v.MergeConfigMap(layer.AllSettings())
}

// viperDecodeHook lets stage durations and thresholds be written as "900ms"
// and message lists as comma-separated strings.
func viperDecodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// structToMap flattens cfg into the nested map viper merges, with every
// duration rendered as its string form.
func structToMap(cfg *Config) (map[string]any, error) {
	out := make(map[string]any)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "mapstructure",
		Result:     &out,
		DecodeHook: durationToStringHook(),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	return out, nil
}

func durationToStringHook() mapstructure.DecodeHookFunc {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(from, _ reflect.Type, data any) (any, error) {
		if from != durationType {
			return data, nil
		}
		return data.(time.Duration).String(), nil
	}
}
