package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/wesm/extractfiles/file"
	"github.com/wesm/extractfiles/internal/tree"
)

const (
	envPrefix      = "EXTRACTFILES_"
	configFileName = "config.json"
)

// Config holds all command configuration.
type Config struct {
	Format   string
	Prefix   string
	Marker   string
	NoBlob   bool
	NoFile   bool
	Indent   bool
	Watch    bool
	Debounce time.Duration
	DataDir  string
	EnvFile  string
}

// Default returns a Config with default values.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	return Config{
		Format:   string(tree.FormatAuto),
		Marker:   tree.DefaultMarker,
		Indent:   true,
		Debounce: 300 * time.Millisecond,
		DataDir:  filepath.Join(home, ".extractfiles"),
		EnvFile:  ".env",
	}, nil
}

// Load builds a Config by layering:
// defaults < config file < dotenv file < env < flags.
// The provided FlagSet must already be parsed by the caller.
// Only flags that were explicitly set override the lower layers.
func Load(fs *flag.FlagSet) (Config, error) {
	cfg, err := LoadMinimal()
	if err != nil {
		return cfg, err
	}
	applyFlags(&cfg, fs)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadMinimal builds a Config from defaults, the config file, the
// dotenv file and the environment, without flags.
func LoadMinimal() (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv(envPrefix + "DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(envPrefix + "ENV_FILE"); v != "" {
		cfg.EnvFile = v
	}

	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	if err := cfg.loadDotenv(); err != nil {
		return cfg, fmt.Errorf("loading %s: %w", cfg.EnvFile, err)
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) configPath() string {
	return filepath.Join(c.DataDir, configFileName)
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var fc struct {
		Format *string `json:"format"`
		Prefix *string `json:"prefix"`
		Marker *string `json:"marker"`
		NoBlob *bool   `json:"no_blob"`
		NoFile *bool   `json:"no_file"`
		Indent *bool   `json:"indent"`
		Watch  *bool   `json:"watch"`
		// Debounce is a duration string such as "500ms".
		Debounce *string `json:"debounce"`
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	setIf(&c.Format, fc.Format)
	setIf(&c.Prefix, fc.Prefix)
	setIf(&c.Marker, fc.Marker)
	setIf(&c.NoBlob, fc.NoBlob)
	setIf(&c.NoFile, fc.NoFile)
	setIf(&c.Indent, fc.Indent)
	setIf(&c.Watch, fc.Watch)
	if fc.Debounce != nil {
		d, err := time.ParseDuration(*fc.Debounce)
		if err != nil {
			return fmt.Errorf("invalid debounce: %w", err)
		}
		c.Debounce = d
	}
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// loadDotenv applies EXTRACTFILES_* entries from the dotenv file.
// A missing file is not an error.
func (c *Config) loadDotenv() error {
	if c.EnvFile == "" {
		return nil
	}
	vars, err := godotenv.Read(c.EnvFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return c.applyEnv(func(k string) string { return vars[k] })
}

func (c *Config) applyEnv(get func(string) string) error {
	if v := get(envPrefix + "FORMAT"); v != "" {
		c.Format = v
	}
	if v := get(envPrefix + "PREFIX"); v != "" {
		c.Prefix = v
	}
	if v := get(envPrefix + "MARKER"); v != "" {
		c.Marker = v
	}
	for name, dst := range map[string]*bool{
		"NO_BLOB": &c.NoBlob,
		"NO_FILE": &c.NoFile,
		"INDENT":  &c.Indent,
		"WATCH":   &c.Watch,
	} {
		v := get(envPrefix + name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, name, err)
		}
		*dst = b
	}
	if v := get(envPrefix + "DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sDEBOUNCE: %w", envPrefix, err)
		}
		c.Debounce = d
	}
	return nil
}

// Validate reports settings the command cannot use.
func (c *Config) Validate() error {
	if _, err := tree.ParseFormat(c.Format); err != nil {
		return err
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", c.Debounce)
	}
	return nil
}

// DocFormat returns the configured input format.
func (c *Config) DocFormat() tree.Format {
	f, err := tree.ParseFormat(c.Format)
	if err != nil {
		return tree.FormatAuto
	}
	return f
}

// DecodeOptions returns the decoder options for this config.
func (c *Config) DecodeOptions() tree.Options {
	return tree.Options{Marker: c.Marker}
}

// FileEnv returns the native handle kinds to recognize.
func (c *Config) FileEnv() file.Env {
	return file.Env{Blob: !c.NoBlob, File: !c.NoFile}
}

// RegisterFlags registers command flags on fs.
// The caller must call fs.Parse before passing fs to Load.
func RegisterFlags(fs *flag.FlagSet) {
	fs.String("format", "auto", "Input format: auto, json or yaml")
	fs.String("prefix", "", "Prefix for extracted object paths")
	fs.String("marker", tree.DefaultMarker, "Key that tags a file reference")
	fs.Bool("no-blob", false, "Do not treat native blobs as files")
	fs.Bool("no-file", false, "Do not treat native named files as files")
	fs.Bool("indent", true, "Indent the JSON report")
	fs.Bool("watch", false, "Re-run when the input file changes")
	fs.Duration("debounce", 300*time.Millisecond, "Delay before re-running in watch mode")
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *flag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.Format = f.Value.String()
		case "prefix":
			cfg.Prefix = f.Value.String()
		case "marker":
			cfg.Marker = f.Value.String()
		case "no-blob":
			cfg.NoBlob = f.Value.String() == "true"
		case "no-file":
			cfg.NoFile = f.Value.String() == "true"
		case "indent":
			cfg.Indent = f.Value.String() == "true"
		case "watch":
			cfg.Watch = f.Value.String() == "true"
		case "debounce":
			// flag already validated the duration; ignore parse error
			cfg.Debounce, _ = time.ParseDuration(f.Value.String())
		}
	})
}
