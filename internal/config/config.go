package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	oerrors "github.com/ickyicky/folder-observer/internal/errors"
	"github.com/ickyicky/folder-observer/internal/filter"
	"github.com/ickyicky/folder-observer/internal/ignore"
	"github.com/ickyicky/folder-observer/internal/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FOLDER_OBSERVER_"

// Config represents the complete folder-observer configuration.
type Config struct {
	// Source is the watched directory.
	Source string `yaml:"source" json:"source"`
	// Destination is the root for category directories. Empty means Source.
	Destination string `yaml:"destination" json:"destination"`
	// Recursive watches and sweeps subdirectories.
	Recursive bool `yaml:"recursive" json:"recursive"`
	// SortExisting sweeps files already present at startup.
	SortExisting bool `yaml:"sort_existing" json:"sort_existing"`
	// Delay is the settle time before a new file is handled.
	Delay Duration `yaml:"delay" json:"delay"`
	// LinkDuration keeps a symlink at the old location. Zero disables it.
	LinkDuration Duration `yaml:"link_duration" json:"link_duration"`
	// Workers bounds concurrent relocations.
	Workers int `yaml:"workers" json:"workers"`
	// Exclude lists regular expressions matched against base names.
	Exclude []string `yaml:"exclude" json:"exclude"`

	Watch      WatchConfig      `yaml:"watch" json:"watch"`
	Categories CategoriesConfig `yaml:"categories" json:"categories"`
	Log        LogConfig        `yaml:"log" json:"log"`
	Journal    JournalConfig    `yaml:"journal" json:"journal"`
}

// WatchConfig tunes the file system watcher.
type WatchConfig struct {
	Debounce     Duration `yaml:"debounce" json:"debounce"`
	PollInterval Duration `yaml:"poll_interval" json:"poll_interval"`
	ForcePolling bool     `yaml:"force_polling" json:"force_polling"`
	// Ignore lists gitignore-style globs the watcher never reports.
	Ignore []string `yaml:"ignore" json:"ignore"`
}

// CategoriesConfig configures extension classification.
type CategoriesConfig struct {
	// Default is used when nothing better is known.
	Default string `yaml:"default" json:"default"`
	// Known seeds the category cache. Keys are extensions.
	Known  map[string]string `yaml:"known" json:"known"`
	Lookup LookupConfig      `yaml:"lookup" json:"lookup"`
}

// LookupConfig configures the remote category lookup.
type LookupConfig struct {
	// URL is joined with the extension. Empty disables lookups.
	URL string `yaml:"url" json:"url"`
	// Pattern extracts the category from the response body.
	Pattern         string   `yaml:"pattern" json:"pattern"`
	Timeout         Duration `yaml:"timeout" json:"timeout"`
	Retries         int      `yaml:"retries" json:"retries"`
	BreakerFailures int      `yaml:"breaker_failures" json:"breaker_failures"`
	BreakerReset    Duration `yaml:"breaker_reset" json:"breaker_reset"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// JournalConfig configures the relocation journal.
type JournalConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Path defaults to ~/.folder-observer/journal.db.
	Path string `yaml:"path" json:"path"`
}

// DefaultLookupURL is the public extension reference used for lookups.
const DefaultLookupURL = "https://fileinfo.com/extension/"

// DefaultLookupPattern extracts the category link text from a lookup page.
const DefaultLookupPattern = `<td>Category</td><td><a href="/filetypes/.+?">(.*?)</a></td>`

// NewConfig returns a configuration with all defaults applied.
func NewConfig() *Config {
	return &Config{
		Source:       defaultSource(),
		SortExisting: true,
		Workers:      4,
		Exclude:      append([]string(nil), filter.DefaultPatterns...),
		Watch: WatchConfig{
			Debounce:     Duration(200 * time.Millisecond),
			PollInterval: Duration(5 * time.Second),
			Ignore:       []string{},
		},
		Categories: CategoriesConfig{
			Default: "other",
			Known: map[string]string{
				"pdf": "PDF",
				"skp": "SketchUp",
				"dwg": "AutoCAD",
				"dxf": "AutoCAD",
			},
			Lookup: LookupConfig{
				URL:             DefaultLookupURL,
				Pattern:         DefaultLookupPattern,
				Timeout:         Duration(10 * time.Second),
				BreakerFailures: 5,
				BreakerReset:    Duration(30 * time.Second),
			},
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  7,
		},
		Journal: JournalConfig{Enabled: true},
	}
}

func defaultSource() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Downloads")
}

// Load builds the configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/folder-observer/config.yaml)
//  3. The file at explicitPath, when given (it must exist)
//  4. Environment variables (FOLDER_OBSERVER_*)
//
// CLI flags are applied by the caller, followed by Normalize and Validate.
func Load(explicitPath string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.LoadYAML(userPath); err != nil {
			return nil, err
		}
	}

	if explicitPath != "" {
		path := ExpandHome(explicitPath)
		if !fileExists(path) {
			return nil, oerrors.New(oerrors.ErrCodeConfigNotFound,
				fmt.Sprintf("config file %s not found", path), nil).
				WithSuggestion("Create one with: folder-observer config init --path " + path)
		}
		if err := cfg.LoadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadYAML decodes the file at path over the current values. Keys missing
// from the file keep their current value; known categories are merged.
func (c *Config) LoadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return oerrors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}
	if err := c.decodeYAML(data); err != nil {
		return oerrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return nil
}

func (c *Config) decodeYAML(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv applies FOLDER_OBSERVER_* overrides read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	var errs []error
	setDuration := func(name string, dst *Duration) {
		if v, ok := get(name); ok {
			if err := dst.Set(v); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			}
		}
	}
	setBool := func(name string, dst *bool) {
		if v, ok := get(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	if v, ok := get("SOURCE"); ok {
		c.Source = v
	}
	if v, ok := get("DESTINATION"); ok {
		c.Destination = v
	}
	setBool("RECURSIVE", &c.Recursive)
	setBool("SORT_EXISTING", &c.SortExisting)
	setDuration("DELAY", &c.Delay)
	setDuration("LINK_DURATION", &c.LinkDuration)
	if v, ok := get("WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sWORKERS: %w", EnvPrefix, err))
		} else {
			c.Workers = n
		}
	}
	setBool("FORCE_POLLING", &c.Watch.ForcePolling)
	if v, ok := get("DEFAULT_CATEGORY"); ok {
		c.Categories.Default = v
	}
	if v, ok := lookup(EnvPrefix + "LOOKUP_URL"); ok {
		// An explicitly empty value disables lookups.
		c.Categories.Lookup.URL = strings.TrimSpace(v)
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := get("LOG_FILE"); ok {
		c.Log.File = v
	}
	setBool("JOURNAL", &c.Journal.Enabled)
	if v, ok := get("JOURNAL_PATH"); ok {
		c.Journal.Path = v
	}

	if len(errs) > 0 {
		return oerrors.ConfigError("invalid environment override", errors.Join(errs...))
	}
	return nil
}

// Normalize expands "~", makes paths absolute and fills derived defaults.
func (c *Config) Normalize() error {
	if c.Source != "" {
		abs, err := filepath.Abs(ExpandHome(c.Source))
		if err != nil {
			return oerrors.New(oerrors.ErrCodeInvalidPath, "resolve source path", err)
		}
		c.Source = abs
	}

	if c.Destination == "" {
		c.Destination = c.Source
	} else {
		abs, err := filepath.Abs(ExpandHome(c.Destination))
		if err != nil {
			return oerrors.New(oerrors.ErrCodeInvalidPath, "resolve destination path", err)
		}
		c.Destination = abs
	}

	if c.Journal.Path == "" {
		c.Journal.Path = DefaultJournalPath()
	} else {
		c.Journal.Path = ExpandHome(c.Journal.Path)
	}
	c.Log.File = ExpandHome(c.Log.File)
	c.Log.Level = strings.ToLower(c.Log.Level)
	return nil
}

// Validate validates the configuration and returns an error if invalid.
// It expects Normalize to have run.
func (c *Config) Validate() error {
	if c.Source == "" {
		return oerrors.ConfigError("source directory is required", nil).
			WithSuggestion("Pass it as an argument: folder-observer ~/Downloads")
	}

	if c.Recursive && c.Destination != "" && IsWithin(c.Destination, c.Source) {
		return oerrors.New(oerrors.ErrCodeDestinationLoop,
			"destination must be outside the source when watching recursively", nil).
			WithDetail("source", c.Source).
			WithDetail("destination", c.Destination).
			WithSuggestion("Pick a destination outside the source or drop --recursive")
	}

	if c.Workers < 0 {
		return oerrors.ConfigError(fmt.Sprintf("workers must be non-negative, got %d", c.Workers), nil)
	}

	for name, d := range map[string]Duration{
		"delay":                           c.Delay,
		"link_duration":                   c.LinkDuration,
		"watch.debounce":                  c.Watch.Debounce,
		"watch.poll_interval":             c.Watch.PollInterval,
		"categories.lookup.timeout":       c.Categories.Lookup.Timeout,
		"categories.lookup.breaker_reset": c.Categories.Lookup.BreakerReset,
	} {
		if d < 0 {
			return oerrors.ConfigError(fmt.Sprintf("%s must be non-negative, got %s", name, d), nil)
		}
	}

	if err := filter.Validate(c.Exclude); err != nil {
		return err
	}
	if _, err := ignore.New(c.Watch.Ignore...); err != nil {
		return err
	}

	if err := validateLabel("categories.default", c.Categories.Default); err != nil {
		return err
	}
	for ext, label := range c.Categories.Known {
		if err := validateLabel("categories.known."+ext, label); err != nil {
			return err
		}
	}

	lookup := c.Categories.Lookup
	if lookup.URL != "" {
		u, err := url.Parse(lookup.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return oerrors.ConfigError(fmt.Sprintf("categories.lookup.url must be an http(s) URL, got %q", lookup.URL), err)
		}
		if _, err := regexp.Compile(lookup.Pattern); err != nil || lookup.Pattern == "" {
			return oerrors.New(oerrors.ErrCodeInvalidPattern,
				fmt.Sprintf("invalid categories.lookup.pattern %q", lookup.Pattern), err)
		}
	}
	if lookup.Retries < 0 {
		return oerrors.ConfigError(fmt.Sprintf("categories.lookup.retries must be non-negative, got %d", lookup.Retries), nil)
	}

	if !logging.ValidLevel(c.Log.Level) {
		return oerrors.ConfigError(fmt.Sprintf("log.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Log.Level), nil)
	}
	if c.Log.MaxSizeMB <= 0 {
		return oerrors.ConfigError(fmt.Sprintf("log.max_size_mb must be positive, got %d", c.Log.MaxSizeMB), nil)
	}
	if c.Log.MaxFiles < 0 {
		return oerrors.ConfigError(fmt.Sprintf("log.max_files must be non-negative, got %d", c.Log.MaxFiles), nil)
	}

	return nil
}

// validateLabel rejects labels that cannot be used as a single directory name.
func validateLabel(field, label string) error {
	if strings.TrimSpace(label) == "" {
		return oerrors.ConfigError(field+" must not be empty", nil)
	}
	if strings.ContainsAny(label, `/\`) || label == "." || label == ".." {
		return oerrors.ConfigError(fmt.Sprintf("%s must be a single directory name, got %q", field, label), nil)
	}
	return nil
}

// CheckSource verifies that the source directory exists.
func (c *Config) CheckSource() error {
	info, err := os.Stat(c.Source)
	if err != nil {
		return oerrors.New(oerrors.ErrCodeSourceMissing,
			fmt.Sprintf("source directory %s is not accessible", c.Source), err)
	}
	if !info.IsDir() {
		return oerrors.New(oerrors.ErrCodeSourceMissing,
			fmt.Sprintf("source %s is not a directory", c.Source), nil)
	}
	return nil
}

// YAML renders the configuration.
func (c *Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteYAML writes the configuration to a YAML file, creating its directory.
func (c *Config) WriteYAML(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
