// Package config loads run settings from a YAML file, the environment
// and built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ChrisMcGann/LipidKey/pkg/core"
	"github.com/ChrisMcGann/LipidKey/pkg/filter"
	"github.com/ChrisMcGann/LipidKey/pkg/fragdb"
	"github.com/ChrisMcGann/LipidKey/pkg/lipid"
)

// EnvPrefix prefixes the environment overrides, e.g. LIPIDKEY_WORKERS.
const EnvPrefix = "LIPIDKEY_"

// Range is a chain range as integer lists such as "2-36" or "0,1".
type Range struct {
	C string `yaml:"c"`
	U string `yaml:"u"`
}

type Config struct {
	IonMode            string  `yaml:"ionmode"`
	MS2Tolerance       float64 `yaml:"ms2_tolerance"`       // ppm
	PrecursorTolerance float64 `yaml:"precursor_tolerance"` // ppm
	RTTolerance        float64 `yaml:"rt_tolerance"`        // minutes
	RTWindow           float64 `yaml:"rt_window"`           // minutes
	CheckRT            bool    `yaml:"check_rt"`
	Drift              float64 `yaml:"drift"`
	Charge             int     `yaml:"charge"` // MGF charge filter, 0 = all

	IntensityRatios struct {
		GLGPL   bool    `yaml:"gl_gpl"`
		SL      bool    `yaml:"sl"`
		LogBase float64 `yaml:"log_base"`
	} `yaml:"intensity_ratios"`

	// Series keys are chain types: fa, fal, sph.
	Series map[string]Range `yaml:"series"`
	// FragmentFiles keys are ion modes: pos, neg.
	FragmentFiles map[string][]string `yaml:"fragment_files"`
	AdductsFile   string              `yaml:"adducts_file"`

	Workers   int `yaml:"workers"`
	ScanCache int `yaml:"scan_cache"`

	Filter struct {
		TopN   int     `yaml:"top_n"`
		Cutoff float64 `yaml:"cutoff"` // % of base peak
		MinMZ  float64 `yaml:"min_mz"`
		MaxMZ  float64 `yaml:"max_mz"`
	} `yaml:"filter"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the built-in settings.
func Default() *Config {
	cfg := &Config{
		IonMode:            string(core.Negative),
		MS2Tolerance:       fragdb.DefaultTolerance,
		PrecursorTolerance: 10,
		RTTolerance:        0.5,
		RTWindow:           0.5,
		CheckRT:            true,
		Drift:              1,
		Workers:            4,
		ScanCache:          256,
	}
	cfg.IntensityRatios.LogBase = 1.5
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

// Load reads .env if present, then the YAML file at path over the
// defaults (an empty path skips it), then LIPIDKEY_* overrides.
func Load(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.decode(bytes.NewReader(file)); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := func(name string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	float := func(name string, dst *float64) error {
		v := os.Getenv(EnvPrefix + name)
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s%s '%s'", EnvPrefix, name, v)
		}
		*dst = f
		return nil
	}
	integer := func(name string, dst *int) error {
		v := os.Getenv(EnvPrefix + name)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s '%s'", EnvPrefix, name, v)
		}
		*dst = n
		return nil
	}
	boolean := func(name string, dst *bool) error {
		v := os.Getenv(EnvPrefix + name)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s '%s'", EnvPrefix, name, v)
		}
		*dst = b
		return nil
	}

	str("IONMODE", &c.IonMode)
	str("ADDUCTS_FILE", &c.AdductsFile)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	return errors.Join(
		float("MS2_TOLERANCE", &c.MS2Tolerance),
		float("PRECURSOR_TOLERANCE", &c.PrecursorTolerance),
		float("RT_TOLERANCE", &c.RTTolerance),
		float("RT_WINDOW", &c.RTWindow),
		float("DRIFT", &c.Drift),
		boolean("CHECK_RT", &c.CheckRT),
		integer("CHARGE", &c.Charge),
		integer("WORKERS", &c.Workers),
		integer("SCAN_CACHE", &c.ScanCache),
	)
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if _, err := core.ParseIonMode(c.IonMode); err != nil {
		errs = append(errs, err.Error())
	}
	if c.MS2Tolerance <= 0 {
		errs = append(errs, "ms2_tolerance must be positive")
	}
	if c.PrecursorTolerance <= 0 {
		errs = append(errs, "precursor_tolerance must be positive")
	}
	if c.RTTolerance <= 0 {
		errs = append(errs, "rt_tolerance must be positive")
	}
	if c.RTWindow <= 0 {
		errs = append(errs, "rt_window must be positive")
	}
	if c.Drift <= 0 {
		errs = append(errs, "drift must be positive")
	}
	if c.Charge < 0 {
		errs = append(errs, "charge must be non-negative")
	}
	if c.IntensityRatios.LogBase <= 1 {
		errs = append(errs, "intensity_ratios.log_base must be greater than 1")
	}
	if c.Workers < 1 {
		errs = append(errs, "workers must be at least 1")
	}
	if c.ScanCache < 1 {
		errs = append(errs, "scan_cache must be at least 1")
	}
	if _, err := c.Ranges(); err != nil {
		errs = append(errs, err.Error())
	}
	for mode := range c.FragmentFiles {
		if _, err := core.ParseIonMode(mode); err != nil {
			errs = append(errs, "fragment_files: "+err.Error())
		}
	}
	fc := c.FilterConfig()
	if err := fc.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		errs = append(errs, err.Error())
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Sprintf("log.format must be text or json, got '%s'", c.Log.Format))
	}

	if len(errs) > 0 {
		return &core.ValidationError{
			Field:   "Config",
			Message: strings.Join(errs, "; "),
		}
	}
	return nil
}

// Mode returns the configured ion mode.
func (c *Config) Mode() (core.IonMode, error) {
	return core.ParseIonMode(c.IonMode)
}

var seriesKeys = map[string]string{
	"fa":  lipid.FA,
	"fal": lipid.FAL,
	"sph": lipid.Sph,
}

// Ranges converts the series settings to fragment database ranges.
func (c *Config) Ranges() (map[string]fragdb.Range, error) {
	out := make(map[string]fragdb.Range, len(c.Series))
	for key, r := range c.Series {
		chainType, ok := seriesKeys[strings.ToLower(key)]
		if !ok {
			return nil, fmt.Errorf("unknown series '%s', must be fa, fal or sph", key)
		}
		var fr fragdb.Range
		var err error
		if r.C != "" {
			if fr.C, err = fragdb.ParseIntSet(r.C); err != nil {
				return nil, fmt.Errorf("series %s: %w", key, err)
			}
		}
		if r.U != "" {
			if fr.U, err = fragdb.ParseIntSet(r.U); err != nil {
				return nil, fmt.Errorf("series %s: %w", key, err)
			}
		}
		out[chainType] = fr
	}
	return out, nil
}

// FragmentOptions returns the options the fragment databases are built with.
func (c *Config) FragmentOptions(logger *slog.Logger) (fragdb.Options, error) {
	ranges, err := c.Ranges()
	if err != nil {
		return fragdb.Options{}, err
	}
	files := make(map[core.IonMode][]string, len(c.FragmentFiles))
	for key, paths := range c.FragmentFiles {
		mode, err := core.ParseIonMode(key)
		if err != nil {
			return fragdb.Options{}, fmt.Errorf("fragment_files: %w", err)
		}
		files[mode] = append(files[mode], paths...)
	}
	return fragdb.Options{
		Tolerance: c.MS2Tolerance,
		Ranges:    ranges,
		Files:     files,
		Logger:    logger,
	}, nil
}

// FilterConfig returns the peak filter settings.
func (c *Config) FilterConfig() filter.Config {
	return filter.Config{
		TopN:            c.Filter.TopN,
		IntensityCutoff: c.Filter.Cutoff,
		MinMZ:           c.Filter.MinMZ,
		MaxMZ:           c.Filter.MaxMZ,
	}
}

// Adducts returns the default adducts extended by AdductsFile.
func (c *Config) Adducts() (*core.AdductDatabase, error) {
	db := core.DefaultAdductDatabase()
	if c.AdductsFile == "" {
		return db, nil
	}
	f, err := os.Open(c.AdductsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open adducts file: %w", err)
	}
	defer f.Close()
	if err := db.LoadFromCSV(f); err != nil {
		return nil, fmt.Errorf("%s: %w", c.AdductsFile, err)
	}
	return db, nil
}

// ParseLogLevel accepts debug, info, warn and error.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level '%s'", s)
	}
	return level, nil
}
