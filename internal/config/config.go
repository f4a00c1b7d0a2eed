// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config resolves nbfmt settings from defaults, a .nbfmt.yaml
// file, the environment (including a .env file) and command-line flags,
// in increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bartekus/nbfmt/internal/celldiff"
	"github.com/bartekus/nbfmt/internal/formatter"
	"github.com/bartekus/nbfmt/internal/scanner"
)

// FileName is the project configuration file looked up from the working
// directory upwards.
const FileName = ".nbfmt.yaml"

// Config holds every tunable setting.
type Config struct {
	LineLength                int    `yaml:"line_length"`
	SkipStringNormalization   bool   `yaml:"skip_string_normalization"`
	Exclude                   string `yaml:"exclude"`
	AcceptedLanguages         string `yaml:"accepted_languages"`
	ExcludeNonKernelLanguages bool   `yaml:"exclude_nonkernel_languages"`
	CheckExecutionOrder       bool   `yaml:"assert_consistent_execution"`
	SyntaxPrecheck            bool   `yaml:"syntax_precheck"`
	TrackedOnly               bool   `yaml:"tracked_only"`
	CompactContext            int    `yaml:"compact_context"`
	Black                     string `yaml:"black"`
	Rscript                   string `yaml:"rscript"`
	Workers                   int    `yaml:"workers"`

	// Source is the configuration file that was loaded, if any.
	Source string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LineLength:        formatter.DefaultLineLength,
		Exclude:           scanner.DefaultExclude,
		AcceptedLanguages: "python",
		CompactContext:    celldiff.DefaultCompactContext,
		Black:             "black",
		Rscript:           "Rscript",
		Workers:           1,
	}
}

// Load resolves the configuration for a run started in dir. If path is
// non-empty it names the configuration file explicitly and must exist;
// otherwise FileName is searched for from dir upwards.
func Load(dir, path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = find(dir)
	} else if _, err := os.Stat(path); err != nil {
		return cfg, fmt.Errorf("config file: %w", err)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	dotenv, err := readDotenv(filepath.Join(dir, ".env"))
	if err != nil {
		return cfg, err
	}
	if err := cfg.applyEnv(func(key string) (string, bool) {
		// An empty process value counts as unset.
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// find walks up from dir looking for FileName.
func find(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(abs, FileName)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return ""
		}
		abs = parent
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	c.Source = path
	return nil
}

func readDotenv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return env, nil
}

// Environment variables recognized by applyEnv.
const (
	EnvLineLength              = "NBFMT_LINE_LENGTH"
	EnvSkipStringNormalization = "NBFMT_SKIP_STRING_NORMALIZATION"
	EnvExclude                 = "NBFMT_EXCLUDE"
	EnvAcceptedLanguages       = "NBFMT_ACCEPTED_LANGUAGES"
	EnvBlack                   = "NBFMT_BLACK"
	EnvRscript                 = "NBFMT_RSCRIPT"
	EnvWorkers                 = "NBFMT_WORKERS"
)

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	if err := num(EnvLineLength, &c.LineLength); err != nil {
		return err
	}
	if err := num(EnvWorkers, &c.Workers); err != nil {
		return err
	}
	if v, ok := lookup(EnvSkipStringNormalization); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSkipStringNormalization, err)
		}
		c.SkipStringNormalization = b
	}
	str(EnvExclude, &c.Exclude)
	str(EnvAcceptedLanguages, &c.AcceptedLanguages)
	str(EnvBlack, &c.Black)
	str(EnvRscript, &c.Rscript)
	return nil
}

// Validate rejects settings no run could use.
func (c Config) Validate() error {
	if c.LineLength <= 0 {
		return fmt.Errorf("line length must be positive, got %d", c.LineLength)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.CompactContext < 0 {
		return fmt.Errorf("compact context must not be negative, got %d", c.CompactContext)
	}
	if _, err := regexp.Compile(c.Exclude); err != nil {
		return fmt.Errorf("invalid exclude pattern: %w", err)
	}
	if strings.TrimSpace(c.Black) == "" {
		return errors.New("black command must not be empty")
	}
	return nil
}

// FormatOptions returns the formatter style settings.
func (c Config) FormatOptions() formatter.Options {
	return formatter.Options{
		LineLength:              c.LineLength,
		SkipStringNormalization: c.SkipStringNormalization,
	}
}

// FilterOptions returns the discovery settings. Validate must have
// succeeded.
func (c Config) FilterOptions() scanner.FilterOptions {
	opts := scanner.DefaultFilterOptions()
	opts.Exclude = regexp.MustCompile(c.Exclude)
	opts.Languages = scanner.ParseLanguages(c.AcceptedLanguages)
	return opts
}
