// Package config loads mixorder settings from TOML or YAML files.
//
// Every field has a default, so a missing file is not an error. Values are
// validated with struct tags after the file and environment overrides have
// been applied.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/mixorder/pkg/camelot"
	"github.com/matzehuels/mixorder/pkg/errors"
	"github.com/matzehuels/mixorder/pkg/mix/anneal"
	"github.com/matzehuels/mixorder/pkg/mix/cost"
	"github.com/matzehuels/mixorder/pkg/pipeline"
)

// Duration is a time.Duration written as a string such as "5m" or "90s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the complete application configuration.
type Config struct {
	Cost      Cost           `toml:"cost" yaml:"cost" json:"cost"`
	Harmonic  camelot.Scheme `toml:"harmonic" yaml:"harmonic" json:"harmonic"`
	Anneal    Anneal         `toml:"anneal" yaml:"anneal" json:"anneal"`
	Optimizer Optimizer      `toml:"optimizer" yaml:"optimizer" json:"optimizer"`
	Cache     Cache          `toml:"cache" yaml:"cache" json:"cache"`
	Store     Store          `toml:"store" yaml:"store" json:"store"`
	Server    Server         `toml:"server" yaml:"server" json:"server"`
}

// Cost holds the transition weights. The non-harmonic marker comes from
// the harmonic scheme.
type Cost struct {
	TempoThreshold   float64 `toml:"tempo_threshold" yaml:"tempo_threshold" json:"tempo_threshold" validate:"gte=0"`
	TempoPenalty     float64 `toml:"tempo_penalty" yaml:"tempo_penalty" json:"tempo_penalty" validate:"gte=0"`
	TempoBreakFactor float64 `toml:"tempo_break_factor" yaml:"tempo_break_factor" json:"tempo_break_factor" validate:"gte=0"`
	TempoWeight      float64 `toml:"tempo_cost_weight" yaml:"tempo_cost_weight" json:"tempo_cost_weight" validate:"gte=0"`
	ShiftPenalty     float64 `toml:"shift_penalty" yaml:"shift_penalty" json:"shift_penalty" validate:"gte=0"`
	ShiftWeight      float64 `toml:"shift_weight" yaml:"shift_weight" json:"shift_weight" validate:"gte=0"`
}

// Anneal holds the cooling schedule of one attempt.
type Anneal struct {
	TotalIterations int     `toml:"total_iterations" yaml:"total_iterations" json:"total_iterations" validate:"gte=1"`
	InitialTemp     float64 `toml:"initial_temp" yaml:"initial_temp" json:"initial_temp" validate:"gt=0"`
	FinalTemp       float64 `toml:"final_temp" yaml:"final_temp" json:"final_temp" validate:"gt=0"`
	MultiSwapFactor int     `toml:"multi_swap_factor" yaml:"multi_swap_factor" json:"multi_swap_factor" validate:"gte=0"`
}

// Optimizer selects and bounds the solver.
type Optimizer struct {
	Mode      string   `toml:"mode" yaml:"mode" json:"mode" validate:"oneof=auto anneal exact"`
	TimeLimit Duration `toml:"time_limit" yaml:"time_limit" json:"time_limit"`
	Workers   int      `toml:"workers" yaml:"workers" json:"workers" validate:"gte=1,lte=256"`
	Seed      int64    `toml:"seed" yaml:"seed" json:"seed"`
	ExactMax  int      `toml:"exact_max" yaml:"exact_max" json:"exact_max" validate:"gte=2,lte=20"`
	// ExactMemoryMB caps the exact solver's table. Zero disables the cap.
	ExactMemoryMB int `toml:"exact_memory_mb" yaml:"exact_memory_mb" json:"exact_memory_mb" validate:"gte=0"`
}

// Cache configures where exact solutions are cached.
type Cache struct {
	Backend   string   `toml:"backend" yaml:"backend" json:"backend" validate:"oneof=file redis none"`
	Dir       string   `toml:"dir" yaml:"dir" json:"dir"`
	RedisAddr string   `toml:"redis_addr" yaml:"redis_addr" json:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB   int      `toml:"redis_db" yaml:"redis_db" json:"redis_db" validate:"gte=0"`
	TTL       Duration `toml:"ttl" yaml:"ttl" json:"ttl"`
}

// Store configures where saved sets live.
type Store struct {
	Backend    string `toml:"backend" yaml:"backend" json:"backend" validate:"oneof=file mongo"`
	Dir        string `toml:"dir" yaml:"dir" json:"dir"`
	MongoURI   string `toml:"mongo_uri" yaml:"mongo_uri" json:"mongo_uri" validate:"required_if=Backend mongo"`
	Database   string `toml:"database" yaml:"database" json:"database" validate:"required_if=Backend mongo"`
	Collection string `toml:"collection" yaml:"collection" json:"collection"`
}

// Server configures the HTTP API.
type Server struct {
	Addr         string   `toml:"addr" yaml:"addr" json:"addr" validate:"required"`
	ReadTimeout  Duration `toml:"read_timeout" yaml:"read_timeout" json:"read_timeout"`
	MaxBodyBytes int64    `toml:"max_body_bytes" yaml:"max_body_bytes" json:"max_body_bytes" validate:"gt=0"`
	// MaxTimeLimit bounds the budget a client may request.
	MaxTimeLimit Duration `toml:"max_time_limit" yaml:"max_time_limit" json:"max_time_limit"`
	// MaxIterations bounds total_iterations on raw anneal requests. A
	// single attempt always runs to completion, so the time limit alone
	// does not bound the work. Zero means no limit.
	MaxIterations int `toml:"max_iterations" yaml:"max_iterations" json:"max_iterations" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Cost: Cost{
			TempoThreshold:   cost.DefaultTempoThreshold,
			TempoPenalty:     cost.DefaultTempoPenalty,
			TempoBreakFactor: cost.DefaultTempoBreakFactor,
			TempoWeight:      cost.DefaultTempoWeight,
			ShiftPenalty:     cost.DefaultShiftPenalty,
			ShiftWeight:      cost.DefaultShiftWeight,
		},
		Harmonic: camelot.DefaultScheme(),
		Anneal: Anneal{
			TotalIterations: anneal.DefaultTotalIterations,
			InitialTemp:     anneal.DefaultInitialTemp,
			FinalTemp:       anneal.DefaultFinalTemp,
			MultiSwapFactor: anneal.DefaultMultiSwapFactor,
		},
		Optimizer: Optimizer{
			Mode:      "auto",
			TimeLimit: Duration{5 * time.Minute},
			Workers:   1,
			ExactMax:  12,
		},
		Cache: Cache{
			Backend: "file",
			TTL:     Duration{30 * 24 * time.Hour},
		},
		Store: Store{
			Backend:    "file",
			Database:   "mixorder",
			Collection: "sets",
		},
		Server: Server{
			Addr:          ":8080",
			ReadTimeout:   Duration{30 * time.Second},
			MaxBodyBytes:  1 << 20,
			MaxTimeLimit:  Duration{2 * time.Minute},
			MaxIterations: 5_000_000,
		},
	}
}

var validate = validator.New()

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParam, err, "invalid config")
	}
	if c.Optimizer.TimeLimit.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidParam, "invalid config: optimizer.time_limit must not be negative")
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidParam, "invalid config: cache.ttl must not be negative")
	}
	return nil
}

// CostParams returns the cost model weights.
func (c *Config) CostParams() cost.Params {
	return cost.Params{
		TempoThreshold:   c.Cost.TempoThreshold,
		TempoPenalty:     c.Cost.TempoPenalty,
		TempoBreakFactor: c.Cost.TempoBreakFactor,
		TempoWeight:      c.Cost.TempoWeight,
		NonHarmonicCost:  c.Harmonic.NonHarmonic,
		ShiftPenalty:     c.Cost.ShiftPenalty,
		ShiftWeight:      c.Cost.ShiftWeight,
	}
}

// AnnealParams returns the annealing schedule.
func (c *Config) AnnealParams() anneal.Params {
	return anneal.Params{
		TotalIterations: c.Anneal.TotalIterations,
		InitialTemp:     c.Anneal.InitialTemp,
		FinalTemp:       c.Anneal.FinalTemp,
		MultiSwapFactor: c.Anneal.MultiSwapFactor,
	}
}

// PipelineOptions returns pipeline options carrying every solver setting.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Mode:          c.Optimizer.Mode,
		TimeLimit:     c.Optimizer.TimeLimit.Duration,
		Workers:       c.Optimizer.Workers,
		Seed:          c.Optimizer.Seed,
		ExactMax:      c.Optimizer.ExactMax,
		ExactMemoryMB: c.Optimizer.ExactMemoryMB,
		NoCache:       c.Cache.Backend == "none",
		Cost:          c.CostParams(),
		Harmonic:      c.Harmonic,
		Anneal:        c.AnnealParams(),
	}
}

// Load reads the file at path over the defaults, applies environment
// overrides and validates the result. An empty path or a missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
		}
	default:
		return errors.New(errors.ErrCodeInvalidPath, "unsupported config format: %s (want .toml or .yaml)", path)
	}
	return nil
}

// applyEnv overrides connection settings and the seed from MIXORDER_*
// variables.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("MIXORDER_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := getenv("MIXORDER_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := getenv("MIXORDER_MONGO_URI"); v != "" {
		c.Store.MongoURI = v
	}
	if v := getenv("MIXORDER_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := getenv("MIXORDER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("MIXORDER_SEED"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Optimizer.Seed = i
		}
	}
}

// WriteTOML encodes c as TOML.
func (c *Config) WriteTOML(w io.Writer) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
