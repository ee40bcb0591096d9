// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package labconfig loads the configuration of a vmops lab run from a
// YAML file.
//
// A minimal file looks like:
//
//	cores: [1, 2, 4, 8]
//	benchmark: maponly
//	duration_ms: 10000
//	build_dir: barrelfish/build
//
// Timeouts are Go duration strings, such as "28s".
package labconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"vmops.dev/lab/session"
)

// Config is the root of a lab configuration file.
type Config struct {
	Cores     []int  `yaml:"cores"`
	Benchmark string `yaml:"benchmark"`
	// Exactly one of DurationMS and Operations is set.
	DurationMS int64 `yaml:"duration_ms"`
	Operations int64 `yaml:"operations"`
	MemSize    int64 `yaml:"memsize,omitempty"`
	// KVM requires the emulator to run with hardware acceleration.
	KVM bool `yaml:"kvm,omitempty"`

	Platform   string      `yaml:"platform"`
	BuildDir   string      `yaml:"build_dir"`
	ResultsDir string      `yaml:"results_dir"`
	Database   string      `yaml:"database,omitempty"` // driver:dsn
	Build      BuildConfig `yaml:"build,omitempty"`
	Emulator   Emulator    `yaml:"emulator,omitempty"`
	Timeouts   Timeouts    `yaml:"timeouts,omitempty"`
}

// BuildConfig controls the guest image build.
type BuildConfig struct {
	Skip bool `yaml:"skip"`
	Hake bool `yaml:"hake"`
	Jobs int  `yaml:"jobs"`
}

// Emulator overrides how the emulator is started. Empty fields use the
// guest package defaults.
type Emulator struct {
	Command []string `yaml:"command"`
	Env     []string `yaml:"env"`
}

// Timeouts holds the timeout scales of the session stages.
type Timeouts struct {
	Boot Scale `yaml:"boot"`
	Run  Scale `yaml:"run"`
}

// A Scale is the file form of session.Scale.
type Scale struct {
	Base         time.Duration `yaml:"base"`
	PerCore      time.Duration `yaml:"per_core"`
	PerRunSecond time.Duration `yaml:"per_run_second"`
}

// Session returns s as a session.Scale.
func (s Scale) Session() session.Scale {
	return session.Scale{Base: s.Base, PerCore: s.PerCore, PerRunSecond: s.PerRunSecond}
}

func scaleOf(s session.Scale) Scale {
	return Scale{Base: s.Base, PerCore: s.PerCore, PerRunSecond: s.PerRunSecond}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Cores:      []int{1},
		Benchmark:  "maponly",
		DurationMS: 10000,
		Platform:   "barrelfish",
		BuildDir:   "barrelfish/build",
		ResultsDir: ".",
		Timeouts: Timeouts{
			Boot: scaleOf(session.DefaultBoot),
			Run:  scaleOf(session.DefaultData),
		},
	}
}

// Load reads the configuration file at path. Settings missing from the
// file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	// An operation count in the file replaces the default duration.
	if cfg.Operations > 0 && !setsDuration(data) {
		cfg.DurationMS = 0
	}
	return cfg, nil
}

func setsDuration(data []byte) bool {
	var keys map[string]any
	if yaml.Unmarshal(data, &keys) != nil {
		return false
	}
	_, ok := keys["duration_ms"]
	return ok
}

// Run returns the configured run duration, or 0 in fixed-operation
// mode.
func (c *Config) Run() time.Duration {
	return time.Duration(c.DurationMS) * time.Millisecond
}

// Validate reports every problem with c.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Cores) == 0 {
		errs = append(errs, errors.New("no core counts"))
	}
	for _, n := range c.Cores {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("invalid core count %d", n))
		}
	}
	if c.Benchmark == "" {
		errs = append(errs, errors.New("no benchmark"))
	}
	switch {
	case c.DurationMS < 0 || c.Operations < 0:
		errs = append(errs, errors.New("negative duration or operation count"))
	case c.DurationMS > 0 && c.Operations > 0:
		errs = append(errs, errors.New("duration_ms and operations are mutually exclusive"))
	case c.DurationMS == 0 && c.Operations == 0:
		errs = append(errs, errors.New("one of duration_ms and operations is required"))
	}
	for _, s := range []struct {
		name string
		s    Scale
	}{{"boot", c.Timeouts.Boot}, {"run", c.Timeouts.Run}} {
		if s.s.Base <= 0 {
			errs = append(errs, fmt.Errorf("%s timeout must be positive", s.name))
		}
		if s.s.PerCore < 0 || s.s.PerRunSecond < 0 {
			errs = append(errs, fmt.Errorf("%s timeout has negative increment", s.name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// SplitDatabase splits a database setting of the form driver:dsn.
func SplitDatabase(s string) (driver, dsn string, err error) {
	driver, dsn, ok := strings.Cut(s, ":")
	if !ok || driver == "" {
		return "", "", fmt.Errorf("database %q is not of the form driver:dsn", s)
	}
	return driver, dsn, nil
}
