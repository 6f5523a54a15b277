package main

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"github.com/benbjohnson/alu"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config represents the settings of a single solve.
type Config struct {
	Program       string   `yaml:"program" validate:"required"`
	Policy        string   `yaml:"policy" validate:"policy"`
	Target        int64    `yaml:"target"`
	Output        string   `yaml:"output" validate:"required"`
	Registers     []string `yaml:"registers" validate:"min=1,dive,required"`
	MaxCandidates int      `yaml:"max_candidates" validate:"gte=0"`
	Workers       int      `yaml:"workers" validate:"gte=0"`
	CacheDir      string   `yaml:"cache_dir"`
}

// DefaultConfig returns the settings used when no file or flag overrides them.
func DefaultConfig() Config {
	return Config{
		Policy:    "max",
		Output:    alu.DefaultOutput,
		Registers: slices.Clone(alu.DefaultRegisters),
	}
}

// ReadConfigFile reads a YAML config file over the defaults. Unknown fields
// are rejected.
func ReadConfigFile(filename string) (Config, error) {
	config := DefaultConfig()

	buf, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return config, fmt.Errorf("config %s: %w", filename, err)
	}
	return config, nil
}

// Validate returns an error if the config cannot describe a solve.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("policy", validatePolicy); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	} else if !slices.Contains(c.Registers, c.Output) {
		return fmt.Errorf("invalid config: output register %q not declared", c.Output)
	}
	return nil
}

// validatePolicy accepts any name understood by alu.ParsePolicy.
func validatePolicy(fl validator.FieldLevel) bool {
	_, err := alu.ParsePolicy(fl.Field().String())
	return err == nil
}

// configFlags binds the command-line overrides for Config.
type configFlags struct {
	path   string
	config Config
}

// register adds the config flags to fs.
func (f *configFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.path, "config", "c", "", "YAML config file")
	fs.StringVar(&f.config.Policy, "policy", "max", "selection policy (max or min)")
	fs.Int64Var(&f.config.Target, "target", 0, "required value of the output register")
	fs.StringVar(&f.config.Output, "output", alu.DefaultOutput, "output register")
	fs.StringSliceVar(&f.config.Registers, "registers", slices.Clone(alu.DefaultRegisters), "declared registers")
	fs.IntVar(&f.config.MaxCandidates, "max-candidates", 0, "candidate ceiling per node (0 is unlimited)")
	fs.IntVar(&f.config.Workers, "workers", 0, "nodes solved concurrently")
	fs.StringVar(&f.config.CacheDir, "cache-dir", "", "directory of the persistent answer cache")
}

// load returns the config file, if any, with changed flags applied on top.
// The program path comes from args when given.
func (f *configFlags) load(fs *pflag.FlagSet, args []string) (Config, error) {
	config := DefaultConfig()
	if f.path != "" {
		var err error
		if config, err = ReadConfigFile(f.path); err != nil {
			return config, err
		}
	}

	if fs.Changed("policy") {
		config.Policy = f.config.Policy
	}
	if fs.Changed("target") {
		config.Target = f.config.Target
	}
	if fs.Changed("output") {
		config.Output = f.config.Output
	}
	if fs.Changed("registers") {
		config.Registers = f.config.Registers
	}
	if fs.Changed("max-candidates") {
		config.MaxCandidates = f.config.MaxCandidates
	}
	if fs.Changed("workers") {
		config.Workers = f.config.Workers
	}
	if fs.Changed("cache-dir") {
		config.CacheDir = f.config.CacheDir
	}
	if len(args) > 0 {
		config.Program = args[0]
	}

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}
