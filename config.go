package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPollingSeconds = 5.0
	defaultTailLines      = 200
	defaultCancelCommand  = "scancel"

	// Wide enough that squeue never truncates a field mid-value.
	maxFieldChars = "256"
)

// QueryConfig is the configuration for one Slurm query: the command, its
// ordered option flag/value pairs, and the single-entry format mapping that
// selects the output columns.
type QueryConfig struct {
	Command string   `yaml:"command"`
	Options *Options `yaml:"options"`
	Format  *Options `yaml:"format"`
}

// Config is the external configuration surface. The core receives it as
// plain data; the only rule enforced here beyond shape is that intervals and
// line counts are sane, while the exactly-one-format rule is enforced when
// the Inspector builds its QuerySpecs.
type Config struct {
	PollingInterval *float64    `yaml:"polling_interval"`
	User            string      `yaml:"user"`
	Squeue          QueryConfig `yaml:"squeue"`
	Sinfo           QueryConfig `yaml:"sinfo"`
	Detail          QueryConfig `yaml:"detail"`
	CancelCommand   string      `yaml:"cancel_command"`
	TailLines       int         `yaml:"tail_lines"`
	LogFile         string      `yaml:"log_file"`
}

// DefaultConfig mirrors the stock squeue/sinfo formats the dashboard was
// designed around.
func DefaultConfig() *Config {
	interval := defaultPollingSeconds

	squeueFormat := NewOptions()
	squeueFormat.Set("-O", "JobId,UserName,Name:"+maxFieldChars+",STATE,ReasonList,TimeUsed")

	sinfoFormat := NewOptions()
	sinfoFormat.Set("-o", "%10P %5c %5a %10l %20G %4D %6t")

	detailFormat := NewOptions()
	detailFormat.Set("-O", detailFormatValue())

	return &Config{
		PollingInterval: &interval,
		Squeue:          QueryConfig{Command: "squeue", Options: NewOptions(), Format: squeueFormat},
		Sinfo:           QueryConfig{Command: "sinfo", Options: NewOptions(), Format: sinfoFormat},
		Detail:          QueryConfig{Command: "squeue", Options: NewOptions(), Format: detailFormat},
		CancelCommand:   defaultCancelCommand,
		TailLines:       defaultTailLines,
	}
}

func detailFormatValue() string {
	fields := []string{
		"JobId", "UserName", "Name", "STATE", "Reason", "Nodes", "NumCPUs",
		"cpus-per-task", "Partition", "TimeUsed", "TimeLeft", "SubmitTime",
		"StartTime", "STDOUT", "WorkDir",
	}
	value := ""
	for i, f := range fields {
		if i > 0 {
			value += ","
		}
		value += f + ":" + maxFieldChars
	}
	return value
}

// LoadConfig reads a YAML config file and fills unset fields from defaults.
// With an empty path the default location is used and a missing file is fine;
// an explicitly named file must exist.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file; run on defaults.
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "slurmvision", "config.yml")
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.PollingInterval == nil {
		c.PollingInterval = def.PollingInterval
	}
	if c.CancelCommand == "" {
		c.CancelCommand = def.CancelCommand
	}
	if c.TailLines == 0 {
		c.TailLines = def.TailLines
	}

	fillQuery(&c.Squeue, def.Squeue)
	fillQuery(&c.Sinfo, def.Sinfo)
	fillQuery(&c.Detail, def.Detail)
}

func fillQuery(dst *QueryConfig, def QueryConfig) {
	if dst.Command == "" {
		dst.Command = def.Command
	}
	if dst.Options == nil {
		dst.Options = def.Options
	}
	if dst.Format == nil {
		dst.Format = def.Format
	}
}

func (c *Config) validate() error {
	if *c.PollingInterval < 0 {
		return &ConfigError{Reason: fmt.Sprintf("polling_interval must be >= 0, got %v", *c.PollingInterval)}
	}
	if c.TailLines < 0 {
		return &ConfigError{Reason: fmt.Sprintf("tail_lines must be >= 0, got %d", c.TailLines)}
	}
	return nil
}

// Interval returns the polling interval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(*c.PollingInterval * float64(time.Second))
}
