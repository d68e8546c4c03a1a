// Package config loads the configuration of the sample runner.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/ringwire/disruptor"
)

// Scenario names.
const (
	ScenarioSum         = "sum"
	ScenarioTranslator  = "translator"
	ScenarioFanOut      = "fanout"
	ScenarioPipeline    = "pipeline"
	ScenarioReplication = "replication"
)

// Scenarios lists every scenario in the order they run.
var Scenarios = []string{ScenarioSum, ScenarioTranslator, ScenarioFanOut, ScenarioPipeline, ScenarioReplication}

// Config of the sample runner.
type Config struct {
	BufferSize   int           `yaml:"buffer_size"`
	Events       int           `yaml:"events"`
	SlowEvents   int           `yaml:"slow_events"`
	Value        uint8         `yaml:"value"`
	ProducerType string        `yaml:"producer_type"`
	WaitStrategy string        `yaml:"wait_strategy"`
	WaitTimeout  time.Duration `yaml:"wait_timeout"`
	Executor     string        `yaml:"executor"`
	PoolSize     int           `yaml:"pool_size"`
	LockOSThread bool          `yaml:"lock_os_thread"`
	Scenarios    []string      `yaml:"scenarios"`
	Metrics      bool          `yaml:"metrics"`
	Delay        Delay         `yaml:"delay"`
}

// Delay configures the simulated work of the fanout and pipeline handlers.
// Those scenarios publish SlowEvents events instead of Events.
type Delay struct {
	Constant  time.Duration `yaml:"constant"`
	RandomMin time.Duration `yaml:"random_min"`
	RandomMax time.Duration `yaml:"random_max"`
	Flush     time.Duration `yaml:"flush"`
}

// Default returns the stock sample configuration.
func Default() Config {
	return Config{
		BufferSize:   64,
		Events:       1_000_000,
		SlowEvents:   1_000,
		Value:        1,
		ProducerType: "single",
		WaitStrategy: "blocking",
		WaitTimeout:  time.Millisecond,
		Executor:     "goroutine",
		PoolSize:     8,
		Scenarios:    slices.Clone(Scenarios),
		Delay: Delay{
			Constant:  2 * time.Millisecond,
			RandomMin: time.Millisecond,
			RandomMax: 4 * time.Millisecond,
			Flush:     5 * time.Millisecond,
		},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.Decode(data); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Decode decodes YAML data into c.
func (c *Config) Decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var err error
	if c.BufferSize <= 0 || c.BufferSize&(c.BufferSize-1) != 0 {
		err = multierr.Append(err, fmt.Errorf("buffer_size %d: %w", c.BufferSize, disruptor.ErrCapacity))
	}
	if c.Events <= 0 {
		err = multierr.Append(err, fmt.Errorf("events must be positive, got %d", c.Events))
	}
	if c.SlowEvents <= 0 {
		err = multierr.Append(err, fmt.Errorf("slow_events must be positive, got %d", c.SlowEvents))
	}
	if _, perr := c.Producer(); perr != nil {
		err = multierr.Append(err, perr)
	}
	if _, werr := c.Strategy(); werr != nil {
		err = multierr.Append(err, werr)
	}
	switch c.Executor {
	case "goroutine":
	case "ants":
		if c.PoolSize <= 0 {
			err = multierr.Append(err, fmt.Errorf("pool_size must be positive, got %d", c.PoolSize))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown executor %q", c.Executor))
	}
	for _, s := range c.Scenarios {
		if !slices.Contains(Scenarios, s) {
			err = multierr.Append(err, fmt.Errorf("unknown scenario %q", s))
		}
	}
	if c.Delay.RandomMax < c.Delay.RandomMin {
		err = multierr.Append(err, fmt.Errorf("delay.random_max %v is below delay.random_min %v", c.Delay.RandomMax, c.Delay.RandomMin))
	}
	return err
}

// Producer returns the configured producer type.
func (c Config) Producer() (disruptor.ProducerType, error) {
	switch c.ProducerType {
	case "single", "":
		return disruptor.SingleProducer, nil
	case "multi":
		return disruptor.MultiProducer, nil
	}
	return disruptor.SingleProducer, fmt.Errorf("unknown producer_type %q", c.ProducerType)
}

// Strategy returns a new instance of the configured wait strategy.
func (c Config) Strategy() (disruptor.WaitStrategy, error) {
	switch c.WaitStrategy {
	case "blocking", "":
		return disruptor.NewBlockingWaitStrategy(), nil
	case "busy-spin":
		return disruptor.BusySpinWaitStrategy{}, nil
	case "yielding":
		return disruptor.YieldingWaitStrategy{}, nil
	case "sleeping":
		return disruptor.SleepingWaitStrategy{}, nil
	case "timeout":
		if c.WaitTimeout <= 0 {
			return nil, fmt.Errorf("wait_timeout must be positive, got %v", c.WaitTimeout)
		}
		return disruptor.NewTimeoutBlockingWaitStrategy(c.WaitTimeout), nil
	}
	return nil, fmt.Errorf("unknown wait_strategy %q", c.WaitStrategy)
}
