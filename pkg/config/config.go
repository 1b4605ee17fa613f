package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Controller *Controller `yaml:"controller,omitempty" json:"controller,omitempty"`
	Southbound *SBI        `yaml:"southbound,omitempty" json:"southbound,omitempty"`
	Prometheus *PromConfig `yaml:"prometheus,omitempty" json:"prometheus,omitempty"`
}

// New reads the config file, applies defaults and validates the result.
// An empty file name yields a config with defaults only.
func New(file string) (*Config, error) {
	c := new(Config)
	if file != "" {
		file, err := homedir.Expand(file)
		if err != nil {
			return nil, err
		}
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		err = yaml.Unmarshal(b, c)
		if err != nil {
			return nil, err
		}
	}
	err := c.validateSetDefaults()
	return c, err
}

func (c *Config) validateSetDefaults() error {
	if c.Controller == nil {
		c.Controller = &Controller{}
	}
	if err := c.Controller.validateSetDefaults(); err != nil {
		return err
	}
	if c.Southbound == nil {
		c.Southbound = &SBI{}
	}
	if err := c.Southbound.validateSetDefaults(); err != nil {
		return err
	}
	if c.Prometheus != nil && c.Prometheus.Address == "" {
		c.Prometheus.Address = defaultPromAddress
	}
	return nil
}

// Controller holds the reconciliation loop settings.
type Controller struct {
	// maximum number of DeviceConfig objects reconciled in parallel.
	// Applies to distinct devices, a single device is never reconciled
	// concurrently.
	MaxConcurrentReconciles int `yaml:"max-concurrent-reconciles,omitempty" json:"max-concurrent-reconciles,omitempty"`
	// delay before a reconciliation blocked by an in-flight apply or a
	// held device lock is retried
	RetryDelay time.Duration `yaml:"retry-delay,omitempty" json:"retry-delay,omitempty"`
}

func (c *Controller) validateSetDefaults() error {
	if c.MaxConcurrentReconciles <= 0 {
		c.MaxConcurrentReconciles = defaultMaxConcurrentReconciles
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	return nil
}

type TLS struct {
	CA         string `yaml:"ca,omitempty" json:"ca,omitempty"`
	Cert       string `yaml:"cert,omitempty" json:"cert,omitempty"`
	Key        string `yaml:"key,omitempty" json:"key,omitempty"`
	SkipVerify bool   `yaml:"skip-verify,omitempty" json:"skip-verify,omitempty"`
}

type PromConfig struct {
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
}

func (c *Config) Validate() error {
	if c.Southbound == nil {
		return errors.New("southbound definition is required")
	}
	switch c.Southbound.Type {
	case "netconf", "gnmi", "noop":
	default:
		return fmt.Errorf("unknown southbound type %q", c.Southbound.Type)
	}
	return nil
}
