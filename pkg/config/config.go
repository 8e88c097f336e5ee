// Package config loads the coordinator's configuration from a YAML file,
// mirroring the option set in the spec: scope, n-vals, bucket identity,
// per-kind quotas, endpoints, and the replication queue name.
package config

import (
	"fmt"
	"os"

	"github.com/cuemby/aaesync/pkg/types"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of the coordinator's configuration file.
type Config struct {
	Scope string `yaml:"scope"`

	LocalNVal  int `yaml:"localnval"`
	RemoteNVal int `yaml:"remotenval"`

	Bucket     string `yaml:"bucket"`
	BucketType string `yaml:"buckettype"`

	NoCheck   int `yaml:"nocheck"`
	AllCheck  int `yaml:"allcheck"`
	HourCheck int `yaml:"hourcheck"`
	DayCheck  int `yaml:"daycheck"`

	PeerIP       string `yaml:"peerip"`
	PeerPort     int    `yaml:"peerport"`
	PeerProtocol string `yaml:"peerprotocol"`

	LocalIP       string `yaml:"localip"`
	LocalPort     int    `yaml:"localport"`
	LocalProtocol string `yaml:"localprotocol"`

	QueueName string `yaml:"queuename"`
}

// Load reads and parses a YAML config file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the scope-dependent required fields called out in the
// spec's configuration section.
func (c *Config) Validate() error {
	switch types.Scope(c.Scope) {
	case types.ScopeAll:
		if c.LocalNVal <= 0 || c.RemoteNVal <= 0 {
			return fmt.Errorf("scope=all requires positive localnval and remotenval")
		}
	case types.ScopeBucket:
		if c.Bucket == "" || c.BucketType == "" {
			return fmt.Errorf("scope=bucket requires bucket and buckettype")
		}
	case types.ScopeDisabled:
		// no additional requirements
	default:
		return fmt.Errorf("unrecognized scope %q", c.Scope)
	}
	return nil
}

// Wants derives the schedule quota tuple from scope, per the spec's
// quota-derivation rules: scope=all uses (nocheck, allcheck, 0, 0),
// scope=bucket uses all four configured quotas, scope=disabled uses a
// fixed (24, 0, 0, 0) — one NoSync slice per hour.
func (c *Config) Wants() types.ScheduleWants {
	switch types.Scope(c.Scope) {
	case types.ScopeAll:
		return types.ScheduleWants{NoSync: c.NoCheck, AllSync: c.AllCheck}
	case types.ScopeBucket:
		return types.ScheduleWants{
			NoSync:   c.NoCheck,
			AllSync:  c.AllCheck,
			DaySync:  c.DayCheck,
			HourSync: c.HourCheck,
		}
	case types.ScopeDisabled:
		return types.ScheduleWants{NoSync: 24}
	default:
		return types.ScheduleWants{NoSync: 24}
	}
}

// RemoteEndpoint and LocalEndpoint build the Endpoint values the
// coordinator state uses for its sink and source, respectively.
func (c *Config) RemoteEndpoint() types.Endpoint {
	return types.Endpoint{Protocol: c.PeerProtocol, IP: c.PeerIP, Port: c.PeerPort}
}

func (c *Config) LocalEndpoint() types.Endpoint {
	return types.Endpoint{Protocol: c.LocalProtocol, IP: c.LocalIP, Port: c.LocalPort}
}

// InitialBucket builds the single initial bucket identifier from the
// bucket/buckettype pair, for scope=bucket configurations.
func (c *Config) InitialBucket() types.BucketID {
	return types.BucketID{Bucket: []byte(c.Bucket), BucketType: []byte(c.BucketType)}
}
