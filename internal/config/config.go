// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "circles.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultBlobPlugin      = "badger"
	DefaultMetadataPlugin  = "sqlite"
	// EnvPrefix is prepended to the environment variable of every option,
	// for example CIRCLES_API_PORT
	EnvPrefix = "circles"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// RunMode represents the operational mode of the node
type RunMode string

const (
	RunModeServe RunMode = "serve"
	// RunModeDev mines a block per transaction, enables the dev API
	// endpoints and deploys a root circle into an empty ledger
	RunModeDev RunMode = "dev"
)

// Valid returns true if the RunMode is a known valid mode
func (m RunMode) Valid() bool {
	switch m {
	case RunModeServe, RunModeDev, "":
		return true
	default:
		return false
	}
}

func (m RunMode) IsDevMode() bool {
	return m == RunModeDev
}

type Config struct {
	DatabasePath   string `yaml:"databasePath"   split_words:"true"`
	BlobPlugin     string `yaml:"blobPlugin"     envconfig:"DATABASE_BLOB_PLUGIN"`
	MetadataPlugin string `yaml:"metadataPlugin" envconfig:"DATABASE_METADATA_PLUGIN"`
	MetadataDsn    string `yaml:"metadataDsn"    envconfig:"DATABASE_METADATA_DSN"`
	BindAddr       string `yaml:"bindAddr"       split_words:"true"`
	ApiPort        uint   `yaml:"apiPort"        split_words:"true"`
	MetricsPort    uint   `yaml:"metricsPort"    split_words:"true"`
	// Registry pins the circle registry served by the API
	Registry string  `yaml:"registry"`
	RunMode  RunMode `yaml:"runMode"  split_words:"true"`
	Automine bool    `yaml:"automine"`
	// BlockInterval is the ledger time between blocks in seconds
	BlockInterval uint64 `yaml:"blockInterval"  split_words:"true"`
	// MiningInterval is a wall clock duration such as "12s". Empty
	// disables the block producer
	MiningInterval    string `yaml:"miningInterval"    split_words:"true"`
	GenesisTime       uint64 `yaml:"genesisTime"       split_words:"true"`
	DevNetConfig      string `yaml:"devnetConfig"      envconfig:"DEVNET_CONFIG"`
	NatsUrl           string `yaml:"natsUrl"           split_words:"true"`
	NatsSubjectPrefix string `yaml:"natsSubjectPrefix" split_words:"true"`
	Tracing           bool   `yaml:"tracing"`
	TracingStdout     bool   `yaml:"tracingStdout"     split_words:"true"`
	ShutdownTimeout   string `yaml:"shutdownTimeout"   split_words:"true"`
}

// DefaultConfig returns the settings used when neither a config file
// nor the environment override them
func DefaultConfig() *Config {
	return &Config{
		DatabasePath:    ".circles",
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		BindAddr:        "0.0.0.0",
		ApiPort:         8545,
		MetricsPort:     12798,
		RunMode:         RunModeServe,
		BlockInterval:   12,
		MiningInterval:  "12s",
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// findConfigFile returns ~/.circles/circles.yaml or
// /etc/circles/circles.yaml, whichever exists first
func findConfigFile() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".circles", "circles.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	systemPath := "/etc/circles/circles.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}

// LoadConfig applies the config file and then the environment over the
// defaults
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if cfg.RunMode == "" {
		cfg.RunMode = RunModeServe
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if !c.RunMode.Valid() {
		return fmt.Errorf(
			"invalid runMode: %q (must be 'serve' or 'dev')",
			c.RunMode,
		)
	}
	if c.Registry != "" && !common.IsHexAddress(c.Registry) {
		return fmt.Errorf("invalid registry address: %q", c.Registry)
	}
	if _, err := c.ShutdownDuration(); err != nil {
		return err
	}
	if _, err := c.MiningDuration(); err != nil {
		return err
	}
	if c.BlockInterval == 0 {
		return errors.New("blockInterval must be positive")
	}
	return nil
}

func (c *Config) ShutdownDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return 30 * time.Second, nil
	}
	ret, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	return ret, nil
}

// MiningDuration returns the block producer interval. Zero means blocks
// are only mined by transactions or explicit requests
func (c *Config) MiningDuration() (time.Duration, error) {
	if c.MiningInterval == "" {
		return 0, nil
	}
	ret, err := time.ParseDuration(c.MiningInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid mining interval: %w", err)
	}
	if ret < 0 {
		return 0, fmt.Errorf("invalid mining interval: %s", c.MiningInterval)
	}
	return ret, nil
}

// RegistryAddress returns the pinned registry, or the zero address
func (c *Config) RegistryAddress() common.Address {
	if c.Registry == "" {
		return common.Address{}
	}
	return common.HexToAddress(c.Registry)
}
