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

package circles

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/circles/internal/devnet"
)

// runMode constants for operational mode configuration
const (
	runModeServe = "serve"
	runModeDev   = "dev"
)

type Config struct {
	promRegistry      prometheus.Registerer
	logger            *slog.Logger
	devNetConfig      *devnet.DevNetConfig
	dataDir           string
	blobPlugin        string
	metadataPlugin    string
	metadataDsn       string
	apiListenAddress  string
	registry          common.Address
	natsUrl           string
	natsSubjectPrefix string
	runMode           string
	blockInterval     uint64
	genesisTime       uint64
	miningInterval    time.Duration
	shutdownTimeout   time.Duration
	automine          bool
	tracing           bool
	tracingStdout     bool
}

// isDevMode returns true if running in development mode
func (c *Config) isDevMode() bool {
	return c.runMode == runModeDev
}

func (n *Node) configValidate() error {
	switch n.config.runMode {
	case "", runModeServe, runModeDev:
	default:
		return errors.New("run mode must be 'serve' or 'dev'")
	}
	if n.config.automine && n.config.miningInterval > 0 {
		return errors.New("automine and a mining interval are exclusive")
	}
	if n.config.tracingStdout && !n.config.tracing {
		return errors.New("stdout tracing requires tracing to be enabled")
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new node config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
		runMode: runModeServe,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithMetadataDsn specifies the connection string for the postgres and mysql metadata plugins
func WithMetadataDsn(dsn string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataDsn = dsn
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

// WithRunMode sets the operational mode ("serve" or "dev").
// Dev mode mines a block per transaction, exposes the dev API endpoints and
// bootstraps a root circle into an empty ledger
func WithRunMode(mode string) ConfigOptionFunc {
	return func(c *Config) {
		c.runMode = mode
	}
}

// WithApiListenAddress sets the REST API listen address (e.g. ":8545"). Empty disables the API
func WithApiListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = addr
	}
}

// WithRegistry pins the circle registry served by the API
func WithRegistry(registry common.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.registry = registry
	}
}

// WithAutomine mines one block after every committed transaction
func WithAutomine(automine bool) ConfigOptionFunc {
	return func(c *Config) {
		c.automine = automine
	}
}

// WithBlockInterval sets the ledger time in seconds between consecutive blocks
func WithBlockInterval(seconds uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.blockInterval = seconds
	}
}

// WithMiningInterval enables a block producer that mines on a wall clock interval
func WithMiningInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.miningInterval = interval
	}
}

// WithGenesisTime sets the timestamp of the genesis head of a new ledger
func WithGenesisTime(timestamp uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.genesisTime = timestamp
	}
}

// WithDevNetConfig sets the deployment bootstrapped in dev mode. The default is devnet.DefaultConfig()
func WithDevNetConfig(cfg *devnet.DevNetConfig) ConfigOptionFunc {
	return func(c *Config) {
		c.devNetConfig = cfg
	}
}

// WithNatsUrl enables publishing ledger events to a NATS server
func WithNatsUrl(url string) ConfigOptionFunc {
	return func(c *Config) {
		c.natsUrl = url
	}
}

// WithNatsSubjectPrefix sets the subject prefix for published events
func WithNatsSubjectPrefix(prefix string) ConfigOptionFunc {
	return func(c *Config) {
		c.natsSubjectPrefix = prefix
	}
}
