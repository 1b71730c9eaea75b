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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blinklabs-io/circles"
	"github.com/blinklabs-io/circles/internal/config"
	"github.com/blinklabs-io/circles/internal/devnet"
)

// NodeConfig translates the loaded configuration into node options
func NodeConfig(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (circles.Config, error) {
	shutdownTimeout, err := cfg.ShutdownDuration()
	if err != nil {
		return circles.Config{}, err
	}
	miningInterval, err := cfg.MiningDuration()
	if err != nil {
		return circles.Config{}, err
	}
	automine := cfg.Automine || cfg.RunMode.IsDevMode()
	if automine {
		// Blocks follow transactions instead of the wall clock
		miningInterval = 0
	}
	var devNetConfig *devnet.DevNetConfig
	if cfg.RunMode.IsDevMode() {
		devNetConfig = devnet.DefaultConfig()
		if cfg.DevNetConfig != "" {
			devNetConfig, err = devnet.LoadDevNetConfig(cfg.DevNetConfig)
			if err != nil {
				return circles.Config{}, err
			}
		}
	}
	var apiListenAddress string
	if cfg.ApiPort > 0 {
		apiListenAddress = fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ApiPort)
	}
	return circles.NewConfig(
		circles.WithLogger(logger),
		circles.WithPrometheusRegistry(promRegistry),
		circles.WithDatabasePath(cfg.DatabasePath),
		circles.WithBlobPlugin(cfg.BlobPlugin),
		circles.WithMetadataPlugin(cfg.MetadataPlugin),
		circles.WithMetadataDsn(cfg.MetadataDsn),
		circles.WithRunMode(string(cfg.RunMode)),
		circles.WithApiListenAddress(apiListenAddress),
		circles.WithRegistry(cfg.RegistryAddress()),
		circles.WithAutomine(automine),
		circles.WithBlockInterval(cfg.BlockInterval),
		circles.WithMiningInterval(miningInterval),
		circles.WithGenesisTime(cfg.GenesisTime),
		circles.WithDevNetConfig(devNetConfig),
		circles.WithNatsUrl(cfg.NatsUrl),
		circles.WithNatsSubjectPrefix(cfg.NatsSubjectPrefix),
		circles.WithTracing(cfg.Tracing),
		circles.WithTracingStdout(cfg.TracingStdout),
		circles.WithShutdownTimeout(shutdownTimeout),
	), nil
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	nodeCfg, err := NodeConfig(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	shutdownTimeout, _ := cfg.ShutdownDuration()
	n, err := circles.New(nodeCfg)
	if err != nil {
		return err
	}
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Metrics and debug listener
	var metricsServer *http.Server
	metricsErrChan := make(chan error, 1)
	if cfg.MetricsPort > 0 {
		http.Handle("/metrics", promhttp.Handler())
		metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
		logger.Info(
			"serving prometheus metrics on "+metricsAddr,
			"component", "node",
		)
		metricsServer = &http.Server{
			Addr:              metricsAddr,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				metricsErrChan <- fmt.Errorf("metrics listener: %w", err)
			}
		}()
	}
	defer func() {
		if metricsServer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}()

	// Run node in goroutine
	errChan := make(chan error, 1)
	go func() {
		//nolint:contextcheck
		errChan <- n.Run(signalCtx)
	}()

	select {
	case err := <-metricsErrChan:
		logger.Error("metrics server failed", "error", err)
		signalCtxStop()
		return errors.Join(err, <-errChan)
	case err := <-errChan:
		if err != nil {
			logger.Error("node error", "error", err)
			return err
		}
		logger.Info("shutdown complete")
		return nil
	}
}
