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

package node_test

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/circles"
	"github.com/blinklabs-io/circles/internal/config"
	"github.com/blinklabs-io/circles/internal/node"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNodeConfigDevModeDisablesProducer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RunMode = config.RunModeDev
	// The default mining interval would conflict with automine
	require.Equal(t, "12s", cfg.MiningInterval)
	nodeCfg, err := node.NodeConfig(cfg, testLogger(), prometheus.NewRegistry())
	require.NoError(t, err)
	_, err = circles.New(nodeCfg)
	require.NoError(t, err)
}

func TestNodeConfigServeMode(t *testing.T) {
	cfg := config.DefaultConfig()
	nodeCfg, err := node.NodeConfig(cfg, testLogger(), nil)
	require.NoError(t, err)
	_, err = circles.New(nodeCfg)
	require.NoError(t, err)
}

func TestNodeConfigErrors(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ShutdownTimeout = "soon"
	_, err := node.NodeConfig(cfg, testLogger(), nil)
	require.Error(t, err)

	cfg = config.DefaultConfig()
	cfg.RunMode = config.RunModeDev
	cfg.DevNetConfig = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = node.NodeConfig(cfg, testLogger(), nil)
	require.Error(t, err)
}
