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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateHome points the config file search away from the real home
func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "circles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolateHome(t)
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	d, err := cfg.ShutdownDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
	assert.Equal(t, common.Address{}, cfg.RegistryAddress())
}

func TestLoadCompareFullStruct(t *testing.T) {
	isolateHome(t)
	path := writeConfig(t, `
databasePath: "/var/lib/circles"
blobPlugin: "badger"
metadataPlugin: "postgres"
metadataDsn: "host=db user=circles"
bindAddr: "127.0.0.1"
apiPort: 9000
metricsPort: 9100
registry: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
runMode: "dev"
automine: true
blockInterval: 5
miningInterval: ""
genesisTime: 1700000000
devnetConfig: "devnet.yaml"
natsUrl: "nats://localhost:4222"
natsSubjectPrefix: "gov"
tracing: true
tracingStdout: true
shutdownTimeout: "5s"
`)
	expected := &Config{
		DatabasePath:      "/var/lib/circles",
		BlobPlugin:        "badger",
		MetadataPlugin:    "postgres",
		MetadataDsn:       "host=db user=circles",
		BindAddr:          "127.0.0.1",
		ApiPort:           9000,
		MetricsPort:       9100,
		Registry:          "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		RunMode:           RunModeDev,
		Automine:          true,
		BlockInterval:     5,
		MiningInterval:    "",
		GenesisTime:       1700000000,
		DevNetConfig:      "devnet.yaml",
		NatsUrl:           "nats://localhost:4222",
		NatsSubjectPrefix: "gov",
		Tracing:           true,
		TracingStdout:     true,
		ShutdownTimeout:   "5s",
	}
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, expected, cfg)
	assert.Equal(
		t,
		common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		cfg.RegistryAddress(),
	)
	mining, err := cfg.MiningDuration()
	require.NoError(t, err)
	assert.Zero(t, mining)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	isolateHome(t)
	path := writeConfig(t, "apiPort: 9000\nnatsUrl: nats://file:4222\n")
	t.Setenv("CIRCLES_API_PORT", "9001")
	t.Setenv("CIRCLES_DATABASE_METADATA_PLUGIN", "mysql")
	t.Setenv("CIRCLES_RUN_MODE", "dev")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint(9001), cfg.ApiPort)
	assert.Equal(t, "mysql", cfg.MetadataPlugin)
	assert.Equal(t, "nats://file:4222", cfg.NatsUrl)
	assert.True(t, cfg.RunMode.IsDevMode())
}

func TestLoadUserConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".circles"), 0o700))
	require.NoError(t, os.WriteFile(
		filepath.Join(home, ".circles", "circles.yaml"),
		[]byte("metricsPort: 7000\n"),
		0o600,
	))
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, uint(7000), cfg.MetricsPort)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{name: "run mode", content: "runMode: load\n", errText: "invalid runMode"},
		{name: "registry", content: "registry: nope\n", errText: "invalid registry"},
		{name: "shutdown", content: "shutdownTimeout: soon\n", errText: "invalid shutdown timeout"},
		{name: "mining", content: "miningInterval: often\n", errText: "invalid mining interval"},
		{name: "block interval", content: "blockInterval: 0\n", errText: "blockInterval"},
		{name: "yaml", content: "apiPort: [\n", errText: "error parsing config file"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			isolateHome(t)
			_, err := LoadConfig(writeConfig(t, test.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.errText)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestContextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := DefaultConfig()
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
