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

package plugin_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/circles/database/plugin"
)

type testPlugin struct {
	dataDir string
	started bool
}

func (p *testPlugin) Start() error {
	p.started = true
	return nil
}

func (p *testPlugin) Stop() error { return nil }

func TestRegisterAndStart(t *testing.T) {
	plugin.Register(plugin.PluginEntry{
		Type: plugin.PluginTypeBlob,
		Name: "test-blob",
		NewFromOptionsFunc: func(opts plugin.Options) plugin.Plugin {
			return &testPlugin{dataDir: opts.DataDir}
		},
	})
	p, err := plugin.StartPlugin(
		plugin.PluginTypeBlob,
		"test-blob",
		plugin.Options{DataDir: "/tmp/x"},
	)
	require.NoError(t, err)
	tp, ok := p.(*testPlugin)
	require.True(t, ok)
	assert.True(t, tp.started)
	assert.Equal(t, "/tmp/x", tp.dataDir)

	names := []string{}
	for _, entry := range plugin.GetPlugins(plugin.PluginTypeBlob) {
		names = append(names, entry.Name)
	}
	assert.Contains(t, names, "test-blob")
	assert.Empty(t, plugin.GetPlugins(plugin.PluginType(99)))
}

func TestStartPluginNotFound(t *testing.T) {
	_, err := plugin.StartPlugin(
		plugin.PluginTypeMetadata,
		"does-not-exist",
		plugin.Options{},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata plugin 'does-not-exist' not found")
}

func TestErrorPluginDefersError(t *testing.T) {
	testErr := errors.New("boom")
	plugin.Register(plugin.PluginEntry{
		Type: plugin.PluginTypeMetadata,
		Name: "test-broken",
		NewFromOptionsFunc: func(plugin.Options) plugin.Plugin {
			return plugin.NewErrorPlugin(testErr)
		},
	})
	_, err := plugin.StartPlugin(
		plugin.PluginTypeMetadata,
		"test-broken",
		plugin.Options{},
	)
	require.ErrorIs(t, err, testErr)
}
