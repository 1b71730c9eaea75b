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

package plugin

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type PluginType int

const (
	PluginTypeBlob PluginType = iota + 1
	PluginTypeMetadata
)

func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeBlob:
		return "blob"
	case PluginTypeMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

type Plugin interface {
	Start() error
	Stop() error
}

// Options carries the settings shared by all storage plugins
type Options struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// DataDir is the storage directory. An empty value selects in-memory
	// storage for plugins that support it
	DataDir string
	// DSN is the connection string for network databases
	DSN string
}

type PluginEntry struct {
	Type               PluginType
	Name               string
	Description        string
	NewFromOptionsFunc func(Options) Plugin
}

var (
	pluginEntries   []PluginEntry
	pluginEntriesMu sync.RWMutex
)

// Register adds a plugin to the registry. It is normally called from init()
func Register(entry PluginEntry) {
	pluginEntriesMu.Lock()
	defer pluginEntriesMu.Unlock()
	for i, p := range pluginEntries {
		if p.Type == entry.Type && p.Name == entry.Name {
			pluginEntries[i] = entry
			return
		}
	}
	pluginEntries = append(pluginEntries, entry)
}

// GetPlugins returns the registered plugins of the given type sorted by name
func GetPlugins(pluginType PluginType) []PluginEntry {
	pluginEntriesMu.RLock()
	defer pluginEntriesMu.RUnlock()
	ret := []PluginEntry{}
	for _, p := range pluginEntries {
		if p.Type == pluginType {
			ret = append(ret, p)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret
}

// GetPlugin creates a new instance of the named plugin, or returns nil when
// no such plugin is registered
func GetPlugin(pluginType PluginType, pluginName string, opts Options) Plugin {
	pluginEntriesMu.RLock()
	var entry *PluginEntry
	for i := range pluginEntries {
		if pluginEntries[i].Type == pluginType &&
			pluginEntries[i].Name == pluginName {
			tmp := pluginEntries[i]
			entry = &tmp
			break
		}
	}
	pluginEntriesMu.RUnlock()
	if entry == nil || entry.NewFromOptionsFunc == nil {
		return nil
	}
	return entry.NewFromOptionsFunc(opts)
}

// ErrorPlugin is a plugin that always returns an error on Start()
type ErrorPlugin struct {
	Err error
}

func (e *ErrorPlugin) Start() error {
	return e.Err
}

func (e *ErrorPlugin) Stop() error {
	return nil
}

// NewErrorPlugin creates a new error plugin that returns the given error on Start()
func NewErrorPlugin(err error) Plugin {
	return &ErrorPlugin{Err: err}
}

// StartPlugin creates a plugin from the registry and starts it
func StartPlugin(
	pluginType PluginType,
	pluginName string,
	opts Options,
) (Plugin, error) {
	p := GetPlugin(pluginType, pluginName, opts)
	if p == nil {
		return nil, fmt.Errorf(
			"%s plugin '%s' not found",
			PluginTypeName(pluginType),
			pluginName,
		)
	}
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf(
			"failed to start %s plugin '%s': %w",
			PluginTypeName(pluginType),
			pluginName,
			err,
		)
	}
	return p, nil
}
