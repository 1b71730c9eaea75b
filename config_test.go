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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.NotNil(t, cfg.logger)
	assert.Equal(t, runModeServe, cfg.runMode)
	assert.False(t, cfg.isDevMode())
	assert.Empty(t, cfg.apiListenAddress)
}

func TestWithRunMode(t *testing.T) {
	cfg := NewConfig(WithRunMode(runModeDev))
	assert.True(t, cfg.isDevMode())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name  string
		opts  []ConfigOptionFunc
		valid bool
	}{
		{name: "defaults", valid: true},
		{name: "dev", opts: []ConfigOptionFunc{WithRunMode("dev")}, valid: true},
		{name: "unknown mode", opts: []ConfigOptionFunc{WithRunMode("load")}},
		{
			name: "automine with producer",
			opts: []ConfigOptionFunc{
				WithAutomine(true),
				WithMiningInterval(time.Second),
			},
		},
		{name: "stdout without tracing", opts: []ConfigOptionFunc{WithTracingStdout(true)}},
		{
			name: "stdout tracing",
			opts: []ConfigOptionFunc{
				WithTracing(true),
				WithTracingStdout(true),
			},
			valid: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(NewConfig(tt.opts...))
			if tt.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
