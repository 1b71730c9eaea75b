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
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/circles/ledger"
	"github.com/blinklabs-io/circles/registry"
)

func TestDevNodeBootstrap(t *testing.T) {
	promRegistry := prometheus.NewRegistry()
	n, err := New(NewConfig(
		WithRunMode(runModeDev),
		WithPrometheusRegistry(promRegistry),
	))
	require.NoError(t, err)
	require.NoError(t, n.Start(context.Background()))
	t.Cleanup(func() { _ = n.Stop() })

	dep := n.Deployment()
	require.NotNil(t, dep)
	require.NotNil(t, dep.Root)
	err = n.LedgerState().View(context.Background(), func(tx *ledger.Tx) error {
		root, err := registry.Get(tx, dep.Registry, dep.Root.ID)
		require.NoError(t, err)
		assert.Equal(t, dep.Root.Governor, root.Governor)
		return nil
	})
	require.NoError(t, err)
	assert.InDelta(t, 1, testutil.ToFloat64(n.metrics.circles), 0)
	assert.Error(t, n.Start(context.Background()))
}

func TestServeNodeSkipsBootstrap(t *testing.T) {
	n, err := New(NewConfig())
	require.NoError(t, err)
	require.NoError(t, n.Start(context.Background()))
	assert.Nil(t, n.Deployment())
	assert.NotNil(t, n.EventBus())
	require.NoError(t, n.Stop())
	// Stop is idempotent
	require.NoError(t, n.Stop())
}

func TestRunStopsOnCancel(t *testing.T) {
	n, err := New(NewConfig())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, n.Run(ctx))
	select {
	case <-n.done:
	default:
		t.Fatal("node did not shut down")
	}
}
