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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/circles/database"
	"github.com/blinklabs-io/circles/internal/config"
	"github.com/blinklabs-io/circles/internal/devnet"
	"github.com/blinklabs-io/circles/ledger"
)

// bootstrapRun deploys a governance hierarchy into the configured
// database and prints the resulting addresses
func bootstrapRun(
	ctx context.Context,
	cfg *config.Config,
	devnetPath string,
	force bool,
	logger *slog.Logger,
) (*devnet.Deployment, error) {
	devCfg, err := devnet.LoadDevNetConfig(devnetPath)
	if err != nil {
		return nil, err
	}
	db, err := database.New(&database.Config{
		Logger:         logger,
		BlobPlugin:     cfg.BlobPlugin,
		MetadataPlugin: cfg.MetadataPlugin,
		MetadataDsn:    cfg.MetadataDsn,
		DataDir:        cfg.DatabasePath,
	})
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	ls, err := ledger.NewLedgerState(ledger.LedgerStateConfig{
		Database:      db,
		Logger:        logger,
		BlockInterval: cfg.BlockInterval,
		GenesisTime:   cfg.GenesisTime,
		Automine:      true,
	})
	if err != nil {
		return nil, err
	}
	defer ls.Close()
	if !force {
		var existing int
		err := ls.View(ctx, func(tx *ledger.Tx) error {
			ms, txn := tx.Metadata()
			rows, err := ms.GetContracts(ledger.KindRegistry, txn)
			existing = len(rows)
			return err
		})
		if err != nil {
			return nil, err
		}
		if existing > 0 {
			return nil, errors.New(
				"database already holds a circle registry, use --force to deploy another",
			)
		}
	}
	return devnet.Bootstrap(ctx, ls, devCfg)
}

func bootstrapCommand() *cobra.Command {
	var devnetPath string
	var force bool
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Deploy a token, registry, factory and root circle",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			if devnetPath == "" {
				devnetPath = cfg.DevNetConfig
			}
			logger := commonRun()
			dep, err := bootstrapRun(cmd.Context(), cfg, devnetPath, force, logger)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			out, err := json.MarshalIndent(dep, "", "  ")
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			fmt.Println(string(out))
		},
	}
	cmd.Flags().
		StringVar(&devnetPath, "devnet", "", "path to a deployment description")
	cmd.Flags().
		BoolVar(&force, "force", false, "deploy even if a registry already exists")
	return cmd
}
