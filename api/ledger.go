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

package api

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/blinklabs-io/circles/database"
	"github.com/blinklabs-io/circles/ledger"
)

// Ledger is the subset of the ledger state the API depends on.
// *ledger.LedgerState implements it
type Ledger interface {
	Head() ledger.Head
	View(ctx context.Context, fn func(*ledger.Tx) error) error
	Submit(
		ctx context.Context,
		origin common.Address,
		fn func(*ledger.Tx) error,
	) error
	Events(
		ctx context.Context,
		since uint64,
		limit int,
	) ([]database.EventRecord, error)
	Mine(ctx context.Context, count uint64) error
	IncreaseTime(ctx context.Context, seconds uint64) error
	Fund(ctx context.Context, addr common.Address, amount *big.Int) error
}

var _ Ledger = (*ledger.LedgerState)(nil)
