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

package ledger

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Batch argument layout shared by proposals and timelock operations
var (
	AddressSliceType = mustNewType("address[]")
	Uint256SliceType = mustNewType("uint256[]")
	BytesSliceType   = mustNewType("bytes[]")
	Bytes32Type      = mustNewType("bytes32")
)

func mustNewType(t string) abi.Type {
	ret, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return ret
}

// MustParseABI parses a JSON ABI definition and panics on failure. It is
// meant for package-level contract definitions
func MustParseABI(def string) *abi.ABI {
	ret, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid contract ABI: %s", err))
	}
	return &ret
}

// Batch is a list of calls. Targets, Values and Calldatas are parallel
type Batch struct {
	Targets   []common.Address
	Values    []*big.Int
	Calldatas [][]byte
}

// Len returns the batch length, or -1 when the slices differ in length
func (b Batch) Len() int {
	if len(b.Targets) != len(b.Values) || len(b.Targets) != len(b.Calldatas) {
		return -1
	}
	return len(b.Targets)
}

// HashBatch returns keccak256(abi.encode(targets, values, calldatas, extra...))
// where each extra word is a bytes32
func HashBatch(batch Batch, extra ...common.Hash) (common.Hash, error) {
	args := abi.Arguments{
		{Type: AddressSliceType},
		{Type: Uint256SliceType},
		{Type: BytesSliceType},
	}
	vals := []any{batch.Targets, normalizeValues(batch.Values), batch.Calldatas}
	for _, e := range extra {
		args = append(args, abi.Argument{Type: Bytes32Type})
		vals = append(vals, [32]byte(e))
	}
	packed, err := args.Pack(vals...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %w", ErrInvalidCalldata, err)
	}
	return crypto.Keccak256Hash(packed), nil
}

func normalizeValues(values []*big.Int) []*big.Int {
	ret := make([]*big.Int, len(values))
	for i, v := range values {
		if v == nil {
			v = new(big.Int)
		}
		ret[i] = v
	}
	return ret
}
