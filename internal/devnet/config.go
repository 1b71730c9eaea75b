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

// Package devnet deploys a development governance tree on a fresh ledger:
// a voting token, the circle registry, the factory and a root circle.
package devnet

import (
	"bytes"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Amount is a wei amount given in YAML as a decimal string
type Amount struct {
	*big.Int
}

func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	v, ok := new(big.Int).SetString(value.Value, 10)
	if !ok || v.Sign() < 0 {
		return fmt.Errorf("invalid amount %q", value.Value)
	}
	a.Int = v
	return nil
}

func (a Amount) MarshalYAML() (any, error) {
	if a.Int == nil {
		return "0", nil
	}
	return a.String(), nil
}

// Big returns the amount treating nil as zero
func (a Amount) Big() *big.Int {
	if a.Int == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.Int)
}

type TokenConfig struct {
	Name   string         `yaml:"name"`
	Symbol string         `yaml:"symbol"`
	Supply Amount         `yaml:"supply"`
	Holder common.Address `yaml:"holder"`
}

type RootCircleConfig struct {
	Name              string `yaml:"name"`
	VotingDelay       uint64 `yaml:"votingDelay"`
	VotingPeriod      uint64 `yaml:"votingPeriod"`
	ProposalThreshold Amount `yaml:"proposalThreshold"`
	QuorumNumerator   uint64 `yaml:"quorumNumerator"`
	TimelockDelay     uint64 `yaml:"timelockDelay"`
	QueueGracePeriod  uint64 `yaml:"queueGracePeriod"`
}

type Allocation struct {
	Address common.Address `yaml:"address"`
	Amount  Amount         `yaml:"amount"`
}

// DevNetConfig describes the initial deployment
type DevNetConfig struct {
	Deployer common.Address   `yaml:"deployer"`
	Token    TokenConfig      `yaml:"token"`
	Root     RootCircleConfig `yaml:"root"`
	Fund     []Allocation     `yaml:"fund"`
}

// DefaultDeployer is the well known first development account
var DefaultDeployer = common.HexToAddress(
	"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
)

// DefaultConfig returns a deployment where the deployer holds the whole
// token supply and the root circle uses short voting windows
func DefaultConfig() *DevNetConfig {
	supply, _ := new(big.Int).SetString("1000000000000000000000000", 10)
	funds, _ := new(big.Int).SetString("10000000000000000000000", 10)
	return &DevNetConfig{
		Deployer: DefaultDeployer,
		Token: TokenConfig{
			Name:   "Circles Governance",
			Symbol: "CGOV",
			Supply: Amount{supply},
		},
		Root: RootCircleConfig{
			Name:            "Root Circle",
			VotingDelay:     1,
			VotingPeriod:    10,
			QuorumNumerator: 4,
			TimelockDelay:   1,
		},
		Fund: []Allocation{
			{Address: DefaultDeployer, Amount: Amount{funds}},
		},
	}
}

// LoadDevNetConfig reads a deployment description from a YAML file over
// the defaults
func LoadDevNetConfig(path string) (*DevNetConfig, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadDevNetConfig: reading %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("LoadDevNetConfig: parsing %s: %w", path, err)
	}
	return cfg, nil
}
