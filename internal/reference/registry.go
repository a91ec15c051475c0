/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package reference holds the immutable protocol and token lookup tables used by scoring.
package reference

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Category is a bit set of protocol capabilities
type Category uint8

const (
	CategoryLending Category = 1 << iota
	CategoryDEX
	CategoryStaking
)

func (c Category) Has(other Category) bool { return c&other != 0 }

// Protocol describes a known contract
type Protocol struct {
	Name       string
	Categories Category
	Audited    bool
}

// Classifier resolves a contract address to a known protocol.
type Classifier interface {
	Classify(addr common.Address) (Protocol, bool)
}

// TokenClassifier answers token-quality questions.
type TokenClassifier interface {
	IsStablecoin(addr common.Address) bool
	IsBlueChip(addr common.Address) bool
}

// Token describes a known token contract
type Token struct {
	Symbol     string
	Stablecoin bool
	BlueChip   bool
}

// Registry is an immutable set of lookup tables. It satisfies both Classifier and TokenClassifier.
type Registry struct {
	nativeSymbol string
	protocols    map[common.Address]Protocol
	tokens       map[common.Address]Token
}

// NewRegistry copies the given tables. Stablecoins are always blue-chip.
func NewRegistry(nativeSymbol string, protocols map[common.Address]Protocol, tokens map[common.Address]Token) (*Registry, error) {
	if nativeSymbol == "" {
		return nil, fmt.Errorf("native symbol cannot be empty")
	}
	r := &Registry{
		nativeSymbol: nativeSymbol,
		protocols:    make(map[common.Address]Protocol, len(protocols)),
		tokens:       make(map[common.Address]Token, len(tokens)),
	}
	for addr, p := range protocols {
		if p.Name == "" {
			return nil, fmt.Errorf("protocol %s has no name", addr.Hex())
		}
		r.protocols[addr] = p
	}
	for addr, t := range tokens {
		if t.Stablecoin {
			t.BlueChip = true
		}
		r.tokens[addr] = t
	}
	return r, nil
}

func (r *Registry) Classify(addr common.Address) (Protocol, bool) {
	p, ok := r.protocols[addr]
	return p, ok
}

func (r *Registry) IsStablecoin(addr common.Address) bool {
	return r.tokens[addr].Stablecoin
}

func (r *Registry) IsBlueChip(addr common.Address) bool {
	return r.tokens[addr].BlueChip
}

// NativeSymbol is the ticker of the chain's native currency, e.g. BNB.
func (r *Registry) NativeSymbol() string { return r.nativeSymbol }

// ProtocolCount and TokenCount report table sizes for startup logging.
func (r *Registry) ProtocolCount() int { return len(r.protocols) }
func (r *Registry) TokenCount() int { return len(r.tokens) }
