package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"credshield-go/internal/reference"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"
)

type ProtocolConfig struct {
	Address    string   `yaml:"address"`
	Name       string   `yaml:"name"`
	Categories []string `yaml:"categories"` // lending, dex, staking
	Audited    bool     `yaml:"audited"`
}

type TokenConfig struct {
	Address    string `yaml:"address"`
	Symbol     string `yaml:"symbol"`
	Stablecoin bool   `yaml:"stablecoin"`
	BlueChip   bool   `yaml:"blue_chip"`
}

type ReferenceConfig struct {
	NativeSymbol string           `yaml:"native_symbol"`
	Protocols    []ProtocolConfig `yaml:"protocols"`
	Tokens       []TokenConfig    `yaml:"tokens"`
}

// LoadReferenceTables returns the built-in registry when referenceFile is empty,
// otherwise the registry described by the YAML file.
func LoadReferenceTables(referenceFile string) (*reference.Registry, error) {
	if referenceFile == "" {
		return reference.Default(), nil
	}

	var referencePath string
	if filepath.IsAbs(referenceFile) {
		referencePath = referenceFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		referencePath = filepath.Join(wd, referenceFile)
	}

	data, err := os.ReadFile(referencePath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", referenceFile, err)
	}
	return ParseReferenceTables(data)
}

func ParseReferenceTables(data []byte) (*reference.Registry, error) {
	var config ReferenceConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse reference tables: %w", err)
	}
	if config.NativeSymbol == "" {
		config.NativeSymbol = reference.DefaultNativeSymbol
	}

	protocols := make(map[ethcommon.Address]reference.Protocol, len(config.Protocols))
	for i, p := range config.Protocols {
		if !ethcommon.IsHexAddress(p.Address) {
			return nil, fmt.Errorf("protocol at index %d has invalid address %q", i, p.Address)
		}
		var categories reference.Category
		for _, c := range p.Categories {
			switch strings.ToLower(c) {
			case "lending":
				categories |= reference.CategoryLending
			case "dex", "lp":
				categories |= reference.CategoryDEX
			case "staking":
				categories |= reference.CategoryStaking
			default:
				return nil, fmt.Errorf("protocol at index %d has unknown category %q", i, c)
			}
		}
		protocols[ethcommon.HexToAddress(p.Address)] = reference.Protocol{
			Name:       p.Name,
			Categories: categories,
			Audited:    p.Audited,
		}
	}

	tokens := make(map[ethcommon.Address]reference.Token, len(config.Tokens))
	for i, t := range config.Tokens {
		if !ethcommon.IsHexAddress(t.Address) {
			return nil, fmt.Errorf("token at index %d has invalid address %q", i, t.Address)
		}
		tokens[ethcommon.HexToAddress(t.Address)] = reference.Token{
			Symbol:     t.Symbol,
			Stablecoin: t.Stablecoin,
			BlueChip:   t.BlueChip,
		}
	}

	return reference.NewRegistry(config.NativeSymbol, protocols, tokens)
}
