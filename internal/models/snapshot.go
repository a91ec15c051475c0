package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ActivitySnapshot is the normalized on-chain activity of one address.
// AsOf is the reference "now" of the scoring run; nothing in scoring reads the wall clock.
type ActivitySnapshot struct {
	Address        common.Address
	AsOf           time.Time
	NativeBalance  decimal.Decimal // wei
	Nonce          uint64
	Transactions   []Transaction
	TokenTransfers []TokenTransfer
	InternalTxs    []InternalTx
}

// Transaction is an external (EOA-signed) transaction
type Transaction struct {
	Hash            common.Hash
	Block           uint64
	Timestamp       time.Time
	From            common.Address
	To              *common.Address // nil for contract creation
	Value           decimal.Decimal
	GasUsed         uint64
	Succeeded       bool
	Selector        string // first 4 bytes of input, 0x-prefixed
	FunctionName    string
	ContractAddress *common.Address
}

// TokenTransfer is a fungible or non-fungible token movement
type TokenTransfer struct {
	Hash          common.Hash
	Block         uint64
	Timestamp     time.Time
	From          common.Address
	To            common.Address
	Value         decimal.Decimal
	TokenSymbol   string
	TokenDecimals int
	TokenContract common.Address
}

// InternalTx is a value transfer produced by contract execution
type InternalTx struct {
	Hash      common.Hash
	Block     uint64
	Timestamp time.Time
	From      common.Address
	To        *common.Address
	Value     decimal.Decimal
}

// DimensionScore is one bounded sub-score of the composite credit score
type DimensionScore struct {
	Name      string `json:"name"`
	Score     int    `json:"score"`
	MaxScore  int    `json:"max_score"`
	WeightBps int    `json:"weight_bps"`
	Rationale string `json:"rationale"`
}

// ScoreResult is the output of a scoring pass
type ScoreResult struct {
	Address    common.Address   `json:"address"`
	Score      int              `json:"score"`
	Tier       Tier             `json:"tier"`
	RawTotal   int              `json:"raw_total"`
	Dimensions []DimensionScore `json:"dimensions"`
}
