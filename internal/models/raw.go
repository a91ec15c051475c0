package models

// RawActivity is provider-shaped wallet activity before normalization.
// Quantities are 0x-hex or base-10 strings; timestamps are unix seconds.
type RawActivity struct {
	Balance   string
	Nonce     string
	Transfers []RawTransfer
}

// RawTransfer is one asset transfer record as returned by the chain-data provider
type RawTransfer struct {
	Category        string // external, internal, 20, 721, 1155
	BlockNum        string
	BlockTimeStamp  string
	Hash            string
	From            string
	To              string
	Value           string
	GasUsed         string
	ReceiptsStatus  string
	Input           string
	FunctionName    string
	ContractAddress string
	Asset           string
	Decimal         string
}
