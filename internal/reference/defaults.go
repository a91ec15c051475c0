package reference

import "github.com/ethereum/go-ethereum/common"

// DefaultNativeSymbol is the native currency of BNB Smart Chain.
const DefaultNativeSymbol = "BNB"

var defaultProtocols = map[string]Protocol{
	"0x10ed43c718714eb63d5aa57b78b54704e256024e": {"PancakeSwap Router V2", CategoryDEX, true},
	"0x13f4ea83d0bd40e75c8222255bc855a974568dd4": {"PancakeSwap Router V3", CategoryDEX, true},
	"0x556b9306565093c855aea9c3e43b7bcdd55a8f40": {"PancakeSwap MasterChef", CategoryDEX | CategoryStaking, false},
	"0xfd36e2c2a6789db23113685031d7f16329158384": {"Venus Comptroller", CategoryLending, true},
	"0xa07c5b74c9b40447a954e1466938b865b6bbea36": {"Venus vBNB", CategoryLending, true},
	"0xeca88125a5adbe82614ffc12d0db554e2e2867c8": {"Venus vUSDC", CategoryLending, true},
	"0xfd5840cd36d94d7229439859c0112a4185bc0255": {"Venus vUSDT", CategoryLending, true},
	"0xa625ab01b08ce023b2a342dbb12a16f2c8489a8f": {"Alpaca Finance", CategoryLending, true},
	"0x3a6d8ca21d1cf76f653a67577fa0d27453350dd8": {"Biswap Router", CategoryDEX, true},
	"0xd4ae6eca985340dd434d38f470accce4dc78d109": {"Thena Router", CategoryDEX, false},
	"0x19609b03c976cca288fbdae5c21d4290e9a4add7": {"Wombat Exchange", 0, false},
	"0x4a364f8c717caad9a442737eb7b8a55cc6cf18d8": {"Stargate Router", 0, true},
	"0x0000000000000000000000000000000000002001": {"BNB Staking", CategoryStaking, true},
	"0x6807dc923806fe8fd134338eabfb4bc76a1b6219": {"Aave Pool BSC", CategoryLending, true},
}

var defaultTokens = map[string]Token{
	"0x55d398326f99059ff775485246999027b3197955": {Symbol: "USDT", Stablecoin: true},
	"0x8ac76a51cc950d9822d68b83fe1ad97b32cd580d": {Symbol: "USDC", Stablecoin: true},
	"0xe9e7cea3dedca5984780bafc599bd69add087d56": {Symbol: "BUSD", Stablecoin: true},
	"0x1af3f329e8be154074d8769d1ffa4ee058b1dbc3": {Symbol: "DAI", Stablecoin: true},
	"0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c": {Symbol: "WBNB", BlueChip: true},
	"0x2170ed0880ac9a755fd29b2688956bd959f933f8": {Symbol: "ETH", BlueChip: true},
	"0x7130d2a12b9bcbfae4f2634d864a1ee1ce3ead9c": {Symbol: "BTCB", BlueChip: true},
}

// Default returns the built-in BNB Smart Chain registry.
func Default() *Registry {
	protocols := make(map[common.Address]Protocol, len(defaultProtocols))
	for addr, p := range defaultProtocols {
		protocols[common.HexToAddress(addr)] = p
	}
	tokens := make(map[common.Address]Token, len(defaultTokens))
	for addr, t := range defaultTokens {
		tokens[common.HexToAddress(addr)] = t
	}
	r, err := NewRegistry(DefaultNativeSymbol, protocols, tokens)
	if err != nil {
		panic(err)
	}
	return r
}
