package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20JSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

const addressResolverJSON = `[
	{"type":"function","name":"getAddress","stateMutability":"view","inputs":[{"name":"name","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]}
]`

const synthetixJSON = `[
	{"type":"function","name":"collateralisationRatio","stateMutability":"view","inputs":[{"name":"_issuer","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transferableSynthetix","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"transferable","type":"uint256"}]},
	{"type":"function","name":"debtBalanceOf","stateMutability":"view","inputs":[{"name":"_issuer","type":"address"},{"name":"currencyKey","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"collateral","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"maxIssuableSynths","stateMutability":"view","inputs":[{"name":"_issuer","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const systemSettingsJSON = `[
	{"type":"function","name":"issuanceRatio","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const feePoolJSON = `[
	{"type":"function","name":"recentFeePeriods","stateMutability":"view","inputs":[{"name":"index","type":"uint256"}],"outputs":[
		{"name":"feePeriodId","type":"uint64"},
		{"name":"startingDebtIndex","type":"uint64"},
		{"name":"startTime","type":"uint64"},
		{"name":"feesToDistribute","type":"uint256"},
		{"name":"feesClaimed","type":"uint256"},
		{"name":"rewardsToDistribute","type":"uint256"},
		{"name":"rewardsClaimed","type":"uint256"}
	]},
	{"type":"function","name":"feePeriodDuration","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const exchangeRatesJSON = `[
	{"type":"function","name":"ratesForCurrencies","stateMutability":"view","inputs":[{"name":"currencyKeys","type":"bytes32[]"}],"outputs":[{"name":"","type":"uint256[]"}]}
]`

var (
	erc20ABI           = mustParseABI("ERC20", erc20JSON)
	addressResolverABI = mustParseABI("AddressResolver", addressResolverJSON)
	synthetixABI       = mustParseABI("Synthetix", synthetixJSON)
	systemSettingsABI  = mustParseABI("SystemSettings", systemSettingsJSON)
	feePoolABI         = mustParseABI("FeePool", feePoolJSON)
	exchangeRatesABI   = mustParseABI("ExchangeRates", exchangeRatesJSON)
)

func mustParseABI(name, def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("chain: invalid %s ABI: %v", name, err))
	}
	return parsed
}
