package domain

import "strings"

// Currency keys used by the dashboard. Crypto keys name wallet assets, synth keys
// name the protocol's synthetic assets (also the price-table keys for BTC exposure).
const (
	ETH    = "ETH"
	WETH   = "WETH"
	SNX    = "SNX"
	BTC    = "BTC"
	WBTC   = "WBTC"
	RenBTC = "renBTC"

	SUSD = "sUSD"
	SETH = "sETH"
	SBTC = "sBTC"
)

// AssetToSynth returns the synth that tracks the given asset.
func AssetToSynth(asset string) string {
	return "s" + strings.TrimPrefix(asset, "s")
}
