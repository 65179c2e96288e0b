package domain

import "github.com/shopspring/decimal"

// WalletDebtData holds a staker's collateralisation and debt figures.
type WalletDebtData struct {
	TargetCRatio   decimal.Decimal `json:"targetCRatio"`
	CurrentCRatio  decimal.Decimal `json:"currentCRatio"`
	Transferable   decimal.Decimal `json:"transferable"`
	DebtBalance    decimal.Decimal `json:"debtBalance"`
	Collateral     decimal.Decimal `json:"collateral"`
	IssuableSynths decimal.Decimal `json:"issuableSynths"`
	Balance        decimal.Decimal `json:"balance"`
	TotalSupply    decimal.Decimal `json:"totalSupply"`
}

// FeePoolData describes one fee period of the fee pool.
type FeePoolData struct {
	FeePeriodDuration   int64           `json:"feePeriodDuration"`
	StartTime           int64           `json:"startTime"`
	FeesToDistribute    decimal.Decimal `json:"feesToDistribute"`
	FeesClaimed         decimal.Decimal `json:"feesClaimed"`
	RewardsToDistribute decimal.Decimal `json:"rewardsToDistribute"`
	RewardsClaimed      decimal.Decimal `json:"rewardsClaimed"`
}
