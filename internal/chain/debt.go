package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/snxdash/internal/domain"
)

// DebtData reads a staker's collateralisation and debt figures. All reads run
// concurrently and every value is converted from wei.
func (c *Client) DebtData(ctx context.Context, wallet string) (domain.WalletDebtData, error) {
	if !common.IsHexAddress(wallet) {
		return domain.WalletDebtData{}, fmt.Errorf("invalid wallet address %q", wallet)
	}
	account := common.HexToAddress(wallet)

	synthetix, err := c.ContractAddress(ctx, ContractSynthetix)
	if err != nil {
		return domain.WalletDebtData{}, err
	}
	settings, err := c.ContractAddress(ctx, ContractSystemSettings)
	if err != nil {
		return domain.WalletDebtData{}, err
	}
	sUSD, err := FormatBytes32String(domain.SUSD)
	if err != nil {
		return domain.WalletDebtData{}, err
	}

	var (
		targetCRatio, currentCRatio, transferable, debtBalance *big.Int
		collateral, issuableSynths, balance, totalSupply       *big.Int
	)

	g, ctx := errgroup.WithContext(ctx)
	read := func(dst **big.Int, contract common.Address, a abi.ABI, method string, args ...any) {
		g.Go(func() error {
			v, err := c.callBig(ctx, contract, a, method, args...)
			if err != nil {
				return err
			}
			*dst = v
			return nil
		})
	}
	read(&targetCRatio, settings, systemSettingsABI, "issuanceRatio")
	read(&currentCRatio, synthetix, synthetixABI, "collateralisationRatio", account)
	read(&transferable, synthetix, synthetixABI, "transferableSynthetix", account)
	read(&debtBalance, synthetix, synthetixABI, "debtBalanceOf", account, sUSD)
	read(&collateral, synthetix, synthetixABI, "collateral", account)
	read(&issuableSynths, synthetix, synthetixABI, "maxIssuableSynths", account)
	read(&balance, synthetix, synthetixABI, "balanceOf", account)
	read(&totalSupply, synthetix, synthetixABI, "totalSupply")

	if err := g.Wait(); err != nil {
		return domain.WalletDebtData{}, fmt.Errorf("reading debt data for %s: %w", wallet, err)
	}

	return domain.WalletDebtData{
		TargetCRatio:   domain.FromWei(targetCRatio),
		CurrentCRatio:  domain.FromWei(currentCRatio),
		Transferable:   domain.FromWei(transferable),
		DebtBalance:    domain.FromWei(debtBalance),
		Collateral:     domain.FromWei(collateral),
		IssuableSynths: domain.FromWei(issuableSynths),
		Balance:        domain.FromWei(balance),
		TotalSupply:    domain.FromWei(totalSupply),
	}, nil
}
