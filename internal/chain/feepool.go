package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/mtlprog/snxdash/internal/domain"
)

// FeePoolData reads a recent fee period (0 is the open period, 1 the last
// closed one) together with the fee period duration.
func (c *Client) FeePoolData(ctx context.Context, period uint64) (domain.FeePoolData, error) {
	feePool, err := c.ContractAddress(ctx, ContractFeePool)
	if err != nil {
		return domain.FeePoolData{}, err
	}

	values, err := c.call(ctx, feePool, feePoolABI, "recentFeePeriods", new(big.Int).SetUint64(period))
	if err != nil {
		return domain.FeePoolData{}, fmt.Errorf("reading fee period %d: %w", period, err)
	}
	if len(values) != 7 {
		return domain.FeePoolData{}, fmt.Errorf("recentFeePeriods returned %d values, want 7", len(values))
	}

	duration, err := c.callBig(ctx, feePool, feePoolABI, "feePeriodDuration")
	if err != nil {
		return domain.FeePoolData{}, fmt.Errorf("reading fee period duration: %w", err)
	}

	startTime, _ := values[2].(uint64)
	amount := func(i int) *big.Int {
		v, _ := values[i].(*big.Int)
		return v
	}

	return domain.FeePoolData{
		FeePeriodDuration:   duration.Int64(),
		StartTime:           int64(startTime),
		FeesToDistribute:    domain.FromWei(amount(3)),
		FeesClaimed:         domain.FromWei(amount(4)),
		RewardsToDistribute: domain.FromWei(amount(5)),
		RewardsClaimed:      domain.FromWei(amount(6)),
	}, nil
}
