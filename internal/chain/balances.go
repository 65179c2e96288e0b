package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/snxdash/internal/domain"
)

// TokenBalances fetches the wallet's balance of every queried token concurrently.
// The native coin is read from the account; the protocol token is read from the
// Synthetix contract when no address is given; everything else is an ERC-20.
func (c *Client) TokenBalances(ctx context.Context, tokens []domain.TokenQuery, wallet string) (map[string]domain.TokenBalance, error) {
	if !common.IsHexAddress(wallet) {
		return nil, fmt.Errorf("invalid wallet address %q", wallet)
	}
	owner := common.HexToAddress(wallet)

	var mu sync.Mutex
	result := make(map[string]domain.TokenBalance, len(tokens))

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range tokens {
		g.Go(func() error {
			b, err := c.tokenBalance(ctx, t, owner)
			if err != nil {
				return fmt.Errorf("fetching %s balance: %w", t.Symbol, err)
			}
			mu.Lock()
			result[t.Symbol] = b
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) tokenBalance(ctx context.Context, t domain.TokenQuery, owner common.Address) (domain.TokenBalance, error) {
	switch {
	case t.Symbol == domain.ETH && t.Address == "":
		wei, err := c.caller.BalanceAt(ctx, owner, nil)
		if err != nil {
			return domain.TokenBalance{}, err
		}
		return domain.TokenBalance{Symbol: t.Symbol, Balance: domain.FromWei(wei)}, nil

	case t.Symbol == domain.SNX && t.Address == "":
		synthetix, err := c.ContractAddress(ctx, ContractSynthetix)
		if err != nil {
			return domain.TokenBalance{}, err
		}
		v, err := c.callBig(ctx, synthetix, synthetixABI, "balanceOf", owner)
		if err != nil {
			return domain.TokenBalance{}, err
		}
		return domain.TokenBalance{Symbol: t.Symbol, Address: synthetix.Hex(), Balance: domain.FromWei(v)}, nil

	case t.Address == "":
		return domain.TokenBalance{}, fmt.Errorf("token %s has no address on this network", t.Symbol)

	default:
		if !common.IsHexAddress(t.Address) {
			return domain.TokenBalance{}, fmt.Errorf("invalid token address %q", t.Address)
		}
		return c.erc20Balance(ctx, t.Symbol, common.HexToAddress(t.Address), owner)
	}
}

func (c *Client) erc20Balance(ctx context.Context, symbol string, token, owner common.Address) (domain.TokenBalance, error) {
	amount, err := c.callBig(ctx, token, erc20ABI, "balanceOf", owner)
	if err != nil {
		return domain.TokenBalance{}, err
	}

	values, err := c.call(ctx, token, erc20ABI, "decimals")
	if err != nil {
		return domain.TokenBalance{}, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return domain.TokenBalance{}, fmt.Errorf("decimals returned %T, want uint8", values[0])
	}

	return domain.TokenBalance{
		Symbol:  symbol,
		Address: token.Hex(),
		Balance: domain.FromUnits(new(big.Int).Set(amount), decimals),
	}, nil
}
