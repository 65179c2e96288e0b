package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mtlprog/snxdash/internal/chain"
	"github.com/mtlprog/snxdash/internal/config"
	"github.com/mtlprog/snxdash/internal/network"
	"github.com/mtlprog/snxdash/internal/rates"
	"github.com/mtlprog/snxdash/internal/staking"
	"github.com/mtlprog/snxdash/internal/wallet"
)

// stack is the set of services shared by every command.
type stack struct {
	cfg      config.Config
	registry *network.Registry
	network  network.Network
	chain    *chain.Client
	rates    *rates.Service
	debt     *staking.DebtService
	feePool  *staking.FeePoolService
	wallet   *wallet.Service
}

func newStack(ctx context.Context, cfg config.Config, repo rates.QuoteRepository) (*stack, error) {
	registry, err := network.Load(cfg.NetworksFile)
	if err != nil {
		return nil, err
	}
	net, err := registry.Network(cfg.Network)
	if err != nil {
		return nil, fmt.Errorf("selecting network: %w (known: %v)", err, registry.Names())
	}
	if cfg.EthRPCURL == "" {
		return nil, fmt.Errorf("ETH_RPC_URL is required")
	}

	client, err := chain.Dial(ctx, cfg.EthRPCURL, common.HexToAddress(net.AddressResolver))
	if err != nil {
		return nil, err
	}

	var source rates.Source = client
	if cfg.RatesSource == config.RatesSourceCoinGecko {
		source = rates.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.CoinGeckoDelay, cfg.CoinGeckoRetryMax)
	}
	slog.Info("using rates source", "source", cfg.RatesSource, "network", net.Name)

	ratesSvc := rates.NewService(source, repo, cfg.RatesStaleThreshold, cfg.QueryCacheTTL)
	debtSvc := staking.NewDebtService(client, cfg.QueryCacheTTL)

	return &stack{
		cfg:      cfg,
		registry: registry,
		network:  net,
		chain:    client,
		rates:    ratesSvc,
		debt:     debtSvc,
		feePool:  staking.NewFeePoolService(client, cfg.QueryCacheTTL),
		wallet:   wallet.NewService(client, ratesSvc, debtSvc, registry, cfg.QueryCacheTTL),
	}, nil
}

func (s *stack) Close() {
	s.chain.Close()
}

// Network resolves only the network this process is connected to.
func (s *stack) Network(name string) (network.Network, error) {
	if name != s.network.Name {
		return network.Network{}, fmt.Errorf("%w: %s (serving %s)", network.ErrUnknownNetwork, name, s.network.Name)
	}
	return s.network, nil
}
