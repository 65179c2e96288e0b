package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/snxdash/internal/domain"
)

var (
	resolverAddr      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	synthetixAddr     = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	settingsAddr      = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	feePoolAddr       = common.HexToAddress("0x00000000000000000000000000000000000000b3")
	exchangeRatesAddr = common.HexToAddress("0x00000000000000000000000000000000000000b4")
	wbtcAddr          = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	walletAddr        = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	walletHex         = walletAddr.Hex()
)

type handler func(args []any) []any

type fakeContract struct {
	abi     abi.ABI
	methods map[string]handler
}

type fakeNode struct {
	native        map[common.Address]*big.Int
	contracts     map[common.Address]fakeContract
	resolverCalls atomic.Int32
}

func (f *fakeNode) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c, ok := f.contracts[*msg.To]
	if !ok {
		return nil, fmt.Errorf("no contract at %s", msg.To.Hex())
	}
	m, err := c.abi.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := m.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	h, ok := c.methods[m.Name]
	if !ok {
		return nil, fmt.Errorf("method %s not mocked", m.Name)
	}
	if *msg.To == resolverAddr {
		f.resolverCalls.Add(1)
	}
	return m.Outputs.Pack(h(args)...)
}

func (f *fakeNode) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	if v, ok := f.native[account]; ok {
		return v, nil
	}
	return big.NewInt(0), nil
}

func ether(s string) *big.Int {
	return domain.ToWei(decimal.RequireFromString(s))
}

func constant(v any) handler {
	return func([]any) []any { return []any{v} }
}

func newFakeNode() *fakeNode {
	registry := map[string]common.Address{
		ContractSynthetix:      synthetixAddr,
		ContractSystemSettings: settingsAddr,
		ContractFeePool:        feePoolAddr,
		ContractExchangeRates:  exchangeRatesAddr,
	}

	return &fakeNode{
		native: map[common.Address]*big.Int{walletAddr: ether("2")},
		contracts: map[common.Address]fakeContract{
			resolverAddr: {abi: addressResolverABI, methods: map[string]handler{
				"getAddress": func(args []any) []any {
					name := ParseBytes32String(args[0].([32]byte))
					return []any{registry[name]}
				},
			}},
			synthetixAddr: {abi: synthetixABI, methods: map[string]handler{
				"balanceOf":              constant(ether("10")),
				"collateralisationRatio": constant(ether("0.25")),
				"transferableSynthetix":  constant(ether("3")),
				"debtBalanceOf": func(args []any) []any {
					if ParseBytes32String(args[1].([32]byte)) != domain.SUSD {
						return []any{big.NewInt(0)}
					}
					return []any{ether("150.5")}
				},
				"collateral":        constant(ether("10")),
				"maxIssuableSynths": constant(ether("200")),
				"totalSupply":       constant(ether("1000000")),
			}},
			settingsAddr: {abi: systemSettingsABI, methods: map[string]handler{
				"issuanceRatio": constant(ether("0.2")),
			}},
			feePoolAddr: {abi: feePoolABI, methods: map[string]handler{
				"recentFeePeriods": func(args []any) []any {
					start := uint64(1_600_000_000)
					if args[0].(*big.Int).Uint64() == 1 {
						start -= 604_800
					}
					return []any{uint64(42), uint64(0), start, ether("1000"), ether("400"), ether("5000"), ether("1250.75")}
				},
				"feePeriodDuration": constant(big.NewInt(604_800)),
			}},
			exchangeRatesAddr: {abi: exchangeRatesABI, methods: map[string]handler{
				"ratesForCurrencies": func(args []any) []any {
					prices := map[string]*big.Int{
						domain.SNX:  ether("5"),
						domain.SUSD: ether("1"),
						domain.SETH: ether("1000"),
						domain.SBTC: ether("30000"),
					}
					keys := args[0].([][32]byte)
					out := make([]*big.Int, len(keys))
					for i, k := range keys {
						if p, ok := prices[ParseBytes32String(k)]; ok {
							out[i] = p
						} else {
							out[i] = big.NewInt(0)
						}
					}
					return []any{out}
				},
			}},
			wbtcAddr: {abi: erc20ABI, methods: map[string]handler{
				"balanceOf": constant(big.NewInt(150_000_000)),
				"decimals":  constant(uint8(8)),
			}},
		},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestFormatBytes32String(t *testing.T) {
	b, err := FormatBytes32String("Synthetix")
	require.NoError(t, err)
	assert.Equal(t, byte('S'), b[0])
	assert.Equal(t, byte(0), b[9])
	assert.Equal(t, "Synthetix", ParseBytes32String(b))

	_, err = FormatBytes32String("this string is definitely longer than 31 bytes")
	assert.Error(t, err)
}

func TestContractAddressIsCached(t *testing.T) {
	node := newFakeNode()
	c := NewClient(node, resolverAddr)

	for range 3 {
		addr, err := c.ContractAddress(context.Background(), ContractFeePool)
		require.NoError(t, err)
		assert.Equal(t, feePoolAddr, addr)
	}
	assert.Equal(t, int32(1), node.resolverCalls.Load())
}

func TestContractAddressNotRegistered(t *testing.T) {
	c := NewClient(newFakeNode(), resolverAddr)

	_, err := c.ContractAddress(context.Background(), "Depot")
	assert.ErrorIs(t, err, ErrContractNotFound)
}

func TestTokenBalances(t *testing.T) {
	c := NewClient(newFakeNode(), resolverAddr)

	balances, err := c.TokenBalances(context.Background(), []domain.TokenQuery{
		{Symbol: domain.ETH},
		{Symbol: domain.SNX},
		{Symbol: domain.WBTC, Address: wbtcAddr.Hex()},
	}, walletHex)
	require.NoError(t, err)
	require.Len(t, balances, 3)

	assert.True(t, balances[domain.ETH].Balance.Equal(dec("2")), "ETH = %s", balances[domain.ETH].Balance)
	assert.True(t, balances[domain.SNX].Balance.Equal(dec("10")), "SNX = %s", balances[domain.SNX].Balance)
	assert.True(t, balances[domain.WBTC].Balance.Equal(dec("1.5")), "WBTC = %s", balances[domain.WBTC].Balance)
	assert.Equal(t, wbtcAddr.Hex(), balances[domain.WBTC].Address)
}

func TestTokenBalancesErrors(t *testing.T) {
	c := NewClient(newFakeNode(), resolverAddr)

	_, err := c.TokenBalances(context.Background(), []domain.TokenQuery{{Symbol: domain.ETH}}, "not-an-address")
	assert.Error(t, err)

	_, err = c.TokenBalances(context.Background(), []domain.TokenQuery{{Symbol: domain.RenBTC}}, walletHex)
	assert.Error(t, err, "token without address must fail")

	_, err = c.TokenBalances(context.Background(), []domain.TokenQuery{
		{Symbol: domain.WETH, Address: "0x00000000000000000000000000000000000000d9"},
	}, walletHex)
	assert.Error(t, err, "unknown contract must fail")
}

func TestDebtData(t *testing.T) {
	c := NewClient(newFakeNode(), resolverAddr)

	data, err := c.DebtData(context.Background(), walletHex)
	require.NoError(t, err)

	assert.True(t, data.TargetCRatio.Equal(dec("0.2")))
	assert.True(t, data.CurrentCRatio.Equal(dec("0.25")))
	assert.True(t, data.Transferable.Equal(dec("3")))
	assert.True(t, data.DebtBalance.Equal(dec("150.5")))
	assert.True(t, data.Collateral.Equal(dec("10")))
	assert.True(t, data.IssuableSynths.Equal(dec("200")))
	assert.True(t, data.Balance.Equal(dec("10")))
	assert.True(t, data.TotalSupply.Equal(dec("1000000")))
}

func TestDebtDataInvalidWallet(t *testing.T) {
	c := NewClient(newFakeNode(), resolverAddr)

	_, err := c.DebtData(context.Background(), "0x123")
	assert.Error(t, err)
}

func TestFeePoolData(t *testing.T) {
	c := NewClient(newFakeNode(), resolverAddr)

	current, err := c.FeePoolData(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(604_800), current.FeePeriodDuration)
	assert.Equal(t, int64(1_600_000_000), current.StartTime)
	assert.True(t, current.FeesToDistribute.Equal(dec("1000")))
	assert.True(t, current.FeesClaimed.Equal(dec("400")))
	assert.True(t, current.RewardsToDistribute.Equal(dec("5000")))
	assert.True(t, current.RewardsClaimed.Equal(dec("1250.75")))

	previous, err := c.FeePoolData(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1_600_000_000-604_800), previous.StartTime)
}

func TestFetchRates(t *testing.T) {
	c := NewClient(newFakeNode(), resolverAddr)

	rates, err := c.FetchRates(context.Background())
	require.NoError(t, err)

	assert.True(t, rates[domain.SNX].Equal(dec("5")))
	assert.True(t, rates[domain.SBTC].Equal(dec("30000")))
	assert.True(t, rates[domain.ETH].Equal(dec("1000")), "ETH is priced at sETH")
	assert.True(t, rates[domain.BTC].Equal(dec("30000")), "BTC is priced at sBTC")
}

func TestRatesOmitsUnknownKeys(t *testing.T) {
	c := NewClient(newFakeNode(), resolverAddr)

	rates, err := c.Rates(context.Background(), []string{domain.SNX, "sDOGE"})
	require.NoError(t, err)

	assert.Len(t, rates, 1)
	_, ok := rates["sDOGE"]
	assert.False(t, ok)
}
