package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Contract names registered in the address resolver.
const (
	ContractSynthetix      = "Synthetix"
	ContractSystemSettings = "SystemSettings"
	ContractFeePool        = "FeePool"
	ContractExchangeRates  = "ExchangeRates"
)

// ErrContractNotFound indicates that the address resolver has no entry for a contract.
var ErrContractNotFound = errors.New("contract not registered in address resolver")

// Caller is the subset of an Ethereum RPC client used for read-only calls.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Client reads protocol and token state from an Ethereum node.
type Client struct {
	caller   Caller
	resolver common.Address
	closeFn  func()

	mu        sync.Mutex
	contracts map[string]common.Address
}

// NewClient creates a Client over an existing caller. resolver is the protocol's
// address resolver, used to locate the other contracts.
func NewClient(caller Caller, resolver common.Address) *Client {
	return &Client{
		caller:    caller,
		resolver:  resolver,
		contracts: make(map[string]common.Address),
	}
}

// Dial connects to an Ethereum JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string, resolver common.Address) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing ethereum node: %w", err)
	}
	c := NewClient(eth, resolver)
	c.closeFn = eth.Close
	return c, nil
}

// Close releases the underlying RPC connection, if the client owns one.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// call packs and executes a read-only contract call, returning the unpacked outputs.
func (c *Client) call(ctx context.Context, contract common.Address, a abi.ABI, method string, args ...any) ([]any, error) {
	data, err := a.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}

	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %s on %s: %w", method, contract.Hex(), err)
	}

	values, err := a.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s: %w", method, err)
	}
	return values, nil
}

// callBig executes a call whose single output is a uint256.
func (c *Client) callBig(ctx context.Context, contract common.Address, a abi.ABI, method string, args ...any) (*big.Int, error) {
	values, err := c.call(ctx, contract, a, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s returned %T, want *big.Int", method, values[0])
	}
	return v, nil
}

// ContractAddress resolves a protocol contract through the address resolver.
// Resolved addresses are remembered for the lifetime of the client.
func (c *Client) ContractAddress(ctx context.Context, name string) (common.Address, error) {
	c.mu.Lock()
	addr, ok := c.contracts[name]
	c.mu.Unlock()
	if ok {
		return addr, nil
	}

	key, err := FormatBytes32String(name)
	if err != nil {
		return common.Address{}, err
	}
	values, err := c.call(ctx, c.resolver, addressResolverABI, "getAddress", key)
	if err != nil {
		return common.Address{}, fmt.Errorf("resolving %s: %w", name, err)
	}
	addr, ok = values[0].(common.Address)
	if !ok || addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s", ErrContractNotFound, name)
	}

	c.mu.Lock()
	c.contracts[name] = addr
	c.mu.Unlock()
	return addr, nil
}
