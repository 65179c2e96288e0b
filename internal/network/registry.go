package network

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/mtlprog/snxdash/internal/domain"
)

// Mainnet is the fallback network for per-network token addresses.
const Mainnet = "mainnet"

//go:embed networks.yaml
var defaultRegistry []byte

// ErrUnknownNetwork indicates that a network is not present in the registry.
var ErrUnknownNetwork = errors.New("unknown network")

// Network holds contract addresses for a single chain.
type Network struct {
	Name            string            `yaml:"-"`
	ID              int64             `yaml:"id"`
	AddressResolver string            `yaml:"addressResolver"`
	Tokens          map[string]string `yaml:"tokens"`
}

// Domain returns the network identity used in sessions and query keys.
func (n Network) Domain() domain.Network {
	return domain.Network{ID: n.ID, Name: n.Name}
}

// TokenAddress returns the ERC-20 address of a tracked token, or "" when the
// token is not deployed on this network.
func (n Network) TokenAddress(symbol string) string {
	return n.Tokens[symbol]
}

// Registry is the set of supported networks.
type Registry struct {
	networks map[string]Network
}

type registryFile struct {
	Networks map[string]Network `yaml:"networks"`
}

// Default returns the embedded registry.
func Default() *Registry {
	r, err := Parse(defaultRegistry)
	if err != nil {
		panic(fmt.Sprintf("network: embedded registry is invalid: %v", err))
	}
	return r
}

// Load reads a registry from a YAML file. An empty path returns the embedded registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading networks file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a registry document.
func Parse(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing networks file: %w", err)
	}
	if len(f.Networks) == 0 {
		return nil, errors.New("networks file defines no networks")
	}

	networks := make(map[string]Network, len(f.Networks))
	for name, n := range f.Networks {
		if n.ID <= 0 {
			return nil, fmt.Errorf("network %s: id must be positive", name)
		}
		if !common.IsHexAddress(n.AddressResolver) {
			return nil, fmt.Errorf("network %s: invalid address resolver %q", name, n.AddressResolver)
		}
		for symbol, addr := range n.Tokens {
			if !common.IsHexAddress(addr) {
				return nil, fmt.Errorf("network %s: invalid %s address %q", name, symbol, addr)
			}
		}
		n.Name = name
		networks[name] = n
	}
	return &Registry{networks: networks}, nil
}

// Network looks up a network by name.
func (r *Registry) Network(name string) (Network, error) {
	n, ok := r.networks[name]
	if !ok {
		return Network{}, fmt.Errorf("%w: %s", ErrUnknownNetwork, name)
	}
	return n, nil
}

// ByID looks up a network by chain id.
func (r *Registry) ByID(id int64) (Network, error) {
	n, ok := lo.Find(lo.Values(r.networks), func(n Network) bool {
		return n.ID == id
	})
	if !ok {
		return Network{}, fmt.Errorf("%w: chain id %d", ErrUnknownNetwork, id)
	}
	return n, nil
}

// Names returns the registered network names in sorted order.
func (r *Registry) Names() []string {
	names := lo.Keys(r.networks)
	sort.Strings(names)
	return names
}

// TokenAddress resolves a token address on the named network, falling back to
// mainnet when the network is unknown or does not list the token.
func (r *Registry) TokenAddress(networkName, symbol string) string {
	if n, ok := r.networks[networkName]; ok {
		if addr := n.TokenAddress(symbol); addr != "" {
			return addr
		}
	}
	return r.networks[Mainnet].TokenAddress(symbol)
}
