package chains

import (
	"fmt"
	"sort"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// Registry is a fixed lookup table from chain id to verifier
type Registry struct {
	defaultChain core.Chain
	verifiers    map[core.Chain]ports.ChainVerifier
}

// NewRegistry builds a registry from verifiers. The default chain must be served by one of them.
func NewRegistry(defaultChain core.Chain, verifiers ...ports.ChainVerifier) (*Registry, error) {
	r := &Registry{
		defaultChain: defaultChain,
		verifiers:    make(map[core.Chain]ports.ChainVerifier),
	}

	for _, v := range verifiers {
		for _, chain := range v.Chains() {
			if _, exists := r.verifiers[chain]; exists {
				return nil, fmt.Errorf("chain %q registered twice", chain)
			}
			r.verifiers[chain] = v
		}
	}

	if _, ok := r.verifiers[defaultChain]; !ok {
		return nil, fmt.Errorf("default chain %q: %w", defaultChain, core.ErrUnsupportedChain)
	}

	return r, nil
}

// NewDefaultRegistry registers the EVM, Aptos and Solana verifiers
func NewDefaultRegistry(defaultChain core.Chain) (*Registry, error) {
	return NewRegistry(defaultChain, NewEVMVerifier(), NewAptosVerifier(), NewSolanaVerifier())
}

// Resolve returns the verifier for chain. An empty chain resolves to the default.
func (r *Registry) Resolve(chain core.Chain) (core.Chain, ports.ChainVerifier, error) {
	if chain == "" {
		chain = r.defaultChain
	}

	v, ok := r.verifiers[chain]
	if !ok {
		return "", nil, fmt.Errorf("%q: %w", chain, core.ErrUnsupportedChain)
	}

	return chain, v, nil
}

func (r *Registry) Chains() []core.Chain {
	chains := make([]core.Chain, 0, len(r.verifiers))
	for chain := range r.verifiers {
		chains = append(chains, chain)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })
	return chains
}
