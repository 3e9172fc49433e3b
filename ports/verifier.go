package ports

import "github.com/layer-3/walletauth/core"

// ChainVerifier checks signatures for one signature scheme.
// Implementations are pure and return false for any malformed input.
type ChainVerifier interface {
	// Chains returns every chain id this verifier serves
	Chains() []core.Chain

	// Verify reports whether signature signs message under publicKey
	Verify(message, signature, publicKey string) bool

	// DeriveAddress returns the canonical on-chain address for publicKey
	DeriveAddress(publicKey string) (string, error)
}

// VerifierRegistry maps chain ids to verifiers
type VerifierRegistry interface {
	// Resolve returns the verifier for chain, or the default verifier when chain is empty
	Resolve(chain core.Chain) (core.Chain, ChainVerifier, error)

	// Chains lists the supported chains
	Chains() []core.Chain
}
