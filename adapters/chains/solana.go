package chains

import (
	"crypto/ed25519"
	"fmt"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"github.com/mr-tron/base58"
)

// solanaSigningDomain is the off-chain message domain Solana wallets sign under.
// It keeps a raw Ed25519 signature made for another chain from verifying here.
const solanaSigningDomain = "\xffsolana offchain"

// SolanaVerifier verifies Ed25519 signatures over solanaSigningDomain || message where the
// address is the base58 public key. Keys and signatures are accepted as hex or base58.
type SolanaVerifier struct{}

// NewSolanaVerifier creates a Solana verifier
func NewSolanaVerifier() ports.ChainVerifier {
	return &SolanaVerifier{}
}

func (v *SolanaVerifier) Chains() []core.Chain {
	return []core.Chain{core.ChainSolana}
}

func (v *SolanaVerifier) Verify(message, signature, publicKey string) bool {
	pub, err := decodeFixed(publicKey, ed25519.PublicKeySize)
	if err != nil {
		return false
	}

	sig, err := decodeFixed(signature, ed25519.SignatureSize)
	if err != nil {
		return false
	}

	return ed25519.Verify(pub, SolanaSigningBytes(message), sig)
}

// SolanaSigningBytes returns the bytes a Solana wallet signs for message
func SolanaSigningBytes(message string) []byte {
	return append([]byte(solanaSigningDomain), message...)
}

func (v *SolanaVerifier) DeriveAddress(publicKey string) (string, error) {
	pub, err := decodeFixed(publicKey, ed25519.PublicKeySize)
	if err != nil {
		return "", fmt.Errorf("invalid ed25519 public key: %w", core.ErrInvalidInput)
	}
	return base58.Encode(pub), nil
}
