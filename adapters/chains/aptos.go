package chains

import (
	"crypto/ed25519"
	"fmt"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"golang.org/x/crypto/sha3"
)

// aptosSingleKeyScheme is appended to the public key before hashing it into an address
const aptosSingleKeyScheme = 0x00

// AptosVerifier verifies Ed25519 signatures over the raw message bytes
type AptosVerifier struct{}

// NewAptosVerifier creates an Aptos verifier
func NewAptosVerifier() ports.ChainVerifier {
	return &AptosVerifier{}
}

func (v *AptosVerifier) Chains() []core.Chain {
	return []core.Chain{core.ChainAptos}
}

func (v *AptosVerifier) Verify(message, signature, publicKey string) bool {
	pub, err := decodeHex(publicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}

	sig, err := decodeHex(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(pub, []byte(message), sig)
}

// DeriveAddress returns sha3-256(pubkey || scheme) as 0x-prefixed hex
func (v *AptosVerifier) DeriveAddress(publicKey string) (string, error) {
	pub, err := decodeHex(publicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return "", fmt.Errorf("invalid ed25519 public key: %w", core.ErrInvalidInput)
	}

	digest := sha3.Sum256(append(pub, aptosSingleKeyScheme))
	return hexWithPrefix(digest[:]), nil
}
