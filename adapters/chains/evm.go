package chains

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// EVMVerifier verifies EIP-191 personal_sign signatures.
// The claimed identity may be an address or a secp256k1 public key.
type EVMVerifier struct {
	chains []core.Chain
}

// NewEVMVerifier creates a verifier serving the given EVM chains
func NewEVMVerifier(chains ...core.Chain) ports.ChainVerifier {
	if len(chains) == 0 {
		chains = []core.Chain{core.ChainAvalanche, core.ChainEthereum, core.ChainBSC, core.ChainPolygon}
	}
	return &EVMVerifier{chains: chains}
}

func (v *EVMVerifier) Chains() []core.Chain {
	return v.chains
}

// Verify recovers the signer of message and compares it with publicKey
func (v *EVMVerifier) Verify(message, signature, publicKey string) bool {
	expected, err := evmAddress(publicKey)
	if err != nil {
		return false
	}

	sig, err := decodeHex(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return false
	}

	recovered, err := RecoverAddress(message, sig)
	if err != nil {
		return false
	}

	return recovered == expected
}

// DeriveAddress returns the EIP-55 checksummed address
func (v *EVMVerifier) DeriveAddress(publicKey string) (string, error) {
	addr, err := evmAddress(publicKey)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

// RecoverAddress recovers the address that produced a 65-byte personal_sign signature
func RecoverAddress(message string, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes: %w", crypto.SignatureLength, core.ErrInvalidInput)
	}

	// Copy so the caller's slice keeps its wallet-style v
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(sig[crypto.RecoveryIDOffset], r, s, true) {
		return common.Address{}, fmt.Errorf("invalid signature values: %w", core.ErrInvalidInput)
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

func evmAddress(publicKey string) (common.Address, error) {
	b, err := decodeHex(publicKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode public key: %w", core.ErrInvalidInput)
	}

	var pub *ecdsa.PublicKey
	switch len(b) {
	case common.AddressLength:
		return common.BytesToAddress(b), nil
	case 33:
		pub, err = crypto.DecompressPubkey(b)
	case 64:
		pub, err = crypto.UnmarshalPubkey(append([]byte{0x04}, b...))
	case 65:
		pub, err = crypto.UnmarshalPubkey(b)
	default:
		return common.Address{}, fmt.Errorf("unexpected public key length %d: %w", len(b), core.ErrInvalidInput)
	}
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid secp256k1 public key: %w", core.ErrInvalidInput)
	}

	return crypto.PubkeyToAddress(*pub), nil
}
