package chains

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

const testMessage = "Sign this message to prove you own this wallet.\n\nNonce: 5f1c"

func newEVMKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

// signEVM signs like a wallet's personal_sign, with v in {27, 28}
func signEVM(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

func newEd25519Key(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}

// flipHexChar changes one hex digit at i
func flipHexChar(s string, i int) string {
	b := []byte(s)
	if b[i] == '0' {
		b[i] = '1'
	} else {
		b[i] = '0'
	}
	return string(b)
}

func TestEVMVerifier_ValidSignature(t *testing.T) {
	v := NewEVMVerifier()
	key := newEVMKey(t)
	address := crypto.PubkeyToAddress(key.PublicKey)
	sig := signEVM(t, key, testMessage)

	assert.True(t, v.Verify(testMessage, sig, address.Hex()))

	got, err := v.DeriveAddress(address.Hex())
	require.NoError(t, err)
	assert.Equal(t, address.Hex(), got)
}

func TestEVMVerifier_AddressCaseInsensitive(t *testing.T) {
	v := NewEVMVerifier()
	key := newEVMKey(t)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	sig := signEVM(t, key, testMessage)

	lower := "0x" + hex.EncodeToString(crypto.PubkeyToAddress(key.PublicKey).Bytes())
	assert.True(t, v.Verify(testMessage, sig, lower))
	assert.True(t, v.Verify(testMessage, sig, "0X"+address[2:]))
}

func TestEVMVerifier_PublicKeyAsIdentity(t *testing.T) {
	v := NewEVMVerifier()
	key := newEVMKey(t)
	sig := signEVM(t, key, testMessage)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	uncompressed := hexutil.Encode(crypto.FromECDSAPub(&key.PublicKey))
	compressed := hexutil.Encode(crypto.CompressPubkey(&key.PublicKey))

	for _, pub := range []string{uncompressed, compressed} {
		assert.True(t, v.Verify(testMessage, sig, pub))
		got, err := v.DeriveAddress(pub)
		require.NoError(t, err)
		assert.Equal(t, address, got)
	}
}

func TestEVMVerifier_RecoveryIDWithoutOffset(t *testing.T) {
	v := NewEVMVerifier()
	key := newEVMKey(t)
	sig, err := crypto.Sign(accounts.TextHash([]byte(testMessage)), key)
	require.NoError(t, err)

	assert.True(t, v.Verify(testMessage, hexutil.Encode(sig), crypto.PubkeyToAddress(key.PublicKey).Hex()))
}

func TestEVMVerifier_Rejects(t *testing.T) {
	v := NewEVMVerifier()
	key := newEVMKey(t)
	other := newEVMKey(t)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	sig := signEVM(t, key, testMessage)

	tests := []struct {
		name      string
		message   string
		signature string
		publicKey string
	}{
		{"appended character", testMessage, sig + "x", address},
		{"different message", "different text", sig, address},
		{"different signer", testMessage, signEVM(t, other, testMessage), address},
		{"truncated signature", testMessage, sig[:len(sig)-2], address},
		{"non-hex signature", testMessage, "0xzz", address},
		{"empty signature", testMessage, "", address},
		{"malformed address", testMessage, sig, "0x1234"},
		{"non-hex address", testMessage, sig, "not-an-address"},
		{"bad recovery id", testMessage, sig[:len(sig)-2] + "05", address},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, v.Verify(tt.message, tt.signature, tt.publicKey))
		})
	}
}

func TestEVMVerifier_SingleCharacterFlip(t *testing.T) {
	v := NewEVMVerifier()
	key := newEVMKey(t)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	sig := signEVM(t, key, testMessage)

	// Skip the 0x prefix
	for i := 2; i < len(sig); i++ {
		assert.False(t, v.Verify(testMessage, flipHexChar(sig, i), address), "flipped index %d", i)
	}

	for i := range testMessage {
		msg := []byte(testMessage)
		msg[i] ^= 0x01
		assert.False(t, v.Verify(string(msg), sig, address), "flipped message byte %d", i)
	}
}

func TestAptosVerifier_ValidSignature(t *testing.T) {
	v := NewAptosVerifier()
	pub, priv := newEd25519Key(t)
	sig := hexutil.Encode(ed25519.Sign(priv, []byte(testMessage)))

	assert.True(t, v.Verify(testMessage, sig, hexutil.Encode(pub)))
	assert.True(t, v.Verify(testMessage, sig[2:], hex.EncodeToString(pub)))

	digest := sha3.Sum256(append([]byte(pub), 0x00))
	got, err := v.DeriveAddress(hexutil.Encode(pub))
	require.NoError(t, err)
	assert.Equal(t, "0x"+hex.EncodeToString(digest[:]), got)
}

func TestAptosVerifier_Rejects(t *testing.T) {
	v := NewAptosVerifier()
	pub, priv := newEd25519Key(t)
	otherPub, _ := newEd25519Key(t)
	pubHex := hexutil.Encode(pub)
	sig := hexutil.Encode(ed25519.Sign(priv, []byte(testMessage)))

	assert.False(t, v.Verify(testMessage, sig+"x", pubHex))
	assert.False(t, v.Verify("different text", sig, pubHex))
	assert.False(t, v.Verify(testMessage, sig, hexutil.Encode(otherPub)))
	assert.False(t, v.Verify(testMessage, sig[:len(sig)-2], pubHex))
	assert.False(t, v.Verify(testMessage, sig, pubHex[:len(pubHex)-2]))

	for i := 2; i < len(sig); i++ {
		assert.False(t, v.Verify(testMessage, flipHexChar(sig, i), pubHex), "flipped index %d", i)
	}

	_, err := v.DeriveAddress("0x1234")
	assert.Error(t, err)
}

func TestSolanaVerifier_Base58AndHex(t *testing.T) {
	v := NewSolanaVerifier()
	pub, priv := newEd25519Key(t)
	raw := ed25519.Sign(priv, SolanaSigningBytes(testMessage))

	assert.True(t, v.Verify(testMessage, base58.Encode(raw), base58.Encode(pub)))
	assert.True(t, v.Verify(testMessage, hexutil.Encode(raw), hexutil.Encode(pub)))
	assert.False(t, v.Verify("different text", base58.Encode(raw), base58.Encode(pub)))
	assert.False(t, v.Verify(testMessage, base58.Encode(raw[:63]), base58.Encode(pub)))

	bare := ed25519.Sign(priv, []byte(testMessage))
	assert.False(t, v.Verify(testMessage, base58.Encode(bare), base58.Encode(pub)))

	got, err := v.DeriveAddress(hexutil.Encode(pub))
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(pub), got)
}

func TestCrossChainSignaturesRejected(t *testing.T) {
	evm := NewEVMVerifier()
	aptos := NewAptosVerifier()

	evmKey := newEVMKey(t)
	evmSig := signEVM(t, evmKey, testMessage)
	evmAddress := crypto.PubkeyToAddress(evmKey.PublicKey).Hex()

	pub, priv := newEd25519Key(t)
	aptosSig := hexutil.Encode(ed25519.Sign(priv, []byte(testMessage)))
	aptosPub := hexutil.Encode(pub)

	assert.False(t, aptos.Verify(testMessage, evmSig, evmAddress))
	assert.False(t, aptos.Verify(testMessage, evmSig, aptosPub))
	assert.False(t, evm.Verify(testMessage, aptosSig, aptosPub))
	assert.False(t, evm.Verify(testMessage, aptosSig, evmAddress))
}

func TestCrossChainEd25519SignaturesRejected(t *testing.T) {
	aptos := NewAptosVerifier()
	solana := NewSolanaVerifier()

	pub, priv := newEd25519Key(t)
	pubHex := hexutil.Encode(pub)
	aptosSig := ed25519.Sign(priv, []byte(testMessage))
	solanaSig := ed25519.Sign(priv, SolanaSigningBytes(testMessage))

	require.True(t, aptos.Verify(testMessage, hexutil.Encode(aptosSig), pubHex))
	require.True(t, solana.Verify(testMessage, hexutil.Encode(solanaSig), pubHex))

	assert.False(t, solana.Verify(testMessage, hexutil.Encode(aptosSig), pubHex))
	assert.False(t, solana.Verify(testMessage, base58.Encode(aptosSig), base58.Encode(pub)))
	assert.False(t, aptos.Verify(testMessage, hexutil.Encode(solanaSig), pubHex))

	evm := NewEVMVerifier()
	evmKey := newEVMKey(t)
	evmSig := signEVM(t, evmKey, testMessage)
	assert.False(t, solana.Verify(testMessage, evmSig, pubHex))
	assert.False(t, evm.Verify(testMessage, hexutil.Encode(solanaSig), crypto.PubkeyToAddress(evmKey.PublicKey).Hex()))
}
