package chains

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mr-tron/base58"
)

var errInvalidLength = errors.New("invalid length")

// decodeHex decodes hex with or without a 0x prefix
func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0X") {
		s = "0x" + s[2:]
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

// decodeFixed decodes exactly size bytes from hex, falling back to base58
func decodeFixed(s string, size int) ([]byte, error) {
	if b, err := decodeHex(s); err == nil && len(b) == size {
		return b, nil
	}
	b, err := base58.Decode(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, errInvalidLength
	}
	return b, nil
}

func hexWithPrefix(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
